// @title                       Libro Tributario API
// @version                     1.0
// @description                 Emisión de DTE, libro diario y resumen F29 para contribuyentes chilenos.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	_ "github.com/jhoicas/libro-tributario/docs"
	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/application/auth"
	"github.com/jhoicas/libro-tributario/internal/application/billing"
	"github.com/jhoicas/libro-tributario/internal/application/expenses"
	"github.com/jhoicas/libro-tributario/internal/application/folio"
	"github.com/jhoicas/libro-tributario/internal/application/ledger"
	"github.com/jhoicas/libro-tributario/internal/application/period"
	"github.com/jhoicas/libro-tributario/internal/application/usecase"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/cache"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/dte"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/dte/signer"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/libro-tributario/internal/infrastructure/pdf"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/libro-tributario/internal/interfaces/http"
	"github.com/jhoicas/libro-tributario/pkg/config"
	"github.com/jhoicas/libro-tributario/pkg/logger"
	"github.com/jhoicas/libro-tributario/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db_driver", cfg.DB.Driver).
		Str("sii_env", cfg.SII.AppEnv).
		Msg("iniciando aplicación")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("la aplicación terminó con error")
	}
	log.Info().Msg("aplicación detenida")
}

// run arma las dependencias y sirve HTTP hasta recibir SIGINT/SIGTERM.
// Los recursos abiertos se cierran con defer también cuando falla el arranque.
func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()

	// Persistencia: PostgreSQL o memoria (demos y pruebas locales)
	var store repository.Store
	switch cfg.DB.Driver {
	case "memory":
		store = memory.New()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		defer pool.Close()
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool, log); err != nil {
				return fmt.Errorf("migraciones: %w", err)
			}
		}
		store = postgres.NewStore(pool)
	}

	// Caché de instantáneas F29 (modo degradado). Sin REDIS_ADDR no hay respaldo.
	var snapshots period.SnapshotCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		f29Cache := cache.NewF29Cache(rdb, cfg.Redis.TTL)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := f29Cache.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no responde; se reintentará en cada uso")
		}
		cancel()
		snapshots = f29Cache
	}

	// Certificado de firma del representante (opcional)
	cert, err := signer.Load(cfg.SII.CertPath, cfg.SII.CertPassword)
	if err != nil {
		return fmt.Errorf("cargar certificado de firma %s: %w", cfg.SII.CertPath, err)
	}
	if cert == nil {
		log.Warn().Msg("sin certificado: los DTE se envían sin firma XMLDSig")
	}

	// El SII se simula en todos los ambientes; SII_APP_ENV sólo cambia el registro.
	siiSim := dte.NewSimulator(dte.SimulatorConfig{RejectReceivers: cfg.SII.RejectReceivers}, log)

	policy := retry.Policy{
		InitialInterval: retry.Default().InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
		MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
	}

	auditSvc := audit.NewService(store.Repos().Audit, log)
	ledgerSvc := ledger.NewService(store, auditSvc, log)
	folios := folio.NewAllocator(store, auditSvc, log, cfg.Tax.CAFValidityMonths)
	pdfGenerator := infrapdf.NewMarotoPDFGenerator()

	documents := billing.NewService(
		store, folios, ledgerSvc, auditSvc,
		dte.NewXMLBuilderService(), signer.NewDigitalSignatureService(), siiSim,
		billing.Config{
			VATRate:              cfg.Tax.VATRate,
			PaymentTermDays:      cfg.Tax.PaymentTermDays,
			ReuseFolioOnResubmit: cfg.Tax.ReuseFolioOnResubmit,
			PostOnAcceptance:     cfg.Tax.PostOnAcceptance,
			Retry:                policy,
			Certificate:          cert,
		},
		log,
	)
	documentPDF := billing.NewPDFUseCase(store, pdfGenerator)
	expenseSvc := expenses.NewService(store, ledgerSvc, auditSvc, cfg.Tax.VATRate, log)
	periodSvc := period.NewService(store, snapshots, auditSvc, pdfGenerator, cfg.Tax.VATRate, policy, log)

	repos := store.Repos()
	authUC := auth.NewAuthUseCase(repos.Users, repos.Companies, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	companyUC := usecase.NewCompanyUseCase(store, ledgerSvc, authUC, auditSvc, cfg.Tax.SeedChart, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    8 * 1024 * 1024,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Libro Tributario API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "db": cfg.DB.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CompanyUC:          companyUC,
		UserUC:             usecase.NewUserUseCase(repos.Users),
		AuthUC:             authUC,
		Documents:          documents,
		DocumentPDF:        documentPDF,
		Folios:             folios,
		Ledger:             ledgerSvc,
		Expenses:           expenseSvc,
		Periods:            periodSvc,
		Audit:              auditSvc,
		AuditRetentionDays: cfg.Tax.AuditRetentionDays,
		JWTSecret:          cfg.JWT.Secret,
	})

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(cfg.HTTP.Addr())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-listenErr:
		return fmt.Errorf("servidor HTTP: %w", err)
	case <-quit:
	}

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("apagado del servidor: %w", err)
	}
	return nil
}
