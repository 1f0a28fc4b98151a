// import_caf registra en la base el CAF (XML ISO-8859-1 entregado por el SII) de una empresa.
//
// Uso: go run ./cmd/import_caf <rut-empresa> <ruta/CAF.xml>
//
//	go run ./cmd/import_caf -l    lista las empresas registradas
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/application/folio"
	"github.com/jhoicas/libro-tributario/internal/application/usecase"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/postgres"
	"github.com/jhoicas/libro-tributario/pkg/config"
	"github.com/jhoicas/libro-tributario/pkg/logger"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: import_caf <rut-empresa> <ruta/CAF.xml> | import_caf -l")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuración: %v\n", err)
		os.Exit(1)
	}
	if cfg.DB.Driver != "postgres" {
		fmt.Fprintln(os.Stderr, "import_caf requiere DB_DRIVER=postgres")
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Conexión a PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, log); err != nil {
			fmt.Fprintf(os.Stderr, "Migraciones: %v\n", err)
			os.Exit(1)
		}
	}
	store := postgres.NewStore(pool)
	auditSvc := audit.NewService(store.Repos().Audit, log)

	if os.Args[1] == "-l" {
		companies := usecase.NewCompanyUseCase(store, nil, nil, auditSvc, false, log)
		list, err := companies.List(ctx, 0, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Listar empresas: %v\n", err)
			os.Exit(1)
		}
		for _, c := range list.Items {
			fmt.Printf("%-14s %s\n", c.RUT, c.Name)
		}
		return
	}
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "falta la ruta del CAF")
		os.Exit(2)
	}

	rut, err := sii.NormalizeRUT(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "RUT: %v\n", err)
		os.Exit(1)
	}
	company, err := store.Repos().Companies.GetByRUT(ctx, rut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Buscar empresa: %v\n", err)
		os.Exit(1)
	}
	if company == nil {
		fmt.Fprintf(os.Stderr, "No existe empresa con RUT %s\n", rut)
		os.Exit(1)
	}

	f, err := os.Open(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CAF: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	allocator := folio.NewAllocator(store, auditSvc, log, cfg.Tax.CAFValidityMonths)
	caf, err := allocator.ImportCAF(ctx, company.ID, "import_caf", f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Registrar CAF: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("CAF registrado para %s: tipo %d (%s), folios %d-%d, vence %s\n",
		company.RUT, caf.DocType, sii.DTEName(caf.DocType), caf.RangeFrom, caf.RangeTo, caf.ExpiresAt.Format("2006-01-02"))
}
