package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/application/auth"
	"github.com/jhoicas/libro-tributario/internal/application/billing"
	"github.com/jhoicas/libro-tributario/internal/application/expenses"
	"github.com/jhoicas/libro-tributario/internal/application/folio"
	"github.com/jhoicas/libro-tributario/internal/application/ledger"
	"github.com/jhoicas/libro-tributario/internal/application/period"
	"github.com/jhoicas/libro-tributario/internal/application/usecase"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CompanyUC          *usecase.CompanyUseCase
	UserUC             *usecase.UserUseCase
	AuthUC             *auth.AuthUseCase
	Documents          *billing.Service
	DocumentPDF        *billing.PDFUseCase
	Folios             *folio.Allocator
	Ledger             *ledger.Service
	Expenses           *expenses.Service
	Periods            *period.Service
	Audit              *audit.Service
	AuditRetentionDays int
	JWTSecret          string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	adminOnly := RequireRole(entity.RoleAdmin)
	accounting := RequireRole(entity.RoleAdmin, entity.RoleContador)
	anyRole := RequireRole(entity.RoleAdmin, entity.RoleContador, entity.RoleOperador)

	// Alta de empresa y login (públicos)
	companyHandler := NewCompanyHandler(deps.CompanyUC)
	api.Post("/companies", companyHandler.Create)

	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	protected.Post("/auth/register", adminOnly, authHandler.Register)
	protected.Get("/companies/:id", anyRole, companyHandler.GetByID)

	userHandler := NewUserHandler(deps.UserUC)
	protected.Get("/users/me", anyRole, userHandler.Me)
	protected.Get("/users", adminOnly, userHandler.List)

	// Documentos tributarios electrónicos
	docs := protected.Group("/documents", anyRole)
	docHandler := NewDocumentHandler(deps.Documents, deps.DocumentPDF)
	docs.Post("/", docHandler.Create)
	docs.Get("/", docHandler.List)
	docs.Get("/:id", docHandler.GetByID)
	docs.Get("/:id/pdf", docHandler.DownloadPDF)
	docs.Post("/:id/submit", docHandler.Submit)
	docs.Post("/:id/refresh", docHandler.Refresh)
	docs.Post("/:id/pay", docHandler.Pay)
	docs.Post("/:id/cancel", accounting, docHandler.Cancel)

	// Folios autorizados
	cafs := protected.Group("/cafs")
	cafHandler := NewCAFHandler(deps.Folios)
	cafs.Get("/", anyRole, cafHandler.List)
	cafs.Post("/", adminOnly, cafHandler.Register)

	// Plan de cuentas y libro diario
	ledgerHandler := NewLedgerHandler(deps.Ledger)
	accounts := protected.Group("/accounts", anyRole)
	accounts.Get("/", ledgerHandler.Accounts)
	accounts.Get("/trial-balance", ledgerHandler.TrialBalance)
	accounts.Get("/:code/balance", ledgerHandler.Balance)

	journal := protected.Group("/journal", accounting)
	journal.Get("/", ledgerHandler.ListEntries)
	journal.Post("/", ledgerHandler.CreateEntry)
	journal.Put("/:id", ledgerHandler.UpdateEntry)
	journal.Post("/:id/post", ledgerHandler.PostEntry)
	journal.Post("/:id/void", ledgerHandler.VoidEntry)

	// Gastos
	exps := protected.Group("/expenses", anyRole)
	expenseHandler := NewExpenseHandler(deps.Expenses)
	exps.Post("/", expenseHandler.Register)
	exps.Get("/", expenseHandler.List)
	exps.Get("/:id", expenseHandler.GetByID)

	// Resumen mensual de IVA
	f29 := protected.Group("/f29", accounting)
	f29Handler := NewF29Handler(deps.Periods)
	f29.Get("/:period", f29Handler.Get)
	f29.Get("/:period/pdf", f29Handler.DownloadPDF)

	// Bitácora
	auditGroup := protected.Group("/audit")
	auditHandler := NewAuditHandler(deps.Audit, deps.AuditRetentionDays)
	auditGroup.Get("/", accounting, auditHandler.Query)
	auditGroup.Get("/export", accounting, auditHandler.Export)
	auditGroup.Post("/purge", adminOnly, auditHandler.Purge)
}
