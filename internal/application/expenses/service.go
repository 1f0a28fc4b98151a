// Package expenses registra gastos y compras con su asiento y el IVA crédito fiscal.
package expenses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/application/ledger"
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
	"github.com/jhoicas/libro-tributario/internal/domain/tax"
	"github.com/jhoicas/libro-tributario/pkg/logger"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// Input datos de un gasto. Amount es el monto bruto (IVA incluido).
type Input struct {
	Date           time.Time
	SupplierRUT    string
	DocumentNumber string
	Description    string
	Amount         decimal.Decimal
	Deductible     bool
	AccountCode    string // vacío = Gastos Generales
}

// Service casos de uso de gastos.
type Service struct {
	store   repository.Store
	ledger  *ledger.Service
	audit   *audit.Service
	vatRate decimal.Decimal
	log     *logger.Logger
	now     func() time.Time
}

// NewService construye el servicio.
func NewService(store repository.Store, ledgerSvc *ledger.Service, auditSvc *audit.Service, vatRate decimal.Decimal, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, ledger: ledgerSvc, audit: auditSvc, vatRate: vatRate, log: log.Component("expenses"), now: time.Now}
}

// Register guarda el gasto y su asiento contabilizado: gasto (neto si es deducible) e
// IVA Crédito Fiscal al debe, Caja al haber por el bruto.
func (s *Service) Register(ctx context.Context, companyID, actor string, in Input) (*entity.Expense, error) {
	exp, err := s.register(ctx, companyID, actor, in)
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryExpense, actor, "registrar", "", err)
		return nil, err
	}
	s.log.Info().Str("company_id", companyID).Str("expense_id", exp.ID).Str("monto", exp.Amount.String()).
		Bool("deducible", exp.Deductible).Msg("gasto registrado")
	return exp, nil
}

func (s *Service) register(ctx context.Context, companyID, actor string, in Input) (*entity.Expense, error) {
	var problems []string
	supplier, err := sii.NormalizeRUT(in.SupplierRUT)
	if err != nil {
		problems = append(problems, "RUT proveedor: "+err.Error())
	}
	if in.Date.IsZero() {
		problems = append(problems, "fecha requerida")
	}
	if !in.Amount.IsPositive() {
		problems = append(problems, "el monto debe ser mayor que cero")
	} else if !in.Amount.Equal(in.Amount.Round(0)) {
		problems = append(problems, "el monto debe expresarse en pesos enteros")
	}
	if strings.TrimSpace(in.Description) == "" {
		problems = append(problems, "descripción requerida")
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}
	account := strings.TrimSpace(in.AccountCode)
	if account == "" {
		account = ledger.AccountGastosGrales
	}

	exp := &entity.Expense{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		Date:           in.Date,
		SupplierRUT:    supplier,
		DocumentNumber: strings.TrimSpace(in.DocumentNumber),
		Description:    strings.TrimSpace(in.Description),
		Amount:         in.Amount,
		Deductible:     in.Deductible,
		AccountCode:    account,
		CreatedBy:      actor,
		CreatedAt:      s.now(),
	}

	err = s.store.Run(ctx, func(tx repository.Repos) error {
		entry, err := s.ledger.CreateEntryIn(ctx, tx, companyID, actor, ledger.EntryInput{
			Date:     exp.Date,
			Concept:  fmt.Sprintf("Gasto %s (%s)", exp.Description, exp.SupplierRUT),
			Source:   entity.SourceExpense,
			SourceID: exp.ID,
			Lines:    s.lines(exp),
		}, true)
		if err != nil {
			return err
		}
		exp.JournalEntryID = entry.ID
		if err := tx.Expenses.Create(ctx, exp); err != nil {
			return err
		}
		return s.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID, Category: entity.CategoryExpense, Actor: actor, Action: "registrar",
			EntityID: exp.ID,
			Message:  fmt.Sprintf("gasto $%s de %s (deducible: %t)", exp.Amount.String(), exp.SupplierRUT, exp.Deductible),
			After: map[string]any{
				"monto": exp.Amount.String(), "deducible": exp.Deductible, "cuenta": exp.AccountCode,
				"asiento_id": exp.JournalEntryID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return exp, nil
}

func (s *Service) lines(exp *entity.Expense) []ledger.LineInput {
	if !exp.Deductible {
		return []ledger.LineInput{
			{AccountCode: exp.AccountCode, Debit: exp.Amount, Credit: decimal.Zero, Description: exp.Description},
			{AccountCode: ledger.AccountCaja, Debit: decimal.Zero, Credit: exp.Amount, Description: "Pago gasto"},
		}
	}
	net := tax.NetOfGross(exp.Amount, s.vatRate)
	vat := exp.Amount.Sub(net)
	lines := []ledger.LineInput{
		{AccountCode: exp.AccountCode, Debit: net, Credit: decimal.Zero, Description: exp.Description},
	}
	if vat.IsPositive() {
		lines = append(lines, ledger.LineInput{AccountCode: ledger.AccountIVACredito, Debit: vat, Credit: decimal.Zero, Description: "IVA Crédito Fiscal"})
	}
	return append(lines, ledger.LineInput{AccountCode: ledger.AccountCaja, Debit: decimal.Zero, Credit: exp.Amount, Description: "Pago gasto"})
}

// Get gasto de la empresa.
func (s *Service) Get(ctx context.Context, companyID, id string) (*entity.Expense, error) {
	exp, err := s.store.Repos().Expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, fmt.Errorf("gasto %s: %w", id, domain.ErrNotFound)
	}
	if exp.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return exp, nil
}

// ListPeriod gastos del período YYYY-MM.
func (s *Service) ListPeriod(ctx context.Context, companyID, period string) ([]*entity.Expense, error) {
	from, to, err := tax.PeriodBounds(period)
	if err != nil {
		return nil, err
	}
	return s.store.Repos().Expenses.ListBetween(ctx, companyID, from, to)
}
