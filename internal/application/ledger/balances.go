package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

// BalanceRow fila del balance de comprobación.
type BalanceRow struct {
	Code    string
	Name    string
	Class   entity.AccountClass
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Balance decimal.Decimal // con el signo natural de la clase
}

// TrialBalance balance de comprobación; en un libro sano ΣDebit == ΣCredit.
type TrialBalance struct {
	AsOf        time.Time
	Rows        []BalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// Balanced true si las sumas cuadran.
func (t *TrialBalance) Balanced() bool {
	return t.TotalDebit.Equal(t.TotalCredit)
}

// BalanceOf saldo de la cuenta al asOf (inclusive), con el signo natural de su clase:
// activos y gastos debe - haber, el resto haber - debe. Incluye originales anulados
// y sus reversas, que se compensan.
func (s *Service) BalanceOf(ctx context.Context, companyID, code string, asOf time.Time) (decimal.Decimal, error) {
	repos := s.store.Repos()
	acc, err := repos.Accounts.Get(ctx, companyID, code)
	if err != nil {
		return decimal.Zero, err
	}
	if acc == nil {
		return decimal.Zero, &domain.UnknownAccountError{Code: code}
	}
	sums, err := repos.Journal.SumPosted(ctx, companyID, code, endOfDay(asOf))
	if err != nil {
		return decimal.Zero, err
	}
	debit, credit := decimal.Zero, decimal.Zero
	for _, sum := range sums {
		debit = debit.Add(sum.Debit)
		credit = credit.Add(sum.Credit)
	}
	return signed(acc.Class, debit, credit), nil
}

// TrialBalance sumas y saldos de todas las cuentas con movimiento.
func (s *Service) TrialBalance(ctx context.Context, companyID string, asOf time.Time) (*TrialBalance, error) {
	repos := s.store.Repos()
	accounts, err := repos.Accounts.List(ctx, companyID)
	if err != nil {
		return nil, err
	}
	sums, err := repos.Journal.SumPosted(ctx, companyID, "", endOfDay(asOf))
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]*entity.Account, len(accounts))
	for _, a := range accounts {
		byCode[a.Code] = a
	}
	tb := &TrialBalance{AsOf: asOf, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, sum := range sums {
		row := BalanceRow{Code: sum.AccountCode, Debit: sum.Debit, Credit: sum.Credit}
		if a, ok := byCode[sum.AccountCode]; ok {
			row.Name = a.Name
			row.Class = a.Class
		}
		row.Balance = signed(row.Class, sum.Debit, sum.Credit)
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebit = tb.TotalDebit.Add(sum.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(sum.Credit)
	}
	return tb, nil
}

// Accounts plan de cuentas de la empresa.
func (s *Service) Accounts(ctx context.Context, companyID string) ([]*entity.Account, error) {
	return s.store.Repos().Accounts.List(ctx, companyID)
}

// CreateAccount agrega una cuenta al plan.
func (s *Service) CreateAccount(ctx context.Context, companyID, actor string, acc entity.Account) (*entity.Account, error) {
	acc.CompanyID = companyID
	acc.Code = strings.TrimSpace(acc.Code)
	acc.Name = strings.TrimSpace(acc.Name)
	var problems []string
	if acc.Code == "" {
		problems = append(problems, "código de cuenta requerido")
	}
	if acc.Name == "" {
		problems = append(problems, "nombre de cuenta requerido")
	}
	if !acc.Class.Valid() {
		problems = append(problems, fmt.Sprintf("clase de cuenta %q inválida", acc.Class))
	}
	if len(problems) > 0 {
		err := domain.NewValidationError(problems...)
		s.audit.Failure(ctx, companyID, entity.CategoryLedger, actor, "crear_cuenta", acc.Code, err)
		return nil, err
	}
	acc.CreatedAt = s.now()
	err := s.store.Run(ctx, func(tx repository.Repos) error {
		if err := tx.Accounts.Create(ctx, &acc); err != nil {
			return err
		}
		return s.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID, Category: entity.CategoryLedger, Actor: actor, Action: "crear_cuenta",
			EntityID: acc.Code, Message: fmt.Sprintf("cuenta %s %s (%s)", acc.Code, acc.Name, acc.Class),
		})
	})
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryLedger, actor, "crear_cuenta", acc.Code, err)
		return nil, err
	}
	return &acc, nil
}

// SeedChart crea las cuentas de DefaultChart que la empresa aún no tiene. Devuelve cuántas creó.
func (s *Service) SeedChart(ctx context.Context, companyID, actor string) (int, error) {
	created := 0
	err := s.store.Run(ctx, func(tx repository.Repos) error {
		created = 0
		for _, acc := range DefaultChart() {
			existing, err := tx.Accounts.Get(ctx, companyID, acc.Code)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			acc.CompanyID = companyID
			acc.CreatedAt = s.now()
			if err := tx.Accounts.Create(ctx, &acc); err != nil {
				return err
			}
			created++
		}
		if created == 0 {
			return nil
		}
		return s.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID, Category: entity.CategoryLedger, Actor: actor, Action: "plan_de_cuentas",
			Message: fmt.Sprintf("%d cuentas del plan por defecto creadas", created),
		})
	})
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryLedger, actor, "plan_de_cuentas", "", err)
		return 0, err
	}
	return created, nil
}

func signed(class entity.AccountClass, debit, credit decimal.Decimal) decimal.Decimal {
	if class == "" || class.DebitNature() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999999999, t.Location())
}
