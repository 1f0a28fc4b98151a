package expenses_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/application/expenses"
	"github.com/jhoicas/libro-tributario/internal/application/ledger"
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/memory"
)

const empresa = "empresa-1"

var fecha = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*expenses.Service, *ledger.Service) {
	t.Helper()
	st := memory.New()
	auditSvc := audit.NewService(st.Repos().Audit, nil)
	ledgerSvc := ledger.NewService(st, auditSvc, nil)
	_, err := ledgerSvc.SeedChart(context.Background(), empresa, "u1")
	require.NoError(t, err)
	return expenses.NewService(st, ledgerSvc, auditSvc, decimal.RequireFromString("0.19"), nil), ledgerSvc
}

func saldo(t *testing.T, l *ledger.Service, code string) string {
	t.Helper()
	b, err := l.BalanceOf(context.Background(), empresa, code, fecha)
	require.NoError(t, err)
	return b.String()
}

func TestRegister_DeducibleSeparaIVA(t *testing.T) {
	svc, l := setup(t)
	exp, err := svc.Register(context.Background(), empresa, "u1", expenses.Input{
		Date: fecha, SupplierRUT: "76123456-0", Description: "Arriendo oficina",
		Amount: decimal.NewFromInt(119000), Deductible: true, AccountCode: ledger.AccountArriendos,
	})
	require.NoError(t, err)
	assert.Equal(t, "76.123.456-0", exp.SupplierRUT)
	assert.NotEmpty(t, exp.JournalEntryID)

	assert.Equal(t, "100000", saldo(t, l, ledger.AccountArriendos))
	assert.Equal(t, "19000", saldo(t, l, ledger.AccountIVACredito))
	assert.Equal(t, "-119000", saldo(t, l, ledger.AccountCaja))
}

func TestRegister_NoDeducibleVaCompletoAlGasto(t *testing.T) {
	svc, l := setup(t)
	_, err := svc.Register(context.Background(), empresa, "u1", expenses.Input{
		Date: fecha, SupplierRUT: "12.345.678-5", Description: "Almuerzo",
		Amount: decimal.NewFromInt(11900), Deductible: false,
	})
	require.NoError(t, err)
	assert.Equal(t, "11900", saldo(t, l, ledger.AccountGastosGrales))
	assert.Equal(t, "0", saldo(t, l, ledger.AccountIVACredito))
}

func TestRegister_Validaciones(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Register(context.Background(), empresa, "u1", expenses.Input{
		SupplierRUT: "12.345.678-0", Amount: decimal.RequireFromString("10.5"),
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 4)
}

func TestRegister_CuentaDesconocidaNoGuardaGasto(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	_, err := svc.Register(ctx, empresa, "u1", expenses.Input{
		Date: fecha, SupplierRUT: "12.345.678-5", Description: "x",
		Amount: decimal.NewFromInt(1000), AccountCode: "9.9.99",
	})
	assert.ErrorIs(t, err, domain.ErrUnknownAccount)

	list, err := svc.ListPeriod(ctx, empresa, "2024-03")
	require.NoError(t, err)
	assert.Empty(t, list)
}
