package tax_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/tax"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

const empresa = "emp-1"

func doc(docType int, day int, subtotal, vat string, sub entity.SubmissionStatus, set entity.SettlementStatus) *entity.Document {
	return &entity.Document{
		CompanyID:  empresa,
		DocType:    docType,
		IssueDate:  time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC),
		Subtotal:   d(subtotal),
		VAT:        d(vat),
		Submission: sub,
		Settlement: set,
	}
}

func gasto(day int, monto string, deducible bool) *entity.Expense {
	return &entity.Expense{
		CompanyID:  empresa,
		Date:       time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Amount:     d(monto),
		Deductible: deducible,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Ventas por 1.000.000 neto / 190.000 IVA y un gasto deducible de 357.000 bruto
// (300.000 neto + 57.000 IVA) → IVA a pagar 133.000.
// ──────────────────────────────────────────────────────────────────────────────

func TestComputeF29_EjemploBase(t *testing.T) {
	docs := []*entity.Document{
		doc(sii.DTEFacturaAfecta, 5, "600000", "114000", entity.SubmissionAceptada, entity.SettlementPendiente),
		doc(sii.DTEFacturaAfecta, 20, "400000", "76000", entity.SubmissionAceptada, entity.SettlementPagada),
	}
	gastos := []*entity.Expense{gasto(10, "357000", true)}

	p, err := tax.ComputeF29(empresa, "2024-03", docs, gastos, iva19)
	require.NoError(t, err)

	assert.Equal(t, "1000000", p.VentasAfectas.String())
	assert.Equal(t, "190000", p.IvaVentas.String())
	assert.Equal(t, "300000", p.ComprasAfectas.String())
	assert.Equal(t, "57000", p.IvaCompras.String())
	assert.Equal(t, "133000", p.IvaResultante.String())
	assert.True(t, p.Payable())
	assert.Equal(t, 2, p.DocumentCount)
	assert.Equal(t, 1, p.ExpenseCount)
}

func TestComputeF29_Filtros(t *testing.T) {
	docs := []*entity.Document{
		doc(sii.DTEFacturaAfecta, 1, "100000", "19000", entity.SubmissionAceptada, entity.SettlementPendiente),
		doc(sii.DTEFacturaAfecta, 2, "999999", "190000", entity.SubmissionRechazada, entity.SettlementPendiente),
		doc(sii.DTEFacturaAfecta, 3, "999999", "190000", entity.SubmissionProcesando, entity.SettlementPendiente),
		doc(sii.DTEFacturaAfecta, 4, "999999", "190000", entity.SubmissionAceptada, entity.SettlementCancelada),
		doc(sii.DTENotaCredito, 5, "20000", "3800", entity.SubmissionAceptada, entity.SettlementPendiente),
		doc(sii.DTEFacturaExenta, 6, "50000", "0", entity.SubmissionAceptada, entity.SettlementPendiente),
	}
	otroMes := doc(sii.DTEFacturaAfecta, 1, "5000", "950", entity.SubmissionAceptada, entity.SettlementPendiente)
	otroMes.IssueDate = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	docs = append(docs, otroMes)

	gastos := []*entity.Expense{gasto(1, "119000", true), gasto(2, "119000", false)}

	p, err := tax.ComputeF29(empresa, "2024-03", docs, gastos, iva19)
	require.NoError(t, err)

	assert.Equal(t, "80000", p.VentasAfectas.String(), "la nota de crédito resta")
	assert.Equal(t, "15200", p.IvaVentas.String())
	assert.Equal(t, "50000", p.VentasExentas.String())
	assert.Equal(t, "19000", p.IvaCompras.String(), "sólo el gasto deducible")
	assert.Equal(t, "-3800", p.IvaResultante.String())
	assert.False(t, p.Payable())
	assert.Equal(t, "3800", p.Remanente().String())
}

func TestComputeF29_Idempotente(t *testing.T) {
	docs := []*entity.Document{doc(sii.DTEFacturaAfecta, 5, "123457", "23457", entity.SubmissionAceptada, entity.SettlementPendiente)}
	gastos := []*entity.Expense{gasto(8, "10001", true)}

	a, err := tax.ComputeF29(empresa, "2024-03", docs, gastos, iva19)
	require.NoError(t, err)
	b, err := tax.ComputeF29(empresa, "2024-03", docs, gastos, iva19)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPeriodBounds(t *testing.T) {
	from, to, err := tax.PeriodBounds("2024-12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), to)

	_, _, err = tax.PeriodBounds("2024-13")
	assert.Error(t, err)
	_, err = tax.ComputeF29(empresa, "marzo", nil, nil, iva19)
	assert.Error(t, err)
}
