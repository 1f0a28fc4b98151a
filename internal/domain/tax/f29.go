package tax

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// PeriodBounds devuelve [inicio, inicio del mes siguiente) para una clave YYYY-MM.
func PeriodBounds(period string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, domain.NewValidationError(fmt.Sprintf("período %q inválido, se espera AAAA-MM", period))
	}
	return start, start.AddDate(0, 1, 0), nil
}

// CountsForF29 el documento entra al período si fue aceptado por el SII y no está cancelado.
func CountsForF29(d *entity.Document) bool {
	return d.Submission == entity.SubmissionAceptada && d.Settlement != entity.SettlementCancelada
}

// NetOfGross neto contenido en un monto bruto: round(monto / (1 + tasa)).
func NetOfGross(gross, rate decimal.Decimal) decimal.Decimal {
	return gross.Div(decimal.NewFromInt(1).Add(rate)).Round(0)
}

// ComputeF29 agrega documentos y gastos del período. Es una proyección pura:
// los mismos registros de entrada producen siempre las mismas cifras.
func ComputeF29(companyID, period string, docs []*entity.Document, expenses []*entity.Expense, vatRate decimal.Decimal) (*entity.TaxPeriod, error) {
	if _, _, err := PeriodBounds(period); err != nil {
		return nil, err
	}
	out := &entity.TaxPeriod{
		CompanyID:      companyID,
		Period:         period,
		VentasAfectas:  decimal.Zero,
		VentasExentas:  decimal.Zero,
		IvaVentas:      decimal.Zero,
		ComprasAfectas: decimal.Zero,
		IvaCompras:     decimal.Zero,
	}

	for _, d := range docs {
		if d.CompanyID != companyID || d.Period() != period || !CountsForF29(d) {
			continue
		}
		sign := decimal.NewFromInt(sii.SignFor(d.DocType))
		if sii.IsExempt(d.DocType) {
			out.VentasExentas = out.VentasExentas.Add(d.Subtotal.Mul(sign))
		} else {
			out.VentasAfectas = out.VentasAfectas.Add(d.Subtotal.Mul(sign))
			out.IvaVentas = out.IvaVentas.Add(d.VAT.Mul(sign))
		}
		out.DocumentCount++
	}

	for _, e := range expenses {
		if e.CompanyID != companyID || e.Period() != period || !e.Deductible {
			continue
		}
		net := NetOfGross(e.Amount, vatRate)
		out.ComprasAfectas = out.ComprasAfectas.Add(net)
		out.IvaCompras = out.IvaCompras.Add(e.Amount.Sub(net))
		out.ExpenseCount++
	}

	out.IvaResultante = out.IvaVentas.Sub(out.IvaCompras)
	return out, nil
}
