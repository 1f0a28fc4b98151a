// Package tax reúne los cálculos tributarios puros: totales de DTE, máquinas de
// estado del documento y la agregación del F29. No depende de persistencia.
package tax

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

var hundred = decimal.NewFromInt(100)

// LineInput línea tal como la ingresa el usuario.
type LineInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
}

// Totals resultado del cálculo: líneas con monto y totales en pesos enteros.
type Totals struct {
	Lines    []entity.DocumentLine
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Total    decimal.Decimal
}

// LineAmount cantidad × precio × (1 - descuento/100), redondeado a pesos.
func LineAmount(qty, unitPrice, discountPct decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice).Mul(hundred.Sub(discountPct)).Div(hundred).Round(0)
}

// VATOf round(neto × tasa).
func VATOf(net, rate decimal.Decimal) decimal.Decimal {
	return net.Mul(rate).Round(0)
}

// ValidateLines revisa cantidad > 0, precio >= 0 y descuento en [0, 100].
func ValidateLines(lines []LineInput) []string {
	var problems []string
	if len(lines) == 0 {
		problems = append(problems, "el documento debe tener al menos una línea")
	}
	for i, l := range lines {
		n := i + 1
		if strings.TrimSpace(l.Description) == "" {
			problems = append(problems, fmt.Sprintf("línea %d: descripción requerida", n))
		}
		if !l.Quantity.IsPositive() {
			problems = append(problems, fmt.Sprintf("línea %d: cantidad debe ser mayor que cero", n))
		}
		if l.UnitPrice.IsNegative() {
			problems = append(problems, fmt.Sprintf("línea %d: precio unitario no puede ser negativo", n))
		}
		if l.DiscountPct.IsNegative() || l.DiscountPct.GreaterThan(hundred) {
			problems = append(problems, fmt.Sprintf("línea %d: descuento debe estar entre 0 y 100", n))
		}
	}
	return problems
}

// ComputeTotals calcula neto, IVA y total. Los tipos exentos (34, 41) no llevan IVA.
func ComputeTotals(docType int, lines []LineInput, vatRate decimal.Decimal) (Totals, error) {
	if problems := ValidateLines(lines); len(problems) > 0 {
		return Totals{}, domain.NewValidationError(problems...)
	}
	out := Totals{Lines: make([]entity.DocumentLine, 0, len(lines)), Subtotal: decimal.Zero}
	for i, l := range lines {
		amount := LineAmount(l.Quantity, l.UnitPrice, l.DiscountPct)
		out.Lines = append(out.Lines, entity.DocumentLine{
			LineNo:      i + 1,
			Description: strings.TrimSpace(l.Description),
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
			Amount:      amount,
		})
		out.Subtotal = out.Subtotal.Add(amount)
	}
	out.VAT = decimal.Zero
	if !sii.IsExempt(docType) {
		out.VAT = VATOf(out.Subtotal, vatRate)
	}
	out.Total = out.Subtotal.Add(out.VAT)
	return out, nil
}
