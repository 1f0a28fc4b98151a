package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxPeriod cifras del F29 de un mes. Es una proyección: se recalcula, nunca se edita.
type TaxPeriod struct {
	CompanyID      string
	Period         string // YYYY-MM
	VentasAfectas  decimal.Decimal
	VentasExentas  decimal.Decimal
	IvaVentas      decimal.Decimal
	ComprasAfectas decimal.Decimal
	IvaCompras     decimal.Decimal
	IvaResultante  decimal.Decimal // > 0 a pagar, < 0 remanente
	DocumentCount  int
	ExpenseCount   int
	ComputedAt     time.Time
}

// Payable true si el período deja impuesto a pagar.
func (p *TaxPeriod) Payable() bool {
	return p.IvaResultante.IsPositive()
}

// Remanente crédito fiscal a arrastrar al período siguiente (0 si hay pago).
func (p *TaxPeriod) Remanente() decimal.Decimal {
	if p.IvaResultante.IsNegative() {
		return p.IvaResultante.Neg()
	}
	return decimal.Zero
}
