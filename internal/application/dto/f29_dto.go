package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// F29Response cifras del período. Degraded indica que vienen de la última instantánea en caché.
type F29Response struct {
	Period         string          `json:"period"`
	VentasAfectas  decimal.Decimal `json:"ventas_afectas"`
	VentasExentas  decimal.Decimal `json:"ventas_exentas"`
	IvaVentas      decimal.Decimal `json:"iva_debito"`
	ComprasAfectas decimal.Decimal `json:"compras_afectas"`
	IvaCompras     decimal.Decimal `json:"iva_credito"`
	IvaResultante  decimal.Decimal `json:"iva_resultante"`
	Remanente      decimal.Decimal `json:"remanente"`
	DocumentCount  int             `json:"documentos"`
	ExpenseCount   int             `json:"gastos"`
	ComputedAt     time.Time       `json:"computed_at"`
	Degraded       bool            `json:"degraded"`
	Source         string          `json:"source"`
}

// FromTaxPeriod arma la respuesta.
func FromTaxPeriod(tp *entity.TaxPeriod, degraded bool, source string) F29Response {
	return F29Response{
		Period:         tp.Period,
		VentasAfectas:  tp.VentasAfectas,
		VentasExentas:  tp.VentasExentas,
		IvaVentas:      tp.IvaVentas,
		ComprasAfectas: tp.ComprasAfectas,
		IvaCompras:     tp.IvaCompras,
		IvaResultante:  tp.IvaResultante,
		Remanente:      tp.Remanente(),
		DocumentCount:  tp.DocumentCount,
		ExpenseCount:   tp.ExpenseCount,
		ComputedAt:     tp.ComputedAt,
		Degraded:       degraded,
		Source:         source,
	}
}
