package tax_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/tax"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

var iva19 = decimal.RequireFromString("0.19")

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(desc, qty, price, disc string) tax.LineInput {
	return tax.LineInput{Description: desc, Quantity: d(qty), UnitPrice: d(price), DiscountPct: d(disc)}
}

func TestComputeTotals_LineaSimple(t *testing.T) {
	got, err := tax.ComputeTotals(sii.DTEFacturaAfecta, []tax.LineInput{line("Servicio", "10", "1000", "0")}, iva19)
	require.NoError(t, err)

	assert.Equal(t, "10000", got.Subtotal.String())
	assert.Equal(t, "1900", got.VAT.String())
	assert.Equal(t, "11900", got.Total.String())
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 1, got.Lines[0].LineNo)
}

// Cada línea se redondea a pesos antes de sumar: 3 × 333,33 = 999,99 → 1000 por línea.
func TestComputeTotals_RedondeoPorLinea(t *testing.T) {
	got, err := tax.ComputeTotals(sii.DTEFacturaAfecta, []tax.LineInput{
		line("A", "3", "333.33", "0"),
		line("B", "3", "333.33", "0"),
	}, iva19)
	require.NoError(t, err)
	assert.Equal(t, "2000", got.Subtotal.String(), "1000 + 1000, no round(1999.98)")
	assert.Equal(t, "380", got.VAT.String())
}

func TestComputeTotals_Descuento(t *testing.T) {
	got, err := tax.ComputeTotals(sii.DTEFacturaAfecta, []tax.LineInput{line("Caja", "7", "1499", "12.5")}, iva19)
	require.NoError(t, err)
	// 7 × 1499 = 10493 × 0,875 = 9181,375 → 9181
	assert.Equal(t, "9181", got.Subtotal.String())
	// 9181 × 0,19 = 1744,39 → 1744
	assert.Equal(t, "1744", got.VAT.String())
	assert.Equal(t, "10925", got.Total.String())
}

func TestComputeTotals_ExentoSinIVA(t *testing.T) {
	got, err := tax.ComputeTotals(sii.DTEFacturaExenta, []tax.LineInput{line("Asesoría", "1", "50000", "0")}, iva19)
	require.NoError(t, err)
	assert.True(t, got.VAT.IsZero())
	assert.Equal(t, "50000", got.Total.String())
}

func TestComputeTotals_LineasInvalidas(t *testing.T) {
	_, err := tax.ComputeTotals(sii.DTEFacturaAfecta, []tax.LineInput{
		line("Cero", "0", "100", "0"),
		line("Negativo", "1", "-5", "0"),
		line("Descuento", "1", "100", "101"),
		line("", "1", "100", "0"),
	}, iva19)
	require.Error(t, err)

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Problems, 4, "se reportan todos los problemas juntos")

	_, err = tax.ComputeTotals(sii.DTEFacturaAfecta, nil, iva19)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
