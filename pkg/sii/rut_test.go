package sii_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// ──────────────────────────────────────────────────────────────────────────────
// Vector conocido: cuerpo 12345678
//
//	8·2 + 7·3 + 6·4 + 5·5 + 4·6 + 3·7 + 2·2 + 1·3 = 138
//	138 mod 11 = 6  →  11 - 6 = 5
// ──────────────────────────────────────────────────────────────────────────────

func TestComputeDV_VectorExacto(t *testing.T) {
	dv, err := sii.ComputeDV("12345678")
	require.NoError(t, err)
	assert.Equal(t, byte('5'), dv, "12345678 debe tener DV 5")
}

func TestComputeDV_CasosBorde(t *testing.T) {
	cases := map[string]byte{
		"60803000": 'K', // RUT del propio SII
		"76123456": '0',
		"1000005":  'K',
		"7654321":  '6',
		"11111111": '1',
	}
	for body, want := range cases {
		got, err := sii.ComputeDV(body)
		require.NoError(t, err, body)
		assert.Equal(t, want, got, "DV de %s", body)
	}
}

func TestValidateRUT_Formatos(t *testing.T) {
	for _, raw := range []string{"12.345.678-5", "12345678-5", "123456785", " 12.345.678 - 5 "} {
		r, err := sii.ValidateRUT(raw)
		require.NoError(t, err, raw)
		assert.True(t, r.Valid)
		assert.Equal(t, "12345678", r.Body)
		assert.Equal(t, byte('5'), r.DV)
	}
}

func TestValidateRUT_DVIncorrecto(t *testing.T) {
	r, err := sii.ValidateRUT("12.345.678-6")
	assert.Error(t, err)
	assert.False(t, r.Valid)
	assert.False(t, sii.IsValidRUT("12.345.678-6"))
}

func TestValidateRUT_KMinuscula(t *testing.T) {
	r, err := sii.ValidateRUT("60.803.000-k")
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Equal(t, "60.803.000-K", r.String())
}

func TestValidateRUT_LargoFueraDeRango(t *testing.T) {
	_, err := sii.ValidateRUT("123456-0")
	assert.Error(t, err, "6 dígitos no es un RUT válido")

	_, err = sii.ValidateRUT("123456789-0")
	assert.Error(t, err, "9 dígitos no es un RUT válido")

	_, err = sii.ValidateRUT("12.34A.678-5")
	assert.Error(t, err, "el cuerpo debe ser numérico")

	_, err = sii.ValidateRUT("")
	assert.Error(t, err)
}

func TestFormatRUT_RoundTrip(t *testing.T) {
	bodies := []string{"1000005", "7654321", "9999999", "10000013", "12345678", "76123456", "99999999"}
	for _, body := range bodies {
		dv, err := sii.ComputeDV(body)
		require.NoError(t, err)
		formatted := sii.FormatRUT(body, dv)

		r, err := sii.ValidateRUT(body + string(dv))
		require.NoError(t, err, formatted)
		assert.Equal(t, formatted, sii.FormatRUT(r.Body, r.DV))

		again, err := sii.ValidateRUT(formatted)
		require.NoError(t, err)
		assert.Equal(t, formatted, again.String(), "formatear(validar(x)) debe ser estable")
	}
	assert.Equal(t, "12.345.678-5", sii.FormatRUT("12345678", '5'))
	assert.Equal(t, "1.000.005-K", sii.FormatRUT("1000005", 'k'))
}
