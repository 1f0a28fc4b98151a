package sii_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// cafLatin1 CAF mínimo tal como lo entrega el SII: encabezado ISO-8859-1 y una "ñ" en latin-1 (0xF1).
const cafLatin1 = "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
	"<AUTORIZACION><CAF version=\"1.0\"><DA>" +
	"<RE>76123456-0</RE><RS>Compa\xf1ia Demo SpA</RS><TD>33</TD>" +
	"<RNG><D>1</D><H>100</H></RNG><FA>2024-01-15</FA>" +
	"<RSAPK><M>AAAA</M><E>Aw==</E></RSAPK><IDK>100</IDK>" +
	"</DA><FRMA algoritmo=\"SHA1withRSA\">AAAA</FRMA></CAF>" +
	"<RSASK>x</RSASK><RSAPUBK>y</RSAPUBK></AUTORIZACION>"

func TestParseCAF_Latin1(t *testing.T) {
	caf, err := sii.ParseCAF(strings.NewReader(cafLatin1), 0)
	require.NoError(t, err)

	assert.Equal(t, "76.123.456-0", caf.IssuerRUT)
	assert.Equal(t, "Compañia Demo SpA", caf.IssuerName, "la ñ debe decodificarse desde ISO-8859-1")
	assert.Equal(t, sii.DTEFacturaAfecta, caf.DocType)
	assert.Equal(t, int64(1), caf.RangeFrom)
	assert.Equal(t, int64(100), caf.RangeTo)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), caf.AuthorizedAt)
	assert.Equal(t, time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), caf.ExpiresAt, "vigencia por defecto de 6 meses")
	assert.Equal(t, "100", caf.KeyID)
	assert.Contains(t, string(caf.Raw), "Compañia")
}

func TestParseCAF_VigenciaConfigurable(t *testing.T) {
	caf, err := sii.ParseCAF(strings.NewReader(cafLatin1), 18)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC), caf.ExpiresAt)
}

func TestParseCAF_Invalidos(t *testing.T) {
	cases := map[string]string{
		"rango invertido": strings.Replace(cafLatin1, "<D>1</D><H>100</H>", "<D>50</D><H>10</H>", 1),
		"tipo desconocido": strings.Replace(cafLatin1, "<TD>33</TD>", "<TD>99</TD>", 1),
		"rut inválido":     strings.Replace(cafLatin1, "76123456-0", "76123456-1", 1),
		"fecha inválida":   strings.Replace(cafLatin1, "2024-01-15", "15/01/2024", 1),
		"xml roto":         "<AUTORIZACION><CAF>",
	}
	for name, xmlText := range cases {
		_, err := sii.ParseCAF(strings.NewReader(xmlText), 0)
		assert.Error(t, err, name)
	}
}
