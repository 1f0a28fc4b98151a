package pdf_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/pdf"
)

func TestGenerate_DTE(t *testing.T) {
	company := &entity.Company{Name: "Comercial Los Andes SpA", RUT: "76.123.456-0", Giro: "Comercio"}
	doc := &entity.Document{
		DocType:     33,
		Folio:       15,
		IssuerRUT:   "76.123.456-0",
		ReceiverRUT: "12.345.678-5",
		IssueDate:   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Subtotal:    decimal.NewFromInt(1000000),
		VAT:         decimal.NewFromInt(190000),
		Total:       decimal.NewFromInt(1190000),
		Submission:  entity.SubmissionAceptada,
		Lines: []entity.DocumentLine{{
			LineNo: 1, Description: "Notebook", Quantity: decimal.NewFromInt(2),
			UnitPrice: decimal.NewFromInt(500000), DiscountPct: decimal.Zero, Amount: decimal.NewFromInt(1000000),
		}},
	}
	out, err := pdf.NewMarotoPDFGenerator().Generate(company, doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateF29_Remanente(t *testing.T) {
	company := &entity.Company{Name: "Comercial Los Andes SpA", RUT: "76.123.456-0"}
	tp := &entity.TaxPeriod{
		Period:        "2024-03",
		IvaVentas:     decimal.NewFromInt(1000),
		IvaCompras:    decimal.NewFromInt(3000),
		IvaResultante: decimal.NewFromInt(-2000),
		ComputedAt:    time.Now(),
	}
	out, err := pdf.NewMarotoPDFGenerator().GenerateF29(company, tp)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerate_SinDocumento(t *testing.T) {
	_, err := pdf.NewMarotoPDFGenerator().Generate(&entity.Company{}, nil)
	assert.Error(t, err)
}
