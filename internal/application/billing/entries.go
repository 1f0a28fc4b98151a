package billing

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/application/ledger"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// saleLines asiento de venta: Clientes (o Caja en boletas) al debe por el total; Ventas e
// IVA Débito Fiscal al haber. La nota de crédito invierte los lados.
func saleLines(doc *entity.Document) []ledger.LineInput {
	receivable := ledger.AccountClientes
	if sii.IsBoleta(doc.DocType) {
		receivable = ledger.AccountCaja
	}
	revenue := ledger.AccountVentas
	if sii.IsExempt(doc.DocType) {
		revenue = ledger.AccountVentasExentas
	}
	lines := []ledger.LineInput{
		debitLine(receivable, doc.Total, "Total documento"),
		creditLine(revenue, doc.Subtotal, "Neto"),
	}
	if doc.VAT.IsPositive() {
		lines = append(lines, creditLine(ledger.AccountIVADebito, doc.VAT, "IVA Débito Fiscal"))
	}
	if doc.DocType == sii.DTENotaCredito {
		return swap(lines)
	}
	return lines
}

// paymentLines asiento de cobro: Caja contra Clientes (al revés para la nota de crédito).
func paymentLines(doc *entity.Document) []ledger.LineInput {
	lines := []ledger.LineInput{
		debitLine(ledger.AccountCaja, doc.Total, "Cobro"),
		creditLine(ledger.AccountClientes, doc.Total, "Cobro"),
	}
	if doc.DocType == sii.DTENotaCredito {
		return swap(lines)
	}
	return lines
}

func debitLine(code string, v decimal.Decimal, desc string) ledger.LineInput {
	return ledger.LineInput{AccountCode: code, Debit: v, Credit: decimal.Zero, Description: desc}
}

func creditLine(code string, v decimal.Decimal, desc string) ledger.LineInput {
	return ledger.LineInput{AccountCode: code, Debit: decimal.Zero, Credit: v, Description: desc}
}

func swap(lines []ledger.LineInput) []ledger.LineInput {
	for i := range lines {
		lines[i].Debit, lines[i].Credit = lines[i].Credit, lines[i].Debit
	}
	return lines
}
