package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense gasto o compra. Amount es bruto (IVA incluido); si Deductible, el IVA
// contenido se declara como crédito fiscal en el F29.
type Expense struct {
	ID             string
	CompanyID      string
	Date           time.Time
	SupplierRUT    string
	DocumentNumber string
	Description    string
	Amount         decimal.Decimal
	Deductible     bool
	AccountCode    string // cuenta de gasto/activo que se debita
	JournalEntryID string
	CreatedBy      string
	CreatedAt      time.Time
}

// Period clave YYYY-MM.
func (e *Expense) Period() string {
	return e.Date.Format("2006-01")
}
