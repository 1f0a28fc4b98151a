package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// RegisterExpenseRequest body para POST /api/expenses. Amount es bruto (IVA incluido).
type RegisterExpenseRequest struct {
	Date           string          `json:"date" validate:"required,datetime=2006-01-02"`
	SupplierRUT    string          `json:"supplier_rut" validate:"required"`
	DocumentNumber string          `json:"document_number,omitempty" validate:"omitempty,max=40"`
	Description    string          `json:"description" validate:"required,max=300"`
	Amount         decimal.Decimal `json:"amount"`
	Deductible     bool            `json:"deductible"`
	AccountCode    string          `json:"account_code,omitempty"`
}

// ExpenseResponse gasto registrado.
type ExpenseResponse struct {
	ID             string          `json:"id"`
	Date           string          `json:"date"`
	SupplierRUT    string          `json:"supplier_rut"`
	DocumentNumber string          `json:"document_number,omitempty"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Deductible     bool            `json:"deductible"`
	AccountCode    string          `json:"account_code"`
	JournalEntryID string          `json:"journal_entry_id"`
}

// FromExpense arma la respuesta.
func FromExpense(e *entity.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:             e.ID,
		Date:           e.Date.Format(DateLayout),
		SupplierRUT:    e.SupplierRUT,
		DocumentNumber: e.DocumentNumber,
		Description:    e.Description,
		Amount:         e.Amount,
		Deductible:     e.Deductible,
		AccountCode:    e.AccountCode,
		JournalEntryID: e.JournalEntryID,
	}
}
