package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// JournalEntryRequest body para POST /api/journal y PUT /api/journal/:id.
type JournalEntryRequest struct {
	Date    string               `json:"date" validate:"required,datetime=2006-01-02"`
	Concept string               `json:"concept" validate:"required,max=300"`
	Post    bool                 `json:"post"`
	Lines   []JournalLineRequest `json:"lines" validate:"required,min=2,dive"`
}

// JournalLineRequest una línea: debe o haber, nunca ambos.
type JournalLineRequest struct {
	AccountCode string          `json:"account_code" validate:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// VoidEntryRequest body para POST /api/journal/:id/void.
type VoidEntryRequest struct {
	Reason string `json:"reason" validate:"required,max=300"`
}

// JournalEntryResponse asiento con sus líneas.
type JournalEntryResponse struct {
	ID          string                `json:"id"`
	Number      int64                 `json:"number"`
	Date        string                `json:"date"`
	Concept     string                `json:"concept"`
	Status      string                `json:"status"`
	Source      string                `json:"source"`
	SourceID    string                `json:"source_id,omitempty"`
	ReversalOf  string                `json:"reversal_of,omitempty"`
	ReversedBy  string                `json:"reversed_by,omitempty"`
	TotalDebit  decimal.Decimal       `json:"total_debit"`
	TotalCredit decimal.Decimal       `json:"total_credit"`
	PostedAt    *time.Time            `json:"posted_at,omitempty"`
	Lines       []JournalLineResponse `json:"lines"`
}

// JournalLineResponse línea del asiento.
type JournalLineResponse struct {
	LineNo      int             `json:"line_no"`
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// AccountResponse cuenta del plan.
type AccountResponse struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Class string `json:"class"`
}

// BalanceResponse saldo de una cuenta a una fecha.
type BalanceResponse struct {
	AccountCode string          `json:"account_code"`
	AsOf        string          `json:"as_of"`
	Balance     decimal.Decimal `json:"balance"`
}

// FromJournalEntry arma la respuesta.
func FromJournalEntry(e *entity.JournalEntry) JournalEntryResponse {
	debit, credit := e.Totals()
	out := JournalEntryResponse{
		ID:          e.ID,
		Number:      e.Number,
		Date:        e.Date.Format(DateLayout),
		Concept:     e.Concept,
		Status:      string(e.Status),
		Source:      e.Source,
		SourceID:    e.SourceID,
		ReversalOf:  e.ReversalOf,
		ReversedBy:  e.ReversedBy,
		TotalDebit:  debit,
		TotalCredit: credit,
		PostedAt:    e.PostedAt,
		Lines:       make([]JournalLineResponse, 0, len(e.Lines)),
	}
	for _, l := range e.Lines {
		out.Lines = append(out.Lines, JournalLineResponse{
			LineNo:      l.LineNo,
			AccountCode: l.AccountCode,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		})
	}
	return out
}

// JournalListResponse libro diario paginado.
type JournalListResponse struct {
	Items []JournalEntryResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}

// TrialBalanceResponse balance de comprobación.
type TrialBalanceResponse struct {
	AsOf        string            `json:"as_of"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
	Rows        []TrialBalanceRow `json:"rows"`
}

// TrialBalanceRow fila por cuenta con movimiento.
type TrialBalanceRow struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Class   string          `json:"class"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Balance decimal.Decimal `json:"balance"`
}
