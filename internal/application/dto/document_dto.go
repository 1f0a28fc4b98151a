package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// CreateDocumentRequest body para POST /api/documents.
// IssuerRUT vacío = RUT de la empresa del token.
type CreateDocumentRequest struct {
	DocType      int                   `json:"doc_type" validate:"required,oneof=33 34 39 41 56 61"`
	IssuerRUT    string                `json:"issuer_rut,omitempty"`
	ReceiverRUT  string                `json:"receiver_rut" validate:"required"`
	ReceiverName string                `json:"receiver_name" validate:"omitempty,max=200"`
	IssueDate    string                `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate      string                `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ReferenceID  string                `json:"reference_id,omitempty"`
	Lines        []DocumentLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// DocumentLineRequest línea de detalle.
type DocumentLineRequest struct {
	Description string          `json:"description" validate:"required,max=300"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
}

// PayDocumentRequest body para POST /api/documents/:id/pay.
type PayDocumentRequest struct {
	PaidAt string `json:"paid_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// CancelDocumentRequest body para POST /api/documents/:id/cancel.
type CancelDocumentRequest struct {
	Reason string `json:"reason" validate:"required,max=300"`
}

// DocumentResponse documento con detalle. Settlement ya trae "vencida" derivada.
type DocumentResponse struct {
	ID              string                 `json:"id"`
	CompanyID       string                 `json:"company_id"`
	DocType         int                    `json:"doc_type"`
	DocTypeName     string                 `json:"doc_type_name"`
	Folio           int64                  `json:"folio,omitempty"`
	IssuerRUT       string                 `json:"issuer_rut"`
	ReceiverRUT     string                 `json:"receiver_rut"`
	ReceiverName    string                 `json:"receiver_name,omitempty"`
	IssueDate       string                 `json:"issue_date"`
	DueDate         string                 `json:"due_date,omitempty"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	VAT             decimal.Decimal        `json:"vat"`
	Total           decimal.Decimal        `json:"total"`
	Submission      string                 `json:"submission_status"`
	Settlement      string                 `json:"settlement_status"`
	RejectionReason string                 `json:"rejection_reason,omitempty"`
	TrackID         string                 `json:"track_id,omitempty"`
	Attempts        int                    `json:"attempts,omitempty"`
	JournalEntryID  string                 `json:"journal_entry_id,omitempty"`
	PaymentEntryID  string                 `json:"payment_entry_id,omitempty"`
	ReferenceID     string                 `json:"reference_id,omitempty"`
	AcceptedAt      *time.Time             `json:"accepted_at,omitempty"`
	PaidAt          *time.Time             `json:"paid_at,omitempty"`
	Lines           []DocumentLineResponse `json:"lines"`
}

// DocumentLineResponse línea con su monto en pesos.
type DocumentLineResponse struct {
	LineNo      int             `json:"line_no"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Amount      decimal.Decimal `json:"amount"`
}

// DocumentListResponse listado paginado.
type DocumentListResponse struct {
	Items []DocumentResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// FromDocument arma la respuesta; now se usa para derivar el estado vencida.
func FromDocument(d *entity.Document, now time.Time) DocumentResponse {
	out := DocumentResponse{
		ID:              d.ID,
		CompanyID:       d.CompanyID,
		DocType:         d.DocType,
		DocTypeName:     sii.DTEName(d.DocType),
		Folio:           d.Folio,
		IssuerRUT:       d.IssuerRUT,
		ReceiverRUT:     d.ReceiverRUT,
		ReceiverName:    d.ReceiverName,
		IssueDate:       d.IssueDate.Format(DateLayout),
		Subtotal:        d.Subtotal,
		VAT:             d.VAT,
		Total:           d.Total,
		Submission:      string(d.Submission),
		Settlement:      string(d.EffectiveSettlement(now)),
		RejectionReason: d.RejectionReason,
		TrackID:         d.TrackID,
		Attempts:        d.Attempts,
		JournalEntryID:  d.JournalEntryID,
		PaymentEntryID:  d.PaymentEntryID,
		ReferenceID:     d.ReferenceID,
		AcceptedAt:      d.AcceptedAt,
		PaidAt:          d.PaidAt,
		Lines:           make([]DocumentLineResponse, 0, len(d.Lines)),
	}
	if !d.DueDate.IsZero() {
		out.DueDate = d.DueDate.Format(DateLayout)
	}
	for _, l := range d.Lines {
		out.Lines = append(out.Lines, DocumentLineResponse{
			LineNo:      l.LineNo,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
			Amount:      l.Amount,
		})
	}
	return out
}
