package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubmissionStatus estado del envío al SII.
type SubmissionStatus string

const (
	SubmissionBorrador   SubmissionStatus = "borrador"
	SubmissionEnviada    SubmissionStatus = "enviada"
	SubmissionProcesando SubmissionStatus = "procesando"
	SubmissionAceptada   SubmissionStatus = "aceptada"
	SubmissionRechazada  SubmissionStatus = "rechazada"
)

// SettlementStatus estado de cobro local. Vencida no se persiste: se deriva al leer.
type SettlementStatus string

const (
	SettlementPendiente SettlementStatus = "pendiente"
	SettlementPagada    SettlementStatus = "pagada"
	SettlementVencida   SettlementStatus = "vencida"
	SettlementCancelada SettlementStatus = "cancelada"
)

// Document DTE emitido (factura, boleta, notas). Nunca se borra: anular es un cambio de estado.
type Document struct {
	ID              string
	CompanyID       string
	DocType         int
	Folio           int64 // 0 mientras no se asigna
	CAFID           string
	IssuerRUT       string
	ReceiverRUT     string
	ReceiverName    string
	IssueDate       time.Time
	DueDate         time.Time
	Lines           []DocumentLine
	Subtotal        decimal.Decimal // neto afecto, o monto exento en tipos exentos
	VAT             decimal.Decimal
	Total           decimal.Decimal
	Submission      SubmissionStatus
	Settlement      SettlementStatus
	RejectionReason string
	TrackID         string
	Attempts        int
	SignedXML       string
	JournalEntryID  string // asiento de venta (al aceptarse)
	PaymentEntryID  string // asiento de cobro (al pagarse)
	ReferenceID     string // documento referenciado por notas de crédito/débito
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	AcceptedAt      *time.Time
	PaidAt          *time.Time
}

// DocumentLine línea de detalle; Amount es el monto ya redondeado a pesos.
type DocumentLine struct {
	LineNo      int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	Amount      decimal.Decimal
}

// EffectiveSettlement devuelve Vencida si ya pasó el vencimiento y sigue pendiente.
func (d *Document) EffectiveSettlement(now time.Time) SettlementStatus {
	if d.Settlement == SettlementPendiente && !d.DueDate.IsZero() && now.After(d.DueDate) {
		return SettlementVencida
	}
	return d.Settlement
}

// Period clave YYYY-MM de la fecha de emisión.
func (d *Document) Period() string {
	return d.IssueDate.Format("2006-01")
}

// Clone copia profunda.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Lines = append([]DocumentLine(nil), d.Lines...)
	if d.AcceptedAt != nil {
		t := *d.AcceptedAt
		c.AcceptedAt = &t
	}
	if d.PaidAt != nil {
		t := *d.PaidAt
		c.PaidAt = &t
	}
	return &c
}
