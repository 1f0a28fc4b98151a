package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del asiento contable.
type EntryStatus string

const (
	EntryBorrador      EntryStatus = "borrador"
	EntryContabilizado EntryStatus = "contabilizado"
	EntryAnulado       EntryStatus = "anulado"
)

// Origen del asiento.
const (
	SourceManual   = "manual"
	SourceDocument = "documento"
	SourceExpense  = "gasto"
	SourcePayment  = "pago"
	SourceReversal = "reversa"
)

// JournalEntry asiento del libro diario.
type JournalEntry struct {
	ID         string
	CompanyID  string
	Number     int64 // correlativo por empresa, asignado al crear
	Date       time.Time
	Concept    string
	Status     EntryStatus
	Source     string
	SourceID   string // id del documento/gasto/asiento que lo originó
	Lines      []JournalLine
	ReversalOf string // en la reversa: id del asiento anulado
	ReversedBy string // en el anulado: id de su reversa
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	PostedAt   *time.Time
}

// JournalLine línea del asiento. Exactamente uno de Debit/Credit es distinto de cero.
type JournalLine struct {
	LineNo      int
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// Totals suma debe y haber.
func (e *JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// Posted true si el asiento afecta saldos (contabilizado o anulado con su reversa).
func (e *JournalEntry) Posted() bool {
	return e.Status == EntryContabilizado || e.Status == EntryAnulado
}

// Clone copia profunda (las líneas no se comparten).
func (e *JournalEntry) Clone() *JournalEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Lines = append([]JournalLine(nil), e.Lines...)
	if e.PostedAt != nil {
		t := *e.PostedAt
		c.PostedAt = &t
	}
	return &c
}
