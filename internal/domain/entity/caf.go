package entity

import "time"

// CAF rango de folios autorizado por el SII para un tipo de documento.
// NextFree avanza de a uno y nunca retrocede.
type CAF struct {
	ID           string
	CompanyID    string
	DocType      int
	RangeFrom    int64
	RangeTo      int64
	NextFree     int64
	AuthorizedAt time.Time
	ExpiresAt    time.Time // fechaVencimiento
	Vigente      bool
	KeyID        string
	RawXML       []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Exhausted true cuando ya se entregó el folio RangeTo.
func (c *CAF) Exhausted() bool {
	return c.NextFree > c.RangeTo
}

// Remaining folios aún disponibles.
func (c *CAF) Remaining() int64 {
	if c.Exhausted() {
		return 0
	}
	return c.RangeTo - c.NextFree + 1
}

// ActiveAt vigente y no vencido a la fecha asOf (el día de vencimiento aún es válido).
func (c *CAF) ActiveAt(asOf time.Time) bool {
	if !c.Vigente {
		return false
	}
	return !dateOnly(asOf).After(dateOnly(c.ExpiresAt))
}

// Overlaps true si ambos CAF son del mismo tipo y sus rangos se cruzan.
func (c *CAF) Overlaps(o *CAF) bool {
	if c.CompanyID != o.CompanyID || c.DocType != o.DocType {
		return false
	}
	return c.RangeFrom <= o.RangeTo && o.RangeFrom <= c.RangeTo
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
