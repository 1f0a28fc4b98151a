package dto

import (
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// RegisterCAFRequest alta manual de un rango. Para subir el XML del SII se usa
// multipart (campo "file") en el mismo endpoint.
type RegisterCAFRequest struct {
	DocType      int    `json:"doc_type" validate:"required,oneof=33 34 39 41 56 61"`
	RangeFrom    int64  `json:"range_from" validate:"required,min=1"`
	RangeTo      int64  `json:"range_to" validate:"required,gtefield=RangeFrom"`
	AuthorizedAt string `json:"authorized_at" validate:"required,datetime=2006-01-02"`
	ExpiresAt    string `json:"expires_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	KeyID        string `json:"key_id,omitempty"`
}

// CAFResponse rango con folios restantes.
type CAFResponse struct {
	ID           string    `json:"id"`
	DocType      int       `json:"doc_type"`
	RangeFrom    int64     `json:"range_from"`
	RangeTo      int64     `json:"range_to"`
	NextFree     int64     `json:"next_free"`
	Remaining    int64     `json:"remaining"`
	AuthorizedAt string    `json:"authorized_at"`
	ExpiresAt    string    `json:"expires_at"`
	Vigente      bool      `json:"vigente"`
	CreatedAt    time.Time `json:"created_at"`
}

// FromCAF arma la respuesta.
func FromCAF(c *entity.CAF) CAFResponse {
	return CAFResponse{
		ID:           c.ID,
		DocType:      c.DocType,
		RangeFrom:    c.RangeFrom,
		RangeTo:      c.RangeTo,
		NextFree:     c.NextFree,
		Remaining:    c.Remaining(),
		AuthorizedAt: c.AuthorizedAt.Format(DateLayout),
		ExpiresAt:    c.ExpiresAt.Format(DateLayout),
		Vigente:      c.Vigente,
		CreatedAt:    c.CreatedAt,
	}
}
