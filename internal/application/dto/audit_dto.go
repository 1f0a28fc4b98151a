package dto

import (
	"encoding/json"
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// AuditQuery filtros de GET /api/audit.
type AuditQuery struct {
	From     string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Level    string `query:"level" validate:"omitempty,oneof=INFO WARN ERROR AUDIT"`
	Category string `query:"category"`
	Actor    string `query:"actor"`
	Text     string `query:"q"`
	Limit    int    `query:"limit" validate:"min=0,max=500"`
	Offset   int    `query:"offset" validate:"min=0"`
}

// PurgeAuditRequest body para POST /api/audit/purge. Días 0 = retención configurada.
type PurgeAuditRequest struct {
	OlderThanDays int `json:"older_than_days" validate:"min=0"`
}

// PurgeAuditResponse registros eliminados.
type PurgeAuditResponse struct {
	Deleted int64 `json:"deleted"`
}

// AuditEntryResponse registro de la bitácora.
type AuditEntryResponse struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Category  string          `json:"category"`
	Actor     string          `json:"actor"`
	Action    string          `json:"action"`
	EntityID  string          `json:"entity_id,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Message   string          `json:"message"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
}

// AuditListResponse página de la bitácora.
type AuditListResponse struct {
	Items []AuditEntryResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}

// FromAuditEntry arma la respuesta.
func FromAuditEntry(e *entity.AuditLogEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Level:     string(e.Level),
		Category:  e.Category,
		Actor:     e.Actor,
		Action:    e.Action,
		EntityID:  e.EntityID,
		ErrorKind: e.ErrorKind,
		Message:   e.Message,
		Before:    e.Before,
		After:     e.After,
	}
}
