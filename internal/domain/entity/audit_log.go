package entity

import (
	"encoding/json"
	"time"
)

// AuditLevel nivel del registro de auditoría.
type AuditLevel string

const (
	AuditInfo  AuditLevel = "INFO"
	AuditWarn  AuditLevel = "WARN"
	AuditError AuditLevel = "ERROR"
	AuditAudit AuditLevel = "AUDIT"
)

// Categorías de auditoría.
const (
	CategoryFolio    = "folio"
	CategoryCAF      = "caf"
	CategoryLedger   = "libro_diario"
	CategoryDocument = "documento"
	CategoryExpense  = "gasto"
	CategoryPeriod   = "periodo"
	CategoryAudit    = "auditoria"
	CategoryCompany  = "empresa"
)

// AuditLogEntry registro inmutable. Sólo la purga por retención lo elimina.
type AuditLogEntry struct {
	ID        string
	CompanyID string
	Timestamp time.Time
	Level     AuditLevel
	Category  string
	Actor     string
	Action    string
	EntityID  string
	ErrorKind string
	Message   string
	Before    json.RawMessage
	After     json.RawMessage
}

// AuditFilter criterios de consulta; los campos vacíos no filtran.
type AuditFilter struct {
	CompanyID string
	From      *time.Time
	To        *time.Time
	Levels    []AuditLevel
	Category  string
	Actor     string
	Text      string // busca en acción, mensaje y entidad
	Limit     int
	Offset    int
}
