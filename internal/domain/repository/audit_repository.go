package repository

import (
	"context"
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// AuditRepository bitácora append-only.
type AuditRepository interface {
	Append(ctx context.Context, e *entity.AuditLogEntry) error
	// Query devuelve la página pedida y el total de registros que cumplen el filtro.
	Query(ctx context.Context, f entity.AuditFilter) ([]*entity.AuditLogEntry, int, error)
	// DeleteOlderThan única vía de borrado; companyID vacío aplica a todas las empresas.
	DeleteOlderThan(ctx context.Context, companyID string, cutoff time.Time) (int64, error)
}
