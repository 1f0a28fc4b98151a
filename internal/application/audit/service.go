// Package audit es la bitácora append-only del núcleo: cada cambio de estado y
// cada operación rechazada dejan exactamente un registro.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
	"github.com/jhoicas/libro-tributario/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxExportRows   = 50000
)

// Event lo que un servicio quiere dejar registrado.
type Event struct {
	CompanyID string
	Level     entity.AuditLevel
	Category  string
	Actor     string
	Action    string
	EntityID  string
	ErrorKind string
	Message   string
	Before    any
	After     any
}

// Page resultado paginado de Query.
type Page struct {
	Items   []*entity.AuditLogEntry
	Total   int
	Limit   int
	Offset  int
	HasNext bool
}

// Service escribe y consulta la bitácora.
type Service struct {
	repo repository.AuditRepository
	log  *logger.Logger
	now  func() time.Time
}

// NewService construye el servicio; repo es el repositorio fuera de transacción.
func NewService(repo repository.AuditRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log.Component("audit"), now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Record agrega un registro fuera de cualquier transacción.
func (s *Service) Record(ctx context.Context, ev Event) error {
	return s.RecordIn(ctx, s.repo, ev)
}

// RecordIn agrega el registro con el repositorio de la transacción en curso, de modo
// que el registro y el cambio que describe se confirman o descartan juntos.
func (s *Service) RecordIn(ctx context.Context, repo repository.AuditRepository, ev Event) error {
	entry, err := s.build(ev)
	if err != nil {
		return err
	}
	if err := repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// Failure registra una operación rechazada: WARN si es un rechazo de negocio,
// ERROR si es una falla de persistencia, del SII o interna. Nunca devuelve error:
// si la bitácora misma falla, queda en el log de la aplicación.
func (s *Service) Failure(ctx context.Context, companyID, category, actor, action, entityID string, cause error) {
	level := entity.AuditWarn
	if !domain.IsDomainRejection(cause) {
		level = entity.AuditError
	}
	ev := Event{
		CompanyID: companyID,
		Level:     level,
		Category:  category,
		Actor:     actor,
		Action:    action,
		EntityID:  entityID,
		ErrorKind: domain.KindOf(cause),
		Message:   cause.Error(),
	}
	if err := s.Record(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("company_id", companyID).
			Str("action", action).
			Str("cause", cause.Error()).
			Msg("no se pudo registrar la falla en auditoría")
	}
}

// Query consulta con filtros y paginación (límite por defecto 50, máximo 500).
func (s *Service) Query(ctx context.Context, f entity.AuditFilter) (*Page, error) {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	items, total, err := s.repo.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	return &Page{
		Items:   items,
		Total:   total,
		Limit:   f.Limit,
		Offset:  f.Offset,
		HasNext: f.Offset+len(items) < total,
	}, nil
}

// Export recorre todas las páginas del filtro y devuelve las filas completas, para
// renderizadores externos (CSV, planilla). Se detiene en maxExportRows.
func (s *Service) Export(ctx context.Context, f entity.AuditFilter) ([]*entity.AuditLogEntry, error) {
	f.Limit = maxPageSize
	f.Offset = 0
	var out []*entity.AuditLogEntry
	for len(out) < maxExportRows {
		page, err := s.Query(ctx, f)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if !page.HasNext || len(page.Items) == 0 {
			break
		}
		f.Offset += len(page.Items)
	}
	if len(out) > maxExportRows {
		out = out[:maxExportRows]
	}
	return out, nil
}

// PurgeOlderThan elimina los registros anteriores a now - days y deja constancia de la purga.
// Es la única vía de borrado de la bitácora.
func (s *Service) PurgeOlderThan(ctx context.Context, companyID, actor string, days int) (int64, error) {
	if days <= 0 {
		return 0, domain.NewValidationError("la retención debe ser de al menos 1 día")
	}
	cutoff := s.now().AddDate(0, 0, -days)
	n, err := s.repo.DeleteOlderThan(ctx, companyID, cutoff)
	if err != nil {
		perr := domain.NewPersistenceError("purgar auditoría", err, false)
		s.Failure(ctx, companyID, entity.CategoryAudit, actor, "purgar", "", perr)
		return 0, perr
	}
	if err := s.Record(ctx, Event{
		CompanyID: companyID,
		Level:     entity.AuditAudit,
		Category:  entity.CategoryAudit,
		Actor:     actor,
		Action:    "purgar",
		Message:   fmt.Sprintf("%d registros anteriores a %s eliminados (retención %d días)", n, cutoff.Format(time.RFC3339), days),
		After:     map[string]any{"removed": n, "cutoff": cutoff, "days": days},
	}); err != nil {
		return n, err
	}
	s.log.Info().Int64("removed", n).Int("days", days).Str("company_id", companyID).Msg("auditoría purgada")
	return n, nil
}

func (s *Service) build(ev Event) (*entity.AuditLogEntry, error) {
	if ev.Level == "" {
		ev.Level = entity.AuditAudit
	}
	before, err := snapshot(ev.Before)
	if err != nil {
		return nil, fmt.Errorf("audit: snapshot before: %w", err)
	}
	after, err := snapshot(ev.After)
	if err != nil {
		return nil, fmt.Errorf("audit: snapshot after: %w", err)
	}
	return &entity.AuditLogEntry{
		ID:        uuid.New().String(),
		CompanyID: ev.CompanyID,
		Timestamp: s.now().UTC(),
		Level:     ev.Level,
		Category:  ev.Category,
		Actor:     ev.Actor,
		Action:    ev.Action,
		EntityID:  ev.EntityID,
		ErrorKind: ev.ErrorKind,
		Message:   ev.Message,
		Before:    before,
		After:     after,
	}, nil
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
