package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo bitácora append-only sobre PostgreSQL.
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

const auditColumns = `id, company_id, ts, level, category, actor, action, entity_id, error_kind, message, before, after`

// Append inserta un registro.
func (r *AuditRepo) Append(ctx context.Context, e *entity.AuditLogEntry) error {
	_, err := r.q.Exec(ctx, `INSERT INTO audit_log (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.CompanyID, e.Timestamp, string(e.Level), e.Category, e.Actor, e.Action, e.EntityID,
		e.ErrorKind, e.Message, nullJSON(e.Before), nullJSON(e.After),
	)
	return wrap("audit.Append", err)
}

// Query página de registros (más reciente primero) y total que cumple el filtro.
func (r *AuditRepo) Query(ctx context.Context, f entity.AuditFilter) ([]*entity.AuditLogEntry, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CompanyID != "" {
		add("company_id = $%d", f.CompanyID)
	}
	if f.From != nil {
		add("ts >= $%d", *f.From)
	}
	if f.To != nil {
		add("ts <= $%d", *f.To)
	}
	if len(f.Levels) > 0 {
		levels := make([]string, 0, len(f.Levels))
		for _, l := range f.Levels {
			levels = append(levels, string(l))
		}
		add("level = ANY($%d)", levels)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Actor != "" {
		add("actor = $%d", f.Actor)
	}
	if f.Text != "" {
		args = append(args, "%"+f.Text+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(action ILIKE $%d OR message ILIKE $%d OR entity_id ILIKE $%d)", n, n, n))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`+cond, args...).Scan(&total); err != nil {
		return nil, 0, wrap("audit.Query", err)
	}

	pageArgs := append(append([]any{}, args...), limitOrAll(f.Limit), f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM audit_log%s ORDER BY ts DESC LIMIT $%d OFFSET $%d`,
		auditColumns, cond, len(pageArgs)-1, len(pageArgs))
	rows, err := r.q.Query(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, wrap("audit.Query", err)
	}
	defer rows.Close()

	var list []*entity.AuditLogEntry
	for rows.Next() {
		var e entity.AuditLogEntry
		var (
			level         string
			before, after []byte
		)
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Timestamp, &level, &e.Category, &e.Actor, &e.Action, &e.EntityID,
			&e.ErrorKind, &e.Message, &before, &after); err != nil {
			return nil, 0, wrap("audit.Query", err)
		}
		e.Level = entity.AuditLevel(level)
		e.Before, e.After = before, after
		list = append(list, &e)
	}
	return list, total, wrap("audit.Query", rows.Err())
}

// DeleteOlderThan purga por retención; companyID vacío aplica a todas las empresas.
func (r *AuditRepo) DeleteOlderThan(ctx context.Context, companyID string, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM audit_log WHERE ts < $1 AND ($2 = '' OR company_id = $2)`, cutoff, companyID)
	if err != nil {
		return 0, wrap("audit.DeleteOlderThan", err)
	}
	return tag.RowsAffected(), nil
}

// nullJSON vacío -> NULL en la columna JSONB.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
