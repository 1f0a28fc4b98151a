package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

var _ repository.CAFRepository = (*CAFRepo)(nil)

// CAFRepo rangos de folios sobre PostgreSQL.
type CAFRepo struct {
	q Querier
}

// NewCAFRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCAFRepository(q Querier) *CAFRepo {
	return &CAFRepo{q: q}
}

const cafColumns = `id, company_id, doc_type, range_from, range_to, next_free, authorized_at, expires_at,
	vigente, key_id, raw_xml, created_at, updated_at`

// Create persiste un CAF.
func (r *CAFRepo) Create(ctx context.Context, c *entity.CAF) error {
	_, err := r.q.Exec(ctx, `INSERT INTO cafs (`+cafColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.CompanyID, c.DocType, c.RangeFrom, c.RangeTo, c.NextFree, c.AuthorizedAt, c.ExpiresAt,
		c.Vigente, c.KeyID, c.RawXML, c.CreatedAt, c.UpdatedAt,
	)
	return wrap("cafs.Create", err)
}

// GetByID obtiene un CAF; (nil, nil) si no existe.
func (r *CAFRepo) GetByID(ctx context.Context, id string) (*entity.CAF, error) {
	c, err := scanCAF(r.q.QueryRow(ctx, `SELECT `+cafColumns+` FROM cafs WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, wrap("cafs.GetByID", err)
	}
	return c, nil
}

// ListByCompany todos los CAF de la empresa.
func (r *CAFRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.CAF, error) {
	return r.list(ctx, "cafs.ListByCompany",
		`SELECT `+cafColumns+` FROM cafs WHERE company_id = $1 ORDER BY doc_type, range_from`, companyID)
}

// ListForAllocation CAF vigentes del tipo, bloqueados con FOR UPDATE hasta el fin de la transacción.
// Dos asignadores concurrentes de la misma empresa y tipo quedan serializados aquí.
func (r *CAFRepo) ListForAllocation(ctx context.Context, companyID string, docType int) ([]*entity.CAF, error) {
	return r.list(ctx, "cafs.ListForAllocation", `
		SELECT `+cafColumns+` FROM cafs
		 WHERE company_id = $1 AND doc_type = $2 AND vigente
		 ORDER BY range_from
		   FOR UPDATE`, companyID, docType)
}

// ListByType todos los CAF del tipo.
func (r *CAFRepo) ListByType(ctx context.Context, companyID string, docType int) ([]*entity.CAF, error) {
	return r.list(ctx, "cafs.ListByType",
		`SELECT `+cafColumns+` FROM cafs WHERE company_id = $1 AND doc_type = $2 ORDER BY range_from`, companyID, docType)
}

// Update guarda el estado del CAF. next_free nunca retrocede: GREATEST con el valor guardado.
func (r *CAFRepo) Update(ctx context.Context, c *entity.CAF) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE cafs
		SET next_free = GREATEST(next_free, $2), vigente = $3, expires_at = $4, updated_at = $5
		WHERE id = $1`,
		c.ID, c.NextFree, c.Vigente, c.ExpiresAt, c.UpdatedAt,
	)
	if err != nil {
		return wrap("cafs.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("CAF %s: %w", c.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *CAFRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.CAF, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()
	var list []*entity.CAF
	for rows.Next() {
		c, err := scanCAF(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		list = append(list, c)
	}
	return list, wrap(op, rows.Err())
}

func scanCAF(s scanner) (*entity.CAF, error) {
	var c entity.CAF
	err := s.Scan(&c.ID, &c.CompanyID, &c.DocType, &c.RangeFrom, &c.RangeTo, &c.NextFree, &c.AuthorizedAt, &c.ExpiresAt,
		&c.Vigente, &c.KeyID, &c.RawXML, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
