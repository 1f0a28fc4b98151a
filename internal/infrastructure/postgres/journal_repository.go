package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

var _ repository.JournalRepository = (*JournalRepo)(nil)

// JournalRepo libro diario: cabecera en journal_entries, líneas en journal_lines.
type JournalRepo struct {
	q Querier
}

// NewJournalRepository construye el adaptador. Pasar pool o tx (Querier).
func NewJournalRepository(q Querier) *JournalRepo {
	return &JournalRepo{q: q}
}

const entryColumns = `id, company_id, number, date, concept, status, source, source_id,
	reversal_of, reversed_by, created_by, created_at, updated_at, posted_at`

// NextNumber incrementa el correlativo de la empresa; la fila queda bloqueada hasta el fin de la tx.
func (r *JournalRepo) NextNumber(ctx context.Context, companyID string) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO journal_sequences (company_id, last) VALUES ($1, 1)
		ON CONFLICT (company_id) DO UPDATE SET last = journal_sequences.last + 1
		RETURNING last`, companyID,
	).Scan(&n)
	if err != nil {
		return 0, wrap("journal.NextNumber", err)
	}
	return n, nil
}

// Create persiste cabecera y líneas.
func (r *JournalRepo) Create(ctx context.Context, e *entity.JournalEntry) error {
	_, err := r.q.Exec(ctx, `INSERT INTO journal_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.CompanyID, e.Number, e.Date, e.Concept, string(e.Status), e.Source, e.SourceID,
		e.ReversalOf, e.ReversedBy, e.CreatedBy, e.CreatedAt, e.UpdatedAt, e.PostedAt,
	)
	if err != nil {
		return wrap("journal.Create", err)
	}
	return r.insertLines(ctx, "journal.Create", e)
}

// Update reemplaza cabecera y líneas.
func (r *JournalRepo) Update(ctx context.Context, e *entity.JournalEntry) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE journal_entries
		SET date = $2, concept = $3, status = $4, reversal_of = $5, reversed_by = $6,
		    updated_at = $7, posted_at = $8
		WHERE id = $1`,
		e.ID, e.Date, e.Concept, string(e.Status), e.ReversalOf, e.ReversedBy, e.UpdatedAt, e.PostedAt,
	)
	if err != nil {
		return wrap("journal.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asiento %s: %w", e.ID, domain.ErrNotFound)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id = $1`, e.ID); err != nil {
		return wrap("journal.Update", err)
	}
	return r.insertLines(ctx, "journal.Update", e)
}

func (r *JournalRepo) insertLines(ctx context.Context, op string, e *entity.JournalEntry) error {
	for _, l := range e.Lines {
		if _, err := r.q.Exec(ctx, `
			INSERT INTO journal_lines (entry_id, line_no, account_code, debit, credit, description)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, l.LineNo, l.AccountCode, l.Debit, l.Credit, l.Description,
		); err != nil {
			return wrap(op, err)
		}
	}
	return nil
}

// GetByID asiento con sus líneas; (nil, nil) si no existe.
func (r *JournalRepo) GetByID(ctx context.Context, id string) (*entity.JournalEntry, error) {
	list, err := r.query(ctx, "journal.GetByID", `SELECT `+entryColumns+` FROM journal_entries WHERE id = $1`, id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// GetForUpdate asiento con la cabecera bloqueada hasta el fin de la transacción.
func (r *JournalRepo) GetForUpdate(ctx context.Context, id string) (*entity.JournalEntry, error) {
	list, err := r.query(ctx, "journal.GetForUpdate", `SELECT `+entryColumns+` FROM journal_entries WHERE id = $1 FOR UPDATE`, id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// List asientos de la empresa ordenados por correlativo.
func (r *JournalRepo) List(ctx context.Context, f repository.JournalFilter) ([]*entity.JournalEntry, error) {
	where := []string{"company_id = $1"}
	args := []any{f.CompanyID}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("date <= $%d", len(args)))
	}
	args = append(args, limitOrAll(f.Limit), f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM journal_entries WHERE %s ORDER BY number LIMIT $%d OFFSET $%d`,
		entryColumns, strings.Join(where, " AND "), len(args)-1, len(args))
	return r.query(ctx, "journal.List", query, args...)
}

// SumPosted agrega debe y haber de asientos contabilizados o anulados hasta asOf.
func (r *JournalRepo) SumPosted(ctx context.Context, companyID, accountCode string, asOf time.Time) ([]repository.AccountSum, error) {
	rows, err := r.q.Query(ctx, `
		SELECT l.account_code, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		  FROM journal_lines l
		  JOIN journal_entries e ON e.id = l.entry_id
		 WHERE e.company_id = $1
		   AND e.status IN ('contabilizado', 'anulado')
		   AND e.date <= $2
		   AND ($3 = '' OR l.account_code = $3)
		 GROUP BY l.account_code
		 ORDER BY l.account_code`,
		companyID, asOf, accountCode,
	)
	if err != nil {
		return nil, wrap("journal.SumPosted", err)
	}
	defer rows.Close()

	var out []repository.AccountSum
	for rows.Next() {
		var s repository.AccountSum
		if err := rows.Scan(&s.AccountCode, &s.Debit, &s.Credit); err != nil {
			return nil, wrap("journal.SumPosted", err)
		}
		out = append(out, s)
	}
	return out, wrap("journal.SumPosted", rows.Err())
}

// query carga cabeceras y luego sus líneas en una segunda consulta.
func (r *JournalRepo) query(ctx context.Context, op, query string, args ...any) ([]*entity.JournalEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	var (
		list []*entity.JournalEntry
		ids  []string
		byID = map[string]*entity.JournalEntry{}
	)
	for rows.Next() {
		var e entity.JournalEntry
		var status string
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Number, &e.Date, &e.Concept, &status, &e.Source, &e.SourceID,
			&e.ReversalOf, &e.ReversedBy, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt, &e.PostedAt); err != nil {
			rows.Close()
			return nil, wrap(op, err)
		}
		e.Status = entity.EntryStatus(status)
		list = append(list, &e)
		ids = append(ids, e.ID)
		byID[e.ID] = &e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	lines, err := r.q.Query(ctx, `
		SELECT entry_id, line_no, account_code, debit, credit, description
		  FROM journal_lines WHERE entry_id = ANY($1) ORDER BY entry_id, line_no`, ids)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer lines.Close()
	for lines.Next() {
		var entryID string
		var l entity.JournalLine
		if err := lines.Scan(&entryID, &l.LineNo, &l.AccountCode, &l.Debit, &l.Credit, &l.Description); err != nil {
			return nil, wrap(op, err)
		}
		if e := byID[entryID]; e != nil {
			e.Lines = append(e.Lines, l)
		}
	}
	return list, wrap(op, lines.Err())
}
