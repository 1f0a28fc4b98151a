package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

var _ repository.ExpenseRepository = (*ExpenseRepo)(nil)

// ExpenseRepo gastos y compras sobre PostgreSQL.
type ExpenseRepo struct {
	q Querier
}

// NewExpenseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewExpenseRepository(q Querier) *ExpenseRepo {
	return &ExpenseRepo{q: q}
}

const expenseColumns = `id, company_id, date, supplier_rut, document_number, description, amount,
	deductible, account_code, journal_entry_id, created_by, created_at`

// Create persiste un gasto.
func (r *ExpenseRepo) Create(ctx context.Context, e *entity.Expense) error {
	_, err := r.q.Exec(ctx, `INSERT INTO expenses (`+expenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.CompanyID, e.Date, e.SupplierRUT, e.DocumentNumber, e.Description, e.Amount,
		e.Deductible, e.AccountCode, e.JournalEntryID, e.CreatedBy, e.CreatedAt,
	)
	return wrap("expenses.Create", err)
}

// GetByID obtiene un gasto; (nil, nil) si no existe.
func (r *ExpenseRepo) GetByID(ctx context.Context, id string) (*entity.Expense, error) {
	e, err := scanExpense(r.q.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, wrap("expenses.GetByID", err)
	}
	return e, nil
}

// Update sólo el vínculo al asiento cambia después del alta.
func (r *ExpenseRepo) Update(ctx context.Context, e *entity.Expense) error {
	tag, err := r.q.Exec(ctx, `UPDATE expenses SET journal_entry_id = $2, deductible = $3, description = $4 WHERE id = $1`,
		e.ID, e.JournalEntryID, e.Deductible, e.Description)
	if err != nil {
		return wrap("expenses.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("gasto %s: %w", e.ID, domain.ErrNotFound)
	}
	return nil
}

// ListBetween gastos con fecha en [from, to).
func (r *ExpenseRepo) ListBetween(ctx context.Context, companyID string, from, to time.Time) ([]*entity.Expense, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		 WHERE company_id = $1 AND date >= $2 AND date < $3
		 ORDER BY date, created_at`, companyID, from, to)
	if err != nil {
		return nil, wrap("expenses.ListBetween", err)
	}
	defer rows.Close()
	var list []*entity.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, wrap("expenses.ListBetween", err)
		}
		list = append(list, e)
	}
	return list, wrap("expenses.ListBetween", rows.Err())
}

func scanExpense(s scanner) (*entity.Expense, error) {
	var e entity.Expense
	if err := s.Scan(&e.ID, &e.CompanyID, &e.Date, &e.SupplierRUT, &e.DocumentNumber, &e.Description, &e.Amount,
		&e.Deductible, &e.AccountCode, &e.JournalEntryID, &e.CreatedBy, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
