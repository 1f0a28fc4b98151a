package repository

import (
	"context"
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// ExpenseRepository gastos y compras.
type ExpenseRepository interface {
	Create(ctx context.Context, e *entity.Expense) error
	GetByID(ctx context.Context, id string) (*entity.Expense, error)
	Update(ctx context.Context, e *entity.Expense) error
	// ListBetween gastos con fecha en [from, to).
	ListBetween(ctx context.Context, companyID string, from, to time.Time) ([]*entity.Expense, error)
}
