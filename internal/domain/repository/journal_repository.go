package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// JournalFilter filtros del listado del libro diario.
type JournalFilter struct {
	CompanyID string
	From      *time.Time
	To        *time.Time
	Status    entity.EntryStatus
	Limit     int
	Offset    int
}

// AccountSum totales contabilizados de una cuenta.
type AccountSum struct {
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// JournalRepository libro diario. Nunca expone un Delete.
type JournalRepository interface {
	// NextNumber reserva el siguiente correlativo de la empresa.
	NextNumber(ctx context.Context, companyID string) (int64, error)
	Create(ctx context.Context, entry *entity.JournalEntry) error
	// Update reemplaza cabecera y líneas (el caso de uso garantiza que sólo se editan borradores).
	Update(ctx context.Context, entry *entity.JournalEntry) error
	GetByID(ctx context.Context, id string) (*entity.JournalEntry, error)
	// GetForUpdate como GetByID pero bloquea la cabecera hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.JournalEntry, error)
	List(ctx context.Context, f JournalFilter) ([]*entity.JournalEntry, error)
	// SumPosted suma las líneas de asientos contabilizados o anulados con fecha <= asOf,
	// agrupadas por cuenta. accountCode vacío = todas las cuentas.
	SumPosted(ctx context.Context, companyID, accountCode string, asOf time.Time) ([]AccountSum, error)
}
