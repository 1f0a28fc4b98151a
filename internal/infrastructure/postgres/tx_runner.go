package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

var _ repository.Store = (*Store)(nil)

// Store repositorios sobre el pool más el runner transaccional.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore construye el store con el pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Repos repositorios fuera de transacción (cada sentencia con autocommit).
func (s *Store) Repos() repository.Repos {
	return reposOver(s.pool)
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (s *Store) Run(ctx context.Context, fn func(tx repository.Repos) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrap("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(reposOver(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("commit transaction", err)
	}
	return nil
}

func reposOver(q Querier) repository.Repos {
	return repository.Repos{
		Companies: NewCompanyRepository(q),
		Users:     NewUserRepository(q),
		Accounts:  NewAccountRepository(q),
		Journal:   NewJournalRepository(q),
		CAFs:      NewCAFRepository(q),
		Documents: NewDocumentRepository(q),
		Expenses:  NewExpenseRepository(q),
		Audit:     NewAuditRepository(q),
	}
}
