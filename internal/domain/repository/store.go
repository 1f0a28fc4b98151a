package repository

import "context"

// Repos conjunto de repositorios atados a una misma conexión o transacción.
type Repos struct {
	Companies CompanyRepository
	Users     UserRepository
	Accounts  AccountRepository
	Journal   JournalRepository
	CAFs      CAFRepository
	Documents DocumentRepository
	Expenses  ExpenseRepository
	Audit     AuditRepository
}

// TxRunner ejecuta fn dentro de una transacción; si fn devuelve error no queda nada escrito.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx Repos) error) error
}

// Store acceso a repositorios fuera de transacción más el runner transaccional.
type Store interface {
	TxRunner
	Repos() Repos
}
