package postgres

import (
	"context"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

// AccountRepo plan de cuentas sobre PostgreSQL.
type AccountRepo struct {
	q Querier
}

// NewAccountRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAccountRepository(q Querier) *AccountRepo {
	return &AccountRepo{q: q}
}

// Create persiste una cuenta. Código repetido en la empresa -> domain.ErrDuplicate.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO accounts (company_id, code, name, class, created_at) VALUES ($1, $2, $3, $4, $5)`,
		a.CompanyID, a.Code, a.Name, string(a.Class), a.CreatedAt,
	)
	return wrap("accounts.Create", err)
}

// Get obtiene una cuenta por código; (nil, nil) si no existe.
func (r *AccountRepo) Get(ctx context.Context, companyID, code string) (*entity.Account, error) {
	var a entity.Account
	var class string
	err := r.q.QueryRow(ctx,
		`SELECT company_id, code, name, class, created_at FROM accounts WHERE company_id = $1 AND code = $2`,
		companyID, code,
	).Scan(&a.CompanyID, &a.Code, &a.Name, &class, &a.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, wrap("accounts.Get", err)
	}
	a.Class = entity.AccountClass(class)
	return &a, nil
}

// List plan de cuentas completo ordenado por código.
func (r *AccountRepo) List(ctx context.Context, companyID string) ([]*entity.Account, error) {
	rows, err := r.q.Query(ctx,
		`SELECT company_id, code, name, class, created_at FROM accounts WHERE company_id = $1 ORDER BY code`,
		companyID,
	)
	if err != nil {
		return nil, wrap("accounts.List", err)
	}
	defer rows.Close()

	var list []*entity.Account
	for rows.Next() {
		var a entity.Account
		var class string
		if err := rows.Scan(&a.CompanyID, &a.Code, &a.Name, &class, &a.CreatedAt); err != nil {
			return nil, wrap("accounts.List", err)
		}
		a.Class = entity.AccountClass(class)
		list = append(list, &a)
	}
	return list, wrap("accounts.List", rows.Err())
}
