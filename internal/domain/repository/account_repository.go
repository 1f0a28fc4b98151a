package repository

import (
	"context"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// AccountRepository plan de cuentas por empresa.
type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	Get(ctx context.Context, companyID, code string) (*entity.Account, error)
	List(ctx context.Context, companyID string) ([]*entity.Account, error)
}
