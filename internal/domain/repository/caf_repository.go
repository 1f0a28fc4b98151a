package repository

import (
	"context"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// CAFRepository rangos de folios autorizados.
type CAFRepository interface {
	Create(ctx context.Context, caf *entity.CAF) error
	GetByID(ctx context.Context, id string) (*entity.CAF, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.CAF, error)
	// ListForAllocation devuelve los CAF vigentes del tipo ordenados por RangeFrom y
	// los deja bloqueados hasta el fin de la transacción en curso.
	ListForAllocation(ctx context.Context, companyID string, docType int) ([]*entity.CAF, error)
	// ListByType todos los CAF del tipo (vigentes o no), para validar solapes.
	ListByType(ctx context.Context, companyID string, docType int) ([]*entity.CAF, error)
	Update(ctx context.Context, caf *entity.CAF) error
}
