package repository

import (
	"context"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// CompanyRepository puerto de persistencia de empresas emisoras.
// Los Get devuelven (nil, nil) cuando el registro no existe.
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	GetByRUT(ctx context.Context, rut string) (*entity.Company, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Company, error)
}
