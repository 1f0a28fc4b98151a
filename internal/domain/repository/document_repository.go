package repository

import (
	"context"
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// DocumentFilter filtros del listado de documentos.
type DocumentFilter struct {
	CompanyID  string
	DocType    int
	Submission entity.SubmissionStatus
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// DocumentRepository DTE emitidos. Sin Delete: la anulación es un estado.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	Update(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	// GetForUpdate como GetByID pero bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Document, error)
	List(ctx context.Context, f DocumentFilter) ([]*entity.Document, error)
	// ListIssuedBetween documentos con fecha de emisión en [from, to).
	ListIssuedBetween(ctx context.Context, companyID string, from, to time.Time) ([]*entity.Document, error)
}
