package billing

import (
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// DTEBuilder arma el XML del DTE (documento con folio y timbre) que se envía al SII.
type DTEBuilder interface {
	Build(company *entity.Company, doc *entity.Document, caf *entity.CAF) ([]byte, error)
}

// DocumentPDFGenerator genera la representación impresa del DTE.
type DocumentPDFGenerator interface {
	Generate(company *entity.Company, doc *entity.Document) ([]byte, error)
}
