package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

// PDFUseCase genera la representación impresa de un DTE.
// Sólo documentos con folio (ya enviados al SII) tienen representación impresa.
type PDFUseCase struct {
	store     repository.Store
	generator DocumentPDFGenerator
}

// NewPDFUseCase construye el caso de uso.
func NewPDFUseCase(store repository.Store, generator DocumentPDFGenerator) *PDFUseCase {
	return &PDFUseCase{store: store, generator: generator}
}

// DownloadDocumentPDF devuelve el PDF y el nombre de archivo sugerido.
//
// Retorna:
//   - domain.ErrNotFound     si el documento no existe.
//   - domain.ErrForbidden    si el documento no pertenece a la empresa del token.
//   - domain.ErrInvalidInput si el documento aún no tiene folio.
func (uc *PDFUseCase) DownloadDocumentPDF(ctx context.Context, companyID, docID string) (pdfBytes []byte, filename string, err error) {
	repos := uc.store.Repos()

	// ── 1. Cargar documento ───────────────────────────────────────────────────
	doc, err := repos.Documents.GetByID(ctx, docID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener documento: %w", err)
	}
	if doc == nil {
		return nil, "", domain.ErrNotFound
	}
	if doc.CompanyID != companyID {
		return nil, "", domain.ErrForbidden
	}

	// ── 2. Validar que ya tiene folio ─────────────────────────────────────────
	if doc.Folio == 0 || doc.Submission == entity.SubmissionBorrador {
		return nil, "", fmt.Errorf("%w: el documento está en estado %s, envíelo al SII antes de descargar el PDF",
			domain.ErrInvalidInput, doc.Submission)
	}

	// ── 3. Cargar empresa ─────────────────────────────────────────────────────
	company, err := repos.Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener empresa: %w", err)
	}
	if company == nil {
		return nil, "", fmt.Errorf("pdf: empresa %s: %w", companyID, domain.ErrNotFound)
	}

	// ── 4. Generar PDF ────────────────────────────────────────────────────────
	pdfBytes, err = uc.generator.Generate(company, doc)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, fmt.Sprintf("dte_%d_%d.pdf", doc.DocType, doc.Folio), nil
}
