package tax

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// DocumentInput datos mínimos para aceptar un documento en borrador.
type DocumentInput struct {
	DocType     int
	IssuerRUT   string
	ReceiverRUT string
	IssueDate   time.Time
	DueDate     time.Time
	ReferenceID string
	Lines       []LineInput
}

// ValidateDocument valida tipo, RUT de emisor y receptor, fechas y líneas.
// Devuelve un único *domain.ValidationError con todos los problemas encontrados.
func ValidateDocument(in DocumentInput) error {
	var problems []string

	if sii.DTEName(in.DocType) == "" {
		problems = append(problems, fmt.Sprintf("tipo de documento %d no soportado", in.DocType))
	}
	if _, err := sii.ValidateRUT(in.IssuerRUT); err != nil {
		problems = append(problems, "RUT emisor: "+err.Error())
	}
	if _, err := sii.ValidateRUT(in.ReceiverRUT); err != nil {
		problems = append(problems, "RUT receptor: "+err.Error())
	}
	if in.IssueDate.IsZero() {
		problems = append(problems, "fecha de emisión requerida")
	}
	if !in.DueDate.IsZero() && in.DueDate.Before(in.IssueDate) {
		problems = append(problems, "la fecha de vencimiento no puede ser anterior a la emisión")
	}
	if (in.DocType == sii.DTENotaCredito || in.DocType == sii.DTENotaDebito) && strings.TrimSpace(in.ReferenceID) == "" {
		problems = append(problems, "las notas de crédito y débito deben referenciar un documento")
	}
	problems = append(problems, ValidateLines(in.Lines)...)

	if len(problems) > 0 {
		return domain.NewValidationError(problems...)
	}
	return nil
}
