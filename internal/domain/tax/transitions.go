package tax

import (
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// Transiciones permitidas del envío al SII. Rechazada vuelve a enviada al reenviar.
var submissionTransitions = map[entity.SubmissionStatus][]entity.SubmissionStatus{
	entity.SubmissionBorrador:   {entity.SubmissionEnviada},
	entity.SubmissionEnviada:    {entity.SubmissionProcesando, entity.SubmissionRechazada},
	entity.SubmissionProcesando: {entity.SubmissionAceptada, entity.SubmissionRechazada},
	entity.SubmissionRechazada:  {entity.SubmissionEnviada},
	entity.SubmissionAceptada:   nil,
}

// Transiciones persistidas del cobro. Vencida es derivada y no aparece aquí.
var settlementTransitions = map[entity.SettlementStatus][]entity.SettlementStatus{
	entity.SettlementPendiente: {entity.SettlementPagada, entity.SettlementCancelada},
	entity.SettlementPagada:    nil,
	entity.SettlementCancelada: nil,
}

// CanSubmission indica si from → to es válido.
func CanSubmission(from, to entity.SubmissionStatus) bool {
	for _, s := range submissionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanSettlement indica si from → to es válido.
func CanSettlement(from, to entity.SettlementStatus) bool {
	for _, s := range settlementTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// MoveSubmission aplica la transición o devuelve *domain.InvalidTransitionError.
func MoveSubmission(doc *entity.Document, to entity.SubmissionStatus) error {
	if !CanSubmission(doc.Submission, to) {
		return &domain.InvalidTransitionError{Entity: "documento/envío", From: string(doc.Submission), To: string(to)}
	}
	doc.Submission = to
	return nil
}

// MoveSettlement aplica la transición sobre el estado persistido.
func MoveSettlement(doc *entity.Document, to entity.SettlementStatus) error {
	if !CanSettlement(doc.Settlement, to) {
		return &domain.InvalidTransitionError{Entity: "documento/cobro", From: string(doc.Settlement), To: string(to)}
	}
	doc.Settlement = to
	return nil
}
