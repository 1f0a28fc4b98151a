package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/application/ledger"
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
	"github.com/jhoicas/libro-tributario/internal/domain/tax"
	"github.com/jhoicas/libro-tributario/pkg/retry"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// Ciclo de envío al SII:
//
//	folio (CAF) → XML DTE → firma XMLDSig → envío (TrackID) → consulta de estado → asiento de venta
//
// Submit cubre hasta el TrackID (borrador → enviada → procesando); RefreshStatus consulta
// el estado y, si el SII aceptó, contabiliza la venta en la misma transacción que cambia
// el estado del documento.

// transientAuthority fallas del SII o de persistencia que vale la pena reintentar.
func transientAuthority(err error) bool {
	return errors.Is(err, sii.ErrUnavailable) || domain.IsTransient(err)
}

// Submit envía el documento al SII. Desde borrador asigna folio; desde rechazada conserva
// el folio o toma uno nuevo según ReuseFolioOnResubmit; desde enviada sin TrackID
// (envío anterior fallido) sólo retransmite.
func (s *Service) Submit(ctx context.Context, companyID, actor, docID string) (*entity.Document, error) {
	doc, err := s.prepare(ctx, companyID, actor, docID)
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryDocument, actor, "enviar", docID, err)
		s.log.Warn().Err(err).Str("document_id", docID).Msg("envío rechazado antes de transmitir")
		return nil, err
	}
	doc, err = s.transmit(ctx, companyID, actor, doc)
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryDocument, actor, "transmitir", docID, err)
		s.log.Error().Err(err).Str("document_id", docID).Int64("folio", doc.Folio).Msg("no se pudo transmitir al SII")
		return doc, err
	}
	return doc, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 1. Folio + XML + firma (una transacción)
// ═══════════════════════════════════════════════════════════════════════════
func (s *Service) prepare(ctx context.Context, companyID, actor, docID string) (*entity.Document, error) {
	current, err := s.load(ctx, s.store.Repos(), companyID, docID)
	if err != nil {
		return nil, err
	}
	if current.Submission == entity.SubmissionEnviada && current.TrackID == "" {
		return current, nil
	}
	if current.Settlement == entity.SettlementCancelada {
		return nil, fmt.Errorf("documento %s anulado: %w", docID, domain.ErrConflict)
	}

	unlock := s.folios.Lock(companyID, current.DocType)
	defer unlock()

	var out *entity.Document
	err = s.store.Run(ctx, func(tx repository.Repos) error {
		doc, err := s.lock(ctx, tx, companyID, docID)
		if err != nil {
			return err
		}
		if doc.Settlement == entity.SettlementCancelada {
			return fmt.Errorf("documento %s anulado: %w", docID, domain.ErrConflict)
		}
		from := doc.Submission
		before := docSnapshot(doc)
		if err := tax.MoveSubmission(doc, entity.SubmissionEnviada); err != nil {
			return err
		}

		needFolio := doc.Folio == 0 || (from == entity.SubmissionRechazada && !s.cfg.ReuseFolioOnResubmit)
		if needFolio {
			abandoned := doc.Folio
			asg, err := s.folios.AllocateIn(ctx, tx, companyID, doc.DocType, doc.IssueDate, actor)
			if err != nil {
				return err
			}
			doc.Folio, doc.CAFID = asg.Folio, asg.CAFID
			if abandoned != 0 {
				if err := s.audit.RecordIn(ctx, tx.Audit, audit.Event{
					CompanyID: companyID, Level: entity.AuditWarn, Category: entity.CategoryFolio, Actor: actor,
					Action: "abandonar", EntityID: doc.ID,
					Message: fmt.Sprintf("folio %d de DTE %d queda sin uso tras el rechazo; reenvío con folio %d", abandoned, doc.DocType, doc.Folio),
				}); err != nil {
					return err
				}
			}
		}

		company, err := tx.Companies.GetByID(ctx, companyID)
		if err != nil {
			return err
		}
		if company == nil {
			return fmt.Errorf("empresa %s: %w", companyID, domain.ErrNotFound)
		}
		caf, err := tx.CAFs.GetByID(ctx, doc.CAFID)
		if err != nil {
			return err
		}
		xmlBytes, err := s.buildXML(company, doc, caf)
		if err != nil {
			return err
		}
		doc.SignedXML = string(xmlBytes)
		doc.RejectionReason = ""
		doc.TrackID = ""
		doc.UpdatedAt = s.now()
		if err := tx.Documents.Update(ctx, doc); err != nil {
			return err
		}
		out = doc
		return s.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID, Category: entity.CategoryDocument, Actor: actor, Action: "enviar",
			EntityID: doc.ID,
			Message:  fmt.Sprintf("%s folio %d enviado (desde %s)", sii.DTEName(doc.DocType), doc.Folio, from),
			Before:   before, After: docSnapshot(doc),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) buildXML(company *entity.Company, doc *entity.Document, caf *entity.CAF) ([]byte, error) {
	if s.builder == nil {
		return nil, nil
	}
	xmlBytes, err := s.builder.Build(company, doc, caf)
	if err != nil {
		return nil, fmt.Errorf("xml DTE: %w", err)
	}
	if s.signer == nil || s.cfg.Certificate == nil {
		return xmlBytes, nil
	}
	signed, err := s.signer.Sign(xmlBytes, *s.cfg.Certificate)
	if err != nil {
		return nil, fmt.Errorf("firma DTE: %w", err)
	}
	return signed, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 2. Envío al SII (con reintentos) y registro del TrackID
// ═══════════════════════════════════════════════════════════════════════════
func (s *Service) transmit(ctx context.Context, companyID, actor string, doc *entity.Document) (*entity.Document, error) {
	env := sii.Envelope{
		DocumentID:  doc.ID,
		IssuerRUT:   doc.IssuerRUT,
		ReceiverRUT: doc.ReceiverRUT,
		DocType:     doc.DocType,
		Folio:       doc.Folio,
		XML:         []byte(doc.SignedXML),
	}
	trackID, attempts, err := retry.Value(ctx, s.cfg.Retry, transientAuthority, func(ctx context.Context) (string, error) {
		return s.submitter.Submit(ctx, env)
	})
	if err != nil {
		return doc, fmt.Errorf("envío al SII tras %d intentos: %w", attempts, err)
	}

	var out *entity.Document
	err = s.store.Run(ctx, func(tx repository.Repos) error {
		cur, err := s.lock(ctx, tx, companyID, doc.ID)
		if err != nil {
			return err
		}
		if err := tax.MoveSubmission(cur, entity.SubmissionProcesando); err != nil {
			return err
		}
		cur.TrackID = trackID
		cur.Attempts += attempts
		cur.UpdatedAt = s.now()
		if err := tx.Documents.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		return s.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID, Category: entity.CategoryDocument, Actor: actor, Action: "transmitir",
			EntityID: cur.ID, Message: fmt.Sprintf("folio %d recibido por el SII, track %s", cur.Folio, trackID),
			After: map[string]any{"envio": cur.Submission, "track_id": trackID, "intentos": cur.Attempts},
		})
	})
	if err != nil {
		return doc, err
	}
	s.log.Info().Str("document_id", out.ID).Int64("folio", out.Folio).Str("track_id", trackID).Msg("DTE recibido por el SII")
	return out, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 3. Consulta de estado → aceptada (con asiento) | rechazada
// ═══════════════════════════════════════════════════════════════════════════

// RefreshStatus consulta el estado del envío. Si el SII sigue procesando no cambia nada.
// Si aceptó, el documento pasa a aceptada y la venta se contabiliza en la misma transacción.
// Si rechazó, el documento queda rechazada con el motivo y se devuelve *domain.AuthorityRejectionError.
func (s *Service) RefreshStatus(ctx context.Context, companyID, actor, docID string) (*entity.Document, error) {
	doc, err := s.load(ctx, s.store.Repos(), companyID, docID)
	if err != nil {
		return nil, err
	}
	switch doc.Submission {
	case entity.SubmissionAceptada:
		return doc, nil
	case entity.SubmissionRechazada:
		err := &domain.AuthorityRejectionError{DocumentID: doc.ID, TrackID: doc.TrackID, Reason: doc.RejectionReason}
		s.audit.Failure(ctx, companyID, entity.CategoryDocument, actor, "consultar", docID, err)
		return doc, err
	case entity.SubmissionProcesando:
	default:
		err := &domain.InvalidTransitionError{Entity: "documento/envío", From: string(doc.Submission), To: string(entity.SubmissionAceptada)}
		s.audit.Failure(ctx, companyID, entity.CategoryDocument, actor, "consultar", docID, err)
		return nil, err
	}

	res, _, err := retry.Value(ctx, s.cfg.Retry, transientAuthority, func(ctx context.Context) (sii.StatusResult, error) {
		return s.submitter.Status(ctx, doc.TrackID)
	})
	if err != nil {
		err = fmt.Errorf("consulta de estado SII (track %s): %w", doc.TrackID, err)
		s.audit.Failure(ctx, companyID, entity.CategoryDocument, actor, "consultar", docID, err)
		return doc, err
	}
	if !res.Final {
		return doc, nil
	}

	var out *entity.Document
	err = s.store.Run(ctx, func(tx repository.Repos) error {
		cur, err := s.lock(ctx, tx, companyID, docID)
		if err != nil {
			return err
		}
		if cur.Submission != entity.SubmissionProcesando {
			out = cur
			return nil
		}
		before := docSnapshot(cur)
		if res.Accepted {
			if err := s.accept(ctx, tx, actor, cur); err != nil {
				return err
			}
			out = cur
			return s.audit.RecordIn(ctx, tx.Audit, audit.Event{
				CompanyID: companyID, Category: entity.CategoryDocument, Actor: actor, Action: "aceptar",
				EntityID: cur.ID, Message: fmt.Sprintf("%s folio %d aceptado por el SII (%s)", sii.DTEName(cur.DocType), cur.Folio, res.Code),
				Before: before, After: docSnapshot(cur),
			})
		}
		if err := tax.MoveSubmission(cur, entity.SubmissionRechazada); err != nil {
			return err
		}
		cur.RejectionReason = res.Reason
		cur.UpdatedAt = s.now()
		if err := tx.Documents.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		rej := &domain.AuthorityRejectionError{DocumentID: cur.ID, TrackID: cur.TrackID, Reason: res.Reason}
		return s.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID, Level: entity.AuditError, Category: entity.CategoryDocument, Actor: actor,
			Action: "rechazar", EntityID: cur.ID, ErrorKind: domain.KindAuthorityRejection,
			Message: rej.Error(), Before: before, After: docSnapshot(cur),
		})
	})
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryDocument, actor, "consultar", docID, err)
		return nil, err
	}
	if out.Submission == entity.SubmissionRechazada {
		s.log.Warn().Str("document_id", out.ID).Int64("folio", out.Folio).Str("motivo", out.RejectionReason).Msg("DTE rechazado por el SII")
		return out, &domain.AuthorityRejectionError{DocumentID: out.ID, TrackID: out.TrackID, Reason: out.RejectionReason}
	}
	s.log.Info().Str("document_id", out.ID).Int64("folio", out.Folio).Str("estado", string(out.Submission)).Msg("estado SII actualizado")
	return out, nil
}

// accept pasa el documento a aceptada y, si corresponde, contabiliza la venta con el tx en curso.
func (s *Service) accept(ctx context.Context, tx repository.Repos, actor string, doc *entity.Document) error {
	if err := tax.MoveSubmission(doc, entity.SubmissionAceptada); err != nil {
		return err
	}
	now := s.now()
	doc.AcceptedAt = &now
	doc.UpdatedAt = now
	if doc.Settlement == entity.SettlementCancelada {
		return tx.Documents.Update(ctx, doc)
	}
	if s.cfg.PostOnAcceptance && doc.Total.IsPositive() {
		entry, err := s.ledger.CreateEntryIn(ctx, tx, doc.CompanyID, actor, ledger.EntryInput{
			Date:     doc.IssueDate,
			Concept:  fmt.Sprintf("%s N°%d a %s", sii.DTEName(doc.DocType), doc.Folio, doc.ReceiverRUT),
			Source:   entity.SourceDocument,
			SourceID: doc.ID,
			Lines:    saleLines(doc),
		}, true)
		if err != nil {
			return err
		}
		doc.JournalEntryID = entry.ID
	}
	return tx.Documents.Update(ctx, doc)
}
