// Package billing es el motor de documentos tributarios electrónicos: crea el DTE en
// borrador, le asigna folio al enviarlo, sigue su estado en el SII y contabiliza la
// venta al quedar aceptado.
package billing

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/application/folio"
	"github.com/jhoicas/libro-tributario/internal/application/ledger"
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
	"github.com/jhoicas/libro-tributario/internal/domain/tax"
	"github.com/jhoicas/libro-tributario/pkg/logger"
	"github.com/jhoicas/libro-tributario/pkg/retry"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// Config parámetros del motor de documentos.
type Config struct {
	VATRate              decimal.Decimal
	PaymentTermDays      int
	ReuseFolioOnResubmit bool
	PostOnAcceptance     bool
	Retry                retry.Policy
	// Certificate si es nil los DTE se envían sin firma (ambiente dev).
	Certificate *tls.Certificate
}

// Service casos de uso del documento.
type Service struct {
	store     repository.Store
	folios    *folio.Allocator
	ledger    *ledger.Service
	audit     *audit.Service
	builder   DTEBuilder
	signer    sii.Signer
	submitter sii.Submitter
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
}

// NewService construye el motor. builder y signer pueden ser nil: el documento se envía
// entonces sin XML propio o sin firma.
func NewService(
	store repository.Store,
	folios *folio.Allocator,
	ledgerSvc *ledger.Service,
	auditSvc *audit.Service,
	builder DTEBuilder,
	signer sii.Signer,
	submitter sii.Submitter,
	cfg Config,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Retry == (retry.Policy{}) {
		cfg.Retry = retry.Default()
	}
	return &Service{
		store:     store,
		folios:    folios,
		ledger:    ledgerSvc,
		audit:     auditSvc,
		builder:   builder,
		signer:    signer,
		submitter: submitter,
		cfg:       cfg,
		log:       log.Component("billing"),
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateInput datos de un documento nuevo. IssuerRUT vacío toma el RUT de la empresa.
type CreateInput struct {
	DocType      int
	IssuerRUT    string
	ReceiverRUT  string
	ReceiverName string
	IssueDate    time.Time
	DueDate      time.Time
	ReferenceID  string
	Lines        []tax.LineInput
}

// Create valida el documento, calcula sus totales y lo guarda en borrador/pendiente.
// El folio se asigna recién al enviarlo.
func (s *Service) Create(ctx context.Context, companyID, actor string, in CreateInput) (*entity.Document, error) {
	doc, err := s.create(ctx, companyID, actor, in)
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryDocument, actor, "crear", "", err)
		return nil, err
	}
	s.log.Info().Str("company_id", companyID).Str("document_id", doc.ID).Int("doc_type", doc.DocType).
		Str("total", doc.Total.String()).Msg("documento creado")
	return doc, nil
}

func (s *Service) create(ctx context.Context, companyID, actor string, in CreateInput) (*entity.Document, error) {
	company, err := s.store.Repos().Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("empresa %s: %w", companyID, domain.ErrNotFound)
	}
	if strings.TrimSpace(in.IssuerRUT) == "" {
		in.IssuerRUT = company.RUT
	}
	if in.IssueDate.IsZero() {
		y, m, d := s.now().In(time.UTC).Date()
		in.IssueDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	if err := tax.ValidateDocument(tax.DocumentInput{
		DocType:     in.DocType,
		IssuerRUT:   in.IssuerRUT,
		ReceiverRUT: in.ReceiverRUT,
		IssueDate:   in.IssueDate,
		DueDate:     in.DueDate,
		ReferenceID: in.ReferenceID,
		Lines:       in.Lines,
	}); err != nil {
		return nil, err
	}
	issuer, _ := sii.NormalizeRUT(in.IssuerRUT)
	receiver, _ := sii.NormalizeRUT(in.ReceiverRUT)
	if issuer != company.RUT {
		return nil, domain.NewValidationError(fmt.Sprintf("el RUT emisor %s no corresponde a la empresa (%s)", issuer, company.RUT))
	}
	totals, err := tax.ComputeTotals(in.DocType, in.Lines, s.cfg.VATRate)
	if err != nil {
		return nil, err
	}

	due := in.DueDate
	if due.IsZero() {
		due = in.IssueDate
		if !sii.IsBoleta(in.DocType) && s.cfg.PaymentTermDays > 0 {
			due = in.IssueDate.AddDate(0, 0, s.cfg.PaymentTermDays)
		}
	}
	now := s.now()
	doc := &entity.Document{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		DocType:      in.DocType,
		IssuerRUT:    issuer,
		ReceiverRUT:  receiver,
		ReceiverName: strings.TrimSpace(in.ReceiverName),
		IssueDate:    in.IssueDate,
		DueDate:      due,
		Lines:        totals.Lines,
		Subtotal:     totals.Subtotal,
		VAT:          totals.VAT,
		Total:        totals.Total,
		Submission:   entity.SubmissionBorrador,
		Settlement:   entity.SettlementPendiente,
		ReferenceID:  strings.TrimSpace(in.ReferenceID),
		CreatedBy:    actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.Run(ctx, func(tx repository.Repos) error {
		if doc.ReferenceID != "" {
			ref, err := tx.Documents.GetByID(ctx, doc.ReferenceID)
			if err != nil {
				return err
			}
			if ref == nil || ref.CompanyID != companyID {
				return domain.NewValidationError(fmt.Sprintf("documento referenciado %s no existe", doc.ReferenceID))
			}
			if ref.Submission != entity.SubmissionAceptada {
				return domain.NewValidationError("sólo se puede referenciar un documento aceptado por el SII")
			}
		}
		if err := tx.Documents.Create(ctx, doc); err != nil {
			return err
		}
		return s.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID,
			Category:  entity.CategoryDocument,
			Actor:     actor,
			Action:    "crear",
			EntityID:  doc.ID,
			Message:   fmt.Sprintf("%s para %s por $%s", sii.DTEName(doc.DocType), doc.ReceiverRUT, doc.Total.String()),
			After:     docSnapshot(doc),
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Get documento de la empresa.
func (s *Service) Get(ctx context.Context, companyID, docID string) (*entity.Document, error) {
	return s.load(ctx, s.store.Repos(), companyID, docID)
}

// List documentos de la empresa.
func (s *Service) List(ctx context.Context, f repository.DocumentFilter) ([]*entity.Document, error) {
	return s.store.Repos().Documents.List(ctx, f)
}

// MarkPaid registra el cobro de un documento aceptado. Las facturas y notas a crédito
// generan el asiento de cobro (Caja contra Clientes); las boletas ya entraron por Caja.
func (s *Service) MarkPaid(ctx context.Context, companyID, actor, docID string, paidAt time.Time) (*entity.Document, error) {
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	var out *entity.Document
	err := s.store.Run(ctx, func(tx repository.Repos) error {
		doc, err := s.lock(ctx, tx, companyID, docID)
		if err != nil {
			return err
		}
		if doc.Submission != entity.SubmissionAceptada {
			return fmt.Errorf("documento %s en estado %s: sólo se cobran documentos aceptados: %w", doc.ID, doc.Submission, domain.ErrConflict)
		}
		before := docSnapshot(doc)
		if err := tax.MoveSettlement(doc, entity.SettlementPagada); err != nil {
			return err
		}
		doc.PaidAt = &paidAt
		if doc.JournalEntryID != "" && !sii.IsBoleta(doc.DocType) {
			entry, err := s.ledger.CreateEntryIn(ctx, tx, companyID, actor, ledger.EntryInput{
				Date:     paidAt,
				Concept:  fmt.Sprintf("Cobro %s N°%d", sii.DTEName(doc.DocType), doc.Folio),
				Source:   entity.SourcePayment,
				SourceID: doc.ID,
				Lines:    paymentLines(doc),
			}, true)
			if err != nil {
				return err
			}
			doc.PaymentEntryID = entry.ID
		}
		doc.UpdatedAt = s.now()
		if err := tx.Documents.Update(ctx, doc); err != nil {
			return err
		}
		out = doc
		return s.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID, Category: entity.CategoryDocument, Actor: actor, Action: "pagar",
			EntityID: doc.ID, Message: fmt.Sprintf("folio %d pagado", doc.Folio),
			Before: before, After: docSnapshot(doc),
		})
	})
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryDocument, actor, "pagar", docID, err)
		return nil, err
	}
	return out, nil
}

// Cancel anula el documento localmente. Si ya estaba contabilizado se reversa su asiento;
// el folio queda consumido y el CAF no se toca. Mientras está enviada o procesando
// devuelve *domain.InvalidTransitionError.
func (s *Service) Cancel(ctx context.Context, companyID, actor, docID, reason string) (*entity.Document, error) {
	var out *entity.Document
	err := s.store.Run(ctx, func(tx repository.Repos) error {
		doc, err := s.lock(ctx, tx, companyID, docID)
		if err != nil {
			return err
		}
		// En tránsito el SII todavía puede aceptarlo; se anula cuando haya respuesta.
		if doc.Submission == entity.SubmissionEnviada || doc.Submission == entity.SubmissionProcesando {
			return &domain.InvalidTransitionError{Entity: "documento/pago", From: string(doc.Submission), To: string(entity.SettlementCancelada)}
		}
		before := docSnapshot(doc)
		if err := tax.MoveSettlement(doc, entity.SettlementCancelada); err != nil {
			return err
		}
		if doc.JournalEntryID != "" {
			entry, err := tx.Journal.GetForUpdate(ctx, doc.JournalEntryID)
			if err != nil {
				return err
			}
			if entry != nil && entry.Status == entity.EntryContabilizado {
				if _, err := s.ledger.VoidIn(ctx, tx, companyID, actor, entry.ID, "anulación de documento"); err != nil {
					return err
				}
			}
		}
		doc.UpdatedAt = s.now()
		if err := tx.Documents.Update(ctx, doc); err != nil {
			return err
		}
		out = doc
		msg := fmt.Sprintf("%s folio %d anulado", sii.DTEName(doc.DocType), doc.Folio)
		if r := strings.TrimSpace(reason); r != "" {
			msg += ": " + r
		}
		return s.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID, Category: entity.CategoryDocument, Actor: actor, Action: "anular",
			EntityID: doc.ID, Message: msg, Before: before, After: docSnapshot(doc),
		})
	})
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryDocument, actor, "anular", docID, err)
		return nil, err
	}
	s.log.Info().Str("company_id", companyID).Str("document_id", docID).Msg("documento anulado")
	return out, nil
}

func (s *Service) load(ctx context.Context, repos repository.Repos, companyID, docID string) (*entity.Document, error) {
	doc, err := repos.Documents.GetByID(ctx, docID)
	return ownedDoc(doc, err, companyID, docID)
}

// lock lee el documento bloqueándolo; todo camino leer-modificar-escribir dentro de Run pasa por aquí.
func (s *Service) lock(ctx context.Context, tx repository.Repos, companyID, docID string) (*entity.Document, error) {
	doc, err := tx.Documents.GetForUpdate(ctx, docID)
	return ownedDoc(doc, err, companyID, docID)
}

func ownedDoc(doc *entity.Document, err error, companyID, docID string) (*entity.Document, error) {
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("documento %s: %w", docID, domain.ErrNotFound)
	}
	if doc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return doc, nil
}

func docSnapshot(d *entity.Document) map[string]any {
	return map[string]any{
		"tipo":     d.DocType,
		"folio":    d.Folio,
		"receptor": d.ReceiverRUT,
		"neto":     d.Subtotal.String(),
		"iva":      d.VAT.String(),
		"total":    d.Total.String(),
		"envio":    d.Submission,
		"cobro":    d.Settlement,
	}
}
