// Package ledger es el libro diario de partida doble: todo asiento cuadra, los
// contabilizados son inmutables y la anulación se hace con un asiento de reversa.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
	"github.com/jhoicas/libro-tributario/pkg/logger"
)

// LineInput línea de un asiento a crear o editar.
type LineInput struct {
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// EntryInput cabecera y líneas de un asiento.
type EntryInput struct {
	Date     time.Time
	Concept  string
	Source   string // manual por defecto
	SourceID string
	Lines    []LineInput
}

// Service casos de uso del libro diario.
type Service struct {
	store repository.Store
	audit *audit.Service
	log   *logger.Logger
	now   func() time.Time
}

// NewService construye el servicio.
func NewService(store repository.Store, auditSvc *audit.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, audit: auditSvc, log: log.Component("ledger"), now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateEntry crea un asiento (en borrador o ya contabilizado). Un asiento descuadrado
// o con cuentas inexistentes no deja ningún rastro salvo el registro de auditoría del rechazo.
func (s *Service) CreateEntry(ctx context.Context, companyID, actor string, in EntryInput, post bool) (*entity.JournalEntry, error) {
	var out *entity.JournalEntry
	err := s.store.Run(ctx, func(tx repository.Repos) error {
		var err error
		out, err = s.CreateEntryIn(ctx, tx, companyID, actor, in, post)
		return err
	})
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryLedger, actor, "crear", "", err)
		return nil, err
	}
	s.log.Info().Str("company_id", companyID).Str("entry_id", out.ID).Int64("numero", out.Number).
		Str("estado", string(out.Status)).Msg("asiento creado")
	return out, nil
}

// CreateEntryIn variante transaccional usada por ventas, cobros y gastos.
func (s *Service) CreateEntryIn(ctx context.Context, tx repository.Repos, companyID, actor string, in EntryInput, post bool) (*entity.JournalEntry, error) {
	lines, err := s.checkLines(ctx, tx, companyID, in.Lines)
	if err != nil {
		return nil, err
	}
	number, err := tx.Journal.NextNumber(ctx, companyID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	source := in.Source
	if source == "" {
		source = entity.SourceManual
	}
	entry := &entity.JournalEntry{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Number:    number,
		Date:      date,
		Concept:   strings.TrimSpace(in.Concept),
		Status:    entity.EntryBorrador,
		Source:    source,
		SourceID:  in.SourceID,
		Lines:     lines,
		CreatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	action := "crear"
	if post {
		entry.Status = entity.EntryContabilizado
		entry.PostedAt = &now
		action = "crear_contabilizado"
	}
	if err := tx.Journal.Create(ctx, entry); err != nil {
		return nil, err
	}
	if err := s.audit.RecordIn(ctx, tx.Audit, audit.Event{
		CompanyID: companyID,
		Category:  entity.CategoryLedger,
		Actor:     actor,
		Action:    action,
		EntityID:  entry.ID,
		Message:   fmt.Sprintf("asiento N°%d %q (%s)", entry.Number, entry.Concept, entry.Source),
		After:     snapshot(entry),
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateDraft reemplaza cabecera y líneas de un asiento en borrador.
func (s *Service) UpdateDraft(ctx context.Context, companyID, actor, entryID string, in EntryInput) (*entity.JournalEntry, error) {
	var out *entity.JournalEntry
	err := s.store.Run(ctx, func(tx repository.Repos) error {
		entry, err := s.lock(ctx, tx, companyID, entryID)
		if err != nil {
			return err
		}
		if entry.Status != entity.EntryBorrador {
			return &domain.ImmutableEntryError{EntryID: entry.ID, Status: string(entry.Status)}
		}
		lines, err := s.checkLines(ctx, tx, companyID, in.Lines)
		if err != nil {
			return err
		}
		before := snapshot(entry)
		if !in.Date.IsZero() {
			entry.Date = in.Date
		}
		if c := strings.TrimSpace(in.Concept); c != "" {
			entry.Concept = c
		}
		entry.Lines = lines
		entry.UpdatedAt = s.now()
		if err := tx.Journal.Update(ctx, entry); err != nil {
			return err
		}
		out = entry
		return s.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID, Category: entity.CategoryLedger, Actor: actor, Action: "editar",
			EntityID: entry.ID, Message: fmt.Sprintf("borrador N°%d editado", entry.Number),
			Before: before, After: snapshot(entry),
		})
	})
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryLedger, actor, "editar", entryID, err)
		return nil, err
	}
	return out, nil
}

// Post contabiliza un borrador.
func (s *Service) Post(ctx context.Context, companyID, actor, entryID string) (*entity.JournalEntry, error) {
	var out *entity.JournalEntry
	err := s.store.Run(ctx, func(tx repository.Repos) error {
		entry, err := s.lock(ctx, tx, companyID, entryID)
		if err != nil {
			return err
		}
		if entry.Status != entity.EntryBorrador {
			return &domain.InvalidTransitionError{Entity: "asiento", From: string(entry.Status), To: string(entity.EntryContabilizado)}
		}
		// el plan pudo cambiar desde que se guardó el borrador
		if _, err := s.checkLines(ctx, tx, companyID, linesToInput(entry.Lines)); err != nil {
			return err
		}
		now := s.now()
		entry.Status = entity.EntryContabilizado
		entry.PostedAt = &now
		entry.UpdatedAt = now
		if err := tx.Journal.Update(ctx, entry); err != nil {
			return err
		}
		out = entry
		return s.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID, Category: entity.CategoryLedger, Actor: actor, Action: "contabilizar",
			EntityID: entry.ID, Message: fmt.Sprintf("asiento N°%d contabilizado", entry.Number),
			Before: map[string]any{"estado": entity.EntryBorrador}, After: map[string]any{"estado": entry.Status},
		})
	})
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryLedger, actor, "contabilizar", entryID, err)
		return nil, err
	}
	return out, nil
}

// Void anula un asiento contabilizado: crea y contabiliza la reversa (debe y haber
// intercambiados), marca el original como anulado y enlaza ambos.
func (s *Service) Void(ctx context.Context, companyID, actor, entryID, reason string) (*entity.JournalEntry, error) {
	var out *entity.JournalEntry
	err := s.store.Run(ctx, func(tx repository.Repos) error {
		var err error
		out, err = s.VoidIn(ctx, tx, companyID, actor, entryID, reason)
		return err
	})
	if err != nil {
		s.audit.Failure(ctx, companyID, entity.CategoryLedger, actor, "anular", entryID, err)
		return nil, err
	}
	s.log.Info().Str("company_id", companyID).Str("entry_id", entryID).Str("reversa_id", out.ID).Msg("asiento anulado")
	return out, nil
}

// VoidIn variante transaccional; devuelve el asiento de reversa.
func (s *Service) VoidIn(ctx context.Context, tx repository.Repos, companyID, actor, entryID, reason string) (*entity.JournalEntry, error) {
	orig, err := s.lock(ctx, tx, companyID, entryID)
	if err != nil {
		return nil, err
	}
	if orig.Status != entity.EntryContabilizado {
		return nil, &domain.InvalidTransitionError{Entity: "asiento", From: string(orig.Status), To: string(entity.EntryAnulado)}
	}
	number, err := tx.Journal.NextNumber(ctx, companyID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	concept := fmt.Sprintf("Reversa asiento N°%d", orig.Number)
	if r := strings.TrimSpace(reason); r != "" {
		concept += ": " + r
	}
	reversal := &entity.JournalEntry{
		ID:         uuid.New().String(),
		CompanyID:  companyID,
		Number:     number,
		Date:       orig.Date,
		Concept:    concept,
		Status:     entity.EntryContabilizado,
		Source:     entity.SourceReversal,
		SourceID:   orig.ID,
		ReversalOf: orig.ID,
		CreatedBy:  actor,
		CreatedAt:  now,
		UpdatedAt:  now,
		PostedAt:   &now,
	}
	for i, l := range orig.Lines {
		reversal.Lines = append(reversal.Lines, entity.JournalLine{
			LineNo:      i + 1,
			AccountCode: l.AccountCode,
			Debit:       l.Credit,
			Credit:      l.Debit,
			Description: l.Description,
		})
	}
	if err := tx.Journal.Create(ctx, reversal); err != nil {
		return nil, err
	}
	orig.Status = entity.EntryAnulado
	orig.ReversedBy = reversal.ID
	orig.UpdatedAt = now
	if err := tx.Journal.Update(ctx, orig); err != nil {
		return nil, err
	}
	if err := s.audit.RecordIn(ctx, tx.Audit, audit.Event{
		CompanyID: companyID, Category: entity.CategoryLedger, Actor: actor, Action: "anular",
		EntityID: orig.ID,
		Message:  fmt.Sprintf("asiento N°%d anulado con reversa N°%d", orig.Number, reversal.Number),
		Before:   map[string]any{"estado": entity.EntryContabilizado},
		After:    map[string]any{"estado": orig.Status, "reversa_id": reversal.ID, "reversa_numero": reversal.Number},
	}); err != nil {
		return nil, err
	}
	return reversal, nil
}

// Get devuelve un asiento de la empresa.
func (s *Service) Get(ctx context.Context, companyID, entryID string) (*entity.JournalEntry, error) {
	return s.load(ctx, s.store.Repos(), companyID, entryID)
}

// List asientos de la empresa ordenados por número.
func (s *Service) List(ctx context.Context, f repository.JournalFilter) ([]*entity.JournalEntry, error) {
	return s.store.Repos().Journal.List(ctx, f)
}

func (s *Service) load(ctx context.Context, tx repository.Repos, companyID, entryID string) (*entity.JournalEntry, error) {
	entry, err := tx.Journal.GetByID(ctx, entryID)
	return owned(entry, err, companyID, entryID)
}

// lock lee el asiento bloqueándolo; se usa en todo camino leer-modificar-escribir dentro de Run.
func (s *Service) lock(ctx context.Context, tx repository.Repos, companyID, entryID string) (*entity.JournalEntry, error) {
	entry, err := tx.Journal.GetForUpdate(ctx, entryID)
	return owned(entry, err, companyID, entryID)
}

func owned(entry *entity.JournalEntry, err error, companyID, entryID string) (*entity.JournalEntry, error) {
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.CompanyID != companyID {
		return nil, fmt.Errorf("asiento %s: %w", entryID, domain.ErrNotFound)
	}
	return entry, nil
}

// checkLines valida forma, cuadratura y existencia de cuentas, en ese orden.
func (s *Service) checkLines(ctx context.Context, tx repository.Repos, companyID string, in []LineInput) ([]entity.JournalLine, error) {
	var problems []string
	if len(in) < 2 {
		problems = append(problems, "un asiento necesita al menos dos líneas")
	}
	debit, credit := decimal.Zero, decimal.Zero
	lines := make([]entity.JournalLine, 0, len(in))
	for i, l := range in {
		n := i + 1
		code := strings.TrimSpace(l.AccountCode)
		if code == "" {
			problems = append(problems, fmt.Sprintf("línea %d: cuenta requerida", n))
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			problems = append(problems, fmt.Sprintf("línea %d: montos negativos", n))
		}
		if l.Debit.IsZero() == l.Credit.IsZero() {
			problems = append(problems, fmt.Sprintf("línea %d: debe o haber, exactamente uno distinto de cero", n))
		}
		if !l.Debit.Equal(l.Debit.Round(0)) || !l.Credit.Equal(l.Credit.Round(0)) {
			problems = append(problems, fmt.Sprintf("línea %d: montos en pesos enteros", n))
		}
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
		lines = append(lines, entity.JournalLine{
			LineNo:      n,
			AccountCode: code,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: strings.TrimSpace(l.Description),
		})
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}
	if !debit.Equal(credit) {
		return nil, &domain.ImbalanceError{Debit: debit, Credit: credit}
	}
	seen := map[string]bool{}
	for _, l := range lines {
		if seen[l.AccountCode] {
			continue
		}
		seen[l.AccountCode] = true
		acc, err := tx.Accounts.Get(ctx, companyID, l.AccountCode)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			return nil, &domain.UnknownAccountError{Code: l.AccountCode}
		}
	}
	return lines, nil
}

func linesToInput(lines []entity.JournalLine) []LineInput {
	out := make([]LineInput, len(lines))
	for i, l := range lines {
		out[i] = LineInput{AccountCode: l.AccountCode, Debit: l.Debit, Credit: l.Credit, Description: l.Description}
	}
	return out
}

func snapshot(e *entity.JournalEntry) map[string]any {
	lines := make([]map[string]string, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = map[string]string{"cuenta": l.AccountCode, "debe": l.Debit.String(), "haber": l.Credit.String()}
	}
	return map[string]any{
		"numero": e.Number,
		"fecha":  e.Date.Format("2006-01-02"),
		"glosa":  e.Concept,
		"estado": e.Status,
		"origen": e.Source,
		"lineas": lines,
	}
}
