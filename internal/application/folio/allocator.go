// Package folio asigna folios únicos y correlativos desde los CAF vigentes.
package folio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
	"github.com/jhoicas/libro-tributario/pkg/logger"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// Assignment folio entregado y CAF del que salió.
type Assignment struct {
	Folio int64
	CAFID string
}

// Allocator entrega folios. La asignación se serializa por (empresa, tipo) con un mutex
// en proceso y, dentro de la transacción, con el bloqueo de filas del store.
type Allocator struct {
	store          repository.Store
	audit          *audit.Service
	log            *logger.Logger
	validityMonths int
	now            func() time.Time

	locks sync.Map // companyID|docType -> *sync.Mutex
}

// NewAllocator construye el asignador. validityMonths se usa al importar archivos CAF.
func NewAllocator(store repository.Store, auditSvc *audit.Service, log *logger.Logger, validityMonths int) *Allocator {
	if log == nil {
		log = logger.Nop()
	}
	return &Allocator{
		store:          store,
		audit:          auditSvc,
		log:            log.Component("folio"),
		validityMonths: validityMonths,
		now:            time.Now,
	}
}

// Lock toma el mutex de (empresa, tipo). Quien asigna dentro de su propia transacción
// (AllocateIn) debe tomarlo antes de abrirla y soltarlo después del commit.
func (a *Allocator) Lock(companyID string, docType int) (unlock func()) {
	key := fmt.Sprintf("%s|%d", companyID, docType)
	m, _ := a.locks.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Allocate asigna el siguiente folio en una transacción propia. Registra en auditoría
// la asignación o la falla.
func (a *Allocator) Allocate(ctx context.Context, companyID string, docType int, asOf time.Time, actor string) (Assignment, error) {
	unlock := a.Lock(companyID, docType)
	defer unlock()

	var out Assignment
	err := a.store.Run(ctx, func(tx repository.Repos) error {
		var err error
		out, err = a.AllocateIn(ctx, tx, companyID, docType, asOf, actor)
		return err
	})
	if err != nil {
		a.audit.Failure(ctx, companyID, entity.CategoryFolio, actor, "asignar", "", err)
		a.log.Warn().Err(err).Str("company_id", companyID).Int("doc_type", docType).Msg("asignación de folio rechazada")
		return Assignment{}, err
	}
	return out, nil
}

// AllocateIn asigna dentro de la transacción tx y deja el registro de auditoría en ella.
// No registra fallas: el llamador lo hace una vez descartada la transacción.
func (a *Allocator) AllocateIn(ctx context.Context, tx repository.Repos, companyID string, docType int, asOf time.Time, actor string) (Assignment, error) {
	if sii.DTEName(docType) == "" {
		return Assignment{}, domain.NewValidationError(fmt.Sprintf("tipo de DTE %d no soportado", docType))
	}
	cafs, err := tx.CAFs.ListForAllocation(ctx, companyID, docType)
	if err != nil {
		return Assignment{}, err
	}

	var exhausted *entity.CAF
	for _, c := range cafs {
		if !c.ActiveAt(asOf) {
			continue
		}
		if c.Exhausted() {
			exhausted = c
			continue
		}
		before := *c
		folio := c.NextFree
		c.NextFree++
		c.UpdatedAt = a.now()
		if err := tx.CAFs.Update(ctx, c); err != nil {
			return Assignment{}, err
		}
		if err := a.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID,
			Category:  entity.CategoryFolio,
			Actor:     actor,
			Action:    "asignar",
			EntityID:  c.ID,
			Message:   fmt.Sprintf("folio %d de DTE %d asignado (quedan %d)", folio, docType, c.Remaining()),
			Before:    map[string]any{"next_free": before.NextFree},
			After:     map[string]any{"next_free": c.NextFree, "folio": folio},
		}); err != nil {
			return Assignment{}, err
		}
		a.log.Debug().Str("company_id", companyID).Int("doc_type", docType).Int64("folio", folio).Str("caf_id", c.ID).Msg("folio asignado")
		return Assignment{Folio: folio, CAFID: c.ID}, nil
	}

	if exhausted != nil {
		return Assignment{}, &domain.FolioExhaustedError{DocType: docType, CAFID: exhausted.ID, RangeTo: exhausted.RangeTo}
	}
	return Assignment{}, &domain.FolioExpiredError{DocType: docType, AsOf: asOf}
}

// CAFInput datos de un CAF a registrar.
type CAFInput struct {
	DocType      int
	RangeFrom    int64
	RangeTo      int64
	AuthorizedAt time.Time
	ExpiresAt    time.Time // cero = AuthorizedAt + vigencia configurada
	KeyID        string
	RawXML       []byte
}

// RegisterCAF da de alta un rango autorizado. Rechaza rangos que se crucen con otro CAF
// vigente del mismo tipo.
func (a *Allocator) RegisterCAF(ctx context.Context, companyID, actor string, in CAFInput) (*entity.CAF, error) {
	caf, err := a.register(ctx, companyID, actor, in)
	if err != nil {
		a.audit.Failure(ctx, companyID, entity.CategoryCAF, actor, "registrar", "", err)
		return nil, err
	}
	a.log.Info().Str("company_id", companyID).Int("doc_type", caf.DocType).
		Int64("desde", caf.RangeFrom).Int64("hasta", caf.RangeTo).Msg("CAF registrado")
	return caf, nil
}

// ImportCAF lee el archivo CAF del SII y lo registra. El RUT emisor del archivo debe
// coincidir con el de la empresa.
func (a *Allocator) ImportCAF(ctx context.Context, companyID, actor string, r io.Reader) (*entity.CAF, error) {
	data, err := sii.ParseCAF(r, a.validityMonths)
	if err != nil {
		verr := domain.NewValidationError(err.Error())
		a.audit.Failure(ctx, companyID, entity.CategoryCAF, actor, "importar", "", verr)
		return nil, verr
	}
	company, err := a.store.Repos().Companies.GetByID(ctx, companyID)
	if err == nil && company == nil {
		err = fmt.Errorf("empresa %s: %w", companyID, domain.ErrNotFound)
	}
	if err != nil {
		a.audit.Failure(ctx, companyID, entity.CategoryCAF, actor, "importar", "", err)
		return nil, err
	}
	if company.RUT != data.IssuerRUT {
		verr := domain.NewValidationError(fmt.Sprintf("el CAF pertenece a %s, no a %s", data.IssuerRUT, company.RUT))
		a.audit.Failure(ctx, companyID, entity.CategoryCAF, actor, "importar", "", verr)
		return nil, verr
	}
	return a.RegisterCAF(ctx, companyID, actor, CAFInput{
		DocType:      data.DocType,
		RangeFrom:    data.RangeFrom,
		RangeTo:      data.RangeTo,
		AuthorizedAt: data.AuthorizedAt,
		ExpiresAt:    data.ExpiresAt,
		KeyID:        data.KeyID,
		RawXML:       data.Raw,
	})
}

// List CAF de la empresa con su saldo de folios.
func (a *Allocator) List(ctx context.Context, companyID string) ([]*entity.CAF, error) {
	return a.store.Repos().CAFs.ListByCompany(ctx, companyID)
}

func (a *Allocator) register(ctx context.Context, companyID, actor string, in CAFInput) (*entity.CAF, error) {
	var problems []string
	if sii.DTEName(in.DocType) == "" {
		problems = append(problems, fmt.Sprintf("tipo de DTE %d no soportado", in.DocType))
	}
	if in.RangeFrom < 1 || in.RangeTo < in.RangeFrom {
		problems = append(problems, fmt.Sprintf("rango de folios inválido [%d, %d]", in.RangeFrom, in.RangeTo))
	}
	if in.AuthorizedAt.IsZero() {
		problems = append(problems, "fecha de autorización requerida")
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}
	expires := in.ExpiresAt
	if expires.IsZero() {
		months := a.validityMonths
		if months <= 0 {
			months = sii.DefaultCAFValidityMonths
		}
		expires = in.AuthorizedAt.AddDate(0, months, 0)
	}
	if expires.Before(in.AuthorizedAt) {
		return nil, domain.NewValidationError("el vencimiento es anterior a la autorización")
	}

	now := a.now()
	caf := &entity.CAF{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		DocType:      in.DocType,
		RangeFrom:    in.RangeFrom,
		RangeTo:      in.RangeTo,
		NextFree:     in.RangeFrom,
		AuthorizedAt: in.AuthorizedAt,
		ExpiresAt:    expires,
		Vigente:      true,
		KeyID:        in.KeyID,
		RawXML:       in.RawXML,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	unlock := a.Lock(companyID, in.DocType)
	defer unlock()
	err := a.store.Run(ctx, func(tx repository.Repos) error {
		existing, err := tx.CAFs.ListForAllocation(ctx, companyID, in.DocType)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.Overlaps(caf) {
				return fmt.Errorf("rango [%d, %d] se cruza con CAF %s [%d, %d]: %w",
					caf.RangeFrom, caf.RangeTo, e.ID, e.RangeFrom, e.RangeTo, domain.ErrConflict)
			}
		}
		if err := tx.CAFs.Create(ctx, caf); err != nil {
			return err
		}
		return a.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: companyID,
			Category:  entity.CategoryCAF,
			Actor:     actor,
			Action:    "registrar",
			EntityID:  caf.ID,
			Message:   fmt.Sprintf("CAF DTE %d [%d, %d] vence %s", caf.DocType, caf.RangeFrom, caf.RangeTo, caf.ExpiresAt.Format("2006-01-02")),
			After: map[string]any{
				"doc_type": caf.DocType, "desde": caf.RangeFrom, "hasta": caf.RangeTo,
				"vence": caf.ExpiresAt.Format("2006-01-02"),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return caf, nil
}
