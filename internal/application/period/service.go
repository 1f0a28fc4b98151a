// Package period calcula el F29 (declaración mensual de IVA) a partir de los documentos
// aceptados y los gastos deducibles del mes. Si la base de datos no responde tras los
// reintentos, sirve la última instantánea guardada en caché marcándola como degradada.
package period

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
	"github.com/jhoicas/libro-tributario/internal/domain/tax"
	"github.com/jhoicas/libro-tributario/pkg/logger"
	"github.com/jhoicas/libro-tributario/pkg/retry"
)

// Fuente del resultado.
const (
	SourceLive  = "calculado"
	SourceCache = "cache"
)

// SnapshotCache guarda la última cifra calculada de cada período. Get devuelve (nil, nil)
// si no hay instantánea.
type SnapshotCache interface {
	Get(ctx context.Context, companyID, period string) (*entity.TaxPeriod, error)
	Set(ctx context.Context, tp *entity.TaxPeriod) error
}

// PDFGenerator resumen imprimible del F29.
type PDFGenerator interface {
	GenerateF29(company *entity.Company, tp *entity.TaxPeriod) ([]byte, error)
}

// Result F29 más su procedencia. Degraded es true cuando las cifras vienen de la caché.
type Result struct {
	Period   *entity.TaxPeriod
	Degraded bool
	Source   string
	Attempts int
}

// Service agregador del período.
type Service struct {
	store   repository.Store
	cache   SnapshotCache
	audit   *audit.Service
	pdf     PDFGenerator
	vatRate decimal.Decimal
	policy  retry.Policy
	log     *logger.Logger
	now     func() time.Time

	group singleflight.Group
}

// NewService construye el agregador. cache y pdf pueden ser nil.
func NewService(store repository.Store, cache SnapshotCache, auditSvc *audit.Service, pdf PDFGenerator, vatRate decimal.Decimal, policy retry.Policy, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if policy == (retry.Policy{}) {
		policy = retry.Default()
	}
	return &Service{
		store:   store,
		cache:   cache,
		audit:   auditSvc,
		pdf:     pdf,
		vatRate: vatRate,
		policy:  policy,
		log:     log.Component("period"),
		now:     time.Now,
	}
}

// F29 recalcula el período YYYY-MM. Las llamadas concurrentes para la misma empresa y
// período comparten un único cálculo.
func (s *Service) F29(ctx context.Context, companyID, actor, period string) (*Result, error) {
	if _, _, err := tax.PeriodBounds(period); err != nil {
		return nil, err
	}
	key := companyID + ":" + period
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.compute(context.WithoutCancel(ctx), companyID, actor, period)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		r := *res.Val.(*Result)
		return &r, nil
	}
}

func (s *Service) compute(ctx context.Context, companyID, actor, period string) (*Result, error) {
	from, to, _ := tax.PeriodBounds(period)
	repos := s.store.Repos()

	type inputs struct {
		docs     []*entity.Document
		expenses []*entity.Expense
	}
	in, attempts, err := retry.Value(ctx, s.policy, domain.IsTransient, func(ctx context.Context) (inputs, error) {
		docs, err := repos.Documents.ListIssuedBetween(ctx, companyID, from, to)
		if err != nil {
			return inputs{}, err
		}
		exps, err := repos.Expenses.ListBetween(ctx, companyID, from, to)
		if err != nil {
			return inputs{}, err
		}
		return inputs{docs: docs, expenses: exps}, nil
	})
	if err != nil {
		return s.degrade(ctx, companyID, actor, period, attempts, err)
	}

	tp, err := tax.ComputeF29(companyID, period, in.docs, in.expenses, s.vatRate)
	if err != nil {
		return nil, err
	}
	tp.ComputedAt = s.now().UTC()
	if s.cache != nil {
		if err := s.cache.Set(ctx, tp); err != nil {
			s.log.Warn().Err(err).Str("company_id", companyID).Str("period", period).Msg("no se pudo guardar la instantánea del F29")
		}
	}
	s.log.Debug().Str("company_id", companyID).Str("period", period).
		Str("iva_resultante", tp.IvaResultante.String()).Int("documentos", tp.DocumentCount).Msg("F29 calculado")
	return &Result{Period: tp, Source: SourceLive, Attempts: attempts}, nil
}

// degrade sirve la instantánea en caché si existe; en cualquier caso deja constancia.
func (s *Service) degrade(ctx context.Context, companyID, actor, period string, attempts int, cause error) (*Result, error) {
	perr := asPersistence(cause)
	if s.cache != nil {
		tp, cerr := s.cache.Get(ctx, companyID, period)
		if cerr != nil {
			s.log.Error().Err(cerr).Str("company_id", companyID).Str("period", period).Msg("caché del F29 no disponible")
		}
		if tp != nil {
			perr.Degraded = true
			s.recordDegraded(ctx, companyID, actor, period, tp, perr)
			s.log.Warn().Err(cause).Str("company_id", companyID).Str("period", period).
				Time("computed_at", tp.ComputedAt).Msg("F29 servido desde caché")
			return &Result{Period: tp, Degraded: true, Source: SourceCache, Attempts: attempts}, nil
		}
	}
	s.audit.Failure(ctx, companyID, entity.CategoryPeriod, actor, "f29", period, perr)
	return nil, perr
}

func (s *Service) recordDegraded(ctx context.Context, companyID, actor, period string, tp *entity.TaxPeriod, cause *domain.PersistenceError) {
	err := s.audit.Record(ctx, audit.Event{
		CompanyID: companyID,
		Level:     entity.AuditWarn,
		Category:  entity.CategoryPeriod,
		Actor:     actor,
		Action:    "f29_degradado",
		EntityID:  period,
		ErrorKind: domain.KindPersistence,
		Message:   fmt.Sprintf("F29 %s servido desde caché calculada el %s: %v", period, tp.ComputedAt.Format(time.RFC3339), cause.Err),
	})
	if err != nil {
		s.log.Error().Err(err).Str("company_id", companyID).Str("period", period).Msg("no se pudo auditar el modo degradado")
	}
}

func asPersistence(err error) *domain.PersistenceError {
	var pe *domain.PersistenceError
	if errors.As(err, &pe) {
		cp := *pe
		return &cp
	}
	return domain.NewPersistenceError("f29: leer período", err, false)
}

// PDF resumen del F29 en PDF; usa el mismo cálculo (y la misma degradación) que F29.
func (s *Service) PDF(ctx context.Context, companyID, actor, period string) ([]byte, string, *Result, error) {
	if s.pdf == nil {
		return nil, "", nil, fmt.Errorf("pdf del F29 no configurado: %w", domain.ErrConflict)
	}
	res, err := s.F29(ctx, companyID, actor, period)
	if err != nil {
		return nil, "", nil, err
	}
	company, err := s.store.Repos().Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, "", nil, err
	}
	if company == nil {
		return nil, "", nil, fmt.Errorf("empresa %s: %w", companyID, domain.ErrNotFound)
	}
	b, err := s.pdf.GenerateF29(company, res.Period)
	if err != nil {
		return nil, "", nil, fmt.Errorf("pdf F29: %w", err)
	}
	return b, fmt.Sprintf("f29_%s.pdf", period), res, nil
}
