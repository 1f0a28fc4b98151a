package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/application/auth"
	"github.com/jhoicas/libro-tributario/internal/application/dto"
	"github.com/jhoicas/libro-tributario/internal/application/ledger"
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
	"github.com/jhoicas/libro-tributario/pkg/logger"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

// CompanyUseCase alta y consulta de contribuyentes emisores.
type CompanyUseCase struct {
	store     repository.Store
	ledger    *ledger.Service
	auth      *auth.AuthUseCase
	audit     *audit.Service
	seedChart bool
	log       *logger.Logger
	now       func() time.Time
}

// NewCompanyUseCase construye el caso de uso. Con seedChart cada empresa nueva recibe el plan de cuentas por defecto.
func NewCompanyUseCase(store repository.Store, ledgerSvc *ledger.Service, authUC *auth.AuthUseCase, auditSvc *audit.Service, seedChart bool, log *logger.Logger) *CompanyUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &CompanyUseCase{
		store:     store,
		ledger:    ledgerSvc,
		auth:      authUC,
		audit:     auditSvc,
		seedChart: seedChart,
		log:       log.Component("company"),
		now:       time.Now,
	}
}

// Create registra la empresa con su RUT en formato canónico. ErrDuplicate si el RUT ya existe.
// Si viene AdminEmail crea además el primer usuario con rol admin.
func (uc *CompanyUseCase) Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	rut, err := sii.ValidateRUT(in.RUT)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.NewValidationError("razón social requerida")
	}
	if in.AdminEmail != "" && len(in.AdminPassword) < 8 {
		return nil, domain.NewValidationError("la clave del administrador debe tener al menos 8 caracteres")
	}
	now := uc.now().UTC()
	company := &entity.Company{
		ID:        uuid.New().String(),
		RUT:       rut.String(),
		Name:      strings.TrimSpace(in.Name),
		Giro:      in.Giro,
		Address:   in.Address,
		Comuna:    in.Comuna,
		Email:     in.Email,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = uc.store.Run(ctx, func(tx repository.Repos) error {
		existing, err := tx.Companies.GetByRUT(ctx, company.RUT)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("empresa con RUT %s: %w", company.RUT, domain.ErrDuplicate)
		}
		if err := tx.Companies.Create(ctx, company); err != nil {
			return err
		}
		return uc.audit.RecordIn(ctx, tx.Audit, audit.Event{
			CompanyID: company.ID,
			Category:  entity.CategoryCompany,
			Actor:     "sistema",
			Action:    "crear",
			EntityID:  company.ID,
			Message:   fmt.Sprintf("empresa %s %s registrada", company.RUT, company.Name),
			After:     company,
		})
	})
	if err != nil {
		return nil, err
	}
	out := entityToCompanyResponse(company)

	if uc.seedChart && uc.ledger != nil {
		n, err := uc.ledger.SeedChart(ctx, company.ID, "sistema")
		if err != nil {
			return nil, fmt.Errorf("plan de cuentas: %w", err)
		}
		out.SeededAccounts = n
	}
	if in.AdminEmail != "" && uc.auth != nil {
		admin, err := uc.auth.RegisterUser(ctx, dto.RegisterRequest{
			Email:     in.AdminEmail,
			Password:  in.AdminPassword,
			CompanyID: company.ID,
			Name:      in.AdminEmail,
			Role:      entity.RoleAdmin,
		})
		if err != nil {
			return nil, fmt.Errorf("usuario administrador: %w", err)
		}
		out.Admin = admin
	}
	uc.log.Info().Str("company_id", company.ID).Str("rut", company.RUT).Int("cuentas", out.SeededAccounts).Msg("empresa registrada")
	return out, nil
}

// GetByID obtiene una empresa por ID; (nil, nil) si no existe.
func (uc *CompanyUseCase) GetByID(ctx context.Context, id string) (*dto.CompanyResponse, error) {
	company, err := uc.store.Repos().Companies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, nil
	}
	return entityToCompanyResponse(company), nil
}

// List lista empresas con paginación.
func (uc *CompanyUseCase) List(ctx context.Context, limit, offset int) (*dto.CompanyListResponse, error) {
	list, err := uc.store.Repos().Companies.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CompanyResponse, 0, len(list))
	for _, c := range list {
		items = append(items, *entityToCompanyResponse(c))
	}
	return &dto.CompanyListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func entityToCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	if c == nil {
		return nil
	}
	return &dto.CompanyResponse{
		ID:        c.ID,
		RUT:       c.RUT,
		Name:      c.Name,
		Giro:      c.Giro,
		Address:   c.Address,
		Comuna:    c.Comuna,
		Email:     c.Email,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
