package folio_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/application/folio"
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/memory"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

const empresa = "empresa-1"

var hoy = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*folio.Allocator, *audit.Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	auditSvc := audit.NewService(st.Repos().Audit, nil)
	return folio.NewAllocator(st, auditSvc, nil, 6), auditSvc, st
}

func registrar(t *testing.T, a *folio.Allocator, from, to int64) *entity.CAF {
	t.Helper()
	caf, err := a.RegisterCAF(context.Background(), empresa, "u1", folio.CAFInput{
		DocType: sii.DTEFacturaAfecta, RangeFrom: from, RangeTo: to,
		AuthorizedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return caf
}

func TestAllocate_RangoCompletoLuegoAgotado(t *testing.T) {
	ctx := context.Background()
	a, auditSvc, _ := setup(t)
	caf := registrar(t, a, 1, 3)

	for want := int64(1); want <= 3; want++ {
		got, err := a.Allocate(ctx, empresa, sii.DTEFacturaAfecta, hoy, "u1")
		require.NoError(t, err)
		assert.Equal(t, want, got.Folio)
		assert.Equal(t, caf.ID, got.CAFID)
	}

	_, err := a.Allocate(ctx, empresa, sii.DTEFacturaAfecta, hoy, "u1")
	var exhausted *domain.FolioExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, int64(3), exhausted.RangeTo)

	// sigue agotado: el CAF no pasa a "sin CAF vigente"
	_, err = a.Allocate(ctx, empresa, sii.DTEFacturaAfecta, hoy, "u1")
	assert.ErrorAs(t, err, &exhausted)

	page, err := auditSvc.Query(ctx, entity.AuditFilter{CompanyID: empresa, Category: entity.CategoryFolio})
	require.NoError(t, err)
	levels := map[entity.AuditLevel]int{}
	for _, e := range page.Items {
		levels[e.Level]++
	}
	assert.Equal(t, 3, levels[entity.AuditAudit], "un registro por folio asignado")
	assert.Equal(t, 2, levels[entity.AuditWarn], "un registro por rechazo")
}

func TestAllocate_ConcurrenteSinDuplicados(t *testing.T) {
	ctx := context.Background()
	a, _, _ := setup(t)
	registrar(t, a, 1, 50)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		folios    = map[int64]int{}
		exhausted int
	)
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := a.Allocate(ctx, empresa, sii.DTEFacturaAfecta, hoy, "u1")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, domain.ErrFolioExhausted) {
					exhausted++
				}
				return
			}
			folios[got.Folio]++
		}()
	}
	wg.Wait()

	assert.Len(t, folios, 50)
	for f, n := range folios {
		assert.Equal(t, 1, n, "folio %d entregado más de una vez", f)
		assert.True(t, f >= 1 && f <= 50)
	}
	assert.Equal(t, 10, exhausted)
}

func TestAllocate_SinCAFVigente(t *testing.T) {
	ctx := context.Background()
	a, _, _ := setup(t)

	_, err := a.Allocate(ctx, empresa, sii.DTEFacturaAfecta, hoy, "u1")
	assert.ErrorIs(t, err, domain.ErrFolioExpired)

	// vence 2024-07-01 (autorización + 6 meses); el día del vencimiento todavía es válido
	registrar(t, a, 1, 10)
	_, err = a.Allocate(ctx, empresa, sii.DTEFacturaAfecta, time.Date(2024, 7, 1, 23, 0, 0, 0, time.UTC), "u1")
	require.NoError(t, err)
	_, err = a.Allocate(ctx, empresa, sii.DTEFacturaAfecta, time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC), "u1")
	var expired *domain.FolioExpiredError
	assert.ErrorAs(t, err, &expired)
}

func TestAllocate_PasaAlSiguienteCAF(t *testing.T) {
	ctx := context.Background()
	a, _, _ := setup(t)
	registrar(t, a, 1, 1)
	second := registrar(t, a, 2, 5)

	first, err := a.Allocate(ctx, empresa, sii.DTEFacturaAfecta, hoy, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Folio)

	next, err := a.Allocate(ctx, empresa, sii.DTEFacturaAfecta, hoy, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Folio)
	assert.Equal(t, second.ID, next.CAFID)
}

func TestRegisterCAF_RechazaSolape(t *testing.T) {
	ctx := context.Background()
	a, _, _ := setup(t)
	registrar(t, a, 1, 100)

	_, err := a.RegisterCAF(ctx, empresa, "u1", folio.CAFInput{
		DocType: sii.DTEFacturaAfecta, RangeFrom: 90, RangeTo: 150, AuthorizedAt: hoy,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// mismo rango en otro tipo de documento no se cruza
	_, err = a.RegisterCAF(ctx, empresa, "u1", folio.CAFInput{
		DocType: sii.DTEBoletaAfecta, RangeFrom: 90, RangeTo: 150, AuthorizedAt: hoy,
	})
	assert.NoError(t, err)

	_, err = a.RegisterCAF(ctx, empresa, "u1", folio.CAFInput{DocType: 99, RangeFrom: 5, RangeTo: 1})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 3)
}

const cafLatin1 = "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
	"<AUTORIZACION><CAF version=\"1.0\"><DA>" +
	"<RE>76123456-0</RE><RS>Compa\xf1ia Demo SpA</RS><TD>33</TD>" +
	"<RNG><D>1</D><H>100</H></RNG><FA>2024-01-15</FA><IDK>100</IDK>" +
	"</DA></CAF></AUTORIZACION>"

func TestImportCAF_ValidaEmisor(t *testing.T) {
	ctx := context.Background()
	a, _, st := setup(t)
	require.NoError(t, st.Repos().Companies.Create(ctx, &entity.Company{ID: empresa, RUT: "76.123.456-0", Name: "Demo"}))

	caf, err := a.ImportCAF(ctx, empresa, "u1", strings.NewReader(cafLatin1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), caf.NextFree)
	assert.Equal(t, time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), caf.ExpiresAt)

	require.NoError(t, st.Repos().Companies.Create(ctx, &entity.Company{ID: "otra", RUT: "12.345.678-5", Name: "Otra"}))
	_, err = a.ImportCAF(ctx, "otra", "u1", strings.NewReader(cafLatin1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestImportCAF_FallaDeLecturaQuedaAuditada(t *testing.T) {
	ctx := context.Background()
	a, auditSvc, st := setup(t)
	st.SetFault(func(op string) error {
		if op == "companies.GetByID" {
			return errors.New("conexión perdida")
		}
		return nil
	})

	_, err := a.ImportCAF(ctx, empresa, "u1", strings.NewReader(cafLatin1))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	st.SetFault(nil)

	// Empresa inexistente: también una sola fila.
	_, err = a.ImportCAF(ctx, "sin-empresa", "u1", strings.NewReader(cafLatin1))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for company, level := range map[string]entity.AuditLevel{empresa: entity.AuditError, "sin-empresa": entity.AuditWarn} {
		page, err := auditSvc.Query(ctx, entity.AuditFilter{CompanyID: company, Category: entity.CategoryCAF})
		require.NoError(t, err)
		require.Len(t, page.Items, 1, company)
		assert.Equal(t, "importar", page.Items[0].Action)
		assert.Equal(t, level, page.Items[0].Level, company)
	}
}
