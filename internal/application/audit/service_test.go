package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/memory"
)

func TestFailure_NivelSegunTipoDeError(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := audit.NewService(st.Repos().Audit, nil)

	svc.Failure(ctx, "c1", entity.CategoryFolio, "u1", "asignar", "", &domain.FolioExhaustedError{DocType: 33})
	svc.Failure(ctx, "c1", entity.CategoryPeriod, "u1", "f29", "", domain.NewPersistenceError("select", errors.New("timeout"), true))

	page, err := svc.Query(ctx, entity.AuditFilter{CompanyID: "c1"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	byAction := map[string]*entity.AuditLogEntry{}
	for _, e := range page.Items {
		byAction[e.Action] = e
	}
	assert.Equal(t, entity.AuditWarn, byAction["asignar"].Level)
	assert.Equal(t, domain.KindFolioExhausted, byAction["asignar"].ErrorKind)
	assert.Equal(t, entity.AuditError, byAction["f29"].Level)
	assert.Equal(t, domain.KindPersistence, byAction["f29"].ErrorKind)
}

func TestRecord_GuardaSnapshotsJSON(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := audit.NewService(st.Repos().Audit, nil)

	require.NoError(t, svc.Record(ctx, audit.Event{
		CompanyID: "c1", Category: entity.CategoryDocument, Actor: "u1", Action: "crear",
		EntityID: "d1", After: map[string]any{"folio": 15},
	}))
	page, err := svc.Query(ctx, entity.AuditFilter{CompanyID: "c1", Text: "crear"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, entity.AuditAudit, page.Items[0].Level, "nivel por defecto")
	assert.JSONEq(t, `{"folio":15}`, string(page.Items[0].After))
	assert.Nil(t, page.Items[0].Before)
}

func TestQuery_LimitesDePagina(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := audit.NewService(st.Repos().Audit, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, audit.Event{CompanyID: "c1", Action: "x"}))
	}
	page, err := svc.Query(ctx, entity.AuditFilter{CompanyID: "c1", Limit: 10000, Offset: -4})
	require.NoError(t, err)
	assert.Equal(t, 500, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, 3, page.Total)
	assert.False(t, page.HasNext)

	page, err = svc.Query(ctx, entity.AuditFilter{CompanyID: "c1", Limit: 2})
	require.NoError(t, err)
	assert.True(t, page.HasNext)
}

func TestPurgeOlderThan_EliminaYRegistraLaPurga(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	clock := now.AddDate(0, 0, -400)
	svc := audit.NewService(st.Repos().Audit, nil).WithClock(func() time.Time { return clock })

	require.NoError(t, svc.Record(ctx, audit.Event{CompanyID: "c1", Action: "antiguo"}))
	clock = now.AddDate(0, 0, -10)
	require.NoError(t, svc.Record(ctx, audit.Event{CompanyID: "c1", Action: "reciente"}))
	clock = now

	n, err := svc.PurgeOlderThan(ctx, "c1", "admin", 365)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	page, err := svc.Query(ctx, entity.AuditFilter{CompanyID: "c1"})
	require.NoError(t, err)
	actions := []string{}
	for _, e := range page.Items {
		actions = append(actions, e.Action)
	}
	assert.ElementsMatch(t, []string{"reciente", "purgar"}, actions)

	_, err = svc.PurgeOlderThan(ctx, "c1", "admin", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExport_RecorreTodasLasPaginas(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := audit.NewService(st.Repos().Audit, nil)
	for i := 0; i < 520; i++ {
		require.NoError(t, svc.Record(ctx, audit.Event{CompanyID: "c1", Action: "x"}))
	}
	require.NoError(t, svc.Record(ctx, audit.Event{CompanyID: "otra", Action: "x"}))

	rows, err := svc.Export(ctx, entity.AuditFilter{CompanyID: "c1"})
	require.NoError(t, err)
	assert.Len(t, rows, 520)
	for _, r := range rows {
		assert.Equal(t, "c1", r.CompanyID)
	}
}
