package billing_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/application/billing"
	"github.com/jhoicas/libro-tributario/internal/application/folio"
	"github.com/jhoicas/libro-tributario/internal/application/ledger"
	"github.com/jhoicas/libro-tributario/internal/domain"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
	"github.com/jhoicas/libro-tributario/internal/domain/tax"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/memory"
	"github.com/jhoicas/libro-tributario/pkg/retry"
	"github.com/jhoicas/libro-tributario/pkg/sii"
)

const (
	empresa    = "empresa-1"
	rutEmpresa = "76.123.456-0"
	rutCliente = "12.345.678-5"
)

var emision = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

// fakeSII simula al SII: falla las primeras failSubmit llamadas y rechaza los envíos
// mientras reject no esté vacío.
type fakeSII struct {
	mu         sync.Mutex
	failSubmit int
	down       bool
	reject     string
	pending    bool
	seq        int
	submitted  []sii.Envelope
}

func (f *fakeSII) Submit(_ context.Context, env sii.Envelope) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return "", sii.ErrUnavailable
	}
	if f.failSubmit > 0 {
		f.failSubmit--
		return "", sii.ErrUnavailable
	}
	f.seq++
	f.submitted = append(f.submitted, env)
	return fmt.Sprintf("TRK%04d", f.seq), nil
}

func (f *fakeSII) Status(_ context.Context, trackID string) (sii.StatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		return sii.StatusResult{TrackID: trackID, Code: sii.SIIStatusRecibido}, nil
	}
	if f.reject != "" {
		return sii.StatusResult{TrackID: trackID, Code: sii.SIIStatusRechazado, Final: true, Reason: f.reject}, nil
	}
	return sii.StatusResult{TrackID: trackID, Code: sii.SIIStatusAceptado, Final: true, Accepted: true}, nil
}

type fixture struct {
	svc    *billing.Service
	ledger *ledger.Service
	folios *folio.Allocator
	audit  *audit.Service
	store  *memory.Store
	sii    *fakeSII
}

func setup(t *testing.T, reuseFolio bool) fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, st.Repos().Companies.Create(ctx, &entity.Company{ID: empresa, RUT: rutEmpresa, Name: "Demo SpA"}))

	auditSvc := audit.NewService(st.Repos().Audit, nil)
	ledgerSvc := ledger.NewService(st, auditSvc, nil)
	_, err := ledgerSvc.SeedChart(ctx, empresa, "u1")
	require.NoError(t, err)

	folios := folio.NewAllocator(st, auditSvc, nil, 6)
	for _, dt := range []int{sii.DTEFacturaAfecta, sii.DTEBoletaAfecta, sii.DTENotaCredito} {
		_, err := folios.RegisterCAF(ctx, empresa, "u1", folio.CAFInput{
			DocType: dt, RangeFrom: 1, RangeTo: 10, AuthorizedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	fake := &fakeSII{}
	svc := billing.NewService(st, folios, ledgerSvc, auditSvc, nil, nil, fake, billing.Config{
		VATRate:              decimal.RequireFromString("0.19"),
		PaymentTermDays:      30,
		ReuseFolioOnResubmit: reuseFolio,
		PostOnAcceptance:     true,
		Retry:                retry.Policy{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, MaxElapsedTime: 30 * time.Millisecond},
	}, nil)
	return fixture{svc: svc, ledger: ledgerSvc, folios: folios, audit: auditSvc, store: st, sii: fake}
}

func factura(docType int) billing.CreateInput {
	return billing.CreateInput{
		DocType:      docType,
		ReceiverRUT:  rutCliente,
		ReceiverName: "Cliente Ltda",
		IssueDate:    emision,
		Lines: []tax.LineInput{
			{Description: "Servicio", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(1000), DiscountPct: decimal.Zero},
		},
	}
}

func (f fixture) balance(t *testing.T, code string) string {
	t.Helper()
	b, err := f.ledger.BalanceOf(context.Background(), empresa, code, emision)
	require.NoError(t, err)
	return b.String()
}

func (f fixture) emitir(t *testing.T, in billing.CreateInput) *entity.Document {
	t.Helper()
	ctx := context.Background()
	doc, err := f.svc.Create(ctx, empresa, "u1", in)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	doc, err = f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	return doc
}

func TestFlujoCompleto_FacturaAceptadaContabiliza(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)

	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	assert.Equal(t, "10000", doc.Subtotal.String())
	assert.Equal(t, "1900", doc.VAT.String())
	assert.Equal(t, "11900", doc.Total.String())
	assert.Equal(t, entity.SubmissionBorrador, doc.Submission)
	assert.Equal(t, entity.SettlementPendiente, doc.Settlement)
	assert.Zero(t, doc.Folio, "el folio se asigna al enviar")
	assert.Equal(t, rutEmpresa, doc.IssuerRUT)
	assert.Equal(t, emision.AddDate(0, 0, 30), doc.DueDate)

	doc, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc.Folio)
	assert.Equal(t, entity.SubmissionProcesando, doc.Submission)
	assert.Equal(t, "TRK0001", doc.TrackID)

	doc, err = f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionAceptada, doc.Submission)
	require.NotEmpty(t, doc.JournalEntryID)
	require.NotNil(t, doc.AcceptedAt)

	assert.Equal(t, "11900", f.balance(t, ledger.AccountClientes))
	assert.Equal(t, "10000", f.balance(t, ledger.AccountVentas))
	assert.Equal(t, "1900", f.balance(t, ledger.AccountIVADebito))

	// consultar de nuevo no vuelve a contabilizar
	again, err := f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.JournalEntryID, again.JournalEntryID)
	assert.Equal(t, "11900", f.balance(t, ledger.AccountClientes))
}

func TestBoleta_SeContabilizaEnCaja(t *testing.T) {
	f := setup(t, true)
	in := factura(sii.DTEBoletaAfecta)
	doc := f.emitir(t, in)
	assert.Equal(t, doc.IssueDate, doc.DueDate, "la boleta vence el mismo día")
	assert.Equal(t, "11900", f.balance(t, ledger.AccountCaja))
	assert.Equal(t, "0", f.balance(t, ledger.AccountClientes))
}

func TestCreate_RUTInvalidoNoConsumeFolio(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	in := factura(sii.DTEFacturaAfecta)
	in.ReceiverRUT = "12.345.678-9"

	_, err := f.svc.Create(ctx, empresa, "u1", in)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	doc := f.emitir(t, factura(sii.DTEFacturaAfecta))
	assert.EqualValues(t, 1, doc.Folio)
}

func TestRechazo_ReenvioConservaFolio(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	f.sii.reject = "firma inválida"

	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)

	doc, err = f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
	var rej *domain.AuthorityRejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "firma inválida", rej.Reason)
	assert.Equal(t, entity.SubmissionRechazada, doc.Submission)
	assert.Empty(t, doc.JournalEntryID)

	page, err := f.audit.Query(ctx, entity.AuditFilter{CompanyID: empresa, Levels: []entity.AuditLevel{entity.AuditError}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.KindAuthorityRejection, page.Items[0].ErrorKind)

	f.sii.reject = ""
	doc, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc.Folio, "el reenvío usa el mismo folio")
	assert.Empty(t, doc.RejectionReason)

	doc, err = f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionAceptada, doc.Submission)
}

func TestRechazo_ReenvioConFolioNuevo(t *testing.T) {
	ctx := context.Background()
	f := setup(t, false)
	f.sii.reject = "monto inconsistente"

	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	_, err = f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
	require.Error(t, err)

	f.sii.reject = ""
	doc, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, doc.Folio)

	page, err := f.audit.Query(ctx, entity.AuditFilter{CompanyID: empresa, Category: entity.CategoryFolio, Text: "queda sin uso"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, entity.AuditWarn, page.Items[0].Level)
}

func TestSubmit_ReintentaFallasTransitorias(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	f.sii.failSubmit = 2

	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	doc, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Attempts)
	assert.Equal(t, entity.SubmissionProcesando, doc.Submission)
}

func TestSubmit_SIICaidoQuedaEnviadaYSeRetransmite(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	f.sii.down = true

	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.ErrorIs(t, err, sii.ErrUnavailable)

	stored, err := f.svc.Get(ctx, empresa, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionEnviada, stored.Submission)
	assert.EqualValues(t, 1, stored.Folio)

	page, err := f.audit.Query(ctx, entity.AuditFilter{CompanyID: empresa, Levels: []entity.AuditLevel{entity.AuditError}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	f.sii.down = false
	doc, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc.Folio, "la retransmisión no consume otro folio")
	assert.Equal(t, entity.SubmissionProcesando, doc.Submission)
}

func TestRefreshStatus_SIIProcesandoNoCambiaNada(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	f.sii.pending = true

	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	doc, err = f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionProcesando, doc.Submission)
}

func TestSubmit_SinCAFVigente(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	in := factura(sii.DTEFacturaExenta)

	doc, err := f.svc.Create(ctx, empresa, "u1", in)
	require.NoError(t, err)
	assert.Equal(t, "0", doc.VAT.String())

	_, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	assert.ErrorIs(t, err, domain.ErrFolioExpired)

	stored, err := f.svc.Get(ctx, empresa, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionBorrador, stored.Submission)
	assert.Zero(t, stored.Folio)
}

func TestCancel_ReversaAsientoYNoTocaCAF(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	doc := f.emitir(t, factura(sii.DTEFacturaAfecta))

	doc, err := f.svc.Cancel(ctx, empresa, "u1", doc.ID, "error en receptor")
	require.NoError(t, err)
	assert.Equal(t, entity.SettlementCancelada, doc.Settlement)
	assert.Equal(t, entity.SubmissionAceptada, doc.Submission, "los dos estados son independientes")

	assert.Equal(t, "0", f.balance(t, ledger.AccountClientes))
	assert.Equal(t, "0", f.balance(t, ledger.AccountVentas))

	next, err := f.folios.Allocate(ctx, empresa, sii.DTEFacturaAfecta, emision, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.Folio, "el folio anulado no se reutiliza")

	_, err = f.svc.MarkPaid(ctx, empresa, "u1", doc.ID, emision)
	assert.ErrorIs(t, err, domain.ErrTransition)
}

func TestMarkPaid_AsientoDeCobro(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	doc := f.emitir(t, factura(sii.DTEFacturaAfecta))

	doc, err := f.svc.MarkPaid(ctx, empresa, "u1", doc.ID, emision)
	require.NoError(t, err)
	assert.Equal(t, entity.SettlementPagada, doc.Settlement)
	assert.NotEmpty(t, doc.PaymentEntryID)
	assert.Equal(t, "11900", f.balance(t, ledger.AccountCaja))
	assert.Equal(t, "0", f.balance(t, ledger.AccountClientes))

	_, err = f.svc.Cancel(ctx, empresa, "u1", doc.ID, "")
	assert.ErrorIs(t, err, domain.ErrTransition, "un documento pagado no se anula")
}

func TestMarkPaid_RequiereAceptacion(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(ctx, empresa, "u1", doc.ID, emision)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestNotaDeCredito_RestaDeClientes(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	orig := f.emitir(t, factura(sii.DTEFacturaAfecta))

	nc := factura(sii.DTENotaCredito)
	nc.Lines[0].Quantity = decimal.NewFromInt(2)
	_, err := f.svc.Create(ctx, empresa, "u1", nc)
	require.ErrorIs(t, err, domain.ErrInvalidInput, "la nota debe referenciar un documento")

	nc.ReferenceID = orig.ID
	f.emitir(t, nc)
	// 11900 - 2380
	assert.Equal(t, "9520", f.balance(t, ledger.AccountClientes))
	assert.Equal(t, "8000", f.balance(t, ledger.AccountVentas))
}

func TestVencida_SeDerivaAlLeer(t *testing.T) {
	f := setup(t, true)
	doc := f.emitir(t, factura(sii.DTEFacturaAfecta))
	assert.Equal(t, entity.SettlementPendiente, doc.EffectiveSettlement(emision.AddDate(0, 0, 30)))
	assert.Equal(t, entity.SettlementVencida, doc.EffectiveSettlement(emision.AddDate(0, 0, 31)))
	assert.Equal(t, entity.SettlementPendiente, doc.Settlement, "vencida no se persiste")
}

func TestGet_OtraEmpresaProhibido(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, "otra", doc.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCancel_EnTransitoSeRechaza(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, empresa, "u1", doc.ID, "cliente desiste")
	var tr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &tr)
	assert.Equal(t, string(entity.SubmissionProcesando), tr.From)

	// El SII acepta después: la venta se contabiliza y recién entonces se anula.
	doc, err = f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SettlementPendiente, doc.Settlement)
	assert.Equal(t, "11900", f.balance(t, ledger.AccountClientes))

	_, err = f.svc.Cancel(ctx, empresa, "u1", doc.ID, "cliente desiste")
	require.NoError(t, err)
	assert.Equal(t, "0", f.balance(t, ledger.AccountClientes))
	assert.Equal(t, "0", f.balance(t, ledger.AccountVentas))
}

func TestCancel_BorradorNoSePuedeEnviar(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, empresa, "u1", doc.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	next, err := f.folios.Allocate(ctx, empresa, sii.DTEFacturaAfecta, emision, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, next.Folio, "el borrador anulado no consumió folio")
}

func TestAceptacion_DocumentoAnuladoNoContabiliza(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)

	// Datos anteriores a la regla de anulación: procesando y anulado a la vez.
	stored, err := f.store.Repos().Documents.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	stored.Settlement = entity.SettlementCancelada
	require.NoError(t, f.store.Repos().Documents.Update(ctx, stored))

	doc, err = f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionAceptada, doc.Submission)
	assert.Empty(t, doc.JournalEntryID)
	assert.Equal(t, "0", f.balance(t, ledger.AccountClientes))
	assert.Equal(t, "0", f.balance(t, ledger.AccountVentas))
}

func TestRefreshStatus_ConcurrenteContabilizaUnaVez(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := f.ledger.List(ctx, repository.JournalFilter{CompanyID: empresa})
	require.NoError(t, err)
	ventas := 0
	for _, e := range entries {
		if e.Source == entity.SourceDocument && e.SourceID == doc.ID {
			ventas++
		}
	}
	assert.Equal(t, 1, ventas)
	assert.Equal(t, "11900", f.balance(t, ledger.AccountClientes))
}

// opLog registra los nombres de operación que ve el store en memoria.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) record(op string) error {
	l.mu.Lock()
	l.ops = append(l.ops, op)
	l.mu.Unlock()
	return nil
}

func (l *opLog) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.ops
	l.ops = nil
	return out
}

func TestEscrituras_LeenDocumentoConBloqueo(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	rec := &opLog{}
	f.store.SetFault(rec.record)

	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	rec.take()

	_, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.Contains(t, rec.take(), "documents.GetForUpdate", "Submit")

	_, err = f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	assert.Contains(t, rec.take(), "documents.GetForUpdate", "RefreshStatus")

	_, err = f.svc.Cancel(ctx, empresa, "u1", doc.ID, "")
	require.NoError(t, err)
	ops := rec.take()
	assert.Contains(t, ops, "documents.GetForUpdate", "Cancel")
	assert.Contains(t, ops, "journal.GetForUpdate", "Cancel reversa el asiento bloqueado")

	other := f.emitir(t, factura(sii.DTEFacturaAfecta))
	rec.take()
	_, err = f.svc.MarkPaid(ctx, empresa, "u1", other.ID, emision)
	require.NoError(t, err)
	assert.Contains(t, rec.take(), "documents.GetForUpdate", "MarkPaid")
}

func TestRefreshStatus_RechazadaSeAuditaAlConsultar(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	f.sii.reject = "CAF no corresponde"
	doc, err := f.svc.Create(ctx, empresa, "u1", factura(sii.DTEFacturaAfecta))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, empresa, "u1", doc.ID)
	require.NoError(t, err)
	_, err = f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
	require.Error(t, err)

	_, err = f.svc.RefreshStatus(ctx, empresa, "u1", doc.ID)
	var rej *domain.AuthorityRejectionError
	require.ErrorAs(t, err, &rej)

	page, err := f.audit.Query(ctx, entity.AuditFilter{CompanyID: empresa, Levels: []entity.AuditLevel{entity.AuditError}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	actions := []string{page.Items[0].Action, page.Items[1].Action}
	assert.ElementsMatch(t, []string{"rechazar", "consultar"}, actions)
}

func TestCreate_FechaPorDefectoEnUTC(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	santiago := time.FixedZone("CLT", -4*3600)
	// 31/03 22:30 en Chile ya es 01/04 en UTC.
	f.svc.WithClock(func() time.Time { return time.Date(2024, 3, 31, 22, 30, 0, 0, santiago) })

	in := factura(sii.DTEFacturaAfecta)
	in.IssueDate = time.Time{}
	doc, err := f.svc.Create(ctx, empresa, "u1", in)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), doc.IssueDate)
	assert.Equal(t, "2024-04", doc.Period())

	from, to, err := tax.PeriodBounds(doc.Period())
	require.NoError(t, err)
	assert.False(t, doc.IssueDate.Before(from))
	assert.True(t, doc.IssueDate.Before(to))
}
