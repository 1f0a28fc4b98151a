package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/application/auth"
	"github.com/jhoicas/libro-tributario/internal/application/billing"
	"github.com/jhoicas/libro-tributario/internal/application/dto"
	"github.com/jhoicas/libro-tributario/internal/application/expenses"
	"github.com/jhoicas/libro-tributario/internal/application/folio"
	"github.com/jhoicas/libro-tributario/internal/application/ledger"
	"github.com/jhoicas/libro-tributario/internal/application/period"
	"github.com/jhoicas/libro-tributario/internal/application/usecase"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/dte"
	"github.com/jhoicas/libro-tributario/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/libro-tributario/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/libro-tributario/internal/interfaces/http"
	"github.com/jhoicas/libro-tributario/pkg/retry"
	pkgjwt "github.com/jhoicas/libro-tributario/pkg/jwt"
)

var (
	iva      = decimal.NewFromFloat(0.19)
	rapido   = retry.Policy{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, MaxElapsedTime: 20 * time.Millisecond}
	adminPwd = "clave-segura-1"
)

// newAPI arma la API completa sobre el store en memoria y el SII simulado.
func newAPI(t *testing.T) *fiber.App {
	t.Helper()
	st := memory.New()
	auditSvc := audit.NewService(st.Repos().Audit, nil)
	ledgerSvc := ledger.NewService(st, auditSvc, nil)
	folios := folio.NewAllocator(st, auditSvc, nil, 6)
	pdfGen := infrapdf.NewMarotoPDFGenerator()

	docs := billing.NewService(st, folios, ledgerSvc, auditSvc,
		dte.NewXMLBuilderService(), nil,
		dte.NewSimulator(dte.SimulatorConfig{RejectReceivers: []string{"11.111.111-1"}}, nil),
		billing.Config{VATRate: iva, PaymentTermDays: 30, ReuseFolioOnResubmit: true, PostOnAcceptance: true, Retry: rapido},
		nil,
	)
	authUC := auth.NewAuthUseCase(st.Repos().Users, st.Repos().Companies, auth.JWTConfig{
		Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer,
	})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		CompanyUC:          usecase.NewCompanyUseCase(st, ledgerSvc, authUC, auditSvc, true, nil),
		UserUC:             usecase.NewUserUseCase(st.Repos().Users),
		AuthUC:             authUC,
		Documents:          docs,
		DocumentPDF:        billing.NewPDFUseCase(st, pdfGen),
		Folios:             folios,
		Ledger:             ledgerSvc,
		Expenses:           expenses.NewService(st, ledgerSvc, auditSvc, iva, nil),
		Periods:            period.NewService(st, nil, auditSvc, pdfGen, iva, rapido, nil),
		Audit:              auditSvc,
		AuditRetentionDays: 365,
		JWTSecret:          testJWTSecret,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

// altaEmpresa registra la empresa con su administrador y devuelve el token de login.
func altaEmpresa(t *testing.T, app *fiber.App) (companyID, token string) {
	t.Helper()
	resp, body := call(t, app, http.MethodPost, "/api/companies", "", dto.CreateCompanyRequest{
		RUT:           "76.123.456-0",
		Name:          "Comercial Andes SpA",
		AdminEmail:    "admin@andes.cl",
		AdminPassword: adminPwd,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var company dto.CompanyResponse
	require.NoError(t, json.Unmarshal(body, &company))
	require.NotNil(t, company.Admin)
	assert.Positive(t, company.SeededAccounts)

	resp, body = call(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "admin@andes.cl", Password: adminPwd})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotEmpty(t, login.Token)
	return company.ID, login.Token
}

func TestAPI_FacturaAceptadaYF29(t *testing.T) {
	app := newAPI(t)
	_, token := altaEmpresa(t, app)
	today := time.Now().Format(dto.DateLayout)

	resp, body := call(t, app, http.MethodPost, "/api/cafs", token, dto.RegisterCAFRequest{
		DocType: 33, RangeFrom: 1, RangeTo: 50, AuthorizedAt: time.Now().AddDate(0, 0, -1).Format(dto.DateLayout),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = call(t, app, http.MethodPost, "/api/documents", token, dto.CreateDocumentRequest{
		DocType:     33,
		ReceiverRUT: "12.345.678-5",
		IssueDate:   today,
		Lines: []dto.DocumentLineRequest{{
			Description: "Servicio de asesoría",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(100000),
		}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var doc dto.DocumentResponse
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "borrador", doc.Submission)
	assert.True(t, decimal.NewFromInt(19000).Equal(doc.VAT))
	assert.True(t, decimal.NewFromInt(119000).Equal(doc.Total))

	resp, body = call(t, app, http.MethodPost, "/api/documents/"+doc.ID+"/submit", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, int64(1), doc.Folio)
	assert.Equal(t, "procesando", doc.Submission)

	resp, body = call(t, app, http.MethodPost, "/api/documents/"+doc.ID+"/refresh", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "aceptada", doc.Submission)

	resp, body = call(t, app, http.MethodGet, "/api/f29/"+time.Now().Format("2006-01"), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var f29 dto.F29Response
	require.NoError(t, json.Unmarshal(body, &f29))
	assert.True(t, decimal.NewFromInt(100000).Equal(f29.VentasAfectas))
	assert.True(t, decimal.NewFromInt(19000).Equal(f29.IvaVentas))
	assert.False(t, f29.Degraded)

	resp, body = call(t, app, http.MethodGet, "/api/accounts/trial-balance", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var tb dto.TrialBalanceResponse
	require.NoError(t, json.Unmarshal(body, &tb))
	assert.True(t, tb.Balanced)
	assert.True(t, decimal.NewFromInt(119000).Equal(tb.TotalDebit))

	resp, body = call(t, app, http.MethodGet, "/api/documents/"+doc.ID+"/pdf", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestAPI_MapeoDeErrores(t *testing.T) {
	app := newAPI(t)
	companyID, token := altaEmpresa(t, app)
	today := time.Now().Format(dto.DateLayout)

	// Asiento descuadrado → 422 UNBALANCED
	resp, body := call(t, app, http.MethodPost, "/api/journal", token, dto.JournalEntryRequest{
		Date: today, Concept: "Ajuste",
		Lines: []dto.JournalLineRequest{
			{AccountCode: ledger.AccountCaja, Debit: decimal.NewFromInt(1000), Credit: decimal.Zero},
			{AccountCode: ledger.AccountVentas, Debit: decimal.Zero, Credit: decimal.NewFromInt(900)},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "UNBALANCED")

	// Sin CAF → 409 al enviar
	resp, body = call(t, app, http.MethodPost, "/api/documents", token, dto.CreateDocumentRequest{
		DocType: 33, ReceiverRUT: "12.345.678-5", IssueDate: today,
		Lines: []dto.DocumentLineRequest{{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1000)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var doc dto.DocumentResponse
	require.NoError(t, json.Unmarshal(body, &doc))
	resp, body = call(t, app, http.MethodPost, "/api/documents/"+doc.ID+"/submit", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	// RUT inválido → 400 con detalle
	resp, body = call(t, app, http.MethodPost, "/api/documents", token, dto.CreateDocumentRequest{
		DocType: 33, ReceiverRUT: "12.345.678-9", IssueDate: today,
		Lines: []dto.DocumentLineRequest{{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1000)}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	// Período mal formado → 400
	resp, _ = call(t, app, http.MethodGet, "/api/f29/2024-13", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Documento inexistente → 404
	resp, _ = call(t, app, http.MethodGet, "/api/documents/no-existe", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Operador no accede a la bitácora
	opToken, err := pkgjwt.Generate(testJWTSecret, testUserID, companyID, entity.RoleOperador, testIssuer, testExpMin)
	require.NoError(t, err)
	resp, _ = call(t, app, http.MethodGet, "/api/audit", opToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// El administrador sí, y ve los rechazos registrados
	resp, body = call(t, app, http.MethodGet, "/api/audit?level=WARN", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var page dto.AuditListResponse
	require.NoError(t, json.Unmarshal(body, &page))
	assert.NotEmpty(t, page.Items)

	// Sin token → 401
	resp, _ = call(t, app, http.MethodGet, "/api/documents", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_EmpresaAjenaProhibida(t *testing.T) {
	app := newAPI(t)
	_, token := altaEmpresa(t, app)
	resp, _ := call(t, app, http.MethodGet, "/api/companies/otra-empresa", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_UsuariosDeLaEmpresa(t *testing.T) {
	app := newAPI(t)
	_, token := altaEmpresa(t, app)

	resp, body := call(t, app, http.MethodPost, "/api/auth/register", token, dto.RegisterRequest{
		Email: "contador@andes.cl", Password: "clave-contador", Name: "Contadora", Role: entity.RoleContador,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = call(t, app, http.MethodGet, "/api/users", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var users []dto.UserResponse
	require.NoError(t, json.Unmarshal(body, &users))
	require.Len(t, users, 2)
	assert.Equal(t, "admin@andes.cl", users[0].Email)

	resp, body = call(t, app, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var me dto.UserResponse
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, entity.RoleAdmin, me.Role)
}

func TestAPI_PurgaSinDiasUsaRetencion(t *testing.T) {
	app := newAPI(t)
	_, token := altaEmpresa(t, app)
	resp, body := call(t, app, http.MethodPost, "/api/audit/purge", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out dto.PurgeAuditResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, int64(0), out.Deleted)

	resp, body = call(t, app, http.MethodGet, "/api/audit/export?category="+entity.CategoryAudit, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "purgar")
}
