package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/libro-tributario/internal/application/dto"
	"github.com/jhoicas/libro-tributario/internal/application/ledger"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
)

// LedgerHandler plan de cuentas, saldos y libro diario.
type LedgerHandler struct {
	svc *ledger.Service
	now func() time.Time
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(svc *ledger.Service) *LedgerHandler {
	return &LedgerHandler{svc: svc, now: time.Now}
}

// Accounts godoc
// @Summary      Plan de cuentas
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  dto.AccountResponse
// @Router       /api/accounts [get]
func (h *LedgerHandler) Accounts(c *fiber.Ctx) error {
	accounts, err := h.svc.Accounts(c.Context(), GetCompanyID(c))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, dto.AccountResponse{Code: a.Code, Name: a.Name, Class: string(a.Class)})
	}
	return c.JSON(out)
}

// Balance godoc
// @Summary      Saldo de una cuenta a una fecha
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        code   path   string  true   "Código de cuenta"
// @Param        as_of  query  string  false  "Fecha de corte (YYYY-MM-DD), por defecto hoy"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/accounts/{code}/balance [get]
func (h *LedgerHandler) Balance(c *fiber.Ctx) error {
	asOf, err := dto.ParseDate(c.Query("as_of"), h.now())
	if err != nil {
		return badRequest(c, "as_of inválida")
	}
	code := c.Params("code")
	bal, err := h.svc.BalanceOf(c.Context(), GetCompanyID(c), code, asOf)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BalanceResponse{AccountCode: code, AsOf: asOf.Format(dto.DateLayout), Balance: bal})
}

// TrialBalance godoc
// @Summary      Balance de comprobación
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        as_of  query  string  false  "Fecha de corte (YYYY-MM-DD)"
// @Success      200  {object}  dto.TrialBalanceResponse
// @Router       /api/accounts/trial-balance [get]
func (h *LedgerHandler) TrialBalance(c *fiber.Ctx) error {
	asOf, err := dto.ParseDate(c.Query("as_of"), h.now())
	if err != nil {
		return badRequest(c, "as_of inválida")
	}
	tb, err := h.svc.TrialBalance(c.Context(), GetCompanyID(c), asOf)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.TrialBalanceResponse{
		AsOf:        asOf.Format(dto.DateLayout),
		TotalDebit:  tb.TotalDebit,
		TotalCredit: tb.TotalCredit,
		Balanced:    tb.Balanced(),
		Rows:        make([]dto.TrialBalanceRow, 0, len(tb.Rows)),
	}
	for _, r := range tb.Rows {
		out.Rows = append(out.Rows, dto.TrialBalanceRow{
			Code: r.Code, Name: r.Name, Class: string(r.Class),
			Debit: r.Debit, Credit: r.Credit, Balance: r.Balance,
		})
	}
	return c.JSON(out)
}

// CreateEntry godoc
// @Summary      Crear asiento manual (borrador o contabilizado con post=true)
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.JournalEntryRequest  true  "Asiento"
// @Success      201   {object}  dto.JournalEntryResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/journal [post]
func (h *LedgerHandler) CreateEntry(c *fiber.Ctx) error {
	var in dto.JournalEntryRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	entryIn, err := toEntryInput(in)
	if err != nil {
		return badRequest(c, "date inválida")
	}
	entry, err := h.svc.CreateEntry(c.Context(), GetCompanyID(c), GetUserID(c), entryIn, in.Post)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromJournalEntry(entry))
}

// UpdateEntry godoc
// @Summary      Editar asiento en borrador
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                   true  "ID del asiento"
// @Param        body  body  dto.JournalEntryRequest  true  "Asiento"
// @Success      200   {object}  dto.JournalEntryResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/journal/{id} [put]
func (h *LedgerHandler) UpdateEntry(c *fiber.Ctx) error {
	var in dto.JournalEntryRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	entryIn, err := toEntryInput(in)
	if err != nil {
		return badRequest(c, "date inválida")
	}
	entry, err := h.svc.UpdateDraft(c.Context(), GetCompanyID(c), GetUserID(c), c.Params("id"), entryIn)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromJournalEntry(entry))
}

// PostEntry godoc
// @Summary      Contabilizar asiento
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "ID del asiento"
// @Success      200  {object}  dto.JournalEntryResponse
// @Router       /api/journal/{id}/post [post]
func (h *LedgerHandler) PostEntry(c *fiber.Ctx) error {
	entry, err := h.svc.Post(c.Context(), GetCompanyID(c), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromJournalEntry(entry))
}

// VoidEntry godoc
// @Summary      Anular asiento contabilizado (genera su reversa)
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                true  "ID del asiento"
// @Param        body  body  dto.VoidEntryRequest  true  "Motivo"
// @Success      200   {object}  dto.JournalEntryResponse  "La reversa"
// @Router       /api/journal/{id}/void [post]
func (h *LedgerHandler) VoidEntry(c *fiber.Ctx) error {
	var in dto.VoidEntryRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	reversal, err := h.svc.Void(c.Context(), GetCompanyID(c), GetUserID(c), c.Params("id"), in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromJournalEntry(reversal))
}

// ListEntries godoc
// @Summary      Libro diario
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        status  query  string  false  "borrador | contabilizado | anulado"
// @Param        from    query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to      query  string  false  "Hasta (YYYY-MM-DD)"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.JournalListResponse
// @Router       /api/journal [get]
func (h *LedgerHandler) ListEntries(c *fiber.Ctx) error {
	var page dto.PageRequest
	if ok, err := bindQuery(c, &page); !ok {
		return err
	}
	page.DefaultPage()
	f := repository.JournalFilter{
		CompanyID: GetCompanyID(c),
		Status:    entity.EntryStatus(c.Query("status")),
		Limit:     page.Limit + 1,
		Offset:    page.Offset,
	}
	var ok bool
	if f.From, ok = queryDate(c, "from"); !ok {
		return badRequest(c, "from inválida")
	}
	if f.To, ok = queryDate(c, "to"); !ok {
		return badRequest(c, "to inválida")
	}
	entries, err := h.svc.List(c.Context(), f)
	if err != nil {
		return respondError(c, err)
	}
	hasNext := len(entries) > page.Limit
	if hasNext {
		entries = entries[:page.Limit]
	}
	out := dto.JournalListResponse{
		Items: make([]dto.JournalEntryResponse, 0, len(entries)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, HasNext: hasNext},
	}
	for _, e := range entries {
		out.Items = append(out.Items, dto.FromJournalEntry(e))
	}
	return c.JSON(out)
}

func toEntryInput(in dto.JournalEntryRequest) (ledger.EntryInput, error) {
	date, err := time.Parse(dto.DateLayout, in.Date)
	if err != nil {
		return ledger.EntryInput{}, err
	}
	out := ledger.EntryInput{
		Date:    date,
		Concept: in.Concept,
		Source:  entity.SourceManual,
		Lines:   make([]ledger.LineInput, 0, len(in.Lines)),
	}
	for _, l := range in.Lines {
		out.Lines = append(out.Lines, ledger.LineInput{
			AccountCode: l.AccountCode,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		})
	}
	return out, nil
}
