package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/libro-tributario/internal/application/billing"
	"github.com/jhoicas/libro-tributario/internal/application/dto"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
	"github.com/jhoicas/libro-tributario/internal/domain/repository"
	"github.com/jhoicas/libro-tributario/internal/domain/tax"
)

// DocumentHandler emisión, envío al SII, cobro y anulación de DTE.
type DocumentHandler struct {
	svc *billing.Service
	pdf *billing.PDFUseCase
	now func() time.Time
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(svc *billing.Service, pdf *billing.PDFUseCase) *DocumentHandler {
	return &DocumentHandler{svc: svc, pdf: pdf, now: time.Now}
}

// Create godoc
// @Summary      Crear documento tributario (borrador)
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.CreateDocumentRequest  true  "Documento"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/documents [post]
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDocumentRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	issue, err := dto.ParseDate(in.IssueDate, time.Time{})
	if err != nil {
		return badRequest(c, "issue_date inválida")
	}
	due, err := dto.ParseDate(in.DueDate, time.Time{})
	if err != nil {
		return badRequest(c, "due_date inválida")
	}
	lines := make([]tax.LineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, tax.LineInput{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
		})
	}
	doc, err := h.svc.Create(c.Context(), GetCompanyID(c), GetUserID(c), billing.CreateInput{
		DocType:      in.DocType,
		IssuerRUT:    in.IssuerRUT,
		ReceiverRUT:  in.ReceiverRUT,
		ReceiverName: in.ReceiverName,
		IssueDate:    issue,
		DueDate:      due,
		ReferenceID:  in.ReferenceID,
		Lines:        lines,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromDocument(doc, h.now()))
}

// List godoc
// @Summary      Listar documentos
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        doc_type  query  int     false  "Tipo DTE"
// @Param        status    query  string  false  "Estado SII"
// @Param        from      query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to        query  string  false  "Hasta (YYYY-MM-DD)"
// @Param        limit     query  int     false  "Límite"  default(20)
// @Param        offset    query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.DocumentListResponse
// @Router       /api/documents [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if ok, err := bindQuery(c, &page); !ok {
		return err
	}
	page.DefaultPage()
	f := repository.DocumentFilter{
		CompanyID:  GetCompanyID(c),
		DocType:    c.QueryInt("doc_type", 0),
		Submission: entity.SubmissionStatus(c.Query("status")),
		Limit:      page.Limit + 1,
		Offset:     page.Offset,
	}
	var ok bool
	if f.From, ok = queryDate(c, "from"); !ok {
		return badRequest(c, "from inválida")
	}
	if f.To, ok = queryDate(c, "to"); !ok {
		return badRequest(c, "to inválida")
	}

	docs, err := h.svc.List(c.Context(), f)
	if err != nil {
		return respondError(c, err)
	}
	hasNext := len(docs) > page.Limit
	if hasNext {
		docs = docs[:page.Limit]
	}
	now := h.now()
	out := dto.DocumentListResponse{
		Items: make([]dto.DocumentResponse, 0, len(docs)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, HasNext: hasNext},
	}
	for _, d := range docs {
		out.Items = append(out.Items, dto.FromDocument(d, now))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener documento
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	doc, err := h.svc.Get(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromDocument(doc, h.now()))
}

// Submit godoc
// @Summary      Asignar folio, firmar y enviar al SII
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/submit [post]
func (h *DocumentHandler) Submit(c *fiber.Ctx) error {
	doc, err := h.svc.Submit(c.Context(), GetCompanyID(c), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromDocument(doc, h.now()))
}

// Refresh godoc
// @Summary      Consultar el estado del envío en el SII
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Router       /api/documents/{id}/refresh [post]
func (h *DocumentHandler) Refresh(c *fiber.Ctx) error {
	doc, err := h.svc.RefreshStatus(c.Context(), GetCompanyID(c), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromDocument(doc, h.now()))
}

// Pay godoc
// @Summary      Registrar cobro
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                  true   "ID del documento"
// @Param        body  body  dto.PayDocumentRequest  false  "Fecha de pago"
// @Success      200   {object}  dto.DocumentResponse
// @Router       /api/documents/{id}/pay [post]
func (h *DocumentHandler) Pay(c *fiber.Ctx) error {
	var in dto.PayDocumentRequest
	if len(c.Body()) > 0 {
		if ok, err := bind(c, &in); !ok {
			return err
		}
	}
	paidAt, err := dto.ParseDate(in.PaidAt, h.now())
	if err != nil {
		return badRequest(c, "paid_at inválida")
	}
	doc, err := h.svc.MarkPaid(c.Context(), GetCompanyID(c), GetUserID(c), c.Params("id"), paidAt)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromDocument(doc, h.now()))
}

// Cancel godoc
// @Summary      Anular documento (estado local)
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                     true  "ID del documento"
// @Param        body  body  dto.CancelDocumentRequest  true  "Motivo"
// @Success      200   {object}  dto.DocumentResponse
// @Router       /api/documents/{id}/cancel [post]
func (h *DocumentHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelDocumentRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	doc, err := h.svc.Cancel(c.Context(), GetCompanyID(c), GetUserID(c), c.Params("id"), in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromDocument(doc, h.now()))
}

// DownloadPDF godoc
// @Summary      Representación impresa del DTE
// @Tags         documents
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {file}  binary
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/pdf [get]
func (h *DocumentHandler) DownloadPDF(c *fiber.Ctx) error {
	pdfBytes, filename, err := h.pdf.DownloadDocumentPDF(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return sendPDF(c, pdfBytes, filename)
}

func sendPDF(c *fiber.Ctx, b []byte, filename string) error {
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(b)
}

// queryDate lee un parámetro YYYY-MM-DD opcional; ok false si viene mal formado.
func queryDate(c *fiber.Ctx, key string) (*time.Time, bool) {
	s := c.Query(key)
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(dto.DateLayout, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
