package http

import (
	"encoding/csv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/libro-tributario/internal/application/audit"
	"github.com/jhoicas/libro-tributario/internal/application/dto"
	"github.com/jhoicas/libro-tributario/internal/domain/entity"
)

// AuditHandler consulta y purga de la bitácora.
type AuditHandler struct {
	svc           *audit.Service
	retentionDays int
}

// NewAuditHandler construye el handler. retentionDays se usa cuando la purga no indica días.
func NewAuditHandler(svc *audit.Service, retentionDays int) *AuditHandler {
	return &AuditHandler{svc: svc, retentionDays: retentionDays}
}

// Query godoc
// @Summary      Consultar bitácora
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        from      query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to        query  string  false  "Hasta (YYYY-MM-DD)"
// @Param        level     query  string  false  "INFO | WARN | ERROR | AUDIT"
// @Param        category  query  string  false  "Categoría"
// @Param        actor     query  string  false  "Usuario"
// @Param        q         query  string  false  "Texto libre"
// @Param        limit     query  int     false  "Límite"
// @Param        offset    query  int     false  "Offset"
// @Success      200  {object}  dto.AuditListResponse
// @Router       /api/audit [get]
func (h *AuditHandler) Query(c *fiber.Ctx) error {
	f, ok, err := auditFilter(c)
	if !ok {
		return err
	}
	page, err := h.svc.Query(c.Context(), f)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.AuditListResponse{
		Items: make([]dto.AuditEntryResponse, 0, len(page.Items)),
		Page: dto.PageResponse{
			Limit:   page.Limit,
			Offset:  page.Offset,
			Total:   page.Total,
			HasNext: page.HasNext,
		},
	}
	for _, e := range page.Items {
		out.Items = append(out.Items, dto.FromAuditEntry(e))
	}
	return c.JSON(out)
}

// Purge godoc
// @Summary      Purgar registros antiguos de la bitácora
// @Tags         audit
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.PurgeAuditRequest  false  "Antigüedad en días (0 = retención configurada)"
// @Success      200   {object}  dto.PurgeAuditResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/audit/purge [post]
func (h *AuditHandler) Purge(c *fiber.Ctx) error {
	var in dto.PurgeAuditRequest
	if len(c.Body()) > 0 {
		if ok, err := bind(c, &in); !ok {
			return err
		}
	}
	days := in.OlderThanDays
	if days == 0 {
		days = h.retentionDays
	}
	n, err := h.svc.PurgeOlderThan(c.Context(), GetCompanyID(c), GetUserID(c), days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.PurgeAuditResponse{Deleted: n})
}

// Export godoc
// @Summary      Exportar bitácora filtrada en CSV
// @Tags         audit
// @Produce      text/csv
// @Security     BearerAuth
// @Param        from      query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to        query  string  false  "Hasta (YYYY-MM-DD)"
// @Param        level     query  string  false  "INFO | WARN | ERROR | AUDIT"
// @Param        category  query  string  false  "Categoría"
// @Param        q         query  string  false  "Texto libre"
// @Success      200  {file}  binary
// @Router       /api/audit/export [get]
func (h *AuditHandler) Export(c *fiber.Ctx) error {
	f, ok, err := auditFilter(c)
	if !ok {
		return err
	}
	rows, err := h.svc.Export(c.Context(), f)
	if err != nil {
		return respondError(c, err)
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write([]string{"timestamp", "level", "category", "actor", "action", "entity_id", "error_kind", "message"})
	for _, e := range rows {
		_ = w.Write([]string{
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.Level),
			e.Category,
			e.Actor,
			e.Action,
			e.EntityID,
			e.ErrorKind,
			e.Message,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="bitacora.csv"`)
	return c.SendString(sb.String())
}

// auditFilter arma el filtro desde la query; ok false si ya se respondió 400.
func auditFilter(c *fiber.Ctx) (entity.AuditFilter, bool, error) {
	var q dto.AuditQuery
	if ok, err := bindQuery(c, &q); !ok {
		return entity.AuditFilter{}, false, err
	}
	f := entity.AuditFilter{
		CompanyID: GetCompanyID(c),
		Category:  q.Category,
		Actor:     q.Actor,
		Text:      q.Text,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	if q.Level != "" {
		f.Levels = []entity.AuditLevel{entity.AuditLevel(q.Level)}
	}
	var ok bool
	if f.From, ok = queryDate(c, "from"); !ok {
		return f, false, badRequest(c, "from inválida")
	}
	if f.To, ok = queryDate(c, "to"); !ok {
		return f, false, badRequest(c, "to inválida")
	}
	return f, true, nil
}
