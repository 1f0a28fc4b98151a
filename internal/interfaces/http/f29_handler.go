package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/libro-tributario/internal/application/dto"
	"github.com/jhoicas/libro-tributario/internal/application/period"
)

// F29Handler resumen mensual de IVA.
type F29Handler struct {
	svc *period.Service
}

// NewF29Handler construye el handler.
func NewF29Handler(svc *period.Service) *F29Handler {
	return &F29Handler{svc: svc}
}

// Get godoc
// @Summary      F29 del período
// @Description  Si la base no responde tras los reintentos se devuelve la última instantánea con degraded=true.
// @Tags         f29
// @Produce      json
// @Security     BearerAuth
// @Param        period  path  string  true  "Período YYYY-MM"
// @Success      200  {object}  dto.F29Response
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/f29/{period} [get]
func (h *F29Handler) Get(c *fiber.Ctx) error {
	res, err := h.svc.F29(c.Context(), GetCompanyID(c), GetUserID(c), c.Params("period"))
	if err != nil {
		return respondError(c, err)
	}
	if res.Degraded {
		c.Set("Warning", `199 - "cifras desde instantánea en caché"`)
	}
	return c.JSON(dto.FromTaxPeriod(res.Period, res.Degraded, res.Source))
}

// DownloadPDF godoc
// @Summary      F29 del período en PDF
// @Tags         f29
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        period  path  string  true  "Período YYYY-MM"
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/f29/{period}/pdf [get]
func (h *F29Handler) DownloadPDF(c *fiber.Ctx) error {
	b, filename, res, err := h.svc.PDF(c.Context(), GetCompanyID(c), GetUserID(c), c.Params("period"))
	if err != nil {
		return respondError(c, err)
	}
	if res != nil && res.Degraded {
		c.Set("Warning", `199 - "cifras desde instantánea en caché"`)
	}
	return sendPDF(c, b, filename)
}
