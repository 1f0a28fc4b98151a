package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/libro-tributario/internal/application/dto"
	"github.com/jhoicas/libro-tributario/internal/application/folio"
)

// CAFHandler alta y consulta de rangos de folios.
type CAFHandler struct {
	allocator *folio.Allocator
}

// NewCAFHandler construye el handler.
func NewCAFHandler(allocator *folio.Allocator) *CAFHandler {
	return &CAFHandler{allocator: allocator}
}

// Register godoc
// @Summary      Registrar CAF (JSON o archivo XML del SII en el campo "file")
// @Tags         cafs
// @Accept       json
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.RegisterCAFRequest  false  "Rango manual"
// @Param        file  formData  file                    false  "CAF del SII"
// @Success      201   {object}  dto.CAFResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/cafs [post]
func (h *CAFHandler) Register(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return h.importFile(c)
	}
	var in dto.RegisterCAFRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	authorized, err := dto.ParseDate(in.AuthorizedAt, time.Time{})
	if err != nil {
		return badRequest(c, "authorized_at inválida")
	}
	expires, err := dto.ParseDate(in.ExpiresAt, time.Time{})
	if err != nil {
		return badRequest(c, "expires_at inválida")
	}
	caf, err := h.allocator.RegisterCAF(c.Context(), GetCompanyID(c), GetUserID(c), folio.CAFInput{
		DocType:      in.DocType,
		RangeFrom:    in.RangeFrom,
		RangeTo:      in.RangeTo,
		AuthorizedAt: authorized,
		ExpiresAt:    expires,
		KeyID:        in.KeyID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromCAF(caf))
}

func (h *CAFHandler) importFile(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, `falta el archivo "file"`)
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "no se pudo leer el archivo")
	}
	defer f.Close()

	caf, err := h.allocator.ImportCAF(c.Context(), GetCompanyID(c), GetUserID(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromCAF(caf))
}

// List godoc
// @Summary      Listar CAF con folios restantes
// @Tags         cafs
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  dto.CAFResponse
// @Router       /api/cafs [get]
func (h *CAFHandler) List(c *fiber.Ctx) error {
	cafs, err := h.allocator.List(c.Context(), GetCompanyID(c))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.CAFResponse, 0, len(cafs))
	for _, caf := range cafs {
		out = append(out, dto.FromCAF(caf))
	}
	return c.JSON(out)
}
