package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/libro-tributario/internal/application/dto"
	"github.com/jhoicas/libro-tributario/internal/application/expenses"
)

// ExpenseHandler registro de gastos.
type ExpenseHandler struct {
	svc *expenses.Service
}

// NewExpenseHandler construye el handler.
func NewExpenseHandler(svc *expenses.Service) *ExpenseHandler {
	return &ExpenseHandler{svc: svc}
}

// Register godoc
// @Summary      Registrar gasto (contabiliza el asiento de compra)
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.RegisterExpenseRequest  true  "Gasto"
// @Success      201   {object}  dto.ExpenseResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/expenses [post]
func (h *ExpenseHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterExpenseRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	date, err := time.Parse(dto.DateLayout, in.Date)
	if err != nil {
		return badRequest(c, "date inválida")
	}
	exp, err := h.svc.Register(c.Context(), GetCompanyID(c), GetUserID(c), expenses.Input{
		Date:           date,
		SupplierRUT:    in.SupplierRUT,
		DocumentNumber: in.DocumentNumber,
		Description:    in.Description,
		Amount:         in.Amount,
		Deductible:     in.Deductible,
		AccountCode:    in.AccountCode,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromExpense(exp))
}

// List godoc
// @Summary      Gastos de un período
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        period  query  string  true  "Período YYYY-MM"
// @Success      200  {array}  dto.ExpenseResponse
// @Router       /api/expenses [get]
func (h *ExpenseHandler) List(c *fiber.Ctx) error {
	list, err := h.svc.ListPeriod(c.Context(), GetCompanyID(c), c.Query("period"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.ExpenseResponse, 0, len(list))
	for _, e := range list {
		out = append(out, dto.FromExpense(e))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener gasto
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "ID del gasto"
// @Success      200  {object}  dto.ExpenseResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/expenses/{id} [get]
func (h *ExpenseHandler) GetByID(c *fiber.Ctx) error {
	exp, err := h.svc.Get(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromExpense(exp))
}
