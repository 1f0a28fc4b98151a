package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/libro-tributario/internal/application/dto"
	"github.com/jhoicas/libro-tributario/internal/domain"
)

var validate = validator.New()

// bind parsea el cuerpo JSON y aplica las reglas `validate` del DTO.
// Con ok == false la respuesta 400 ya quedó escrita y el handler debe devolver err.
func bind(c *fiber.Ctx, in any) (ok bool, err error) {
	if err := c.BodyParser(in); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	return check(c, in)
}

// bindQuery igual que bind pero desde la query string.
func bindQuery(c *fiber.Ctx, in any) (ok bool, err error) {
	if err := c.QueryParser(in); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	return check(c, in)
}

func check(c *fiber.Ctx, in any) (bool, error) {
	err := validate.Struct(in)
	if err == nil {
		return true, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			details = append(details, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		details = append(details, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Code:    "VALIDATION",
		Message: "datos inválidos",
		Kind:    domain.KindValidation,
		Details: details,
	})
}

// badRequest 400 con un único problema (fechas mal formadas, parámetros de ruta).
func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: msg, Kind: domain.KindValidation})
}

// respondError traduce errores de dominio a código HTTP y ErrorResponse.
func respondError(c *fiber.Ctx, err error) error {
	if errors.Is(err, domain.ErrUnauthorized) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"})
	}
	kind := domain.KindOf(err)
	status, code := statusFor(kind)
	if kind == domain.KindPersistence && domain.IsTransient(err) {
		status = fiber.StatusServiceUnavailable
	}
	body := dto.ErrorResponse{Code: code, Message: err.Error(), Kind: kind}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body.Message = "datos inválidos"
		body.Details = ve.Problems
	}
	if status >= fiber.StatusInternalServerError {
		// sin detalles internos hacia el cliente
		body.Message = strings.SplitN(body.Message, ":", 2)[0]
	}
	return c.Status(status).JSON(body)
}

func statusFor(kind string) (int, string) {
	switch kind {
	case domain.KindValidation:
		return fiber.StatusBadRequest, "VALIDATION"
	case domain.KindImbalance:
		return fiber.StatusUnprocessableEntity, "UNBALANCED"
	case domain.KindUnknownAccount:
		return fiber.StatusUnprocessableEntity, "UNKNOWN_ACCOUNT"
	case domain.KindFolioExhausted:
		return fiber.StatusConflict, "FOLIO_EXHAUSTED"
	case domain.KindFolioExpired:
		return fiber.StatusConflict, "FOLIO_EXPIRED"
	case domain.KindImmutableEntry:
		return fiber.StatusConflict, "IMMUTABLE_ENTRY"
	case domain.KindInvalidTransition:
		return fiber.StatusConflict, "INVALID_TRANSITION"
	case domain.KindAuthorityRejection:
		return fiber.StatusUnprocessableEntity, "SII_REJECTED"
	case domain.KindNotFound:
		return fiber.StatusNotFound, "NOT_FOUND"
	case domain.KindForbidden:
		return fiber.StatusForbidden, "FORBIDDEN"
	case domain.KindConflict:
		return fiber.StatusConflict, "CONFLICT"
	case domain.KindPersistence:
		return fiber.StatusInternalServerError, "PERSISTENCE"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}
