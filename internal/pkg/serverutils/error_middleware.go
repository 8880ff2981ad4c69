package serverutils

import (
	"errors"

	"chat-relay-be/internal/repository/contract"
	"chat-relay-be/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps domain errors returned by handlers onto HTTP
// statuses with the `{"error": ...}` body the frontend expects.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, contract.ErrSessionNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, contract.ErrMessageIndex),
			errors.Is(err, service.ErrEmptyInput),
			errors.Is(err, service.ErrNoActiveSession):
			status = fiber.StatusBadRequest
		default:
			var validationErrs validator.ValidationErrors
			var fiberErr *fiber.Error
			if errors.As(err, &validationErrs) {
				status = fiber.StatusBadRequest
			} else if errors.As(err, &fiberErr) {
				status = fiberErr.Code
			}
		}

		return ctx.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
}
