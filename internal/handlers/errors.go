package handlers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"hortti/internal/services"
	"hortti/internal/storage"
)

// statusFromError maps a service failure to its HTTP status.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// errorResponse writes the JSON error body for a service failure.
func errorResponse(c *fiber.Ctx, err error) error {
	status := statusFromError(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		// Internal details stay in the logs, not the response.
		message = "Internal server error"
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
	})
}

// validationErrorResponse writes a 400 with per-field messages.
func validationErrorResponse(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
