package response

import (
	"errors"

	"propsales-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
)

// Body is the envelope every endpoint returns.
type Body struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Field   string      `json:"field,omitempty"`
}

// Success sends a 200 OK response.
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Body{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// SuccessCreated sends a 201 Created response.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Body{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a failure envelope with an explicit status.
func Error(c *fiber.Ctx, message string, statusCode int, reason string) error {
	return c.Status(statusCode).JSON(Body{
		Success: false,
		Message: message,
		Reason:  reason,
	})
}

// Warning sends 202 with data for an operation that took effect but needs
// follow-up, such as an orphaned transfer.
func Warning(c *fiber.Ctx, err error, data interface{}) error {
	body := Body{Success: true, Message: err.Error(), Data: data, Reason: domain.ReasonCode(err)}
	var de *domain.Error
	if errors.As(err, &de) {
		body.Message = de.Reason
	}
	return c.Status(fiber.StatusAccepted).JSON(body)
}

// DomainError maps a service error to status + reason. Unknown errors become
// 500 without leaking the cause.
func DomainError(c *fiber.Ctx, err error) error {
	code := StatusFor(err)
	if code == fiber.StatusInternalServerError {
		return Error(c, "Internal Server Error", code, "INTERNAL")
	}
	body := Body{Success: false, Message: err.Error(), Reason: domain.ReasonCode(err)}
	var de *domain.Error
	if errors.As(err, &de) {
		body.Message = de.Reason
		body.Field = de.Field
	}
	return c.Status(code).JSON(body)
}

// StatusFor returns the HTTP status for a domain error kind.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrOrphanedTransfer):
		return fiber.StatusAccepted
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrImmutableField):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrIneligibleCustomer), errors.Is(err, domain.ErrUpstreamRejected):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoPendingCharge):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrTransport):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}
