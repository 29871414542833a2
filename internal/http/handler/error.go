package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docanchor/internal/domain"
	"docanchor/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeDomainError maps the shared error taxonomy onto HTTP statuses and
// machine-readable codes. Unrecognized errors fall back to a 500 without
// leaking internals.
func writeDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrDuplicateContent):
		return writeError(c, fiber.StatusConflict, "DUPLICATE_CONTENT", "content already registered")
	case errors.Is(err, domain.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, domain.ErrLedgerMismatch):
		return writeError(c, fiber.StatusConflict, "LEDGER_MISMATCH", "ledger does not confirm the stored hash")
	case errors.Is(err, domain.ErrInvalidState):
		return writeError(c, fiber.StatusUnprocessableEntity, "INVALID_STATE", "document state does not allow this operation")
	case errors.Is(err, domain.ErrAuthorization):
		return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "not authorized for this document")
	case errors.Is(err, domain.ErrRateLimited):
		return writeError(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "backend is rate limiting, retry later")
	case errors.Is(err, domain.ErrLedgerUnavailable):
		return writeError(c, fiber.StatusBadGateway, "LEDGER_UNAVAILABLE", "ledger backend unavailable")
	case errors.Is(err, domain.ErrBatchTooLarge):
		return writeError(c, fiber.StatusBadRequest, "BATCH_TOO_LARGE", "batch exceeds the configured ceiling")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
