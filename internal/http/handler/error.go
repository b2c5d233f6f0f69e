package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"fileshare/internal/chat"
	"fileshare/internal/filestore"
	"fileshare/internal/http/middleware"
	"fileshare/internal/pathutil"
	"fileshare/internal/service"
	"fileshare/internal/sharelink"
	"fileshare/internal/storage"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	Success   bool          `json:"success"`
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// dataPayload wraps successful responses.
type dataPayload struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
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
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		Success:   false,
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeData writes the success envelope.
func writeData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(dataPayload{Success: true, Data: data})
}

// serviceError translates a domain error into the matching HTTP error response.
// Unrecognized errors become a generic 500 so internals never leak.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, pathutil.ErrInvalidPath):
		return writeError(c, fiber.StatusBadRequest, "INVALID_PATH", "invalid path")
	case errors.Is(err, filestore.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file or folder not found")
	case errors.Is(err, filestore.ErrNameConflict):
		return writeError(c, fiber.StatusConflict, "NAME_CONFLICT", "a different file with this name already exists")
	case errors.Is(err, filestore.ErrAlreadyExists):
		return writeError(c, fiber.StatusConflict, "ALREADY_EXISTS", "already exists")
	case errors.Is(err, sharelink.ErrUnknown):
		return writeError(c, fiber.StatusNotFound, "TOKEN_UNKNOWN", "share link not found")
	case errors.Is(err, sharelink.ErrExpired):
		return writeError(c, fiber.StatusGone, "TOKEN_EXPIRED", "share link has expired")
	case errors.Is(err, sharelink.ErrExhausted):
		return writeError(c, fiber.StatusGone, "TOKEN_EXHAUSTED", "share link download limit reached")
	case errors.Is(err, sharelink.ErrFileGone):
		return writeError(c, fiber.StatusGone, "FILE_GONE", "the shared file no longer exists")
	case errors.Is(err, sharelink.ErrInvalidTTL):
		return writeError(c, fiber.StatusBadRequest, "INVALID_TTL", "invalid expiry")
	case errors.Is(err, chat.ErrInvalidUsername):
		return writeError(c, fiber.StatusBadRequest, "INVALID_USERNAME", "invalid username")
	case errors.Is(err, chat.ErrEmptyMessage):
		return writeError(c, fiber.StatusBadRequest, "EMPTY_MESSAGE", "message text is required")
	case errors.Is(err, chat.ErrUnknownType):
		return writeError(c, fiber.StatusBadRequest, "UNKNOWN_TYPE", "unknown message type")
	case errors.Is(err, service.ErrNameRequired):
		return writeError(c, fiber.StatusBadRequest, "FILENAME_REQUIRED", "filename is required")
	case errors.Is(err, storage.ErrUnavailable):
		return writeError(c, fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "object storage unavailable")
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
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "upload exceeds the size limit")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
