package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"assetapi/internal/apperr"
	"assetapi/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
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
// - code: machine-readable short error code (e.g., "INVALID_ID", "ASSET_NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return writeErrorDetails(c, status, code, message, nil)
}

func writeErrorDetails(c *fiber.Ctx, status int, code, message string, details map[string]any) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
	return c.Status(status).JSON(res)
}

// writeAppError maps a service error onto the response. Every kind has a
// status; anything unclassified is a 500 whose cause only reaches the log.
func writeAppError(c *fiber.Ctx, err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		var ve *apperr.ValidationError
		errors.As(err, &ve)
		return writeErrorDetails(c, fiber.StatusBadRequest, ve.Code, ve.Message, ve.Details)

	case apperr.KindNotFound:
		var nf *apperr.NotFoundError
		errors.As(err, &nf)
		if nf.Subject == apperr.SubjectBlob {
			return writeErrorDetails(c, fiber.StatusNotFound, "FILE_NOT_FOUND", "File not found",
				map[string]any{"details": "The asset file is missing from storage"})
		}
		return writeErrorDetails(c, fiber.StatusNotFound, "ASSET_NOT_FOUND", "Asset not found",
			map[string]any{"details": "No asset found with ID: " + nf.ID})

	case apperr.KindStorage:
		c.Locals(middleware.ErrorLocalKey, err.Error())
		var se *apperr.StorageError
		errors.As(err, &se)
		if se.Op == "delete" {
			return writeErrorDetails(c, fiber.StatusInternalServerError, "FILE_DELETE_FAILED", "Failed to delete file",
				map[string]any{"details": "The asset file could not be removed from storage"})
		}
		return writeError(c, fiber.StatusInternalServerError, "STORAGE_ERROR", "storage operation failed")

	case apperr.KindUpstreamStore:
		return writeErrorDetails(c, fiber.StatusBadRequest, "INVALID_ASSET", "Invalid asset data",
			map[string]any{"details": "The asset metadata was rejected by the metadata store"})

	default:
		c.Locals(middleware.ErrorLocalKey, err.Error())
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			return writeAppError(c, err)
		}

		switch fe.Code {
		case fiber.StatusBadRequest:
			return writeError(c, fe.Code, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, fe.Code, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, fe.Code, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			// The body limit trips before any handler runs; report it like an oversized file.
			return writeErrorDetails(c, fiber.StatusBadRequest, apperr.CodeFileTooLarge, "File too large",
				map[string]any{"details": "Request body exceeds the upload limit"})
		default:
			if fe.Code < fiber.StatusInternalServerError {
				return writeError(c, fe.Code, "BAD_REQUEST", "bad request")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}
