// Package errhttp maps catalog domain errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ghuser/bookcatalog/pkg/httpx"
	"github.com/ghuser/bookcatalog/pkg/logger"
	"github.com/ghuser/bookcatalog/pkg/telemetry"
	"github.com/ghuser/bookcatalog/services/catalog/domain"
)

type errorResponse struct {
	Error      string      `json:"error"`
	MissingIDs []uuid.UUID `json:"missingIds,omitempty"`
}

// Writer renders domain errors as JSON responses. Server errors are logged,
// reported to Sentry and, in production, replaced with a generic message.
type Writer struct {
	log          logger.Logger
	isProduction bool
}

// NewWriter returns a Writer that logs server errors to log.
func NewWriter(log logger.Logger, isProduction bool) *Writer {
	return &Writer{log: log, isProduction: isProduction}
}

// Write maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
func (wr *Writer) Write(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		wr.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		telemetry.CaptureError(r.Context(), err)
	}
	httpx.JSON(w, status, errorResponse{
		Error:      httpx.SafeError(err, status, wr.isProduction),
		MissingIDs: domain.MissingIDs(err),
	})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrMissingBooks),
		errors.Is(err, domain.ErrMissingAuthors):
		return http.StatusBadRequest // 400
	case errors.Is(err, domain.ErrAuthorNotFound),
		errors.Is(err, domain.ErrBookNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, domain.ErrInvariantViolation):
		return http.StatusConflict // 409
	default:
		return http.StatusInternalServerError // 500
	}
}
