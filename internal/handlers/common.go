// Package handlers provides the HTTP surface for processing-action records.
package handlers

import (
	"net/http"
	"time"

	"proclog-backend/pkg/api"
	appErrors "proclog-backend/pkg/errors"

	"go.uber.org/zap"
)

// handleServiceError converts service errors to problem responses.
func handleServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case appErrors.IsValidation(err):
		logger.Warn("request rejected", zap.Error(err))
		api.WriteProblem(w, http.StatusBadRequest, appMessage(err))
	case appErrors.IsNotFound(err):
		api.WriteProblem(w, http.StatusNotFound, appMessage(err))
	case appErrors.IsDependency(err):
		logger.Error("dependency failure", zap.Error(err))
		api.WriteProblem(w, http.StatusInternalServerError, "a backing service is unavailable")
	default:
		logger.Error("internal error", zap.Error(err))
		api.WriteProblem(w, http.StatusInternalServerError, "an internal error occurred")
	}
}

// appMessage strips the wrapped cause so clients only see the message, never
// backend details.
func appMessage(err error) string {
	if appErr, ok := err.(*appErrors.AppError); ok {
		return appErr.Message
	}
	return err.Error()
}

// parseDateParam parses a query-string timestamp. Both full RFC 3339 and
// plain dates are accepted; a plain date means midnight UTC.
func parseDateParam(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
