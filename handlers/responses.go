package handlers

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/pocketbase/pocketbase/core"

	"casetrack/services"
)

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._\-]+`)

// sanitizeFilename makes a string safe to use in a Content-Disposition header.
func sanitizeFilename(name string) string {
	return filenameSanitizer.ReplaceAllString(name, "_")
}

// inputErrorStatus picks the HTTP status for a batch input failure.
func inputErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrTemplateNotFound),
		errors.Is(err, services.ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrFileRead):
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

// writeInputError renders a structured validation failure. Non-input errors
// fall through to a generic 500.
func writeInputError(e *core.RequestEvent, err error) error {
	var inputErr *services.BatchInputError
	if errors.As(err, &inputErr) {
		return e.JSON(inputErrorStatus(err), map[string]any{
			"error_key": inputErr.Key,
			"message":   inputErr.Message,
		})
	}
	return e.JSON(http.StatusInternalServerError, map[string]any{
		"error_key": "internal",
		"message":   "internal error",
	})
}
