package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/voice-audit/internal/pipeline"
)

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var validation *ErrValidation
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrPromptsPending):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
