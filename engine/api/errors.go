// Package api holds the HTTP handler constructors for the orchestrator's
// public surface, mirroring the teacher's factory-function style where each
// handler closes over the dependencies it needs.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
)

// writeError maps the domain error taxonomy to an HTTP status in one place.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation  *domain.ValidationError
		notFound    *domain.NotFoundError
		unauthz     *domain.UnauthorizedError
		busy        *domain.ServiceBusyError
		unavailable *domain.ServiceUnavailableError
		stageFailed *domain.StageFailedError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &unauthz):
		status = http.StatusUnauthorized
	case errors.As(err, &busy):
		status = http.StatusServiceUnavailable
	case errors.As(err, &unavailable):
		status = http.StatusServiceUnavailable
	case errors.As(err, &stageFailed):
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
