package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
)

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("title", "", domain.ErrEmptyTitle), http.StatusBadRequest},
		{"not_found", domain.NewNotFoundError("project", "missing"), http.StatusNotFound},
		{"unauthorized", &domain.UnauthorizedError{Reason: "no token"}, http.StatusUnauthorized},
		{"busy", &domain.ServiceBusyError{Reason: "queue full"}, http.StatusServiceUnavailable},
		{"unavailable", &domain.ServiceUnavailableError{Dependency: "neo4j", Cause: fmt.Errorf("down")}, http.StatusServiceUnavailable},
		{"stage_failed", &domain.StageFailedError{Stage: "Critic", Cause: fmt.Errorf("boom")}, http.StatusUnprocessableEntity},
		{"unrecognised", fmt.Errorf("something else"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, c.err)
			if rec.Code != c.want {
				t.Fatalf("got status %d, want %d", rec.Code, c.want)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %q", ct)
			}
		})
	}
}
