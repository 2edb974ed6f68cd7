package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hisab/internal/core"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(map[string]string{"status": "ok"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("Body = %q, want it to contain %q", w.Body.String(), `"status":"ok"`)
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "" {
		t.Errorf("Content-Type = %q, want unset for empty body", ct)
	}
}

func TestJSONResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Header("X-Request-ID", "req_abc").
		Body(map[string]int{"n": 1}).
		Write(w)

	if got := w.Header().Get("X-Request-ID"); got != "req_abc" {
		t.Errorf("X-Request-ID = %q, want %q", got, "req_abc")
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		builder    *JSONResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{"bad request", BadRequestError("missing account_id"), http.StatusBadRequest, "missing account_id"},
		{"unprocessable", UnprocessableEntityError("title is required"), http.StatusUnprocessableEntity, "title is required"},
		{"not found", NotFoundError("not found"), http.StatusNotFound, "not found"},
		{"internal", InternalServerError("internal error"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("Body = %q, want it to contain %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", core.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load entry: %w", core.ErrNotFound), http.StatusNotFound},
		{"invalid month", core.ErrInvalidMonth, http.StatusUnprocessableEntity},
		{"invalid amount", core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{"empty title", core.ErrEmptyTitle, http.StatusUnprocessableEntity},
		{"title too long", core.ErrTitleTooLong, http.StatusUnprocessableEntity},
		{"invalid kind", core.ErrInvalidKind, http.StatusUnprocessableEntity},
		{"invalid schedule", core.ErrInvalidSchedule, http.StatusUnprocessableEntity},
		{"invalid account type", core.ErrInvalidAccountType, http.StatusUnprocessableEntity},
		{"empty account name", core.ErrEmptyAccountName, http.StatusUnprocessableEntity},
		{"negative balance", core.ErrNegativeBalance, http.StatusUnprocessableEntity},
		{"not due", core.ErrNotDue, http.StatusUnprocessableEntity},
		{"missing start", core.ErrMissingStart, http.StatusUnprocessableEntity},
		{"end before start", core.ErrEndBeforeStart, http.StatusUnprocessableEntity},
		{"unknown error", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			DomainError(tt.err).Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestDomainErrorHidesInternals(t *testing.T) {
	w := httptest.NewRecorder()
	DomainError(fmt.Errorf("dial tcp 10.0.0.5:5432: connection refused")).Write(w)

	if strings.Contains(w.Body.String(), "10.0.0.5") {
		t.Errorf("Body leaks internal error detail: %q", w.Body.String())
	}
}
