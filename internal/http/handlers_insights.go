package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"hisab/internal/log"
	"hisab/internal/services"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Category list failed", "error", err)
		DomainError(err).Write(w)
		return
	}

	type categoryResponse struct {
		ID     uuid.UUID `json:"id"`
		Name   string    `json:"name"`
		Type   string    `json:"type"`
		System bool      `json:"system"`
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Type: string(c.Type), System: c.System})
	}
	NewJSONResponse().Body(out).Write(w)
}

// handleInsightsQuery answers balance, income and expense questions for a
// month, optionally narrowed to one account by name.
func (s *Server) handleInsightsQuery(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)

	var req struct {
		Intent  string `json:"intent"`
		Year    int    `json:"year"`
		Month   int    `json:"month"`
		Account string `json:"account,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	account := sanitizeInput(req.Account)

	var (
		result services.QueryResult
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(req.Intent)) {
	case "balance":
		result, err = s.insights.Balance(r.Context(), userID, req.Year, req.Month, account)
	case "income":
		result, err = s.insights.Income(r.Context(), userID, req.Year, req.Month, account)
	case "expense":
		result, err = s.insights.Expense(r.Context(), userID, req.Year, req.Month, account)
	default:
		UnprocessableEntityError("intent must be balance, income or expense").Write(w)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Insights query failed", log.FieldError, err, log.FieldUserID, userID, "intent", req.Intent)
		DomainError(err).Write(w)
		return
	}

	NewJSONResponse().Body(result).Write(w)
}
