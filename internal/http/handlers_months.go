package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"hisab/internal/core"
	"hisab/internal/log"
	"hisab/internal/services"
)

func oneTimeMonthFilter(from, to core.Date) services.OneTimeFilter {
	return services.OneTimeFilter{From: from, To: to}
}

func templateMonthFilter(from, to core.Date) services.TemplateFilter {
	return services.TemplateFilter{OverlapStart: from, OverlapEnd: to}
}

// handleMonthView returns the full dashboard payload for (user, year, month).
// Views are cached briefly; every write to the period drops the cached copy.
func (s *Server) handleMonthView(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	year, month := parseYearMonth(r)
	if !core.ValidMonth(month) {
		DomainError(core.ErrInvalidMonth).Write(w)
		return
	}

	key := monthCacheKey(userID, year, month)
	if view, found := s.monthCache.Get(key); found {
		slog.DebugContext(r.Context(), "Month view cache hit", log.FieldUserID, userID, log.FieldYear, year, log.FieldMonth, month)
		NewJSONResponse().Body(view).Write(w)
		return
	}

	view, err := s.months.BuildMonth(r.Context(), userID, year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month view failed", log.FieldError, err, log.FieldUserID, userID, log.FieldYear, year, log.FieldMonth, month)
		DomainError(err).Write(w)
		return
	}

	s.monthCache.Set(key, view)
	NewJSONResponse().Body(view).Write(w)
}

// handleCompleteAll marks every still-pending recurring template due in the
// month completed at its template amount.
func (s *Server) handleCompleteAll(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)

	var req struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	count, err := s.completions.MarkAllCompleted(r.Context(), userID, req.Year, req.Month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Complete-all failed", log.FieldError, err, log.FieldUserID, userID, log.FieldYear, req.Year, log.FieldMonth, req.Month)
		DomainError(err).Write(w)
		return
	}

	s.invalidateMonth(userID, req.Year, req.Month)
	NewJSONResponse().Body(struct {
		Completed int `json:"completed"`
	}{Completed: count}).Write(w)
}

// handleBalance reconstructs one account's balance as of the end of the
// requested month.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	year, month := parseYearMonth(r)

	accountID, err := parseOptionalUUID(r.URL.Query().Get("account_id"))
	if err != nil || accountID == uuid.Nil {
		BadRequestError("account_id is required").Write(w)
		return
	}

	balance, err := s.balances.BalanceAsOf(r.Context(), userID, accountID, year, month)
	if err != nil {
		DomainError(err).Write(w)
		return
	}

	account, err := s.accounts.Get(r.Context(), userID, accountID)
	if err != nil {
		DomainError(err).Write(w)
		return
	}

	NewJSONResponse().Body(struct {
		AccountID      string `json:"account_id"`
		AccountName    string `json:"account_name"`
		Year           int    `json:"year"`
		Month          int    `json:"month"`
		Balance        string `json:"balance"`
		ManualOverride bool   `json:"manual_override"`
	}{
		AccountID:      accountID.String(),
		AccountName:    account.Name,
		Year:           year,
		Month:          month,
		Balance:        core.Round2(balance).StringFixed(2),
		ManualOverride: account.UseManualOverride && account.ManualOverride.Valid,
	}).Write(w)
}

// handleMarkCompleted records the actual paid or received amount for a
// template in the given month. Without an amount the template amount is used.
func (s *Server) handleMarkCompleted(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var req struct {
		Year   int    `json:"year"`
		Month  int    `json:"month"`
		Amount string `json:"amount,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	tpl, err := s.store.GetTemplate(r.Context(), userID, id)
	if err != nil {
		DomainError(err).Write(w)
		return
	}
	if !core.ValidMonth(req.Month) {
		DomainError(core.ErrInvalidMonth).Write(w)
		return
	}
	if !services.IsDueInMonth(tpl, req.Year, req.Month) {
		DomainError(core.ErrNotDue).Write(w)
		return
	}

	amount := tpl.Amount
	if strings.TrimSpace(req.Amount) != "" {
		amount, err = core.ParseAmount(req.Amount)
		if err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
	}

	record, err := s.completions.MarkCompleted(r.Context(), tpl, req.Year, req.Month, amount)
	if err != nil {
		slog.ErrorContext(r.Context(), "Mark completed failed", log.FieldError, err, log.FieldUserID, userID, log.FieldEntryID, id)
		DomainError(err).Write(w)
		return
	}

	s.invalidateMonth(userID, req.Year, req.Month)
	NewJSONResponse().Status(http.StatusCreated).Body(entryJSON(record)).Write(w)
}

// handleRevertCompletion removes the month's completion record, restoring the
// template amount for that period. Reverting twice is a no-op.
func (s *Server) handleRevertCompletion(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var req struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	if err := s.completions.RevertCompletion(r.Context(), userID, id, req.Year, req.Month); err != nil {
		slog.ErrorContext(r.Context(), "Revert completion failed", log.FieldError, err, log.FieldUserID, userID, log.FieldEntryID, id)
		DomainError(err).Write(w)
		return
	}

	s.invalidateMonth(userID, req.Year, req.Month)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
