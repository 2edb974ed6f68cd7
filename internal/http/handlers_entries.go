package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"hisab/internal/core"
	"hisab/internal/log"
)

// entryRequest is the JSON body for creating and updating entries. Amounts
// travel as strings to keep them exact.
type entryRequest struct {
	Title               string `json:"title"`
	Amount              string `json:"amount"`
	Kind                string `json:"kind"`
	Schedule            string `json:"schedule"`
	Cadence             string `json:"cadence,omitempty"`
	Date                string `json:"date,omitempty"`
	StartDate           string `json:"start_date,omitempty"`
	EndDate             string `json:"end_date,omitempty"`
	Active              *bool  `json:"active,omitempty"`
	CategoryID          string `json:"category_id,omitempty"`
	PaidFromAccountID   string `json:"paid_from_account_id,omitempty"`
	ReceivedToAccountID string `json:"received_to_account_id,omitempty"`
}

func (req entryRequest) toEntry(userID string) (core.Entry, error) {
	e := core.Entry{
		UserID:   userID,
		Title:    sanitizeInput(req.Title),
		Kind:     core.Kind(req.Kind),
		Schedule: core.ScheduleType(req.Schedule),
		Cadence:  core.Cadence(req.Cadence),
		Active:   true,
	}
	if req.Active != nil {
		e.Active = *req.Active
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Entry{}, err
	}
	e.Amount = amount

	if e.Date, err = parseDate(req.Date); err != nil {
		return core.Entry{}, err
	}
	if e.StartDate, err = parseDate(req.StartDate); err != nil {
		return core.Entry{}, err
	}
	if e.EndDate, err = parseDate(req.EndDate); err != nil {
		return core.Entry{}, err
	}

	if e.CategoryID, err = parseOptionalUUID(req.CategoryID); err != nil {
		return core.Entry{}, err
	}
	if e.PaidFromAccountID, err = parseOptionalUUID(req.PaidFromAccountID); err != nil {
		return core.Entry{}, err
	}
	if e.ReceivedToAccountID, err = parseOptionalUUID(req.ReceivedToAccountID); err != nil {
		return core.Entry{}, err
	}

	return e, nil
}

type entryResponse struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	Amount              string    `json:"amount"`
	Kind                string    `json:"kind"`
	Schedule            string    `json:"schedule"`
	Cadence             string    `json:"cadence,omitempty"`
	Date                string    `json:"date,omitempty"`
	StartDate           string    `json:"start_date,omitempty"`
	EndDate             string    `json:"end_date,omitempty"`
	Active              bool      `json:"active"`
	CategoryID          string    `json:"category_id,omitempty"`
	CategoryName        string    `json:"category_name,omitempty"`
	PaidFromAccountID   string    `json:"paid_from_account_id,omitempty"`
	ReceivedToAccountID string    `json:"received_to_account_id,omitempty"`
	ParentID            string    `json:"parent_id,omitempty"`
	RecurrenceGroupID   string    `json:"recurrence_group_id,omitempty"`
	Role                string    `json:"role"`
	Completed           bool      `json:"completed"`
	CompletedAt         string    `json:"completed_at,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func entryJSON(e core.Entry) entryResponse {
	resp := entryResponse{
		ID:                  e.ID,
		Title:               e.Title,
		Amount:              e.Amount.String(),
		Kind:                string(e.Kind),
		Schedule:            string(e.Schedule),
		Cadence:             string(e.Cadence),
		Date:                dateString(e.Date),
		StartDate:           dateString(e.StartDate),
		EndDate:             dateString(e.EndDate),
		Active:              e.Active,
		CategoryID:          uuidString(e.CategoryID),
		CategoryName:        e.CategoryName,
		PaidFromAccountID:   uuidString(e.PaidFromAccountID),
		ReceivedToAccountID: uuidString(e.ReceivedToAccountID),
		ParentID:            uuidString(e.ParentID),
		RecurrenceGroupID:   uuidString(e.RecurrenceGroupID),
		Role:                string(e.Role),
		Completed:           e.Completed,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
	if !e.CompletedAt.IsZero() {
		resp.CompletedAt = e.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func entriesJSON(entries []core.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON(e))
	}
	return out
}

func dateString(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01-02")
}

func uuidString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)

	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	entry, err := req.toEntry(userID)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	created, err := s.entries.Create(r.Context(), entry)
	if err != nil {
		s.logs.LogError(r.Context(), "Entry create failed", err, log.ComponentEntry, log.OpCreate, log.NewFields().WithUser(userID))
		DomainError(err).Write(w)
		return
	}

	s.invalidateEntryMonths(userID, created)
	s.logs.LogEntryCreated(r.Context(), userID, created.ID.String(), created.Title, created.Amount.String(), string(created.Kind))
	NewJSONResponse().Status(http.StatusCreated).Body(entryJSON(created)).Write(w)
}

// handleListEntries returns the month's one-time movements and the recurring
// templates whose schedule overlaps it.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	year, month := parseYearMonth(r)
	if !core.ValidMonth(month) {
		DomainError(core.ErrInvalidMonth).Write(w)
		return
	}

	from := core.MonthStart(year, month)
	to := core.MonthEnd(year, month)

	oneTime, err := s.store.ListOneTimeEntries(r.Context(), userID, oneTimeMonthFilter(from, to))
	if err != nil {
		slog.ErrorContext(r.Context(), "Entry list failed", log.FieldError, err, log.FieldUserID, userID)
		DomainError(err).Write(w)
		return
	}
	templates, err := s.store.ListRecurringTemplates(r.Context(), userID, templateMonthFilter(from, to))
	if err != nil {
		slog.ErrorContext(r.Context(), "Template list failed", log.FieldError, err, log.FieldUserID, userID)
		DomainError(err).Write(w)
		return
	}

	NewJSONResponse().Body(struct {
		Year      int             `json:"year"`
		Month     int             `json:"month"`
		OneTime   []entryResponse `json:"one_time"`
		Recurring []entryResponse `json:"recurring"`
	}{
		Year:      year,
		Month:     month,
		OneTime:   entriesJSON(oneTime),
		Recurring: entriesJSON(templates),
	}).Write(w)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	entry, err := s.entries.Get(r.Context(), userID, id)
	if err != nil {
		DomainError(err).Write(w)
		return
	}
	NewJSONResponse().Body(entryJSON(entry)).Write(w)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	entry, err := req.toEntry(userID)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	entry.ID = id

	updated, err := s.entries.Update(r.Context(), entry)
	if err != nil {
		slog.ErrorContext(r.Context(), "Entry update failed", log.FieldError, err, log.FieldUserID, userID, log.FieldEntryID, id)
		DomainError(err).Write(w)
		return
	}

	s.invalidateEntryMonths(userID, updated)
	NewJSONResponse().Body(entryJSON(updated)).Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	current, err := s.entries.Get(r.Context(), userID, id)
	if err != nil {
		DomainError(err).Write(w)
		return
	}
	if err := s.entries.Delete(r.Context(), userID, id); err != nil {
		slog.ErrorContext(r.Context(), "Entry delete failed", log.FieldError, err, log.FieldUserID, userID, log.FieldEntryID, id)
		DomainError(err).Write(w)
		return
	}

	s.invalidateEntryMonths(userID, current)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleUpdateAmount(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var req struct {
		Amount string `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	updated, err := s.entries.UpdateAmount(r.Context(), userID, id, amount)
	if err != nil {
		DomainError(err).Write(w)
		return
	}

	s.invalidateEntryMonths(userID, updated)
	NewJSONResponse().Body(entryJSON(updated)).Write(w)
}

func (s *Server) handleUpdateDates(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var req struct {
		Date      string `json:"date,omitempty"`
		StartDate string `json:"start_date,omitempty"`
		EndDate   string `json:"end_date,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		UnprocessableEntityError("invalid date").Write(w)
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		UnprocessableEntityError("invalid start_date").Write(w)
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		UnprocessableEntityError("invalid end_date").Write(w)
		return
	}

	updated, err := s.entries.UpdateDates(r.Context(), userID, id, date, start, end)
	if err != nil {
		DomainError(err).Write(w)
		return
	}

	s.invalidateEntryMonths(userID, updated)
	NewJSONResponse().Body(entryJSON(updated)).Write(w)
}

// handleUpdateFuture applies new terms to a recurring series from a given
// date onward, preserving past months under the old terms.
func (s *Server) handleUpdateFuture(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var req struct {
		EffectiveFrom string       `json:"effective_from"`
		Changes       entryRequest `json:"changes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	effectiveFrom, err := parseDate(req.EffectiveFrom)
	if err != nil {
		UnprocessableEntityError("invalid effective_from").Write(w)
		return
	}
	changes, err := req.Changes.toEntry(userID)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	successor, err := s.entries.UpdateFuture(r.Context(), userID, id, changes, effectiveFrom)
	if err != nil {
		slog.ErrorContext(r.Context(), "Series update failed", log.FieldError, err, log.FieldUserID, userID, log.FieldEntryID, id)
		DomainError(err).Write(w)
		return
	}

	s.invalidateEntryMonths(userID, successor)
	NewJSONResponse().Body(entryJSON(successor)).Write(w)
}
