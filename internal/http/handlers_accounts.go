package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hisab/internal/core"
	"hisab/internal/log"
)

type accountRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	InitialBalance string `json:"initial_balance,omitempty"`

	UseManualOverride bool   `json:"use_manual_override,omitempty"`
	ManualOverride    string `json:"manual_override,omitempty"`
}

func (req accountRequest) toAccount(userID string) (core.Account, error) {
	a := core.Account{
		UserID:            userID,
		Name:              sanitizeInput(req.Name),
		Type:              core.AccountType(req.Type),
		UseManualOverride: req.UseManualOverride,
	}

	if strings.TrimSpace(req.InitialBalance) != "" {
		initial, err := decimal.NewFromString(strings.TrimSpace(req.InitialBalance))
		if err != nil {
			return core.Account{}, err
		}
		a.InitialBalance = initial
	}
	if strings.TrimSpace(req.ManualOverride) != "" {
		override, err := decimal.NewFromString(strings.TrimSpace(req.ManualOverride))
		if err != nil {
			return core.Account{}, err
		}
		a.ManualOverride = decimal.NewNullDecimal(override)
	}

	return a, nil
}

type accountResponse struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	InitialBalance    string    `json:"initial_balance"`
	UseManualOverride bool      `json:"use_manual_override"`
	ManualOverride    string    `json:"manual_override,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func accountJSON(a core.Account) accountResponse {
	resp := accountResponse{
		ID:                a.ID,
		Name:              a.Name,
		Type:              string(a.Type),
		InitialBalance:    a.InitialBalance.String(),
		UseManualOverride: a.UseManualOverride,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
	if a.ManualOverride.Valid {
		resp.ManualOverride = a.ManualOverride.Decimal.String()
	}
	return resp
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)

	accounts, err := s.accounts.List(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Account list failed", log.FieldError, err, log.FieldUserID, userID)
		DomainError(err).Write(w)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountJSON(a))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	account, err := req.toAccount(userID)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	created, err := s.accounts.Create(r.Context(), account)
	if err != nil {
		slog.ErrorContext(r.Context(), "Account create failed", log.FieldError, err, log.FieldUserID, userID)
		DomainError(err).Write(w)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).Body(accountJSON(created)).Write(w)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	account, err := s.accounts.Get(r.Context(), userID, id)
	if err != nil {
		DomainError(err).Write(w)
		return
	}
	NewJSONResponse().Body(accountJSON(account)).Write(w)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	account, err := req.toAccount(userID)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	account.ID = id

	updated, err := s.accounts.Update(r.Context(), account)
	if err != nil {
		slog.ErrorContext(r.Context(), "Account update failed", log.FieldError, err, log.FieldUserID, userID, log.FieldAccountID, id)
		DomainError(err).Write(w)
		return
	}

	NewJSONResponse().Body(accountJSON(updated)).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	id, err := pathID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if err := s.accounts.Delete(r.Context(), userID, id); err != nil {
		slog.ErrorContext(r.Context(), "Account delete failed", log.FieldError, err, log.FieldUserID, userID, log.FieldAccountID, id)
		DomainError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
