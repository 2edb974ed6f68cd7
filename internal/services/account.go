package services

import (
	"context"
	"fmt"
	"time"

	"hisab/internal/core"

	"github.com/google/uuid"
)

// AccountService handles account CRUD. Balances are never stored; they are
// reconstructed on read, so edits here only touch the starting point and the
// optional manual override.
type AccountService struct {
	store Store
	now   func() time.Time
}

func NewAccountService(store Store) *AccountService {
	return &AccountService{store: store, now: time.Now}
}

func (s *AccountService) Create(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	now := s.now().UTC()
	a.ID = uuid.New()
	a.Deleted = false
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := s.store.InsertAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

func (s *AccountService) Update(ctx context.Context, a core.Account) (core.Account, error) {
	current, err := s.store.GetAccount(ctx, a.UserID, a.ID)
	if err != nil {
		return core.Account{}, err
	}

	current.Name = a.Name
	current.Type = a.Type
	current.InitialBalance = a.InitialBalance
	current.UseManualOverride = a.UseManualOverride
	current.ManualOverride = a.ManualOverride
	if err := current.Validate(); err != nil {
		return core.Account{}, err
	}
	current.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateAccount(ctx, current); err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	return current, nil
}

func (s *AccountService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if _, err := s.store.GetAccount(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.SoftDeleteAccount(ctx, userID, id); err != nil {
		return fmt.Errorf("soft delete account: %w", err)
	}
	return nil
}

func (s *AccountService) Get(ctx context.Context, userID string, id uuid.UUID) (core.Account, error) {
	return s.store.GetAccount(ctx, userID, id)
}

func (s *AccountService) List(ctx context.Context, userID string) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, userID)
}
