package services

import (
	"context"
	"fmt"

	"github.com/vandelay/guacbot/internal/models"
)

const (
	DefaultEventLimit = 20
	MaxEventLimit     = 100
)

type AccountStore interface {
	GetAccount(ctx context.Context, ref models.AccountRef) (models.Account, error)
	ListEvents(ctx context.Context, ref models.AccountRef, limit int) ([]models.LedgerEvent, error)
}

// AccountService serves balance enquiries and ledger history.
type AccountService struct {
	store AccountStore
}

func NewAccountService(store AccountStore) *AccountService {
	return &AccountService{store: store}
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (models.Account, error) {
	ref, err := models.ParseAccountRef(id)
	if err != nil {
		return models.Account{}, err
	}
	acct, err := s.store.GetAccount(ctx, ref)
	if err != nil {
		return models.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return acct, nil
}

// ListEvents returns the account's most recent ledger events, newest first.
// Limits outside 1..MaxEventLimit fall back to the default.
func (s *AccountService) ListEvents(ctx context.Context, id string, limit int) ([]models.LedgerEvent, error) {
	ref, err := models.ParseAccountRef(id)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > MaxEventLimit {
		limit = DefaultEventLimit
	}
	events, err := s.store.ListEvents(ctx, ref, limit)
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", id, err)
	}
	return events, nil
}
