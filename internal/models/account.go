package models

import "time"

// DefaultStartingBalance is the balance given to an account on first sight.
const DefaultStartingBalance int64 = 100000

type Account struct {
	ID            AccountRef `json:"id" db:"id" validate:"required"`
	DisplayName   string     `json:"display_name" db:"display_name"`
	Balance       int64      `json:"balance" db:"balance" validate:"gte=0"`
	GivenTotal    int64      `json:"given_total" db:"given_total" validate:"gte=0"`
	ReceivedTotal int64      `json:"received_total" db:"received_total" validate:"gte=0"`
	Version       int        `json:"-" db:"version"` // for optimistic locking
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at" validate:"required"`
}

// NewAccount validates an account read from an external source.
func NewAccount(a Account) (Account, error) {
	if err := validateEntity("account", a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Name returns the display name, falling back to the account id.
func (a Account) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.ID.ID()
}

// AccountUpdate sets an account's balance as part of a settlement batch.
// Version is the account version the balance was computed from.
type AccountUpdate struct {
	Account   AccountRef `json:"account"`
	Balance   int64      `json:"balance"`
	Version   int        `json:"-"`
	UpdatedAt time.Time  `json:"updated_at"`
}
