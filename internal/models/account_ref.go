package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

type refKind uint8

const (
	participantRef refKind = iota + 1
	systemRef
)

// AccountRef identifies either a chat participant or one of the reserved
// system accounts. The zero value identifies nothing.
type AccountRef struct {
	kind refKind
	id   string
}

// Reserved system accounts used as counterparties for non-user transfers.
var (
	SentimentPool = AccountRef{kind: systemRef, id: "sentiment"}
	SharedPot     = AccountRef{kind: systemRef, id: "shared"}
)

var systemAccounts = map[string]AccountRef{
	SentimentPool.id: SentimentPool,
	SharedPot.id:     SharedPot,
}

// Participant returns the ref for a chat participant id. Reserved ids resolve
// to their system account.
func Participant(id string) AccountRef {
	if sys, ok := systemAccounts[id]; ok {
		return sys
	}
	return AccountRef{kind: participantRef, id: id}
}

// ParseAccountRef converts a stored identifier into an AccountRef.
func ParseAccountRef(s string) (AccountRef, error) {
	if s == "" {
		return AccountRef{}, fmt.Errorf("%w: empty identifier", ErrInvalidAccountRef)
	}
	return Participant(s), nil
}

func (r AccountRef) ID() string          { return r.id }
func (r AccountRef) String() string      { return r.id }
func (r AccountRef) IsZero() bool        { return r.kind == 0 }
func (r AccountRef) IsSystem() bool      { return r.kind == systemRef }
func (r AccountRef) IsParticipant() bool { return r.kind == participantRef }

// Value implements driver.Valuer for AccountRef
func (r AccountRef) Value() (driver.Value, error) {
	if r.IsZero() {
		return nil, nil
	}
	return r.id, nil
}

// Scan implements sql.Scanner for AccountRef
func (r *AccountRef) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*r = AccountRef{}
		return nil
	default:
		return errors.New("type assertion to string failed")
	}

	ref, err := ParseAccountRef(s)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

func (r AccountRef) MarshalText() ([]byte, error) {
	return []byte(r.id), nil
}

func (r *AccountRef) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = AccountRef{}
		return nil
	}
	ref, err := ParseAccountRef(string(text))
	if err != nil {
		return err
	}
	*r = ref
	return nil
}
