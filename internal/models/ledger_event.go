package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSentiment EventType = "sentiment"
	EventBetWon    EventType = "won-bet"
	EventBetLost   EventType = "lost-bet"
	EventGift      EventType = "gift"
	EventSteal     EventType = "steal"
	EventStealFail EventType = "steal-fail"
	EventLottery   EventType = "won-lottery"
)

// LedgerEvent is an immutable audit record of one directed transfer. Amount
// is never negative; a loss is a transfer from the loser to a system account.
type LedgerEvent struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	To         AccountRef `json:"to" db:"to_account" validate:"required"`
	From       AccountRef `json:"from" db:"from_account" validate:"required"`
	Amount     int64      `json:"amount" db:"amount" validate:"gte=0"`
	Type       EventType  `json:"type" db:"type" validate:"required,oneof=sentiment won-bet lost-bet gift steal steal-fail won-lottery"`
	OccurredAt time.Time  `json:"occurred_at" db:"occurred_at" validate:"required"`
	RecordedAt time.Time  `json:"recorded_at" db:"recorded_at" validate:"required"`
}

// NewLedgerEvent validates e and fills in its id and record time when unset.
func NewLedgerEvent(e LedgerEvent) (LedgerEvent, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = e.OccurredAt
	}
	if err := validateEntity("ledger event", e); err != nil {
		return LedgerEvent{}, err
	}
	if e.To == e.From {
		return LedgerEvent{}, newValidationError("ledger event", "To", "must differ from From")
	}
	return e, nil
}
