package models

import (
	"fmt"
	"math"
	"time"
)

// maxWager keeps wager payouts well inside int64 for any sane odds.
const maxWager = 1 << 40

// MaxOdds is the largest payout multiplier for which every valid wager pays
// out without overflowing int64.
const MaxOdds int64 = math.MaxInt64 / maxWager

// WagerRecord is a bet as stored, before validation.
type WagerRecord struct {
	ID       string    `json:"id" db:"id"`
	Bettor   string    `json:"bettor" db:"bettor"`
	Target   string    `json:"target" db:"target"`
	Wager    float64   `json:"wager" db:"wager"`
	PlacedAt time.Time `json:"placed_at" db:"placed_at"`
}

// Wager is a validated prediction that Target will have the lowest sentiment.
type Wager struct {
	ID     string
	Bettor AccountRef
	Target AccountRef
	Amount int64
}

// ParseWager validates a stored bet. Amounts must be positive integers and
// both bettor and target must be participants.
func ParseWager(r WagerRecord) (Wager, error) {
	if math.IsNaN(r.Wager) || math.IsInf(r.Wager, 0) || r.Wager != math.Trunc(r.Wager) {
		return Wager{}, fmt.Errorf("%w: amount %v is not an integer", ErrInvalidWager, r.Wager)
	}
	if r.Wager <= 0 || r.Wager > maxWager {
		return Wager{}, fmt.Errorf("%w: amount %v out of range", ErrInvalidWager, r.Wager)
	}

	bettor, err := ParseAccountRef(r.Bettor)
	if err != nil {
		return Wager{}, fmt.Errorf("%w: bettor: %v", ErrInvalidWager, err)
	}
	target, err := ParseAccountRef(r.Target)
	if err != nil {
		return Wager{}, fmt.Errorf("%w: target: %v", ErrInvalidWager, err)
	}
	if !bettor.IsParticipant() || !target.IsParticipant() {
		return Wager{}, fmt.Errorf("%w: system accounts cannot bet or be bet on", ErrInvalidWager)
	}

	return Wager{ID: r.ID, Bettor: bettor, Target: target, Amount: int64(r.Wager)}, nil
}

// WagerOutcome pairs an account with the amount it staked.
type WagerOutcome struct {
	WagerID string     `json:"wager_id"`
	Account AccountRef `json:"account"`
	Wager   int64      `json:"wager"`
}
