package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Period is the window over which metrics are aggregated, (Start, End].
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PeriodEndingAt returns the period of the given length that ends at end.
func PeriodEndingAt(end time.Time, length time.Duration) Period {
	return Period{Start: end.Add(-length), End: end}
}

const week = 7 * 24 * time.Hour

// Key identifies the period for run deduplication. Weekly periods use the ISO
// week of End. Other lengths use End truncated to a multiple of the length,
// so runs inside the same window share a key and adjacent windows do not.
func (p Period) Key() string {
	length := p.End.Sub(p.Start)
	if length == week {
		year, w := p.End.UTC().ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, w)
	}
	return fmt.Sprintf("%s/%s", p.End.UTC().Truncate(length).Format(time.RFC3339), length)
}

// Batch is the output of one ledger settlement pass.
type Batch struct {
	AccountUpdates []AccountUpdate `json:"account_updates"`
	Events         []LedgerEvent   `json:"events"`
}

func (b Batch) Empty() bool {
	return len(b.AccountUpdates) == 0 && len(b.Events) == 0
}

// SettlementCommit is everything a settlement run writes, applied atomically.
type SettlementCommit struct {
	RunID     uuid.UUID
	PeriodKey string
	Period    Period
	Batch     Batch
	Metrics   []Metric
	// WagerIDs are deleted in the same transaction when set.
	WagerIDs []string
}
