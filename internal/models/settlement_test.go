package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriod(t *testing.T) {
	end := time.Date(2026, 10, 16, 17, 0, 0, 0, time.UTC)
	p := PeriodEndingAt(end, 7*24*time.Hour)

	assert.Equal(t, time.Date(2026, 10, 9, 17, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, "2026-W42", p.Key())

	// Any run in the same ISO week maps to the same key.
	later := PeriodEndingAt(end.Add(48*time.Hour), 7*24*time.Hour)
	assert.Equal(t, p.Key(), later.Key())
}

func TestPeriod_KeyForShorterLengths(t *testing.T) {
	day := 24 * time.Hour
	first := PeriodEndingAt(time.Date(2026, 10, 12, 12, 0, 0, 0, time.UTC), day)
	second := PeriodEndingAt(time.Date(2026, 10, 13, 12, 0, 0, 0, time.UTC), day)

	assert.Equal(t, "2026-10-12T00:00:00Z/24h0m0s", first.Key())
	assert.NotEqual(t, first.Key(), second.Key())

	// A retry later the same day is still the same window.
	retry := PeriodEndingAt(time.Date(2026, 10, 12, 20, 0, 0, 0, time.UTC), day)
	assert.Equal(t, first.Key(), retry.Key())

	hourly := PeriodEndingAt(time.Date(2026, 10, 12, 12, 30, 0, 0, time.UTC), time.Hour)
	assert.NotEqual(t, hourly.Key(), PeriodEndingAt(hourly.End.Add(time.Hour), time.Hour).Key())
}

func TestBatch_Empty(t *testing.T) {
	assert.True(t, Batch{}.Empty())
	assert.False(t, Batch{Events: []LedgerEvent{{}}}.Empty())
}
