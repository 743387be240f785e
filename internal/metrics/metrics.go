// Package metrics holds the Prometheus collectors for settlement runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guac_settlement_runs_total",
		Help: "Settlement runs by result (success, empty, already_settled, locked, error).",
	}, []string{"result"})

	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guac_settlement_duration_seconds",
		Help:    "Wall time of a settlement run.",
		Buckets: prometheus.DefBuckets,
	})

	LedgerEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guac_ledger_events_total",
		Help: "Committed ledger events by type.",
	}, []string{"type"})

	FloorClampsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guac_floor_clamps_total",
		Help: "Sentiment debits clamped at a zero balance.",
	})

	RejectedRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guac_rejected_records_total",
		Help: "Records left out of a settlement by kind.",
	}, []string{"kind"})

	WagersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guac_wagers_placed_total",
		Help: "Wagers accepted for the next settlement.",
	})
)
