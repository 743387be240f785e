package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vandelay/guacbot/internal/audit"
	"github.com/vandelay/guacbot/internal/metrics"
	"github.com/vandelay/guacbot/internal/models"
)

// SettlementStore is the persistence the settlement run reads from and commits to.
type SettlementStore interface {
	FetchMessages(ctx context.Context, period models.Period) ([]models.Message, error)
	EnsureAccounts(ctx context.Context, refs []models.AccountRef, startingBalance int64) error
	FetchAccounts(ctx context.Context, refs []models.AccountRef) (map[models.AccountRef]models.Account, error)
	FetchEditCounts(ctx context.Context, period models.Period) (map[models.AccountRef]int, error)
	FetchWagers(ctx context.Context) ([]models.WagerRecord, error)
	CommitSettlement(ctx context.Context, commit models.SettlementCommit) error
}

// PeriodLocker guards a period against concurrent settlement runs.
type PeriodLocker interface {
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// ReportPublisher hands the run's results to the report renderer.
type ReportPublisher interface {
	Publish(ctx context.Context, report *Report) error
}

// Report is the opaque result handed to the renderer. No formatting is done here.
type Report struct {
	RunID         uuid.UUID             `json:"run_id"`
	PeriodKey     string                `json:"period_key"`
	Period        models.Period         `json:"period"`
	Empty         bool                  `json:"empty"`
	Superlatives  Superlatives          `json:"superlatives"`
	Metrics       []models.Metric       `json:"metrics"`
	Winners       []models.WagerOutcome `json:"winners"`
	Losers        []models.WagerOutcome `json:"losers"`
	WorstMessages []WorstMessage        `json:"worst_messages"`
	EventCount    int                   `json:"event_count"`
}

type SettlementOptions struct {
	PersistMetrics  bool
	ResetWagers     bool
	Odds            int64
	PeriodLength    time.Duration
	StartingBalance int64
	WorstMessages   int
}

type SettlementService struct {
	store      SettlementStore
	locker     PeriodLocker
	publisher  ReportPublisher
	audit      *audit.Logger
	aggregator *MetricsAggregator
	ranker     *SuperlativeRanker
	resolver   *WagerResolver
	engine     *LedgerEngine
	opts       SettlementOptions
	now        func() time.Time
}

func NewSettlementService(store SettlementStore, locker PeriodLocker, publisher ReportPublisher, auditLogger *audit.Logger, opts SettlementOptions) *SettlementService {
	if opts.PeriodLength <= 0 {
		opts.PeriodLength = 7 * 24 * time.Hour
	}
	if opts.StartingBalance <= 0 {
		opts.StartingBalance = models.DefaultStartingBalance
	}
	if opts.WorstMessages <= 0 {
		opts.WorstMessages = 10
	}
	if auditLogger == nil {
		auditLogger = audit.NewLogger(nil)
	}
	return &SettlementService{
		store:      store,
		locker:     locker,
		publisher:  publisher,
		audit:      auditLogger,
		aggregator: NewMetricsAggregator(),
		ranker:     NewSuperlativeRanker(),
		resolver:   NewWagerResolver(),
		engine:     NewLedgerEngine(opts.Odds),
		opts:       opts,
		now:        time.Now,
	}
}

// Run settles the period ending now. Any failure aborts the run before a
// report is published.
func (s *SettlementService) Run(ctx context.Context) (*Report, error) {
	started := s.now()
	runID := uuid.New()
	period := models.PeriodEndingAt(started, s.opts.PeriodLength)

	report, err := s.run(ctx, runID, period)
	metrics.SettlementDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.SettlementRunsTotal.WithLabelValues(runResult(err)).Inc()
		s.audit.LogError(runID.String(), err)
		return nil, err
	}

	if report.Empty {
		metrics.SettlementRunsTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.SettlementRunsTotal.WithLabelValues("success").Inc()
	}
	return report, nil
}

func (s *SettlementService) run(ctx context.Context, runID uuid.UUID, period models.Period) (*Report, error) {
	key := period.Key()
	log := slog.With("run_id", runID.String(), "period", key)
	auditID := runID.String()

	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", key, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("[SETTLEMENT] failed to release period lock", "error", err)
		}
	}()

	messages, err := s.store.FetchMessages(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	participants := RegistrationOrder(messages)
	if len(participants) > 0 {
		if err := s.store.EnsureAccounts(ctx, participants, s.opts.StartingBalance); err != nil {
			return nil, fmt.Errorf("ensure accounts: %w", err)
		}
	}

	periodMetrics := s.aggregator.Aggregate(period, participants, messages)
	log.Info("[SETTLEMENT] aggregated metrics", "messages", len(messages), "participants", periodMetrics.Len())

	edits, err := s.store.FetchEditCounts(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("fetch edits: %w", err)
	}

	wagers, err := s.store.FetchWagers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch wagers: %w", err)
	}

	accounts, err := s.store.FetchAccounts(ctx, accountRefs(participants, wagers))
	if err != nil {
		return nil, fmt.Errorf("fetch accounts: %w", err)
	}

	report := &Report{RunID: runID, PeriodKey: key, Period: period}

	ranked, ok := s.ranker.Rank(periodMetrics, accounts, edits)
	if !ok {
		// Without a lowest scorer no wager can be resolved; they stay open.
		log.Info("[SETTLEMENT] no activity this period, nothing to settle", "open_wagers", len(wagers))
		report.Empty = true
		return report, nil
	}

	resolution := s.resolver.Resolve(wagers, ranked.Lowest.Account)
	for _, skipped := range resolution.Skipped {
		metrics.RejectedRecordsTotal.WithLabelValues("wager").Inc()
		s.audit.LogSkipped(auditID, "wager "+skipped.Record.ID, skipped.Err)
	}

	settlement := s.engine.Settle(accounts, periodMetrics, resolution)
	for _, rejected := range settlement.Rejected {
		metrics.RejectedRecordsTotal.WithLabelValues("ledger").Inc()
		s.audit.LogSkipped(auditID, "ledger", rejected)
	}

	if settlement.Batch.Empty() {
		log.Info("[SETTLEMENT] empty batch, nothing to write")
		report.Empty = true
		return report, nil
	}

	commit := models.SettlementCommit{
		RunID:     runID,
		PeriodKey: key,
		Period:    period,
		Batch:     settlement.Batch,
	}
	if s.opts.PersistMetrics {
		commit.Metrics = periodMetrics.Values()
	}
	if s.opts.ResetWagers {
		commit.WagerIDs = wagerIDs(wagers)
	}

	if err := s.store.CommitSettlement(ctx, commit); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}

	metrics.FloorClampsTotal.Add(float64(len(settlement.Clamped)))
	for _, ev := range settlement.Batch.Events {
		metrics.LedgerEventsTotal.WithLabelValues(string(ev.Type)).Inc()
		s.audit.LogTransfer(auditID, ev)
	}

	log.Info("[SETTLEMENT] committed",
		"account_updates", len(settlement.Batch.AccountUpdates),
		"events", len(settlement.Batch.Events),
		"winners", len(resolution.Winners),
		"losers", len(resolution.Losers),
		"clamped", len(settlement.Clamped),
	)

	report.Superlatives = ranked
	report.Metrics = periodMetrics.Values()
	report.Winners = resolution.Winners
	report.Losers = resolution.Losers
	report.WorstMessages = s.ranker.WorstMessages(messages, accounts, s.opts.WorstMessages)
	report.EventCount = len(settlement.Batch.Events)

	if err := s.publisher.Publish(ctx, report); err != nil {
		return nil, fmt.Errorf("publish report: %w", err)
	}

	return report, nil
}

func accountRefs(participants []models.AccountRef, wagers []models.WagerRecord) []models.AccountRef {
	seen := make(map[models.AccountRef]bool, len(participants))
	refs := make([]models.AccountRef, 0, len(participants)+len(wagers))
	for _, p := range participants {
		seen[p] = true
		refs = append(refs, p)
	}
	for _, w := range wagers {
		bettor, err := models.ParseAccountRef(w.Bettor)
		if err != nil || !bettor.IsParticipant() || seen[bettor] {
			continue
		}
		seen[bettor] = true
		refs = append(refs, bettor)
	}
	return refs
}

func wagerIDs(wagers []models.WagerRecord) []string {
	ids := make([]string, 0, len(wagers))
	for _, w := range wagers {
		if w.ID != "" {
			ids = append(ids, w.ID)
		}
	}
	return ids
}

func runResult(err error) string {
	switch {
	case errors.Is(err, models.ErrPeriodAlreadySettled):
		return "already_settled"
	case errors.Is(err, models.ErrPeriodLocked):
		return "locked"
	default:
		return "error"
	}
}
