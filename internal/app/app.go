// Package app assembles the stores, lock, publisher and settlement service
// shared by the server and the batch command.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/vandelay/guacbot/internal/audit"
	"github.com/vandelay/guacbot/internal/config"
	"github.com/vandelay/guacbot/internal/database"
	"github.com/vandelay/guacbot/internal/publisher"
	"github.com/vandelay/guacbot/internal/services"
)

type App struct {
	DB         *sql.DB
	Redis      *redis.Client
	Store      *database.PostgresStore
	Settlement *services.SettlementService

	closers []func() error
}

func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	db, err := database.InitDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if err := database.Migrate(ctx, db); err != nil {
		a.Close()
		return nil, err
	}

	a.Redis = database.InitRedis(ctx, cfg.Redis)
	if a.Redis != nil {
		a.closers = append(a.closers, a.Redis.Close)
	}

	var reports services.ReportPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := publisher.InitKafka(cfg.Kafka)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init kafka: %w", err)
		}
		kafka := publisher.NewKafkaReportPublisher(producer, cfg.Kafka.ReportTopic)
		a.closers = append(a.closers, kafka.Close)
		reports = kafka
	} else {
		slog.Warn("[KAFKA] no brokers configured, reports will only be logged")
		reports = publisher.NewLogPublisher(nil)
	}

	s := cfg.Settlement
	a.Store = database.NewPostgresStore(db, s.StartingBalance)
	a.Settlement = services.NewSettlementService(
		a.Store,
		database.NewPeriodLock(a.Redis, s.LockTTL),
		reports,
		audit.NewLogger(nil),
		services.SettlementOptions{
			PersistMetrics:  s.PersistMetrics,
			ResetWagers:     s.ResetWagers,
			Odds:            s.Odds,
			PeriodLength:    s.Period,
			StartingBalance: s.StartingBalance,
			WorstMessages:   s.WorstMessages,
		},
	)

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
