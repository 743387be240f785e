package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		balance BIGINT NOT NULL CHECK (balance >= 0),
		given_total BIGINT NOT NULL DEFAULT 0,
		received_total BIGINT NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		author TEXT NOT NULL,
		text TEXT NOT NULL,
		sentiment DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS messages_created_at_idx ON messages (created_at)`,
	`CREATE TABLE IF NOT EXISTS edits (
		id BIGSERIAL PRIMARY KEY,
		author TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bets (
		id TEXT PRIMARY KEY,
		bettor TEXT NOT NULL,
		target TEXT NOT NULL,
		wager DOUBLE PRECISION NOT NULL,
		placed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS settlement_runs (
		period_key TEXT PRIMARY KEY,
		run_id UUID NOT NULL,
		period_start TIMESTAMPTZ NOT NULL,
		period_end TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS guac_events (
		id UUID PRIMARY KEY,
		run_id UUID,
		to_account TEXT NOT NULL,
		from_account TEXT NOT NULL,
		amount BIGINT NOT NULL CHECK (amount >= 0),
		type TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS guac_events_to_idx ON guac_events (to_account, occurred_at DESC)`,
	`CREATE INDEX IF NOT EXISTS guac_events_from_idx ON guac_events (from_account, occurred_at DESC)`,
	`CREATE TABLE IF NOT EXISTS meta (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		account TEXT NOT NULL,
		sentiment DOUBLE PRECISION NOT NULL,
		message_count INTEGER NOT NULL,
		mentions_made INTEGER NOT NULL,
		mentions_received INTEGER NOT NULL,
		period_start TIMESTAMPTZ NOT NULL,
		period_end TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates any missing tables. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
