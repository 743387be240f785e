package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/vandelay/guacbot/internal/models"
)

// PostgresStore is the settlement, wager and account persistence.
type PostgresStore struct {
	db              *sql.DB
	startingBalance int64
	now             func() time.Time
}

func NewPostgresStore(db *sql.DB, startingBalance int64) *PostgresStore {
	if startingBalance <= 0 {
		startingBalance = models.DefaultStartingBalance
	}
	return &PostgresStore{db: db, startingBalance: startingBalance, now: time.Now}
}

// FetchMessages returns the period's messages oldest first.
func (s *PostgresStore) FetchMessages(ctx context.Context, period models.Period) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT author, text, sentiment, created_at
		FROM messages
		WHERE created_at > $1 AND created_at <= $2
		ORDER BY created_at ASC, id ASC`,
		period.Start, period.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var author string
		var m models.Message
		if err := rows.Scan(&author, &m.Text, &m.Sentiment, &m.Timestamp); err != nil {
			return nil, err
		}
		ref, err := models.ParseAccountRef(author)
		if err != nil {
			slog.Warn("[STORE] skipping message with invalid author", "error", err)
			continue
		}
		m.Author = ref
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// EnsureAccounts creates missing accounts with the starting balance.
func (s *PostgresStore) EnsureAccounts(ctx context.Context, refs []models.AccountRef, startingBalance int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, balance, updated_at)
		SELECT unnest($1::text[]), $2, $3
		ON CONFLICT (id) DO NOTHING`,
		pq.Array(refIDs(refs)), startingBalance, s.now())
	return err
}

func (s *PostgresStore) FetchAccounts(ctx context.Context, refs []models.AccountRef) (map[models.AccountRef]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, balance, given_total, received_total, version, updated_at
		FROM accounts
		WHERE id = ANY($1)`,
		pq.Array(refIDs(refs)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make(map[models.AccountRef]models.Account, len(refs))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		valid, err := models.NewAccount(a)
		if err != nil {
			slog.Warn("[STORE] skipping invalid account", "account", a.ID.ID(), "error", err)
			continue
		}
		accounts[valid.ID] = valid
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) FetchEditCounts(ctx context.Context, period models.Period) (map[models.AccountRef]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT author, COUNT(*)
		FROM edits
		WHERE created_at > $1 AND created_at <= $2
		GROUP BY author`,
		period.Start, period.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edits := make(map[models.AccountRef]int)
	for rows.Next() {
		var ref models.AccountRef
		var count int
		if err := rows.Scan(&ref, &count); err != nil {
			return nil, err
		}
		edits[ref] = count
	}
	return edits, rows.Err()
}

// FetchWagers returns every open bet as stored. Validation happens at
// resolution so one bad row cannot block the rest.
func (s *PostgresStore) FetchWagers(ctx context.Context) ([]models.WagerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bettor, target, wager, placed_at
		FROM bets
		ORDER BY placed_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wagers []models.WagerRecord
	for rows.Next() {
		var w models.WagerRecord
		if err := rows.Scan(&w.ID, &w.Bettor, &w.Target, &w.Wager, &w.PlacedAt); err != nil {
			return nil, err
		}
		wagers = append(wagers, w)
	}
	return wagers, rows.Err()
}

// CommitSettlement applies a settlement run in one transaction. The period
// key is claimed first; a second run for the same period gets
// models.ErrPeriodAlreadySettled and nothing is written.
func (s *PostgresStore) CommitSettlement(ctx context.Context, commit models.SettlementCommit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.claimPeriod(ctx, tx, commit); err != nil {
		return err
	}

	for _, u := range commit.Batch.AccountUpdates {
		if err := s.updateAccountBalance(ctx, tx, u.Account.ID(), u.Balance, u.Version); err != nil {
			return err
		}
	}

	for _, ev := range commit.Batch.Events {
		if err := s.createLedgerEvent(ctx, tx, commit, ev); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}

	for _, m := range commit.Metrics {
		if err := s.createMetric(ctx, tx, commit, m); err != nil {
			return fmt.Errorf("insert metric for %s: %w", m.Account, err)
		}
	}

	if len(commit.WagerIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bets WHERE id = ANY($1)`, pq.Array(commit.WagerIDs)); err != nil {
			return fmt.Errorf("reset wagers: %w", err)
		}
	}

	return tx.Commit()
}

// PlaceWager deducts the stake from the bettor and records the bet. The
// bettor's account is created with the starting balance on first use.
func (s *PostgresStore) PlaceWager(ctx context.Context, w models.Wager) (models.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Account{}, err
	}
	defer tx.Rollback()

	now := s.now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, balance, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`,
		w.Bettor.ID(), s.startingBalance, now); err != nil {
		return models.Account{}, err
	}

	acct, err := s.lockAccount(ctx, tx, w.Bettor.ID())
	if err != nil {
		return models.Account{}, err
	}

	if acct.Balance < w.Amount {
		return models.Account{}, models.ErrInsufficientBalance
	}

	if err := s.updateAccountBalance(ctx, tx, acct.ID.ID(), acct.Balance-w.Amount, acct.Version); err != nil {
		return models.Account{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bets (id, bettor, target, wager, placed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		w.ID, w.Bettor.ID(), w.Target.ID(), w.Amount, now); err != nil {
		return models.Account{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Account{}, err
	}

	acct.Balance -= w.Amount
	acct.Version++
	acct.UpdatedAt = now
	return acct, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, ref models.AccountRef) (models.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, balance, given_total, received_total, version, updated_at
		FROM accounts
		WHERE id = $1`,
		ref.ID())
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, models.ErrAccountNotFound
	}
	return acct, err
}

// ListEvents returns the most recent events to or from the account.
func (s *PostgresStore) ListEvents(ctx context.Context, ref models.AccountRef, limit int) ([]models.LedgerEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, to_account, from_account, amount, type, occurred_at, recorded_at
		FROM guac_events
		WHERE to_account = $1 OR from_account = $1
		ORDER BY occurred_at DESC, recorded_at DESC
		LIMIT $2`,
		ref.ID(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.LedgerEvent{}
	for rows.Next() {
		var ev models.LedgerEvent
		if err := rows.Scan(&ev.ID, &ev.To, &ev.From, &ev.Amount, &ev.Type, &ev.OccurredAt, &ev.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *PostgresStore) claimPeriod(ctx context.Context, tx *sql.Tx, commit models.SettlementCommit) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO settlement_runs (period_key, run_id, period_start, period_end, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (period_key) DO NOTHING`,
		commit.PeriodKey, commit.RunID, commit.Period.Start, commit.Period.End, s.now())
	if err != nil {
		return fmt.Errorf("claim period %s: %w", commit.PeriodKey, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.ErrPeriodAlreadySettled
	}
	return nil
}

func (s *PostgresStore) lockAccount(ctx context.Context, tx *sql.Tx, accountID string) (models.Account, error) {
	var account models.Account
	err := tx.QueryRowContext(ctx, `
		SELECT id, balance, version, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, accountID).Scan(&account.ID, &account.Balance, &account.Version, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, models.ErrAccountNotFound
	}
	return account, err
}

func (s *PostgresStore) updateAccountBalance(ctx context.Context, tx *sql.Tx, accountID string, newBalance int64, version int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance, s.now(), accountID, version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("account %s: %w", accountID, models.ErrOptimisticLock)
	}

	return nil
}

func (s *PostgresStore) createLedgerEvent(ctx context.Context, tx *sql.Tx, commit models.SettlementCommit, ev models.LedgerEvent) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO guac_events (id, run_id, to_account, from_account, amount, type, occurred_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, commit.RunID, ev.To.ID(), ev.From.ID(), ev.Amount, string(ev.Type), ev.OccurredAt, ev.RecordedAt)
	return err
}

func (s *PostgresStore) createMetric(ctx context.Context, tx *sql.Tx, commit models.SettlementCommit, m models.Metric) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO meta (run_id, account, sentiment, message_count, mentions_made, mentions_received, period_start, period_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		commit.RunID, m.Account.ID(), m.Sentiment, m.MessageCount, m.MentionsMade, m.MentionsReceived, m.PeriodStart, m.PeriodEnd, m.UpdatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.DisplayName, &a.Balance, &a.GivenTotal, &a.ReceivedTotal, &a.Version, &a.UpdatedAt)
	return a, err
}

func refIDs(refs []models.AccountRef) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID())
	}
	return ids
}
