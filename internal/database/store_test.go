package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vandelay/guacbot/internal/models"
)

var storeTime = time.Date(2026, 10, 16, 17, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewPostgresStore(db, 1000)
	store.now = func() time.Time { return storeTime }
	return store, mock
}

func testCommit() models.SettlementCommit {
	ev, _ := models.NewLedgerEvent(models.LedgerEvent{
		To:         models.SentimentPool,
		From:       models.Participant("U1"),
		Amount:     3,
		Type:       models.EventSentiment,
		OccurredAt: storeTime,
	})
	return models.SettlementCommit{
		RunID:     uuid.MustParse("0b7a4c3e-3f6e-4f3b-9a51-2f1c8f0c9d11"),
		PeriodKey: "2026-W42",
		Period:    models.PeriodEndingAt(storeTime, 7*24*time.Hour),
		Batch: models.Batch{
			AccountUpdates: []models.AccountUpdate{{Account: models.Participant("U1"), Balance: 97, Version: 4, UpdatedAt: storeTime}},
			Events:         []models.LedgerEvent{ev},
		},
		WagerIDs: []string{"w1", "w2"},
	}
}

func TestPostgresStore_FetchMessages(t *testing.T) {
	store, mock := newTestStore(t)
	period := models.PeriodEndingAt(storeTime, 7*24*time.Hour)

	mock.ExpectQuery("SELECT author, text, sentiment, created_at FROM messages").
		WithArgs(period.Start, period.End).
		WillReturnRows(sqlmock.NewRows([]string{"author", "text", "sentiment", "created_at"}).
			AddRow("U1", "first", -1.5, storeTime.Add(-time.Hour)).
			AddRow("", "orphan", 2.0, storeTime.Add(-time.Minute)).
			AddRow("U2", "second", 3.0, storeTime))

	messages, err := store.FetchMessages(context.Background(), period)
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, models.Participant("U1"), messages[0].Author)
	assert.Equal(t, -1.5, messages[0].Sentiment)
	assert.Equal(t, models.Participant("U2"), messages[1].Author)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FetchAccounts(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT id, display_name, balance, given_total, received_total, version, updated_at FROM accounts WHERE id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "balance", "given_total", "received_total", "version", "updated_at"}).
			AddRow("U1", "Kramer", 100, 0, 0, 2, storeTime).
			AddRow("U2", "", -5, 0, 0, 1, storeTime))

	accounts, err := store.FetchAccounts(context.Background(), []models.AccountRef{models.Participant("U1"), models.Participant("U2")})
	require.NoError(t, err)

	require.Len(t, accounts, 1, "negative balance row is skipped")
	assert.Equal(t, "Kramer", accounts[models.Participant("U1")].DisplayName)
	assert.Equal(t, 2, accounts[models.Participant("U1")].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FetchEditCountsAndWagers(t *testing.T) {
	store, mock := newTestStore(t)
	period := models.PeriodEndingAt(storeTime, 7*24*time.Hour)

	mock.ExpectQuery("SELECT author, COUNT\\(\\*\\) FROM edits").
		WithArgs(period.Start, period.End).
		WillReturnRows(sqlmock.NewRows([]string{"author", "count"}).AddRow("U1", 4))
	mock.ExpectQuery("SELECT id, bettor, target, wager, placed_at FROM bets").
		WillReturnRows(sqlmock.NewRows([]string{"id", "bettor", "target", "wager", "placed_at"}).
			AddRow("w1", "U2", "U1", 2.5, storeTime))

	edits, err := store.FetchEditCounts(context.Background(), period)
	require.NoError(t, err)
	assert.Equal(t, 4, edits[models.Participant("U1")])

	wagers, err := store.FetchWagers(context.Background())
	require.NoError(t, err)
	require.Len(t, wagers, 1)
	assert.Equal(t, 2.5, wagers[0].Wager)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureAccounts(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("INSERT INTO accounts \\(id, balance, updated_at\\) SELECT unnest").
		WithArgs(sqlmock.AnyArg(), int64(1000), storeTime).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := store.EnsureAccounts(context.Background(), []models.AccountRef{models.Participant("U1"), models.Participant("U2")}, 1000)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitSettlement(t *testing.T) {
	t.Run("applies the whole batch in one transaction", func(t *testing.T) {
		store, mock := newTestStore(t)
		commit := testCommit()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO settlement_runs").
			WithArgs("2026-W42", sqlmock.AnyArg(), commit.Period.Start, commit.Period.End, storeTime).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts SET balance = \\$1, version = version \\+ 1").
			WithArgs(int64(97), storeTime, "U1", 4).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO guac_events").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "sentiment", "U1", int64(3), "sentiment", storeTime, storeTime).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM bets WHERE id = ANY").
			WithArgs(sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := store.CommitSettlement(context.Background(), commit)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("persists metrics when present", func(t *testing.T) {
		store, mock := newTestStore(t)
		commit := testCommit()
		commit.Batch = models.Batch{}
		commit.WagerIDs = nil
		commit.Metrics = []models.Metric{{
			Account:      models.Participant("U1"),
			Sentiment:    -3,
			MessageCount: 2,
			PeriodStart:  commit.Period.Start,
			PeriodEnd:    commit.Period.End,
			UpdatedAt:    storeTime,
		}}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO settlement_runs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO meta").
			WithArgs(sqlmock.AnyArg(), "U1", -3.0, 2, 0, 0, commit.Period.Start, commit.Period.End, storeTime).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, store.CommitSettlement(context.Background(), commit))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("period already settled", func(t *testing.T) {
		store, mock := newTestStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO settlement_runs").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.CommitSettlement(context.Background(), testCommit())
		assert.ErrorIs(t, err, models.ErrPeriodAlreadySettled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale account version rolls back", func(t *testing.T) {
		store, mock := newTestStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO settlement_runs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.CommitSettlement(context.Background(), testCommit())
		assert.ErrorIs(t, err, models.ErrOptimisticLock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("event insert failure rolls back", func(t *testing.T) {
		store, mock := newTestStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO settlement_runs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO guac_events").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := store.CommitSettlement(context.Background(), testCommit())
		assert.ErrorContains(t, err, "disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_PlaceWager(t *testing.T) {
	wager := models.Wager{ID: "w9", Bettor: models.Participant("U1"), Target: models.Participant("U2"), Amount: 40}
	lockQuery := "SELECT id, balance, version, updated_at FROM accounts WHERE id = \\$1 FOR UPDATE"

	t.Run("deducts the stake and records the bet", func(t *testing.T) {
		store, mock := newTestStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO accounts").
			WithArgs("U1", int64(1000), storeTime).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(lockQuery).
			WithArgs("U1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).AddRow("U1", 100, 3, storeTime))
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(60), storeTime, "U1", 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO bets").
			WithArgs("w9", "U1", "U2", int64(40), storeTime).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		acct, err := store.PlaceWager(context.Background(), wager)
		require.NoError(t, err)
		assert.Equal(t, int64(60), acct.Balance)
		assert.Equal(t, 4, acct.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		store, mock := newTestStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO accounts").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(lockQuery).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "version", "updated_at"}).AddRow("U1", 10, 3, storeTime))
		mock.ExpectRollback()

		_, err := store.PlaceWager(context.Background(), wager)
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_GetAccount(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT id, display_name, balance").
		WithArgs("U404").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetAccount(context.Background(), models.Participant("U404"))
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListEvents(t *testing.T) {
	store, mock := newTestStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, to_account, from_account, amount, type, occurred_at, recorded_at FROM guac_events").
		WithArgs("U1", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "to_account", "from_account", "amount", "type", "occurred_at", "recorded_at"}).
			AddRow(id.String(), "U1", "sentiment", 100, "won-bet", storeTime, storeTime))

	events, err := store.ListEvents(context.Background(), models.Participant("U1"), 20)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.Equal(t, models.SentimentPool, events[0].From)
	assert.Equal(t, models.EventBetWon, events[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schema {
		mock.ExpectExec("CREATE (TABLE|INDEX) IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	assert.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
