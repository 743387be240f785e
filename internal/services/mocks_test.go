package services

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vandelay/guacbot/internal/models"
)

type MockSettlementStore struct {
	mock.Mock
}

func (m *MockSettlementStore) FetchMessages(ctx context.Context, period models.Period) ([]models.Message, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockSettlementStore) EnsureAccounts(ctx context.Context, refs []models.AccountRef, startingBalance int64) error {
	args := m.Called(ctx, refs, startingBalance)
	return args.Error(0)
}

func (m *MockSettlementStore) FetchAccounts(ctx context.Context, refs []models.AccountRef) (map[models.AccountRef]models.Account, error) {
	args := m.Called(ctx, refs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.AccountRef]models.Account), args.Error(1)
}

func (m *MockSettlementStore) FetchEditCounts(ctx context.Context, period models.Period) (map[models.AccountRef]int, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.AccountRef]int), args.Error(1)
}

func (m *MockSettlementStore) FetchWagers(ctx context.Context) ([]models.WagerRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WagerRecord), args.Error(1)
}

func (m *MockSettlementStore) CommitSettlement(ctx context.Context, commit models.SettlementCommit) error {
	args := m.Called(ctx, commit)
	return args.Error(0)
}

type MockPeriodLocker struct {
	mock.Mock
	released int
}

func (m *MockPeriodLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	args := m.Called(ctx, key)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func(context.Context) error {
		m.released++
		return nil
	}, nil
}

type MockReportPublisher struct {
	mock.Mock
}

func (m *MockReportPublisher) Publish(ctx context.Context, report *Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

type MockWagerStore struct {
	mock.Mock
}

func (m *MockWagerStore) PlaceWager(ctx context.Context, w models.Wager) (models.Account, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(models.Account), args.Error(1)
}

type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) GetAccount(ctx context.Context, ref models.AccountRef) (models.Account, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(models.Account), args.Error(1)
}

func (m *MockAccountStore) ListEvents(ctx context.Context, ref models.AccountRef, limit int) ([]models.LedgerEvent, error) {
	args := m.Called(ctx, ref, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LedgerEvent), args.Error(1)
}
