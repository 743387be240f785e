package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vandelay/guacbot/internal/metrics"
	"github.com/vandelay/guacbot/internal/models"
)

type WagerStore interface {
	// PlaceWager deducts the stake from the bettor and records the bet in
	// one transaction, returning the bettor's updated account.
	PlaceWager(ctx context.Context, w models.Wager) (models.Account, error)
}

type WagerService struct {
	store WagerStore
	now   func() time.Time
}

func NewWagerService(store WagerStore) *WagerService {
	return &WagerService{store: store, now: time.Now}
}

// PlaceWager validates and records a bet that target will have the lowest
// sentiment at the next settlement.
func (s *WagerService) PlaceWager(ctx context.Context, bettor, target string, amount int64) (models.Wager, models.Account, error) {
	w, err := models.ParseWager(models.WagerRecord{
		ID:       uuid.NewString(),
		Bettor:   bettor,
		Target:   target,
		Wager:    float64(amount),
		PlacedAt: s.now(),
	})
	if err != nil {
		return models.Wager{}, models.Account{}, err
	}

	acct, err := s.store.PlaceWager(ctx, w)
	if err != nil {
		return models.Wager{}, models.Account{}, fmt.Errorf("place wager %s: %w", w.ID, err)
	}

	metrics.WagersPlacedTotal.Inc()
	slog.Info("[WAGER] placed", "wager_id", w.ID, "bettor", w.Bettor.ID(), "target", w.Target.ID(), "amount", w.Amount)
	return w, acct, nil
}
