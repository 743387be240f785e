package services

import (
	"fmt"
	"math"
	"time"

	"github.com/vandelay/guacbot/internal/models"
)

// DefaultOdds pays winners twice their wager (2:1).
const DefaultOdds int64 = 2

// Settlement is the engine's output. Rejected lists records that failed
// validation; they are left out of the batch without affecting the rest.
type Settlement struct {
	Batch    models.Batch
	Clamped  []models.AccountRef
	Rejected []error
}

// LedgerEngine converts sentiment metrics and wager outcomes into balance
// updates and their audit events.
type LedgerEngine struct {
	odds int64
	now  func() time.Time
}

func NewLedgerEngine(odds int64) *LedgerEngine {
	if odds <= 0 || odds > models.MaxOdds {
		odds = DefaultOdds
	}
	return &LedgerEngine{odds: odds, now: time.Now}
}

// Settle computes one balance update per affected account.
//
// Each account with a metric moves trunc(sentiment) to or from the sentiment
// pool; a debit never takes the balance below zero and the event records the
// amount actually taken. Winners are then paid wager*odds on top of the
// balance already adjusted for sentiment, so both effects compose into a
// single update. Losers only get a lost-bet event: their stake left the
// account when the bet was placed.
func (e *LedgerEngine) Settle(accounts map[models.AccountRef]models.Account, metrics *models.OrderedMap[models.AccountRef, models.Metric], wagers WagerResolution) Settlement {
	var out Settlement
	now := e.now()
	balances := models.NewOrderedMap[models.AccountRef, int64]()

	for ref, m := range metrics.All() {
		acct, ok := accounts[ref]
		if !ok {
			out.Rejected = append(out.Rejected, fmt.Errorf("sentiment for %s: %w", ref, models.ErrAccountNotFound))
			continue
		}

		delta, err := sentimentDelta(m.Sentiment, acct.Balance)
		if err != nil {
			out.Rejected = append(out.Rejected, fmt.Errorf("sentiment for %s: %w", ref, err))
			continue
		}
		prior := acct.Balance
		newBalance := prior + delta

		to, from, amount := ref, models.SentimentPool, delta
		if delta < 0 {
			to, from, amount = models.SentimentPool, ref, -delta
			if newBalance < 0 {
				newBalance = 0
				amount = prior
				out.Clamped = append(out.Clamped, ref)
			}
		}

		ev, err := models.NewLedgerEvent(models.LedgerEvent{
			To:         to,
			From:       from,
			Amount:     amount,
			Type:       models.EventSentiment,
			OccurredAt: now,
		})
		if err != nil {
			out.Rejected = append(out.Rejected, fmt.Errorf("sentiment for %s: %w", ref, err))
			continue
		}

		out.Batch.Events = append(out.Batch.Events, ev)
		balances.Set(ref, newBalance)
	}

	for _, w := range wagers.Winners {
		base, ok := balances.Get(w.Account)
		if !ok {
			acct, found := accounts[w.Account]
			if !found {
				out.Rejected = append(out.Rejected, fmt.Errorf("winnings for %s: %w", w.Account, models.ErrAccountNotFound))
				continue
			}
			base = acct.Balance
		}

		if w.Wager > (math.MaxInt64-base)/e.odds {
			out.Rejected = append(out.Rejected, fmt.Errorf("winnings for %s: %w", w.Account, models.ErrBalanceOverflow))
			continue
		}
		winnings := w.Wager * e.odds
		ev, err := models.NewLedgerEvent(models.LedgerEvent{
			To:         w.Account,
			From:       models.SentimentPool,
			Amount:     winnings,
			Type:       models.EventBetWon,
			OccurredAt: now,
		})
		if err != nil {
			out.Rejected = append(out.Rejected, fmt.Errorf("winnings for %s: %w", w.Account, err))
			continue
		}

		out.Batch.Events = append(out.Batch.Events, ev)
		balances.Set(w.Account, base+winnings)
	}

	for _, l := range wagers.Losers {
		ev, err := models.NewLedgerEvent(models.LedgerEvent{
			To:         models.SentimentPool,
			From:       l.Account,
			Amount:     l.Wager,
			Type:       models.EventBetLost,
			OccurredAt: now,
		})
		if err != nil {
			out.Rejected = append(out.Rejected, fmt.Errorf("lost bet for %s: %w", l.Account, err))
			continue
		}
		out.Batch.Events = append(out.Batch.Events, ev)
	}

	for ref, balance := range balances.All() {
		out.Batch.AccountUpdates = append(out.Batch.AccountUpdates, models.AccountUpdate{
			Account:   ref,
			Balance:   balance,
			Version:   accounts[ref].Version,
			UpdatedAt: now,
		})
	}

	return out
}

// sentimentDelta truncates sentiment toward zero. Credits that would push the
// balance past int64 are refused rather than wrapped.
func sentimentDelta(sentiment float64, balance int64) (int64, error) {
	t := math.Trunc(sentiment)
	// 2^63 is exactly representable; anything at or beyond it cannot convert.
	if t >= math.MaxInt64 || t <= math.MinInt64 {
		return 0, models.ErrBalanceOverflow
	}
	delta := int64(t)
	if delta > 0 && balance > math.MaxInt64-delta {
		return 0, models.ErrBalanceOverflow
	}
	return delta, nil
}
