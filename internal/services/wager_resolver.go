package services

import "github.com/vandelay/guacbot/internal/models"

// SkippedWager is a stored bet that failed validation and was left out of
// settlement. Skipping is lenient filtering, not a batch failure.
type SkippedWager struct {
	Record models.WagerRecord
	Err    error
}

type WagerResolution struct {
	Winners []models.WagerOutcome
	Losers  []models.WagerOutcome
	Skipped []SkippedWager
}

// WagerResolver splits wagers into winners, who named the period's lowest
// sentiment account, and losers.
type WagerResolver struct{}

func NewWagerResolver() *WagerResolver {
	return &WagerResolver{}
}

func (r *WagerResolver) Resolve(records []models.WagerRecord, lowest models.AccountRef) WagerResolution {
	var res WagerResolution
	for _, rec := range records {
		w, err := models.ParseWager(rec)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedWager{Record: rec, Err: err})
			continue
		}

		outcome := models.WagerOutcome{WagerID: w.ID, Account: w.Bettor, Wager: w.Amount}
		if w.Target == lowest {
			res.Winners = append(res.Winners, outcome)
		} else {
			res.Losers = append(res.Losers, outcome)
		}
	}
	return res
}
