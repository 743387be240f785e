package services

import (
	"sort"

	"github.com/vandelay/guacbot/internal/models"
)

// Superlative is the single account holding an extremal value for the period.
type Superlative struct {
	Account     models.AccountRef `json:"account"`
	DisplayName string            `json:"display_name"`
	Value       float64           `json:"value"`
}

type Superlatives struct {
	Lowest        Superlative `json:"lowest"`
	Highest       Superlative `json:"highest"`
	MostMentioned Superlative `json:"most_mentioned"`
	NameDropper   Superlative `json:"name_dropper"`
	// MostEdits ranks integer-truncated edits per message.
	MostEdits Superlative `json:"most_edits"`
}

// WorstMessage is one of the period's lowest scored messages.
type WorstMessage struct {
	Author      models.AccountRef `json:"author"`
	DisplayName string            `json:"display_name"`
	Text        string            `json:"text"`
	Sentiment   float64           `json:"sentiment"`
}

// SuperlativeRanker finds the extremal accounts of a metric set. Candidates
// are visited in registration order and only a strictly better value replaces
// the running best, so the first registered account wins ties.
type SuperlativeRanker struct{}

func NewSuperlativeRanker() *SuperlativeRanker {
	return &SuperlativeRanker{}
}

// Rank returns false when there are no metrics to rank.
func (r *SuperlativeRanker) Rank(metrics *models.OrderedMap[models.AccountRef, models.Metric], accounts map[models.AccountRef]models.Account, edits map[models.AccountRef]int) (Superlatives, bool) {
	if metrics.Len() == 0 {
		return Superlatives{}, false
	}

	lower := func(a, b float64) bool { return a < b }
	higher := func(a, b float64) bool { return a > b }

	pick := func(score func(models.Metric) float64, better func(a, b float64) bool) Superlative {
		var best Superlative
		found := false
		for ref, m := range metrics.All() {
			v := score(m)
			if !found || better(v, best.Value) {
				best = Superlative{Account: ref, DisplayName: displayName(accounts, ref), Value: v}
				found = true
			}
		}
		return best
	}

	return Superlatives{
		Lowest:        pick(func(m models.Metric) float64 { return m.Sentiment }, lower),
		Highest:       pick(func(m models.Metric) float64 { return m.Sentiment }, higher),
		MostMentioned: pick(func(m models.Metric) float64 { return float64(m.MentionsReceived) }, higher),
		NameDropper:   pick(func(m models.Metric) float64 { return float64(m.MentionsMade) }, higher),
		MostEdits: pick(func(m models.Metric) float64 {
			return float64(edits[m.Account] / m.MessageCount)
		}, higher),
	}, true
}

// WorstMessages returns up to n messages with the lowest sentiment, ascending.
// Equal scores keep their original order.
func (r *SuperlativeRanker) WorstMessages(messages []models.Message, accounts map[models.AccountRef]models.Account, n int) []WorstMessage {
	sorted := make([]models.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sentiment < sorted[j].Sentiment })

	if n < len(sorted) {
		sorted = sorted[:n]
	}

	worst := make([]WorstMessage, 0, len(sorted))
	for _, msg := range sorted {
		worst = append(worst, WorstMessage{
			Author:      msg.Author,
			DisplayName: displayName(accounts, msg.Author),
			Text:        msg.Text,
			Sentiment:   msg.Sentiment,
		})
	}
	return worst
}

func displayName(accounts map[models.AccountRef]models.Account, ref models.AccountRef) string {
	if acct, ok := accounts[ref]; ok {
		return acct.Name()
	}
	return ref.ID()
}
