package services

import (
	"log/slog"
	"math"
	"regexp"
	"time"

	"github.com/vandelay/guacbot/internal/models"
)

// mentionPattern matches chat mentions such as "<@UDX7DNWN6>" and captures the id.
var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)>`)

type tally struct {
	sentimentSum     float64
	messageCount     int
	mentionsMade     int
	mentionsReceived int
}

// MetricsAggregator folds a period's messages into one Metric per participant.
type MetricsAggregator struct {
	now func() time.Time
}

func NewMetricsAggregator() *MetricsAggregator {
	return &MetricsAggregator{now: time.Now}
}

// Aggregate returns metrics keyed by account in participant registration
// order. Participants without messages are left out, as are messages whose
// author is not a registered participant or whose score is not finite.
func (a *MetricsAggregator) Aggregate(period models.Period, participants []models.AccountRef, messages []models.Message) *models.OrderedMap[models.AccountRef, models.Metric] {
	tallies := models.NewOrderedMap[models.AccountRef, *tally]()
	for _, p := range participants {
		if !tallies.Has(p) {
			tallies.Set(p, &tally{})
		}
	}

	for _, msg := range messages {
		author, ok := tallies.Get(msg.Author)
		if !ok {
			slog.Debug("[METRICS] skipping message from unregistered author", "author", msg.Author.ID())
			continue
		}
		if math.IsNaN(msg.Sentiment) || math.IsInf(msg.Sentiment, 0) {
			slog.Warn("[METRICS] skipping message with non-finite sentiment", "author", msg.Author.ID())
			continue
		}

		for _, match := range mentionPattern.FindAllStringSubmatch(msg.Text, -1) {
			if mentioned, ok := tallies.Get(models.Participant(match[1])); ok {
				mentioned.mentionsReceived++
				author.mentionsMade++
			}
		}

		author.sentimentSum += msg.Sentiment
		author.messageCount++
	}

	updated := a.now()
	metrics := models.NewOrderedMap[models.AccountRef, models.Metric]()
	for ref, t := range tallies.All() {
		if t.messageCount == 0 {
			continue
		}

		m, err := models.NewMetric(models.Metric{
			Account:          ref,
			Sentiment:        t.sentimentSum / float64(t.messageCount),
			MessageCount:     t.messageCount,
			MentionsMade:     t.mentionsMade,
			MentionsReceived: t.mentionsReceived,
			PeriodStart:      period.Start,
			PeriodEnd:        period.End,
			UpdatedAt:        updated,
		})
		if err != nil {
			slog.Warn("[METRICS] dropping invalid metric", "account", ref.ID(), "error", err)
			continue
		}
		metrics.Set(ref, m)
	}

	return metrics
}

// RegistrationOrder lists message authors in order of first appearance.
func RegistrationOrder(messages []models.Message) []models.AccountRef {
	seen := make(map[models.AccountRef]bool)
	var order []models.AccountRef
	for _, msg := range messages {
		if !msg.Author.IsParticipant() || seen[msg.Author] {
			continue
		}
		seen[msg.Author] = true
		order = append(order, msg.Author)
	}
	return order
}
