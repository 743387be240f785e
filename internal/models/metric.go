package models

import (
	"math"
	"time"
)

// Metric summarises one participant's activity over a settlement period.
type Metric struct {
	Account          AccountRef `json:"account" db:"account_id" validate:"required"`
	Sentiment        float64    `json:"sentiment" db:"sentiment"`
	MessageCount     int        `json:"msg_count" db:"msg_count" validate:"gte=1"`
	MentionsMade     int        `json:"mentions" db:"mentions" validate:"gte=0"`   // name-drops by this account
	MentionsReceived int        `json:"mentioned" db:"mentioned" validate:"gte=0"` // times this account was mentioned
	PeriodStart      time.Time  `json:"start" db:"period_start" validate:"required"`
	PeriodEnd        time.Time  `json:"end" db:"period_end" validate:"required,gtefield=PeriodStart"`
	UpdatedAt        time.Time  `json:"updated" db:"updated_at" validate:"required"`
}

func NewMetric(m Metric) (Metric, error) {
	if math.IsNaN(m.Sentiment) || math.IsInf(m.Sentiment, 0) {
		return Metric{}, newValidationError("metric", "Sentiment", "must be a finite number")
	}
	if err := validateEntity("metric", m); err != nil {
		return Metric{}, err
	}
	return m, nil
}
