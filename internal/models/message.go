package models

import "time"

// Message is one scored chat message from the settlement period.
type Message struct {
	Author    AccountRef `json:"author" db:"author"`
	Text      string     `json:"text" db:"text"`
	Sentiment float64    `json:"sentiment" db:"sentiment"`
	Timestamp time.Time  `json:"timestamp" db:"created_at"`
}
