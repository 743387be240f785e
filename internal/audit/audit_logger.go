package audit

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/vandelay/guacbot/internal/models"
)

type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	RunID     string    `json:"run_id"`
	AccountID string    `json:"account_id,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Status    string    `json:"status"`
	Details   any       `json:"details,omitempty"`
}

// Logger writes one AUDIT line per ledger transfer, skipped record or failed run.
type Logger struct {
	log *slog.Logger
	now func() time.Time
}

func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{log: l, now: time.Now}
}

func (a *Logger) LogTransfer(runID string, ev models.LedgerEvent) {
	a.write(AuditEvent{
		EventType: "TRANSFER",
		RunID:     runID,
		AccountID: ev.From.ID(),
		Amount:    ev.Amount,
		Status:    "SUCCESS",
		Details: map[string]string{
			"event_id":     ev.ID.String(),
			"type":         string(ev.Type),
			"from_account": ev.From.ID(),
			"to_account":   ev.To.ID(),
		},
	})
}

func (a *Logger) LogSkipped(runID, record string, err error) {
	a.write(AuditEvent{
		EventType: "SKIPPED",
		RunID:     runID,
		Status:    "SKIPPED",
		Details:   map[string]string{"record": record, "reason": err.Error()},
	})
}

func (a *Logger) LogError(runID string, err error) {
	a.write(AuditEvent{
		EventType: "ERROR",
		RunID:     runID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *Logger) write(event AuditEvent) {
	event.Timestamp = a.now()
	data, err := json.Marshal(event)
	if err != nil {
		a.log.Error("AUDIT marshal failed", "error", err)
		return
	}
	a.log.Info("AUDIT", "event", string(data))
}
