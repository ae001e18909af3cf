// Package notify delivers reminders about manual planned transactions that
// have come due.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// ManualDueEvent announces that a manual planned transaction is waiting for
// the user to record it.
type ManualDueEvent struct {
	Scope      string    `json:"scope"`
	PlannedID  string    `json:"planned_id"`
	Title      string    `json:"title"`
	Amount     string    `json:"amount"`
	IsIncome   bool      `json:"is_income"`
	DueDate    time.Time `json:"due_date"`
	NotifiedAt time.Time `json:"notified_at"`
}

// ToJSON encodes the event for the wire.
func (e ManualDueEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ManualDueEventFromJSON decodes an event published by ToJSON.
func ManualDueEventFromJSON(data []byte) (ManualDueEvent, error) {
	var e ManualDueEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ManualDueEvent{}, err
	}
	return e, nil
}

// Publisher sends manual-due reminders.
type Publisher interface {
	PublishManualDue(ctx context.Context, event ManualDueEvent) error
	Close() error
}

// LogPublisher writes reminders to the log. It is used when no broker is
// configured.
type LogPublisher struct {
	log *zap.SugaredLogger
}

// NewLogPublisher returns a publisher that logs through log.
func NewLogPublisher(log *zap.SugaredLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishManualDue(_ context.Context, event ManualDueEvent) error {
	p.log.Infow("Manual planned transaction due",
		"scope", event.Scope,
		"planned_id", event.PlannedID,
		"title", event.Title,
		"amount", event.Amount,
		"due_date", event.DueDate.Format(time.DateOnly),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
