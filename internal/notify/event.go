// Package notify fans editor changes out to subscribers: a structured log
// and, when configured, a NATS subject.
package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/condexpr/internal/editor"
)

// EventType names what happened.
type EventType string

const ExpressionChanged EventType = "expression.changed"

// Event is the payload published for a change. Conditions are not carried;
// subscribers that need them parse Expression. Seq orders the events of one
// session; a consumer may drop an event whose Seq is not above the last one
// it applied.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	SessionID      string    `json:"session_id,omitempty"`
	Seq            uint64    `json:"seq"`
	Entity         string    `json:"entity"`
	Expression     string    `json:"expression"`
	ConditionCount int       `json:"condition_count"`
	Raw            bool      `json:"raw"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// FromChange builds an ExpressionChanged event for a session's change.
func FromChange(sessionID string, c editor.Change) Event {
	raw := false
	for _, cond := range c.Conditions {
		if cond.Raw {
			raw = true
			break
		}
	}
	return Event{
		ID:             uuid.NewString(),
		Type:           ExpressionChanged,
		SessionID:      sessionID,
		Seq:            c.Seq,
		Entity:         c.Entity,
		Expression:     c.Expression,
		ConditionCount: len(c.Conditions),
		Raw:            raw,
		OccurredAt:     time.Now().UTC(),
	}
}
