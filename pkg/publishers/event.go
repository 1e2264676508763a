package publishers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-debts-client/pkg/obligations"
)

// Event types emitted after a successful mutation.
const (
	EventDebtCreated = "debt.created"
	EventDebtUpdated = "debt.updated"
	EventDebtRemoved = "debt.removed"
)

// Event represents the payload published downstream.
type Event struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	DebtID     string                  `json:"debt_id,omitempty"`
	Debt       *obligations.Obligation `json:"debt,omitempty"`
	OccurredAt time.Time               `json:"occurred_at"`
}

// NewEvent constructs an Event for a mutation of the debt identified by id.
// debt may be nil (removals carry only the id).
func NewEvent(typ string, id obligations.ID, debt *obligations.Obligation) Event {
	evt := Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Debt:       debt,
		OccurredAt: time.Now().UTC(),
	}
	if !id.IsZero() {
		evt.DebtID = id.String()
	} else if debt != nil && !debt.Identifier().IsZero() {
		evt.DebtID = debt.Identifier().String()
	}
	return evt
}

// attributes returns the routing attributes every sink attaches to a message.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{"event_type": e.Type}
	if e.DebtID != "" {
		attrs["debt_id"] = e.DebtID
	}
	return attrs
}
