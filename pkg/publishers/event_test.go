package publishers

import (
	"testing"

	"github.com/samvad-hq/samvad-debts-client/pkg/obligations"
)

func TestNewEventDebtID(t *testing.T) {
	removed := NewEvent(EventDebtRemoved, obligations.StringID("abc"), nil)
	if removed.DebtID != "abc" || removed.Debt != nil || removed.ID == "" {
		t.Fatalf("unexpected removal event: %#v", removed)
	}

	created := createdEvent()
	if created.DebtID != "7" {
		t.Fatalf("expected id taken from debt, got %q", created.DebtID)
	}
	if created.ID == removed.ID {
		t.Fatalf("event ids must be unique")
	}

	anon := NewEvent(EventDebtCreated, obligations.ID{}, &obligations.Obligation{})
	if _, ok := anon.attributes()["debt_id"]; ok {
		t.Fatalf("debt_id attribute should be omitted without an id")
	}
}
