// Package notify delivers best-effort wallet change events to connected
// clients. Delivery failures are logged and never reach the caller.
package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names what changed in a wallet.
type EventKind string

const (
	TransactionCreated    EventKind = "transaction.created"
	TransactionUpdated    EventKind = "transaction.updated"
	TransactionDeleted    EventKind = "transaction.deleted"
	BudgetUpdated         EventKind = "budget.updated"
	RecurringMaterialized EventKind = "recurring.materialized"
	RecurringRetired      EventKind = "recurring.retired"
)

// Event is the message body published for every wallet change.
type Event struct {
	WalletID   string    `json:"wallet_id"`
	Kind       EventKind `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RoutingKey is the topic key subscribers bind to, e.g. "wallet.<id>.budget.updated".
func (e Event) RoutingKey() string {
	return fmt.Sprintf("wallet.%s.%s", e.WalletID, e.Kind)
}

// ToJSON encodes the event.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event published by ToJSON.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
