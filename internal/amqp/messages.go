package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// EventKind names the mutation a TransactionEvent reports.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// TransactionEvent is a lightweight notification that an owner's transactions changed.
// It carries identifiers only; consumers reload what they need from the store.
type TransactionEvent struct {
	Kind          EventKind `json:"kind"`
	Owner         string    `json:"owner"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

var errInvalidEvent = errors.New("invalid transaction event")

// NewTransactionEvent creates an event stamped with the current time.
func NewTransactionEvent(kind EventKind, owner, transactionID string) *TransactionEvent {
	return &TransactionEvent{
		Kind:          kind,
		Owner:         owner,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Owner == "" {
		return nil, errInvalidEvent
	}
	switch ev.Kind {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, errInvalidEvent
	}
	return &ev, nil
}
