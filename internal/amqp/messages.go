package amqp

import (
	"encoding/json"
	"time"
)

// Event types published to the budget exchange.
const (
	EventTransactionCreated   = "transaction.created"
	EventTransactionsImported = "transactions.imported"
	EventCategoryCreated      = "category.created"
)

// Event is a lightweight notification; consumers fetch details themselves.
type Event struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType, userID string, count int) *Event {
	return &Event{
		Type:      eventType,
		UserID:    userID,
		Count:     count,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
