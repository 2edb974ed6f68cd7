package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntryEventMessage represents a lightweight message describing a change to an entry.
// It carries only identifiers and the affected period, the worker fetches the
// current state from the database when rebuilding the report.
type EntryEventMessage struct {
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	EntryID   uuid.UUID `json:"entry_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntryEventMessage creates a new event message for the given entry and period
func NewEntryEventMessage(userID, action string, entryID uuid.UUID, year, month int) *EntryEventMessage {
	return &EntryEventMessage{
		UserID:    userID,
		Action:    action,
		EntryID:   entryID,
		Year:      year,
		Month:     month,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func EntryEventMessageFromJSON(data []byte) (*EntryEventMessage, error) {
	var msg EntryEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
