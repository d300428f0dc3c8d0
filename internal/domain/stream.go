package domain

import (
	"encoding/json"
	"time"
)

// Event types published to the chat-events topic. The notification
// collaborator consumes these; push delivery itself is out of scope here.
const (
	EventSessionCreated       = "session.created"
	EventSessionStatusChanged = "session.status_changed"
	EventMessageCreated       = "message.created"
)

// ChatEvent is the envelope for events handed off to downstream
// consumers over the message broker.
type ChatEvent struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	BookingID string          `json:"booking_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewChatEvent creates an event with the current timestamp.
func NewChatEvent(eventType, sessionID, bookingID string, payload interface{}) (*ChatEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &ChatEvent{
		Type:      eventType,
		SessionID: sessionID,
		BookingID: bookingID,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}
