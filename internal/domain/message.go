package domain

import "time"

// ContentType classifies message content.
type ContentType string

const (
	ContentTypeText   ContentType = "text"
	ContentTypeSystem ContentType = "system"
)

// SystemSenderID is the reserved sender id for synthetic messages.
const SystemSenderID = "system"

// SystemWelcomeContent is the single system message injected when a
// session is created.
const SystemWelcomeContent = "Your booking chat is ready. Messages here are shared between both parties."

// Message is one durable entry in a session's ordered log.
//
// Seq is the per-session order key: strictly increasing, never reused,
// assigned by the message log at append time. The total order of a
// session's messages is (CreatedAt, Seq), and Seq alone is sufficient.
type Message struct {
	ID          string      `json:"id"`
	SessionID   string      `json:"session_id"`
	Seq         int64       `json:"seq"`
	SenderID    string      `json:"sender_id"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"content_type"`
	ReadBy      []string    `json:"read_by"`
	CreatedAt   time.Time   `json:"created_at"`
}

// MessagePage is one cursor-delimited page of a session's history.
// Repeated calls with the same cursor return the same messages even if
// new messages have since been appended.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor"`
	HasMore    bool      `json:"has_more"`
}
