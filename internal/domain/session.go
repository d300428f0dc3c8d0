package domain

import "time"

// SessionStatus represents the lifecycle state of a chat session.
type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusReadonly SessionStatus = "readonly"
)

// Valid reports whether the status is one of the known states.
func (s SessionStatus) Valid() bool {
	return s == SessionStatusActive || s == SessionStatusReadonly
}

// Session is one chat conversation bound 1:1 to a booking, with exactly
// two fixed participants. Sessions are never deleted.
type Session struct {
	ID        string        `json:"id"`
	BookingID string        `json:"booking_id"`
	OwnerID   string        `json:"owner_id"`
	SeekerID  string        `json:"seeker_id"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// HasParticipant reports whether the user is one of the two participants.
func (s *Session) HasParticipant(userID string) bool {
	return userID == s.OwnerID || userID == s.SeekerID
}

// Counterpart returns the other participant's id, or "" if the user is
// not a participant.
func (s *Session) Counterpart(userID string) string {
	switch userID {
	case s.OwnerID:
		return s.SeekerID
	case s.SeekerID:
		return s.OwnerID
	}
	return ""
}

// Writable reports whether new participant-authored messages are allowed.
func (s *Session) Writable() bool {
	return s.Status == SessionStatusActive
}

// CreateSessionRequest is the booking authority's creation payload.
type CreateSessionRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	OwnerID   string `json:"owner_id" binding:"required"`
	SeekerID  string `json:"seeker_id" binding:"required"`
}

// SetStatusRequest is the booking authority's status-change payload.
type SetStatusRequest struct {
	Status SessionStatus `json:"status" binding:"required"`
}

// SessionSummary is a session as listed for a participant, enriched with
// the counterpart's display data and a preview of the latest message.
type SessionSummary struct {
	Session
	Counterpart *Profile `json:"counterpart,omitempty"`
	LastMessage *Message `json:"last_message,omitempty"`
}
