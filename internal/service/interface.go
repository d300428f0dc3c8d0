package service

import (
	"context"
	"errors"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
)

var (
	ErrInvalidArgument = errors.New("missing or malformed argument")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotParticipant  = errors.New("user is not a participant of this session")
	ErrSessionReadonly = errors.New("session is readonly")
)

// Fanout delivers an event to every connection currently joined to a
// session, except the excluded one. Implemented by the hub.
type Fanout interface {
	Broadcast(sessionID string, event interface{}, excludeConnID string)
}

// ChatService is the session lifecycle manager and message broker: it
// owns creation, status transitions, authorization gating, and the
// append-then-fanout path.
type ChatService interface {
	// CreateSession creates the one chat session for a booking, or
	// returns the existing one. The bool reports whether this call
	// created it.
	CreateSession(ctx context.Context, bookingID, ownerID, seekerID string) (*domain.Session, bool, error)

	// SetStatus transitions the session for a booking. All transitions
	// are allowed, including readonly back to active.
	SetStatus(ctx context.Context, bookingID string, status domain.SessionStatus) (*domain.Session, error)

	// AuthorizeJoin returns the session if the user is one of its two
	// participants. Joining is permitted in every status.
	AuthorizeJoin(ctx context.Context, sessionID, userID string) (*domain.Session, error)

	// ListSessions returns the user's sessions enriched with counterpart
	// profiles and last-message previews.
	ListSessions(ctx context.Context, userID string) ([]domain.SessionSummary, error)

	// ListMessages returns one stable page of session history for a
	// participant. Reading is permitted in every status.
	ListMessages(ctx context.Context, userID, sessionID, cursor string, limit int, direction string) (*domain.MessagePage, error)

	// SendMessage appends a participant message and fans it out to the
	// other joined connections. The append is durable before any fanout.
	// excludeConnID is the sender's own connection, which receives a
	// direct acknowledgement instead of the fanout copy.
	SendMessage(ctx context.Context, userID, sessionID, content, excludeConnID string) (*domain.Message, error)

	// MarkRead records read receipts and broadcasts them. Unknown
	// message ids are ignored.
	MarkRead(ctx context.Context, userID, sessionID string, messageIDs []string, excludeConnID string) ([]string, error)

	// Typing broadcasts a best-effort typing signal. Nothing is
	// persisted.
	Typing(ctx context.Context, userID, sessionID string, isTyping bool, excludeConnID string) error

	// Close releases downstream producers.
	Close() error
}
