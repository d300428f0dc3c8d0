package repository

import (
	"context"
	"errors"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidCursor   = errors.New("invalid cursor")
)

// Direction selects the paging direction for history reads.
type Direction string

const (
	DirectionBackward Direction = "backward" // newest to oldest
	DirectionForward  Direction = "forward"  // oldest to newest
)

// ParseDirection maps a request string to a Direction, defaulting to
// backward (the order chat UIs page in).
func ParseDirection(s string) Direction {
	if s == "forward" {
		return DirectionForward
	}
	return DirectionBackward
}

// SessionRepository is the durable session store. At most one session
// exists per booking id.
type SessionRepository interface {
	// CreateIfAbsent atomically inserts the session unless one already
	// exists for its booking id. It returns the stored session and
	// whether this call created it. The insert and the initial system
	// message commit in one transaction.
	CreateIfAbsent(ctx context.Context, session *domain.Session, welcome *domain.Message) (*domain.Session, bool, error)

	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Session, error)

	// SetStatus updates the session status for a booking and returns the
	// updated record. ErrSessionNotFound if no session exists.
	SetStatus(ctx context.Context, bookingID string, status domain.SessionStatus) (*domain.Session, error)

	// ListByParticipant returns every session the user participates in,
	// most recently updated first.
	ListByParticipant(ctx context.Context, userID string) ([]domain.Session, error)

	// Touch bumps the session's recent-activity ordering after an
	// append. Best-effort.
	Touch(ctx context.Context, sessionID string)
}

// MessageRepository is the append-only, strictly ordered message log.
type MessageRepository interface {
	// Append stores the message, assigning the session's next seq.
	Append(ctx context.Context, msg *domain.Message) (*domain.Message, error)

	// List returns one stable page of a session's history. cursor is the
	// seq of the last message from the previous page ("" for the first
	// page). hasMore reports whether older (backward) or newer (forward)
	// messages remain past the page.
	List(ctx context.Context, sessionID, cursor string, limit int, direction Direction) (messages []domain.Message, nextCursor string, hasMore bool, err error)

	// Latest returns the newest message of a session, or nil if the
	// session has none.
	Latest(ctx context.Context, sessionID string) (*domain.Message, error)

	// MarkRead adds userID to the read set of each listed message that
	// belongs to the session, returning the ids actually updated. Ids
	// unknown to the session are skipped, not errors.
	MarkRead(ctx context.Context, sessionID, userID string, messageIDs []string) ([]string, error)
}
