package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/audit"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/client"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/kafka"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/repository"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/log"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type chatService struct {
	sessions repository.SessionRepository
	messages repository.MessageRepository
	fanout   Fanout
	producer kafka.EventProducer
	profiles client.ProfileLookup
}

// NewChatService creates the chat service. producer and profiles may be
// backed by test stand-ins; nil is not accepted.
func NewChatService(
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	fanout Fanout,
	producer kafka.EventProducer,
	profiles client.ProfileLookup,
) ChatService {
	return &chatService{
		sessions: sessions,
		messages: messages,
		fanout:   fanout,
		producer: producer,
		profiles: profiles,
	}
}

// CreateSession is idempotent per booking: the first call creates the
// session in active status together with its single system message; any
// repeat (including a concurrent one) gets the existing record back.
func (s *chatService) CreateSession(ctx context.Context, bookingID, ownerID, seekerID string) (*domain.Session, bool, error) {
	if bookingID == "" || ownerID == "" || seekerID == "" {
		return nil, false, ErrInvalidArgument
	}

	session := &domain.Session{
		ID:        uuid.New().String(),
		BookingID: bookingID,
		OwnerID:   ownerID,
		SeekerID:  seekerID,
		Status:    domain.SessionStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	welcome := &domain.Message{
		ID:          uuid.New().String(),
		Seq:         1,
		SenderID:    domain.SystemSenderID,
		Content:     domain.SystemWelcomeContent,
		ContentType: domain.ContentTypeSystem,
		CreatedAt:   session.CreatedAt,
	}

	stored, created, err := s.sessions.CreateIfAbsent(ctx, session, welcome)
	if err != nil {
		return nil, false, err
	}

	if created {
		audit.Log(ctx, audit.ActionCreateSession, bookingID, "chat session created")
		s.emit(ctx, domain.EventSessionCreated, stored.ID, bookingID, stored)
	}

	return stored, created, nil
}

// SetStatus applies the booking authority's requested transition. The
// transition table is total: every (current, requested) pair succeeds,
// readonly back to active included, because lifecycle decisions belong
// to the booking authority alone.
func (s *chatService) SetStatus(ctx context.Context, bookingID string, status domain.SessionStatus) (*domain.Session, error) {
	if bookingID == "" || !status.Valid() {
		return nil, ErrInvalidArgument
	}

	session, err := s.sessions.SetStatus(ctx, bookingID, status)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionSetStatus, bookingID, string(status), "chat session status changed")
	s.emit(ctx, domain.EventSessionStatusChanged, session.ID, bookingID, session)

	return session, nil
}

func (s *chatService) AuthorizeJoin(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return session, nil
}

func (s *chatService) ListSessions(ctx context.Context, userID string) ([]domain.SessionSummary, error) {
	sessions, err := s.sessions.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	l := log.Ctx(ctx)
	summaries := make([]domain.SessionSummary, len(sessions))
	for i, session := range sessions {
		summary := domain.SessionSummary{Session: session}

		counterpartID := session.Counterpart(userID)
		if profile, err := s.profiles.GetProfile(ctx, counterpartID); err != nil {
			// Enrichment is display data; a degraded listing beats a failed one.
			l.Warn().Err(err).Str(log.FieldUserID, counterpartID).Msg("failed to fetch counterpart profile")
		} else {
			summary.Counterpart = profile
		}

		if last, err := s.messages.Latest(ctx, session.ID); err != nil {
			l.Warn().Err(err).Str(log.FieldSessionID, session.ID).Msg("failed to fetch last message")
		} else {
			summary.LastMessage = last
		}

		summaries[i] = summary
	}

	return summaries, nil
}

// ListMessages reads history. Permitted in both statuses; only
// participants may read.
func (s *chatService) ListMessages(ctx context.Context, userID, sessionID, cursor string, limit int, direction string) (*domain.MessagePage, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	messages, nextCursor, hasMore, err := s.messages.List(ctx, sessionID, cursor, limit, repository.ParseDirection(direction))
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, ErrInvalidArgument
		}
		return nil, err
	}

	return &domain.MessagePage{
		Messages:   messages,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// SendMessage appends a message to the durable log and only then fans
// it out, so any client that sees the push can already find the message
// in history. The sender's own connection is excluded from the fanout
// (it gets the returned message as a direct ack); the sender's other
// devices receive the push like everyone else.
func (s *chatService) SendMessage(ctx context.Context, userID, sessionID, content, excludeConnID string) (*domain.Message, error) {
	if content == "" {
		return nil, ErrInvalidArgument
	}

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	if !session.Writable() {
		return nil, ErrSessionReadonly
	}

	msg := &domain.Message{
		SessionID:   sessionID,
		SenderID:    userID,
		Content:     content,
		ContentType: domain.ContentTypeText,
		ReadBy:      []string{userID},
		CreatedAt:   time.Now().UTC(),
	}

	stored, err := s.messages.Append(ctx, msg)
	if err != nil {
		return nil, err
	}

	s.sessions.Touch(ctx, sessionID)

	s.fanout.Broadcast(sessionID, &domain.NewMessageEvent{
		Type:    domain.MsgTypeNewMessage,
		Message: stored,
	}, excludeConnID)

	s.emit(ctx, domain.EventMessageCreated, sessionID, session.BookingID, stored)

	return stored, nil
}

func (s *chatService) MarkRead(ctx context.Context, userID, sessionID string, messageIDs []string, excludeConnID string) ([]string, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	updated, err := s.messages.MarkRead(ctx, sessionID, userID, messageIDs)
	if err != nil {
		return nil, err
	}

	if len(updated) > 0 {
		s.fanout.Broadcast(sessionID, &domain.ReadReceiptEvent{
			Type:       domain.MsgTypeReadReceipt,
			SessionID:  sessionID,
			UserID:     userID,
			MessageIDs: updated,
		}, excludeConnID)
	}

	return updated, nil
}

// Typing is best-effort: not persisted, no delivery guarantee.
func (s *chatService) Typing(ctx context.Context, userID, sessionID string, isTyping bool, excludeConnID string) error {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.HasParticipant(userID) {
		return ErrNotParticipant
	}

	s.fanout.Broadcast(sessionID, &domain.TypingEvent{
		Type:      domain.MsgTypeTyping,
		SessionID: sessionID,
		UserID:    userID,
		IsTyping:  isTyping,
	}, excludeConnID)

	return nil
}

func (s *chatService) Close() error {
	return s.producer.Close()
}

func (s *chatService) getSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidArgument
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// emit hands an event to the broker for downstream consumers (the
// notification collaborator). Failures are logged, never propagated:
// the triggering operation has already succeeded durably.
func (s *chatService) emit(ctx context.Context, eventType, sessionID, bookingID string, payload interface{}) {
	event, err := domain.NewChatEvent(eventType, sessionID, bookingID, payload)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("event_type", eventType).Msg("failed to build chat event")
		return
	}
	if err := s.producer.Produce(ctx, event); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("event_type", eventType).Str(log.FieldSessionID, sessionID).Msg("failed to produce chat event")
	}
}
