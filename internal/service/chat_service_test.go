package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/repository"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/service"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/database"
)

type fanoutCall struct {
	SessionID     string
	Event         interface{}
	ExcludeConnID string
}

type fakeFanout struct {
	mu    sync.Mutex
	calls []fanoutCall
}

func (f *fakeFanout) Broadcast(sessionID string, event interface{}, excludeConnID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fanoutCall{SessionID: sessionID, Event: event, ExcludeConnID: excludeConnID})
}

func (f *fakeFanout) Calls() []fanoutCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fanoutCall(nil), f.calls...)
}

type fakeProducer struct {
	mu     sync.Mutex
	events []*domain.ChatEvent
	fail   bool
}

func (p *fakeProducer) Produce(ctx context.Context, event *domain.ChatEvent) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func (p *fakeProducer) Events() []*domain.ChatEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.ChatEvent(nil), p.events...)
}

type fakeProfiles struct {
	profiles map[string]*domain.Profile
}

func (f *fakeProfiles) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, errors.New("profile not found")
}

type fixture struct {
	svc      service.ChatService
	fanout   *fakeFanout
	producer *fakeProducer
	profiles *fakeProfiles
	db       *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     filepath.Join(t.TempDir(), "chat_test.db"),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.SessionModel{}, &domain.MessageModel{}))

	fanout := &fakeFanout{}
	producer := &fakeProducer{}
	profiles := &fakeProfiles{profiles: map[string]*domain.Profile{}}

	svc := service.NewChatService(
		repository.NewGormSessionRepository(db),
		repository.NewGormMessageRepository(db),
		fanout,
		producer,
		profiles,
	)

	return &fixture{svc: svc, fanout: fanout, producer: producer, profiles: profiles, db: db}
}

func (f *fixture) createSession(t *testing.T) *domain.Session {
	t.Helper()
	session, created, err := f.svc.CreateSession(context.Background(), "booking-1", "owner-1", "seeker-1")
	require.NoError(t, err)
	require.True(t, created)
	return session
}

func TestCreateSessionInjectsWelcomeOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, created, err := f.svc.CreateSession(ctx, "booking-1", "owner-1", "seeker-1")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, domain.SessionStatusActive, first.Status)

	second, created, err := f.svc.CreateSession(ctx, "booking-1", "owner-1", "seeker-1")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	page, err := f.svc.ListMessages(ctx, "owner-1", first.ID, "", 10, "backward")
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	require.Equal(t, domain.SystemSenderID, page.Messages[0].SenderID)
	require.Equal(t, domain.ContentTypeSystem, page.Messages[0].ContentType)

	// Only the actual creation produced a downstream event.
	events := f.producer.Events()
	require.Len(t, events, 1)
	require.Equal(t, domain.EventSessionCreated, events[0].Type)
}

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.CreateSession(context.Background(), "", "owner-1", "seeker-1")
	require.ErrorIs(t, err, service.ErrInvalidArgument)

	_, _, err = f.svc.CreateSession(context.Background(), "booking-1", "", "seeker-1")
	require.ErrorIs(t, err, service.ErrInvalidArgument)
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createSession(t)

	session, err := f.svc.SetStatus(ctx, "booking-1", domain.SessionStatusReadonly)
	require.NoError(t, err)
	require.Equal(t, domain.SessionStatusReadonly, session.Status)

	_, err = f.svc.SetStatus(ctx, "booking-1", domain.SessionStatus("archived"))
	require.ErrorIs(t, err, service.ErrInvalidArgument)

	_, err = f.svc.SetStatus(ctx, "unknown-booking", domain.SessionStatusReadonly)
	require.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestAuthorizeJoin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := f.createSession(t)

	got, err := f.svc.AuthorizeJoin(ctx, session.ID, "seeker-1")
	require.NoError(t, err)
	require.Equal(t, session.ID, got.ID)

	_, err = f.svc.AuthorizeJoin(ctx, session.ID, "stranger")
	require.ErrorIs(t, err, service.ErrNotParticipant)

	_, err = f.svc.AuthorizeJoin(ctx, "no-such-session", "seeker-1")
	require.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestSendMessageStoresThenBroadcasts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := f.createSession(t)

	sent, err := f.svc.SendMessage(ctx, "owner-1", session.ID, "hello", "conn-1")
	require.NoError(t, err)
	require.Equal(t, int64(2), sent.Seq)
	require.Equal(t, []string{"owner-1"}, sent.ReadBy)

	calls := f.fanout.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, session.ID, calls[0].SessionID)
	require.Equal(t, "conn-1", calls[0].ExcludeConnID)

	// The broadcast carries the stored message, id and seq included, so
	// receivers can reconcile against history immediately.
	push, ok := calls[0].Event.(*domain.NewMessageEvent)
	require.True(t, ok)
	require.Equal(t, sent.ID, push.Message.ID)
	require.Equal(t, sent.Seq, push.Message.Seq)

	page, err := f.svc.ListMessages(ctx, "seeker-1", session.ID, "", 10, "backward")
	require.NoError(t, err)
	require.Equal(t, sent.ID, page.Messages[0].ID)
}

func TestSendMessageGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := f.createSession(t)

	_, err := f.svc.SendMessage(ctx, "owner-1", session.ID, "", "conn-1")
	require.ErrorIs(t, err, service.ErrInvalidArgument)

	_, err = f.svc.SendMessage(ctx, "stranger", session.ID, "hi", "conn-1")
	require.ErrorIs(t, err, service.ErrNotParticipant)

	_, err = f.svc.SetStatus(ctx, "booking-1", domain.SessionStatusReadonly)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, "owner-1", session.ID, "hi", "conn-1")
	require.ErrorIs(t, err, service.ErrSessionReadonly)

	// Reopening restores writes.
	_, err = f.svc.SetStatus(ctx, "booking-1", domain.SessionStatusActive)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, "owner-1", session.ID, "hi again", "conn-1")
	require.NoError(t, err)
}

func TestSendMessageSurvivesProducerFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := f.createSession(t)
	f.producer.fail = true

	sent, err := f.svc.SendMessage(ctx, "owner-1", session.ID, "hello", "conn-1")
	require.NoError(t, err)
	require.NotEmpty(t, sent.ID)
	require.Len(t, f.fanout.Calls(), 1)
}

func TestMarkReadBroadcastsOnlyNewReceipts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := f.createSession(t)

	sent, err := f.svc.SendMessage(ctx, "owner-1", session.ID, "hello", "conn-1")
	require.NoError(t, err)
	before := len(f.fanout.Calls())

	updated, err := f.svc.MarkRead(ctx, "seeker-1", session.ID, []string{sent.ID}, "conn-2")
	require.NoError(t, err)
	require.Equal(t, []string{sent.ID}, updated)

	calls := f.fanout.Calls()
	require.Len(t, calls, before+1)
	receipt, ok := calls[len(calls)-1].Event.(*domain.ReadReceiptEvent)
	require.True(t, ok)
	require.Equal(t, "seeker-1", receipt.UserID)
	require.Equal(t, []string{sent.ID}, receipt.MessageIDs)

	// Marking the same message again updates nothing and stays silent.
	updated, err = f.svc.MarkRead(ctx, "seeker-1", session.ID, []string{sent.ID}, "conn-2")
	require.NoError(t, err)
	require.Empty(t, updated)
	require.Len(t, f.fanout.Calls(), before+1)
}

func TestMarkReadAllowedInReadonly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := f.createSession(t)

	sent, err := f.svc.SendMessage(ctx, "owner-1", session.ID, "hello", "conn-1")
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, "booking-1", domain.SessionStatusReadonly)
	require.NoError(t, err)

	updated, err := f.svc.MarkRead(ctx, "seeker-1", session.ID, []string{sent.ID}, "conn-2")
	require.NoError(t, err)
	require.Equal(t, []string{sent.ID}, updated)
}

func TestTyping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := f.createSession(t)

	require.NoError(t, f.svc.Typing(ctx, "owner-1", session.ID, true, "conn-1"))

	calls := f.fanout.Calls()
	require.Len(t, calls, 1)
	typing, ok := calls[0].Event.(*domain.TypingEvent)
	require.True(t, ok)
	require.Equal(t, "owner-1", typing.UserID)
	require.True(t, typing.IsTyping)

	err := f.svc.Typing(ctx, "stranger", session.ID, true, "conn-1")
	require.ErrorIs(t, err, service.ErrNotParticipant)
}

func TestListMessagesGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := f.createSession(t)

	_, err := f.svc.ListMessages(ctx, "stranger", session.ID, "", 10, "backward")
	require.ErrorIs(t, err, service.ErrNotParticipant)

	_, err = f.svc.ListMessages(ctx, "owner-1", session.ID, "garbage", 10, "backward")
	require.ErrorIs(t, err, service.ErrInvalidArgument)

	_, err = f.svc.ListMessages(ctx, "owner-1", "no-such-session", "", 10, "backward")
	require.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestListSessionsEnrichment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	session := f.createSession(t)
	f.profiles.profiles["seeker-1"] = &domain.Profile{UserID: "seeker-1", DisplayName: "Sam Seeker"}

	summaries, err := f.svc.ListSessions(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, session.ID, summaries[0].ID)
	require.NotNil(t, summaries[0].Counterpart)
	require.Equal(t, "Sam Seeker", summaries[0].Counterpart.DisplayName)
	require.NotNil(t, summaries[0].LastMessage)
	require.Equal(t, domain.SystemSenderID, summaries[0].LastMessage.SenderID)
}

func TestListSessionsDegradesWithoutProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createSession(t)

	// No profile registered for the counterpart; the listing still works.
	summaries, err := f.svc.ListSessions(ctx, "seeker-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Nil(t, summaries[0].Counterpart)
}
