package repository_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/repository"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     filepath.Join(t.TempDir(), "chat_test.db"),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.SessionModel{}, &domain.MessageModel{}))
	return db
}

func newSession(bookingID string) *domain.Session {
	return &domain.Session{
		ID:        uuid.New().String(),
		BookingID: bookingID,
		OwnerID:   "owner-1",
		SeekerID:  "seeker-1",
		Status:    domain.SessionStatusActive,
	}
}

func newWelcome() *domain.Message {
	return &domain.Message{
		ID:          uuid.New().String(),
		Seq:         1,
		SenderID:    domain.SystemSenderID,
		Content:     domain.SystemWelcomeContent,
		ContentType: domain.ContentTypeSystem,
		ReadBy:      []string{},
	}
}

func TestCreateIfAbsentCreatesSessionWithWelcome(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	sessions := repository.NewGormSessionRepository(db)
	messages := repository.NewGormMessageRepository(db)

	created, isNew, err := sessions.CreateIfAbsent(ctx, newSession("booking-1"), newWelcome())
	require.NoError(t, err)
	require.True(t, isNew)
	require.Equal(t, "booking-1", created.BookingID)
	require.Equal(t, domain.SessionStatusActive, created.Status)

	latest, err := messages.Latest(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, domain.SystemSenderID, latest.SenderID)
	require.Equal(t, domain.ContentTypeSystem, latest.ContentType)
	require.Equal(t, int64(1), latest.Seq)
}

func TestCreateIfAbsentIsIdempotentPerBooking(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	sessions := repository.NewGormSessionRepository(db)
	messages := repository.NewGormMessageRepository(db)

	first, isNew, err := sessions.CreateIfAbsent(ctx, newSession("booking-1"), newWelcome())
	require.NoError(t, err)
	require.True(t, isNew)

	second, isNew, err := sessions.CreateIfAbsent(ctx, newSession("booking-1"), newWelcome())
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, first.ID, second.ID)

	// The repeat must not have injected a second welcome message.
	page, _, hasMore, err := messages.List(ctx, first.ID, "", 10, repository.DirectionBackward)
	require.NoError(t, err)
	require.False(t, hasMore)
	require.Len(t, page, 1)
}

func TestCreateIfAbsentConcurrent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	sessions := repository.NewGormSessionRepository(db)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		errs     []error
		ids      = map[string]struct{}{}
		newCount int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, isNew, err := sessions.CreateIfAbsent(ctx, newSession("booking-race"), newWelcome())

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ids[got.ID] = struct{}{}
			if isNew {
				newCount++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, ids, 1)
	require.Equal(t, 1, newCount)
}

func TestSetStatusTransitions(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	sessions := repository.NewGormSessionRepository(db)

	_, _, err := sessions.CreateIfAbsent(ctx, newSession("booking-1"), nil)
	require.NoError(t, err)

	got, err := sessions.SetStatus(ctx, "booking-1", domain.SessionStatusReadonly)
	require.NoError(t, err)
	require.Equal(t, domain.SessionStatusReadonly, got.Status)

	// Reopening is allowed; the booking authority owns the lifecycle.
	got, err = sessions.SetStatus(ctx, "booking-1", domain.SessionStatusActive)
	require.NoError(t, err)
	require.Equal(t, domain.SessionStatusActive, got.Status)

	// Repeating the current status is a no-op, not an error.
	got, err = sessions.SetStatus(ctx, "booking-1", domain.SessionStatusActive)
	require.NoError(t, err)
	require.Equal(t, domain.SessionStatusActive, got.Status)
}

func TestSetStatusUnknownBooking(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	sessions := repository.NewGormSessionRepository(db)

	_, err := sessions.SetStatus(ctx, "no-such-booking", domain.SessionStatusReadonly)
	require.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestGetByIDNotFound(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	sessions := repository.NewGormSessionRepository(db)

	_, err := sessions.GetByID(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestListByParticipant(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	sessions := repository.NewGormSessionRepository(db)

	a := newSession("booking-a")
	a.OwnerID, a.SeekerID = "alice", "bob"
	b := newSession("booking-b")
	b.OwnerID, b.SeekerID = "carol", "alice"

	_, _, err := sessions.CreateIfAbsent(ctx, a, nil)
	require.NoError(t, err)
	_, _, err = sessions.CreateIfAbsent(ctx, b, nil)
	require.NoError(t, err)

	got, err := sessions.ListByParticipant(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = sessions.ListByParticipant(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "booking-a", got[0].BookingID)

	got, err = sessions.ListByParticipant(ctx, "stranger")
	require.NoError(t, err)
	require.Empty(t, got)
}
