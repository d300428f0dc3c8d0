package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/log"
)

// GormSessionRepository implements SessionRepository using GORM.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GORM-based session repository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// CreateIfAbsent inserts the session and its welcome message in one
// transaction. The unique index on booking_id resolves concurrent
// creation: the loser's insert fails with gorm.ErrDuplicatedKey and the
// existing row is returned instead, never an error.
func (r *GormSessionRepository) CreateIfAbsent(ctx context.Context, session *domain.Session, welcome *domain.Message) (*domain.Session, bool, error) {
	l := log.Ctx(ctx)

	model := domain.SessionToModel(session)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		if welcome != nil {
			wm := domain.MessageToModel(welcome)
			wm.SessionID = model.ID
			if err := tx.Create(wm).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, getErr := r.GetByBookingID(ctx, session.BookingID)
			if getErr != nil {
				return nil, false, getErr
			}
			l.Debug().Str(log.FieldBookingID, session.BookingID).Msg("session already exists for booking")
			return existing, false, nil
		}
		l.Error().Err(err).Str(log.FieldBookingID, session.BookingID).Msg("failed to create session in db")
		return nil, false, err
	}

	l.Debug().Str(log.FieldSessionID, model.ID).Str(log.FieldBookingID, model.BookingID).Msg("session created in db")
	return model.ToDomain(), true, nil
}

// GetByID retrieves a session by its id.
func (r *GormSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var model domain.SessionModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldSessionID, id).Msg("failed to get session by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByBookingID retrieves the session bound to a booking.
func (r *GormSessionRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Session, error) {
	var model domain.SessionModel
	result := r.db.WithContext(ctx).First(&model, "booking_id = ?", bookingID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldBookingID, bookingID).Msg("failed to get session by booking id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// SetStatus updates the status of the session for a booking. Transitions
// are unconditional: every (current, requested) pair is allowed,
// including readonly back to active, because the booking authority is
// the single trusted writer of session lifecycle.
func (r *GormSessionRepository) SetStatus(ctx context.Context, bookingID string, status domain.SessionStatus) (*domain.Session, error) {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.SessionModel{}).
		Where("booking_id = ?", bookingID).
		Update("status", string(status))
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldBookingID, bookingID).Msg("failed to update session status")
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrSessionNotFound
	}

	l.Debug().Str(log.FieldBookingID, bookingID).Str("status", string(status)).Msg("session status updated")
	return r.GetByBookingID(ctx, bookingID)
}

// ListByParticipant returns the user's sessions, most recently updated
// first.
func (r *GormSessionRepository) ListByParticipant(ctx context.Context, userID string) ([]domain.Session, error) {
	var models []domain.SessionModel
	result := r.db.WithContext(ctx).
		Where("owner_id = ? OR seeker_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&models)
	if result.Error != nil {
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to list sessions for user")
		return nil, result.Error
	}

	sessions := make([]domain.Session, len(models))
	for i, model := range models {
		sessions[i] = *model.ToDomain()
	}
	return sessions, nil
}

// Touch bumps the session's updated_at so participant listings sort by
// recent activity. Best-effort; errors are logged only.
func (r *GormSessionRepository) Touch(ctx context.Context, sessionID string) {
	result := r.db.WithContext(ctx).Model(&domain.SessionModel{}).
		Where("id = ?", sessionID).
		Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP"))
	if result.Error != nil {
		log.Ctx(ctx).Warn().Err(result.Error).Str(log.FieldSessionID, sessionID).Msg("failed to touch session")
	}
}
