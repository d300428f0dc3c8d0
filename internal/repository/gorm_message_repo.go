package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/database"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/log"
)

// seqRetries bounds how often an append retries after losing a seq race.
const seqRetries = 3

// readRetries bounds optimistic retries when two readers race to update
// the same read set.
const readRetries = 3

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Append stores the message with the session's next seq. The seq is read
// and assigned inside a transaction; if two appends race for the same
// value, the unique (session_id, seq) index rejects the loser, which
// retries against the new maximum. Seqs are never reused even across
// restarts because the maximum is derived from the stored log.
func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	l := log.Ctx(ctx)

	model := domain.MessageToModel(msg)
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	if model.ReadBy == nil {
		model.ReadBy = []string{}
	}

	var lastErr error
	for attempt := 0; attempt < seqRetries; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var maxSeq int64
			if err := tx.Model(&domain.MessageModel{}).
				Where("session_id = ?", model.SessionID).
				Select("COALESCE(MAX(seq), 0)").
				Scan(&maxSeq).Error; err != nil {
				return err
			}
			model.Seq = maxSeq + 1
			return tx.Create(model).Error
		})
		if err == nil {
			l.Debug().
				Str(log.FieldSessionID, model.SessionID).
				Str(log.FieldMessageID, model.ID).
				Int64("seq", model.Seq).
				Msg("message appended")
			return model.ToDomain(), nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			l.Error().Err(err).Str(log.FieldSessionID, model.SessionID).Msg("failed to append message")
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("failed to assign message seq after %d attempts: %w", seqRetries, lastErr)
}

// List returns one page of the session's history. The log is append-only
// and seqs are never renumbered, so a page identified by its cursor is
// stable no matter how many messages arrive after it was first read.
func (r *GormMessageRepository) List(ctx context.Context, sessionID, cursor string, limit int, direction Direction) ([]domain.Message, string, bool, error) {
	query := r.db.WithContext(ctx).Model(&domain.MessageModel{}).Where("session_id = ?", sessionID)

	if cursor != "" {
		seq, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, "", false, ErrInvalidCursor
		}
		if direction == DirectionBackward {
			query = query.Where("seq < ?", seq)
		} else {
			query = query.Where("seq > ?", seq)
		}
	}

	if direction == DirectionBackward {
		query = query.Order("seq DESC")
	} else {
		query = query.Order("seq ASC")
	}

	// Query limit+1 to learn whether more messages remain past the page.
	var models []domain.MessageModel
	if err := query.Limit(limit + 1).Find(&models).Error; err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldSessionID, sessionID).Msg("failed to list messages")
		return nil, "", false, err
	}

	hasMore := len(models) > limit
	if hasMore {
		models = models[:limit]
	}

	messages := make([]domain.Message, len(models))
	for i, model := range models {
		messages[i] = *model.ToDomain()
	}

	var nextCursor string
	if len(messages) > 0 {
		nextCursor = strconv.FormatInt(messages[len(messages)-1].Seq, 10)
	}

	return messages, nextCursor, hasMore, nil
}

// Latest returns the newest message of a session, or nil if none exist.
func (r *GormMessageRepository) Latest(ctx context.Context, sessionID string) (*domain.Message, error) {
	var model domain.MessageModel
	result := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq DESC").
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// MarkRead adds userID to the read set of each listed message belonging
// to the session. The read set only grows: each write is conditional on
// the exact set that was read, so two participants acking the same
// message concurrently both land (the loser's update matches zero rows
// and it retries against the merged set). Ids that do not exist in the
// session (stale clients, foreign sessions) are skipped silently.
func (r *GormMessageRepository) MarkRead(ctx context.Context, sessionID, userID string, messageIDs []string) ([]string, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	var updated []string
	for _, id := range messageIDs {
		ok, err := r.markOneRead(ctx, sessionID, userID, id)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str(log.FieldSessionID, sessionID).
				Str(log.FieldMessageID, id).
				Msg("failed to mark message read")
			return nil, err
		}
		if ok {
			updated = append(updated, id)
		}
	}

	return updated, nil
}

func (r *GormMessageRepository) markOneRead(ctx context.Context, sessionID, userID, messageID string) (bool, error) {
	for attempt := 0; attempt < readRetries; attempt++ {
		var model domain.MessageModel
		err := r.db.WithContext(ctx).
			Where("session_id = ? AND id = ?", sessionID, messageID).
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if model.ReadBy.Contains(userID) {
			return false, nil
		}

		next := make(database.StringArray, 0, len(model.ReadBy)+1)
		next = append(next, model.ReadBy...)
		next = append(next, userID)

		query := r.db.WithContext(ctx).Model(&domain.MessageModel{}).Where("id = ?", model.ID)
		if model.ReadBy == nil {
			query = query.Where("read_by IS NULL")
		} else {
			query = query.Where("read_by = ?", model.ReadBy)
		}

		result := query.Update("read_by", next)
		if result.Error != nil {
			return false, result.Error
		}
		if result.RowsAffected > 0 {
			return true, nil
		}
		// A concurrent reader committed in between; re-read and merge.
	}

	return false, fmt.Errorf("failed to mark message %s read after %d attempts", messageID, readRetries)
}
