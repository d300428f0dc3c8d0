package domain

import (
	"time"

	"github.com/anandupg/Lyvo-Backend-sub001/pkg/database"
)

// SessionModel is the GORM model for the chat_sessions table. The unique
// index on BookingID is what makes creation exactly-once: concurrent
// inserts for the same booking collide on the index and the loser reads
// the winner's row.
type SessionModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	BookingID string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	OwnerID   string    `gorm:"type:varchar(64);index;not null"`
	SeekerID  string    `gorm:"type:varchar(64);index;not null"`
	Status    string    `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for SessionModel.
func (SessionModel) TableName() string {
	return "chat_sessions"
}

// ToDomain converts SessionModel to a domain Session.
func (m *SessionModel) ToDomain() *Session {
	return &Session{
		ID:        m.ID,
		BookingID: m.BookingID,
		OwnerID:   m.OwnerID,
		SeekerID:  m.SeekerID,
		Status:    SessionStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

// SessionToModel converts a domain Session to its GORM model.
func SessionToModel(s *Session) *SessionModel {
	return &SessionModel{
		ID:        s.ID,
		BookingID: s.BookingID,
		OwnerID:   s.OwnerID,
		SeekerID:  s.SeekerID,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
	}
}

// MessageModel is the GORM model for the chat_messages table. The unique
// index on (session_id, seq) both orders the log and guards seq
// assignment: two appends racing for the same seq collide and one
// retries with a fresh maximum.
type MessageModel struct {
	ID          string               `gorm:"type:varchar(36);primaryKey"`
	SessionID   string               `gorm:"type:varchar(36);not null;uniqueIndex:idx_session_seq,priority:1"`
	Seq         int64                `gorm:"not null;uniqueIndex:idx_session_seq,priority:2"`
	SenderID    string               `gorm:"type:varchar(64);not null"`
	Content     string               `gorm:"type:text;not null"`
	ContentType string               `gorm:"type:varchar(16);not null;default:'text'"`
	ReadBy      database.StringArray `gorm:"type:text"`
	CreatedAt   time.Time            `gorm:"autoCreateTime"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "chat_messages"
}

// ToDomain converts MessageModel to a domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:          m.ID,
		SessionID:   m.SessionID,
		Seq:         m.Seq,
		SenderID:    m.SenderID,
		Content:     m.Content,
		ContentType: ContentType(m.ContentType),
		ReadBy:      []string(m.ReadBy),
		CreatedAt:   m.CreatedAt,
	}
}

// MessageToModel converts a domain Message to its GORM model.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:          msg.ID,
		SessionID:   msg.SessionID,
		Seq:         msg.Seq,
		SenderID:    msg.SenderID,
		Content:     msg.Content,
		ContentType: string(msg.ContentType),
		ReadBy:      database.StringArray(msg.ReadBy),
		CreatedAt:   msg.CreatedAt,
	}
}
