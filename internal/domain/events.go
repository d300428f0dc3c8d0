package domain

// WebSocket message types from client.
const (
	MsgTypeJoinSession  = "join_session"
	MsgTypeLeaveSession = "leave_session"
	MsgTypeSendMessage  = "send_message"
	MsgTypeMarkRead     = "mark_read"
	MsgTypeTyping       = "typing"
	MsgTypePing         = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeSessionJoined = "session_joined"
	MsgTypeSessionLeft   = "session_left"
	MsgTypeMessageAck    = "message_ack"
	MsgTypeNewMessage    = "new_message"
	MsgTypeReadReceipt   = "read_receipt"
	MsgTypeError         = "error"
	MsgTypePong          = "pong"
)

// Error codes surfaced over the live connection. They mirror the REST
// error taxonomy so clients render the same categories everywhere.
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeNotParticipant  = "NOT_PARTICIPANT"
	ErrCodeSessionReadonly = "SESSION_READONLY"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeNotJoined       = "NOT_JOINED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// BaseEvent is the envelope all WebSocket messages share.
type BaseEvent struct {
	Type string `json:"type"`
}

// Client -> Server

type JoinSessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type LeaveSessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type SendMessageEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

type MarkReadEvent struct {
	Type       string   `json:"type"`
	SessionID  string   `json:"session_id"`
	MessageIDs []string `json:"message_ids"`
}

type TypingEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	IsTyping  bool   `json:"is_typing"`
}

// Server -> Client

type SessionJoinedEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type SessionLeftEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// MessageAckEvent is the synchronous acknowledgement to the sender. The
// originating connection gets the ack instead of the fanout copy, so the
// sender never sees a double local echo.
type MessageAckEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

type NewMessageEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

type ReadReceiptEvent struct {
	Type       string   `json:"type"`
	SessionID  string   `json:"session_id"`
	UserID     string   `json:"user_id"`
	MessageIDs []string `json:"message_ids"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
