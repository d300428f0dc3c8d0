package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/config"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/hub"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/service"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/jwt"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/log"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/response"
)

// WSHandler owns the live side of the gateway: it authenticates the
// upgrade, runs the connection pumps and dispatches protocol events.
type WSHandler struct {
	hub         *hub.Hub
	chatService service.ChatService
	verifier    *jwt.Verifier
	cfg         config.WebSocketConfig
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, chatService service.ChatService, verifier *jwt.Verifier, cfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:         h,
		chatService: chatService,
		verifier:    verifier,
		cfg:         cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handle authenticates and upgrades a connection. Browsers cannot set
// headers on the WebSocket handshake, so the token is accepted as a
// query parameter with the Authorization header as a fallback.
func (h *WSHandler) Handle(c *gin.Context) {
	l := log.Ctx(c.Request.Context())

	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		token = strings.TrimPrefix(header, "Bearer ")
	}
	if token == "" {
		response.Unauthorized(c, "missing token")
		return
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		l.Warn().Err(err).Msg("websocket auth rejected")
		response.Unauthorized(c, "invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), claims.UserID, h.hub, conn, h.cfg)
	h.hub.Register(client)

	l.Info().
		Str(log.FieldConnectionID, client.ID).
		Str(log.FieldUserID, client.UserID).
		Msg("websocket connected")

	go client.WritePump()
	go client.ReadPump(h.handleEvent)
}

// dispatchTimeout bounds the storage and broker work behind one inbound
// frame; the socket deadlines only cover the I/O itself.
const dispatchTimeout = 10 * time.Second

// handleEvent dispatches one inbound frame. Every failure is reported
// back on the same connection; malformed frames never kill it.
func (h *WSHandler) handleEvent(client *hub.Client, raw []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(raw, &base); err != nil {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid message format"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	switch base.Type {
	case domain.MsgTypeJoinSession:
		h.handleJoin(ctx, client, raw)
	case domain.MsgTypeLeaveSession:
		h.handleLeave(client, raw)
	case domain.MsgTypeSendMessage:
		h.handleSend(ctx, client, raw)
	case domain.MsgTypeMarkRead:
		h.handleMarkRead(ctx, client, raw)
	case domain.MsgTypeTyping:
		h.handleTyping(ctx, client, raw)
	case domain.MsgTypePing:
		client.SendEvent(domain.BaseEvent{Type: domain.MsgTypePong})
	default:
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "unknown message type"))
	}
}

func (h *WSHandler) handleJoin(ctx context.Context, client *hub.Client, raw []byte) {
	var event domain.JoinSessionEvent
	if err := json.Unmarshal(raw, &event); err != nil || event.SessionID == "" {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "session_id is required"))
		return
	}

	ctx = log.WithSession(ctx, event.SessionID)
	if _, err := h.chatService.AuthorizeJoin(ctx, event.SessionID, client.UserID); err != nil {
		client.SendEvent(h.errorEvent(err))
		return
	}

	h.hub.JoinSession(client, event.SessionID)
	client.SendEvent(&domain.SessionJoinedEvent{
		Type:      domain.MsgTypeSessionJoined,
		SessionID: event.SessionID,
	})

	log.L().Debug().
		Str(log.FieldConnectionID, client.ID).
		Str(log.FieldSessionID, event.SessionID).
		Msg("client joined session")
}

func (h *WSHandler) handleLeave(client *hub.Client, raw []byte) {
	var event domain.LeaveSessionEvent
	if err := json.Unmarshal(raw, &event); err != nil || event.SessionID == "" {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "session_id is required"))
		return
	}

	h.hub.LeaveSession(client, event.SessionID)
	client.SendEvent(&domain.SessionLeftEvent{
		Type:      domain.MsgTypeSessionLeft,
		SessionID: event.SessionID,
	})
}

func (h *WSHandler) handleSend(ctx context.Context, client *hub.Client, raw []byte) {
	var event domain.SendMessageEvent
	if err := json.Unmarshal(raw, &event); err != nil || event.SessionID == "" {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "session_id is required"))
		return
	}
	if !client.IsJoined(event.SessionID) {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeNotJoined, "join the session before sending"))
		return
	}

	ctx = log.WithSession(ctx, event.SessionID)
	message, err := h.chatService.SendMessage(ctx, client.UserID, event.SessionID, event.Content, client.ID)
	if err != nil {
		client.SendEvent(h.errorEvent(err))
		return
	}

	client.SendEvent(&domain.MessageAckEvent{
		Type:    domain.MsgTypeMessageAck,
		Message: message,
	})
}

func (h *WSHandler) handleMarkRead(ctx context.Context, client *hub.Client, raw []byte) {
	var event domain.MarkReadEvent
	if err := json.Unmarshal(raw, &event); err != nil || event.SessionID == "" {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "session_id is required"))
		return
	}
	if !client.IsJoined(event.SessionID) {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeNotJoined, "join the session before marking read"))
		return
	}

	ctx = log.WithSession(ctx, event.SessionID)
	if _, err := h.chatService.MarkRead(ctx, client.UserID, event.SessionID, event.MessageIDs, client.ID); err != nil {
		client.SendEvent(h.errorEvent(err))
	}
}

func (h *WSHandler) handleTyping(ctx context.Context, client *hub.Client, raw []byte) {
	var event domain.TypingEvent
	if err := json.Unmarshal(raw, &event); err != nil || event.SessionID == "" {
		return
	}
	if !client.IsJoined(event.SessionID) {
		return
	}

	// Best effort, errors are not surfaced to the sender.
	h.chatService.Typing(ctx, client.UserID, event.SessionID, event.IsTyping, client.ID)
}

// errorEvent maps a service error to its protocol error event.
func (h *WSHandler) errorEvent(err error) *domain.ErrorEvent {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid request")
	case errors.Is(err, service.ErrSessionNotFound):
		return domain.NewErrorEvent(domain.ErrCodeNotFound, "session not found")
	case errors.Is(err, service.ErrNotParticipant):
		return domain.NewErrorEvent(domain.ErrCodeNotParticipant, "you are not a participant of this session")
	case errors.Is(err, service.ErrSessionReadonly):
		return domain.NewErrorEvent(domain.ErrCodeSessionReadonly, "this session is read only")
	default:
		return domain.NewErrorEvent(domain.ErrCodeInternalError, "internal error")
	}
}
