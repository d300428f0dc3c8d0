package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
)

func dialWS(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(event))
}

func read(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var base domain.BaseEvent
	require.NoError(t, json.Unmarshal(data, &base))
	return base.Type, data
}

func readExpect(t *testing.T, conn *websocket.Conn, wantType string, into interface{}) {
	t.Helper()

	gotType, data := read(t, conn)
	require.Equal(t, wantType, gotType, "payload: %s", data)
	if into != nil {
		require.NoError(t, json.Unmarshal(data, into))
	}
}

func TestWSRejectsBadToken(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSJoinRequiresParticipation(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	session, _, err := env.svc.CreateSession(context.Background(), "booking-1", "owner-1", "seeker-1")
	require.NoError(t, err)

	conn := dialWS(t, server, env.token(t, "stranger"))
	send(t, conn, domain.JoinSessionEvent{Type: domain.MsgTypeJoinSession, SessionID: session.ID})

	var errEvent domain.ErrorEvent
	readExpect(t, conn, domain.MsgTypeError, &errEvent)
	require.Equal(t, domain.ErrCodeNotParticipant, errEvent.Code)
}

func TestWSMessageFlow(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	session, _, err := env.svc.CreateSession(context.Background(), "booking-1", "owner-1", "seeker-1")
	require.NoError(t, err)

	owner := dialWS(t, server, env.token(t, "owner-1"))
	seeker := dialWS(t, server, env.token(t, "seeker-1"))

	join := domain.JoinSessionEvent{Type: domain.MsgTypeJoinSession, SessionID: session.ID}
	send(t, owner, join)
	readExpect(t, owner, domain.MsgTypeSessionJoined, nil)
	send(t, seeker, join)
	readExpect(t, seeker, domain.MsgTypeSessionJoined, nil)

	send(t, owner, domain.SendMessageEvent{Type: domain.MsgTypeSendMessage, SessionID: session.ID, Content: "hello there"})

	// The sender gets an ack on its own connection, not the fanout copy.
	var ack domain.MessageAckEvent
	readExpect(t, owner, domain.MsgTypeMessageAck, &ack)
	require.Equal(t, "hello there", ack.Message.Content)
	require.NotEmpty(t, ack.Message.ID)

	var push domain.NewMessageEvent
	readExpect(t, seeker, domain.MsgTypeNewMessage, &push)
	require.Equal(t, ack.Message.ID, push.Message.ID)
	require.Equal(t, "owner-1", push.Message.SenderID)

	// Read receipt flows back to the sender's connection.
	send(t, seeker, domain.MarkReadEvent{Type: domain.MsgTypeMarkRead, SessionID: session.ID, MessageIDs: []string{push.Message.ID}})

	var receipt domain.ReadReceiptEvent
	readExpect(t, owner, domain.MsgTypeReadReceipt, &receipt)
	require.Equal(t, "seeker-1", receipt.UserID)
	require.Equal(t, []string{push.Message.ID}, receipt.MessageIDs)
}

func TestWSSendRequiresJoin(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	session, _, err := env.svc.CreateSession(context.Background(), "booking-1", "owner-1", "seeker-1")
	require.NoError(t, err)

	owner := dialWS(t, server, env.token(t, "owner-1"))
	send(t, owner, domain.SendMessageEvent{Type: domain.MsgTypeSendMessage, SessionID: session.ID, Content: "hello"})

	var errEvent domain.ErrorEvent
	readExpect(t, owner, domain.MsgTypeError, &errEvent)
	require.Equal(t, domain.ErrCodeNotJoined, errEvent.Code)
}

func TestWSSendBlockedWhenReadonly(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	session, _, err := env.svc.CreateSession(context.Background(), "booking-1", "owner-1", "seeker-1")
	require.NoError(t, err)
	_, err = env.svc.SetStatus(context.Background(), "booking-1", domain.SessionStatusReadonly)
	require.NoError(t, err)

	owner := dialWS(t, server, env.token(t, "owner-1"))
	send(t, owner, domain.JoinSessionEvent{Type: domain.MsgTypeJoinSession, SessionID: session.ID})
	readExpect(t, owner, domain.MsgTypeSessionJoined, nil)

	send(t, owner, domain.SendMessageEvent{Type: domain.MsgTypeSendMessage, SessionID: session.ID, Content: "too late"})

	var errEvent domain.ErrorEvent
	readExpect(t, owner, domain.MsgTypeError, &errEvent)
	require.Equal(t, domain.ErrCodeSessionReadonly, errEvent.Code)

	// History remains readable over REST after the block.
	w := env.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID+"/messages", nil, bearerHeader(env.token(t, "owner-1")))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestWSTypingReachesPeerOnly(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	session, _, err := env.svc.CreateSession(context.Background(), "booking-1", "owner-1", "seeker-1")
	require.NoError(t, err)

	owner := dialWS(t, server, env.token(t, "owner-1"))
	seeker := dialWS(t, server, env.token(t, "seeker-1"))

	join := domain.JoinSessionEvent{Type: domain.MsgTypeJoinSession, SessionID: session.ID}
	send(t, owner, join)
	readExpect(t, owner, domain.MsgTypeSessionJoined, nil)
	send(t, seeker, join)
	readExpect(t, seeker, domain.MsgTypeSessionJoined, nil)

	send(t, owner, domain.TypingEvent{Type: domain.MsgTypeTyping, SessionID: session.ID, IsTyping: true})

	var typing domain.TypingEvent
	readExpect(t, seeker, domain.MsgTypeTyping, &typing)
	require.Equal(t, "owner-1", typing.UserID)
	require.True(t, typing.IsTyping)

	// A ping confirms the owner's connection received nothing in between.
	send(t, owner, domain.BaseEvent{Type: domain.MsgTypePing})
	readExpect(t, owner, domain.MsgTypePong, nil)
}

func TestWSUnknownTypeGetsError(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	conn := dialWS(t, server, env.token(t, "owner-1"))
	send(t, conn, domain.BaseEvent{Type: "presence_update"})

	var errEvent domain.ErrorEvent
	readExpect(t, conn, domain.MsgTypeError, &errEvent)
	require.Equal(t, domain.ErrCodeBadRequest, errEvent.Code)
}
