package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/config"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/log"
)

// Client is one live connection attachment: an authenticated user bound
// to one WebSocket. A user may hold several clients at once (multiple
// devices). Attachments are ephemeral; nothing here survives a restart.
type Client struct {
	ID     string
	UserID string
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte

	cfg config.WebSocketConfig

	mu     sync.RWMutex
	joined map[string]struct{}
	closed bool
}

// NewClient creates a client for an authenticated connection.
func NewClient(id, userID string, hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		cfg:    cfg,
		joined: make(map[string]struct{}),
	}
}

// joinInto records membership and inserts the client into the delivery
// set in one step under the client lock. A client that has already
// detached refuses the join, so closeSend marks a hard boundary: no set
// can gain this client afterwards.
func (c *Client) joinInto(set *deliverySet, sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.joined[sessionID] = struct{}{}
	set.add(c)
	return true
}

func (c *Client) markLeft(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.joined, sessionID)
}

// JoinedSessions returns a snapshot of the session ids this connection
// currently participates in.
func (c *Client) JoinedSessions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.joined))
	for id := range c.joined {
		ids = append(ids, id)
	}
	return ids
}

// IsJoined reports whether the connection has joined the session.
func (c *Client) IsJoined(sessionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.joined[sessionID]
	return ok
}

// ReadPump reads inbound frames one at a time and hands them to handler.
// Processing is sequential per connection, so a connection's own
// operations never interleave. Exits on any read error; the deferred
// unregister detaches the connection from every session.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.L().Debug().Err(err).Str(log.FieldConnectionID, c.ID).Msg("websocket read error")
			}
			break
		}

		handler(c, message)
	}
}

// WritePump drains the outbound queue and keeps the connection alive
// with pings. Every write carries a deadline; a connection that cannot
// be written to in time is treated as dead.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent queues an event for delivery to this connection. Delivery
// to a connection that has since detached is a no-op, and a full queue
// drops the event rather than blocking the caller.
func (c *Client) SendEvent(event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}

	select {
	case c.Send <- data:
	default:
	}
	return nil
}

// closeSend shuts the outbound queue exactly once. Called by the hub on
// detach; the write pump observes the closed channel and exits.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
