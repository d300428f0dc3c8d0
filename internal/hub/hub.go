package hub

import (
	"encoding/json"
	"sync"

	"github.com/anandupg/Lyvo-Backend-sub001/pkg/log"
)

// deliverySet is the set of connections currently joined to one session.
// Each set carries its own lock so joins, leaves, and fanout in one
// session never contend with activity in another.
type deliverySet struct {
	mu      sync.RWMutex
	members map[string]*Client
}

func newDeliverySet() *deliverySet {
	return &deliverySet{members: make(map[string]*Client)}
}

func (s *deliverySet) add(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[c.ID] = c
}

func (s *deliverySet) remove(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, connID)
}

func (s *deliverySet) snapshot() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clients := make([]*Client, 0, len(s.members))
	for _, c := range s.members {
		clients = append(clients, c)
	}
	return clients
}

func (s *deliverySet) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Hub is the in-process connection registry and fanout router. It holds
// no durable state: on restart it is rebuilt empty, and clients recover
// anything they missed from the message log, never from redelivery.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client      // connectionID -> client
	sessions map[string]*deliverySet // sessionID -> joined connections
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		sessions: make(map[string]*deliverySet),
	}
}

// Register records a new authenticated connection with no joined
// sessions.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	log.L().Debug().Str(log.FieldConnectionID, c.ID).Str(log.FieldUserID, c.UserID).Msg("connection registered")
}

// Unregister detaches a connection: its outbound queue is closed and it
// is removed from every session delivery set it belonged to. The close
// comes first so a concurrent JoinSession either finished before the
// sweep below or observes the closed client and refuses; either way no
// delivery set keeps a detached client. Idempotent.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, known := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()

	if !known {
		return
	}

	c.closeSend()
	for _, sessionID := range c.JoinedSessions() {
		h.LeaveSession(c, sessionID)
	}

	log.L().Debug().Str(log.FieldConnectionID, c.ID).Str(log.FieldUserID, c.UserID).Msg("connection unregistered")
}

// JoinSession adds the connection to the session's delivery set.
// Authorization is the caller's concern. Idempotent; joining with a
// connection that has already detached is a no-op.
func (h *Hub) JoinSession(c *Client, sessionID string) {
	h.mu.Lock()
	set, ok := h.sessions[sessionID]
	if !ok {
		set = newDeliverySet()
		h.sessions[sessionID] = set
	}
	h.mu.Unlock()

	if !c.joinInto(set, sessionID) {
		// Detached concurrently; drop the set if it was created for
		// nothing.
		h.mu.Lock()
		if cur, still := h.sessions[sessionID]; still && cur.size() == 0 {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
		return
	}

	log.L().Debug().Str(log.FieldConnectionID, c.ID).Str(log.FieldSessionID, sessionID).Msg("connection joined session")
}

// LeaveSession removes both membership directions. Idempotent if not
// currently joined.
func (h *Hub) LeaveSession(c *Client, sessionID string) {
	h.mu.RLock()
	set, ok := h.sessions[sessionID]
	h.mu.RUnlock()

	if ok {
		set.remove(c.ID)
		if set.size() == 0 {
			h.mu.Lock()
			// Re-check under the write lock: someone may have joined
			// since the size check.
			if cur, still := h.sessions[sessionID]; still && cur.size() == 0 {
				delete(h.sessions, sessionID)
			}
			h.mu.Unlock()
		}
	}

	c.markLeft(sessionID)
}

// Broadcast delivers an event to every connection joined to the session
// except excludeConnID. Failures to reach individual connections (slow
// or just-detached) never surface to the publisher.
func (h *Hub) Broadcast(sessionID string, event interface{}, excludeConnID string) {
	data, err := json.Marshal(event)
	if err != nil {
		log.L().Error().Err(err).Str(log.FieldSessionID, sessionID).Msg("failed to marshal broadcast event")
		return
	}

	h.mu.RLock()
	set, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	for _, client := range set.snapshot() {
		if client.ID == excludeConnID {
			continue
		}
		client.mu.RLock()
		if !client.closed {
			select {
			case client.Send <- data:
			default:
				// Slow reader: drop the connection rather than block
				// the fanout.
				go h.Unregister(client)
			}
		}
		client.mu.RUnlock()
	}
}

// SessionClientCount reports how many connections are joined to the
// session.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	set, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	return set.size()
}

// ClientCount reports how many connections are attached.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
