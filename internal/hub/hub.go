package hub

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Message is an event received from a client. The payload is decoded by
// whoever handles the event type.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler receives the lifecycle and inbound traffic of every connection.
type Handler interface {
	OnConnect(c *Client)
	OnMessage(c *Client, msg Message)
	OnDisconnect(c *Client)
}

// Hub manages all active connections and the rooms they are subscribed to.
type Hub struct {
	clients map[string]*Client
	rooms   map[string]map[*Client]bool
	mu      sync.RWMutex
	log     zerolog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[*Client]bool),
		log:     logger.With().Str("component", "hub").Logger(),
	}
}

// Register makes a client addressable by its connection ID.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.ID] = c
}

// Unregister removes a client from every room and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[c.ID]; !ok || current != c {
		return
	}
	delete(h.clients, c.ID)

	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	close(c.send) // Close the channel to signal the write pump to stop.
}

// Join subscribes the connection to room. Unknown connections are ignored.
func (h *Hub) Join(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	c.rooms[room] = true
}

// Leave unsubscribes the connection from room.
func (h *Hub) Leave(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[connID]; ok {
		h.leaveLocked(c, room)
	}
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Emit sends an event to a single connection.
func (h *Hub) Emit(connID string, event Event) {
	messageBytes, ok := h.marshal(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.clients[connID]; ok {
		h.deliver(c, event.Type, messageBytes)
	}
}

// EmitRoom sends an event to all clients in a room, skipping the listed
// connection IDs.
func (h *Hub) EmitRoom(room string, event Event, except ...string) {
	messageBytes, ok := h.marshal(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		if excluded(client.ID, except) {
			continue
		}
		h.deliver(client, event.Type, messageBytes)
	}
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of connections subscribed to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// The payload is marshalled at emit time so later mutations by the caller
// never reach the wire.
func (h *Hub) marshal(event Event) ([]byte, bool) {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("event", event.Type).Msg("failed to marshal event")
		return nil, false
	}
	return messageBytes, true
}

func (h *Hub) deliver(c *Client, eventType string, messageBytes []byte) {
	// Use a non-blocking send to prevent a slow client from blocking the hub.
	select {
	case c.send <- messageBytes:
	default:
		h.log.Warn().
			Str("conn_id", c.ID).
			Str("event", eventType).
			Msg("client send buffer full, dropping event")
	}
}

func excluded(id string, except []string) bool {
	for _, e := range except {
		if e == id {
			return true
		}
	}
	return false
}
