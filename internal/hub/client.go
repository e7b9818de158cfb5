package hub

import (
	"encoding/json"
	"time"

	"aimtrainer/backend/internal/auth"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client is a single websocket connection and the identity it acts as.
type Client struct {
	ID       string
	Identity auth.Identity

	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]bool // guarded by Hub.mu
}

// NewClient wraps conn. conn may be nil for connections that are only
// observed through Send, as in tests.
func NewClient(id string, identity auth.Identity, conn *websocket.Conn) *Client {
	return &Client{
		ID:       id,
		Identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		rooms:    make(map[string]bool),
	}
}

// Send exposes the outbound queue of the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Serve registers the client, runs its pumps and blocks until the connection
// closes. The handler sees OnConnect before the first message and
// OnDisconnect after the last one.
func (h *Hub) Serve(c *Client, handler Handler) {
	h.Register(c)
	handler.OnConnect(c)

	go c.writePump()
	c.readPump(h, handler)

	handler.OnDisconnect(c)
	h.Unregister(c)
}

func (c *Client) readPump(h *Hub, handler Handler) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("conn_id", c.ID).Msg("connection closed unexpectedly")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			h.Emit(c.ID, Event{
				Type:    "error",
				Payload: map[string]string{"message": "Malformed message", "code": "INVALID_PAYLOAD"},
			})
			continue
		}

		handler.OnMessage(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close terminates the underlying connection, which ends Serve.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return eris.Wrap(c.conn.Close(), "failed to close connection")
}
