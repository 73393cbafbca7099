package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Outbound buffer per connection; the connection is dropped when full
	sendBufferSize = 256
)

var ErrClientGone = errors.New("client disconnected")

// Client is one authenticated websocket connection. It carries the identity
// established at handshake time; the display fields ride along so pushes that
// need sender_username/sender_name never hit the database.
type Client struct {
	id       string
	userID   uint
	username string
	fullName string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{} // closed once on teardown; send itself is never closed

	closed       int32 // atomic, guards close of done
	unregistered int32 // atomic, makes hub teardown run once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uint, username, fullName string) *Client {
	return &Client{
		id:       uuid.New().String(),
		userID:   userID,
		username: username,
		fullName: fullName,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

func (c *Client) ID() string       { return c.id }
func (c *Client) UserID() uint     { return c.userID }
func (c *Client) Username() string { return c.username }
func (c *Client) FullName() string { return c.fullName }

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *Client) markUnregistered() bool {
	return atomic.CompareAndSwapInt32(&c.unregistered, 0, 1)
}

// close marks the client gone, wakes writePump through done and closes the
// underlying conn so readPump unwinds into the hub's unregister path.
func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

// SendEvent queues a downstream event on the connection. Delivery is
// best-effort: a gone client drops the event and reports ErrClientGone,
// nothing is retried. A full send buffer means the peer stopped reading; the
// whole connection is torn down, not just this event.
func (c *Client) SendEvent(event string, payload any) error {
	if c.isClosed() {
		return ErrClientGone
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClientGone
	default:
		// Slow consumer: drop the connection rather than buffer unbounded. A
		// muted connection must not linger in its rooms or hold the presence
		// slot.
		slog.Warn("send buffer full, dropping client", "connID", c.id, "userID", c.userID)
		c.hub.dropClient(c)
		return ErrClientGone
	}
}

// sendError surfaces a non-fatal failure to this connection in the uniform
// error shape.
func (c *Client) sendError(message string) {
	_ = c.SendEvent(EventError, ErrorPayload{Message: message})
}

// readPump reads frames from the peer and routes them through the hub, one at
// a time, so events on a single connection are handled in arrival order.
// Runs in its own goroutine; unregisters the client on the way out.
func (c *Client) readPump() {
	defer func() {
		c.close()
		c.hub.unregister <- c
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Error("websocket read failed", "connID", c.id, "userID", c.userID, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendError("invalid message format")
			continue
		}

		c.hub.handleEvent(c, &env)
	}
}

// writePump drains the send buffer to the peer and keeps the connection alive
// with pings. One writer per connection; gorilla conns do not allow
// concurrent writes.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
