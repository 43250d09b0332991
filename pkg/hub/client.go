package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Keepalive timing for dashboard sockets.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Dashboards only send control frames.
	maxInbound = 4 * 1024
)

// Conn is the subset of a websocket connection a Client uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Client is one dashboard websocket.
type Client struct {
	id   string
	hub  *Hub
	conn Conn
	send chan []byte
}

// NewClient registers conn with the hub. If the hub has stopped the
// client starts closed.
func NewClient(h *Hub, conn Conn) *Client {
	c := &Client{
		id:   uuid.NewString()[:8],
		hub:  h,
		conn: conn,
		send: make(chan []byte, clientQueue),
	}
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
	return c
}

// ID returns a short identifier used in logs.
func (c *Client) ID() string {
	return c.id
}

// Serve runs the connection until the peer goes away or the hub evicts
// it. It must be called from the websocket handler.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

// readLoop discards inbound frames; reading is what notices a closed
// socket and answers pongs.
func (c *Client) readLoop() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInbound)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the only writer on the connection.
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
