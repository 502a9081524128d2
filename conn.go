package main

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 5 * time.Second
	pongWait     = 10 * time.Second
	writeWait    = 10 * time.Second

	// Outbound messages queued per connection before we give up on it.
	sendHighWater = 256
)

// client wraps one websocket connection with a buffered outbound queue. All
// writes go through the queue and out via writePump; reads happen on the role
// handler's goroutine.
type client struct {
	conn *websocket.Conn
	send chan any

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan any, sendHighWater),
	}
}

// trySend queues a message without blocking. A full queue means the peer has
// stopped draining, so the connection is dropped rather than stalling the
// caller, which may hold the registry lock's fan-out plan.
func (c *client) trySend(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.closed = true
		close(c.send)
	}
}

// shutdown closes the outbound queue, which ends writePump. Safe to call more
// than once and concurrently with trySend.
func (c *client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump serializes all writes to the connection: queued messages plus the
// heartbeat pings. It owns the websocket write side and closes the underlying
// connection on exit.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// startHeartbeat arms the read deadline that pong responses keep pushing out.
// A silent peer times out the next read after pongWait.
func (c *client) startHeartbeat() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// outbound is one queued delivery in a fan-out plan.
type outbound struct {
	c   *client
	msg any
}

// fanout is a delivery plan collected under the registry lock and executed
// after it is released.
type fanout []outbound

func (f *fanout) add(c *client, msg any) {
	if c == nil {
		return
	}
	*f = append(*f, outbound{c: c, msg: msg})
}

func (f fanout) deliver() {
	for _, o := range f {
		o.c.trySend(o.msg)
	}
}
