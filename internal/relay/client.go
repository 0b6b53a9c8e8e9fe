package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
)

const (
	// Buffered so one stalled peer only costs itself events.
	clientSendBuffer = 16

	writeTimeout = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
		done: make(chan struct{}),
	}
}

func (c *client) writePump(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Warn(ctx, "client write failed", slog.String("err", err.Error()))
				c.close()
				return
			}
		}
	}
}

// readUntilClosed drains inbound frames (clients send nothing the relay
// acts on) and returns when the peer disconnects.
func (c *client) readUntilClosed() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.close()
			return
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
