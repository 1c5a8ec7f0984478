// Package realtime implements the session-authenticated presence and
// message-delivery core: the connection registry, the presence broadcaster,
// the message router, and the WebSocket connection manager that drives each
// connection's lifecycle.
package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
	pingPeriod     = 54 * time.Second
	pongWait       = 60 * time.Second
)

// Send failure categories. Both are isolated per handle: the caller logs and
// moves on, and the handle corrects itself through its own disconnect path.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// Connection is one live WebSocket connection owned by the registry for its
// lifetime. A reconnect always produces a fresh Connection; a closed one is
// never reused.
type Connection struct {
	id        string
	userID    chat.UserID
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	createdAt time.Time
	logger    zerolog.Logger
}

func newConnection(userID chat.UserID, ws *websocket.Conn, logger zerolog.Logger) *Connection {
	c := &Connection{
		id:        uuid.NewString(),
		userID:    userID,
		ws:        ws,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	c.logger = logger.With().Str("conn", c.id).Str("user", userID.String()).Logger()
	return c
}

// ID returns the handle's unique identifier.
func (c *Connection) ID() string { return c.id }

// UserID returns the identity that owns this handle.
func (c *Connection) UserID() chat.UserID { return c.userID }

// Send enqueues a frame for the write pump. It never blocks: a closed
// connection or a full buffer is reported as an error and the frame dropped.
func (c *Connection) Send(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// Close tears down the transport. Safe to call multiple times; closing the
// transport is the only cancellation mechanism a connection has.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// writePump serializes all writes to the transport: queued frames and
// keepalive pings. It exits when the connection is closed or a write fails.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug().Err(err).Msg("Write failed, closing connection")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
