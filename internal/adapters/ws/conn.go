package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

const writeWait = 5 * time.Second

// wsConn is one transport channel. Sends go through a buffered channel; a
// full buffer drops the frame rather than blocking the room broadcast.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame
	once sync.Once
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		conn: conn,
		send: make(chan core.Frame, 64),
	}
}

func (c *wsConn) TrySend(f core.Frame) error {
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

// Close shuts the transport. The send channel stays open so a racing
// broadcast can never panic; the write pump exits on context cancel.
func (c *wsConn) Close() {
	c.once.Do(func() {
		_ = c.conn.Close()
	})
}

func (c *wsConn) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Str("module", "adapters.ws").Err(err).Msg("write error")
				return
			}
		}
	}
}
