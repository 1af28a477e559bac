// Package ws exposes the three transport channels (main, video, screen) as
// websocket endpoints and pumps their frames into the orchestrator.
package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/app/orch"
	"github.com/okulov/huddle/internal/core"
	"github.com/okulov/huddle/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Orch      *orch.Orchestrator
	ReadLimit int64
}

// Handle upgrades the request and runs the channel until it dies. Each
// connection gets a fresh channel id; the logical user only becomes known
// when register_connection arrives on the channel.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context, kind domain.ChannelKind) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Str("module", "adapters.ws").Err(err).Msg("upgrade failed")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	ch := core.ChannelID(uuid.NewString())
	conn := newWSConn(ws)
	ctl.Orch.Registry.Attach(ch, conn)
	log.Info().Str("module", "adapters.ws").Str("channel", string(ch)).
		Str("kind", string(kind)).Msg("channel connected")

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		conn.writePump(ctx)
	}()
	go ctl.readPump(ctx, cancel, kind, ch, conn)
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, kind domain.ChannelKind, ch core.ChannelID, conn *wsConn) {
	defer func() {
		cancel()
		ctl.Orch.OnDisconnect(ch)
		conn.Close()
		log.Info().Str("module", "adapters.ws").Str("channel", string(ch)).Msg("channel closed")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := conn.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.Orch.HandleFrame(kind, ch, conn, data)
		}
	}
}
