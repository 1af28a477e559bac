package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/domain"
)

// channel is one websocket connection to the server. Writes are serialized
// with a mutex; reads run on a single loop owned by the client.
type channel struct {
	kind domain.ChannelKind
	conn *websocket.Conn
	mu   sync.Mutex
}

func dialChannel(ctx context.Context, serverURL string, kind domain.ChannelKind, header http.Header) (*channel, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/ws/" + string(kind)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, err
	}
	return &channel{kind: kind, conn: conn}, nil
}

func (ch *channel) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.conn.WriteMessage(websocket.TextMessage, data)
}

func (ch *channel) readLoop(ctx context.Context, handle func([]byte)) {
	defer ch.close()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := ch.conn.ReadMessage()
			if err != nil {
				log.Debug().Str("module", "client").Str("kind", string(ch.kind)).Err(err).Msg("read loop done")
				return
			}
			handle(data)
		}
	}
}

func (ch *channel) close() {
	_ = ch.conn.Close()
}
