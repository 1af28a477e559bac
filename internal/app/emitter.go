package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/core"
	"github.com/okulov/huddle/internal/domain"
)

// Notifier is the outbound half of the event boundary. Implementations must
// never block: delivery is best-effort, a slow receiver loses frames.
type Notifier interface {
	ToConn(conn core.SignalConnection, msg any)
	ToUser(user domain.UserID, kind domain.ChannelKind, msg any)
	ToRoom(users []domain.UserID, kind domain.ChannelKind, except domain.UserID, msg any)
	BroadcastMain(except domain.UserID, msg any)
}

// Emitter resolves recipients through the registry and fans events out.
type Emitter struct {
	Registry *Registry
}

func NewEmitter(reg *Registry) *Emitter {
	return &Emitter{Registry: reg}
}

func (e *Emitter) encode(msg any) (core.Frame, bool) {
	b, err := json.Marshal(msg)
	if err != nil {
		log.Error().Str("module", "app.emitter").Err(err).Msg("marshal event")
		return nil, false
	}
	return core.Frame(b), true
}

func (e *Emitter) ToConn(conn core.SignalConnection, msg any) {
	f, ok := e.encode(msg)
	if !ok {
		return
	}
	if err := conn.TrySend(f); err != nil {
		log.Debug().Str("module", "app.emitter").Err(err).Msg("send dropped")
	}
}

func (e *Emitter) ToUser(user domain.UserID, kind domain.ChannelKind, msg any) {
	conn, ok := e.Registry.Conn(user, kind)
	if !ok {
		log.Debug().Str("module", "app.emitter").Str("user", string(user)).
			Str("kind", string(kind)).Msg("no connection for user")
		return
	}
	e.ToConn(conn, msg)
}

func (e *Emitter) ToRoom(users []domain.UserID, kind domain.ChannelKind, except domain.UserID, msg any) {
	f, ok := e.encode(msg)
	if !ok {
		return
	}
	sent := 0
	for _, u := range users {
		if u == except {
			continue
		}
		conn, ok := e.Registry.Conn(u, kind)
		if !ok {
			continue
		}
		if err := conn.TrySend(f); err == nil {
			sent++
		}
	}
	log.Debug().Str("module", "app.emitter").Str("kind", string(kind)).
		Int("sent_to", sent).Msg("room broadcast")
}

func (e *Emitter) BroadcastMain(except domain.UserID, msg any) {
	f, ok := e.encode(msg)
	if !ok {
		return
	}
	for _, conn := range e.Registry.ConnsOfKind(domain.ChannelMain, except) {
		_ = conn.TrySend(f)
	}
}
