// Package orch wires the registry, the conference store, the mixer and the
// emitter behind the event boundary. One handler per inbound event; a
// failing handler logs and returns, it never takes the dispatch loop down.
package orch

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/app"
	"github.com/okulov/huddle/internal/core"
	"github.com/okulov/huddle/internal/domain"
	"github.com/okulov/huddle/internal/protocol"
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.ConferenceManager
	Notify   app.Notifier
}

// HandleFrame dispatches one inbound event from a transport channel. The
// event set is closed per channel kind: control and signaling ride the main
// channel, video and screen frames ride their own, and registration is
// accepted anywhere since every channel must bind itself.
func (o *Orchestrator) HandleFrame(kind domain.ChannelKind, ch core.ChannelID, src core.SignalConnection, data []byte) {
	ev, err := protocol.Peek(data)
	if err != nil {
		log.Debug().Str("module", "orch").Err(err).Msg("bad frame")
		return
	}

	if ev == protocol.EvRegisterConnection {
		o.onRegister(kind, ch, data)
		return
	}

	switch kind {
	case domain.ChannelMain:
		o.dispatchMain(ev, src, data)
	case domain.ChannelVideo:
		o.dispatchMedia(ev, protocol.EvVideo, protocol.EvVideoStopped, kind, data)
	case domain.ChannelScreen:
		o.dispatchMedia(ev, protocol.EvScreenShare, protocol.EvScreenShareStopped, kind, data)
	}
}

func (o *Orchestrator) dispatchMain(ev protocol.EventType, src core.SignalConnection, data []byte) {
	switch ev {
	case protocol.EvCreateConference:
		o.onCreate(data)
	case protocol.EvJoinConference:
		o.onJoin(src, data)
	case protocol.EvLeaveConference:
		o.onLeave(data)
	case protocol.EvCloseConference:
		o.onClose(data)
	case protocol.EvGetConferences:
		o.onList(src)
	case protocol.EvSendMessage:
		o.onMessage(data)
	case protocol.EvAudio:
		o.onAudio(data)
	case protocol.EvP2POffer, protocol.EvP2PAnswer, protocol.EvICECandidate:
		o.onSignaling(data)
	default:
		log.Debug().Str("module", "orch").Str("event", string(ev)).Msg("unexpected event on main channel")
	}
}

// OnDisconnect is the channel-scoped cleanup path. Losing one channel never
// touches the user's other channels; only the main channel doubles as the
// user's conference presence.
func (o *Orchestrator) OnDisconnect(ch core.ChannelID) {
	user, kind, ok := o.Registry.PruneByChannelID(ch)
	if !ok {
		return
	}
	if kind == domain.ChannelMain {
		o.Rooms.Disconnect(user)
	}
}

func (o *Orchestrator) onRegister(kind domain.ChannelKind, ch core.ChannelID, data []byte) {
	var p protocol.RegisterConnection
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
		log.Debug().Str("module", "orch").Err(err).Msg("bad register_connection")
		return
	}
	o.Registry.Register(p.UserID, kind, ch)
}
