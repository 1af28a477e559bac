package orch

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/domain"
	"github.com/okulov/huddle/internal/protocol"
)

// onAudio runs one mixdown per inbound frame and fans the mixed result out
// to everyone but the talker. Best-effort: a failed mix is dropped, never
// retried.
func (o *Orchestrator) onAudio(data []byte) {
	var p protocol.Media
	if err := json.Unmarshal(data, &p); err != nil {
		log.Debug().Str("module", "orch").Err(err).Msg("bad audio frame")
		return
	}
	mixed, users, ok := o.Rooms.MixAudio(p.ConferenceID, p.UserID, p.Data)
	if !ok || len(mixed) == 0 {
		return
	}
	o.Notify.ToRoom(users, domain.ChannelMain, p.UserID, protocol.Media{
		Type: protocol.EvAudio, ConferenceID: p.ConferenceID, Data: mixed,
		UserID: p.UserID, Mixed: true,
	})
}

// dispatchMedia relays video and screen frames (and their stop notices)
// verbatim to the rest of the room on the channel kind they arrived on.
func (o *Orchestrator) dispatchMedia(ev, frameEv, stoppedEv protocol.EventType, kind domain.ChannelKind, data []byte) {
	switch ev {
	case frameEv:
		var p protocol.Media
		if err := json.Unmarshal(data, &p); err != nil {
			log.Debug().Str("module", "orch").Err(err).Msg("bad media frame")
			return
		}
		o.relayToRoom(p.ConferenceID, p.UserID, kind, p)
	case stoppedEv:
		var p protocol.MediaStopped
		if err := json.Unmarshal(data, &p); err != nil {
			log.Debug().Str("module", "orch").Err(err).Msg("bad media stop notice")
			return
		}
		o.relayToRoom(p.ConferenceID, p.UserID, kind, p)
	default:
		log.Debug().Str("module", "orch").Str("event", string(ev)).
			Str("kind", string(kind)).Msg("unexpected event on media channel")
	}
}

// onSignaling forwards offer/answer/candidate to every other room member,
// sender identity attached. The payload is never interpreted; semantic
// negotiation is the clients' business.
func (o *Orchestrator) onSignaling(data []byte) {
	var p protocol.Signaling
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
		log.Debug().Str("module", "orch").Err(err).Msg("bad signaling message")
		return
	}
	o.relayToRoom(p.ConferenceID, p.UserID, domain.ChannelMain, p)
}

func (o *Orchestrator) relayToRoom(id domain.ConferenceID, sender domain.UserID, kind domain.ChannelKind, msg any) {
	conf, ok := o.Rooms.Snapshot(id)
	if !ok {
		return
	}
	if _, member := conf.Participants[sender]; !member {
		return
	}
	o.Notify.ToRoom(participantIDs(conf), kind, sender, msg)
}
