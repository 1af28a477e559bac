package orch

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/core"
	"github.com/okulov/huddle/internal/domain"
	"github.com/okulov/huddle/internal/protocol"
)

func (o *Orchestrator) onCreate(data []byte) {
	var p protocol.CreateConference
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
		log.Debug().Str("module", "orch").Err(err).Msg("bad create_conference")
		return
	}
	o.Rooms.Create(p.Name, p.UserID, p.Username)
}

func (o *Orchestrator) onJoin(src core.SignalConnection, data []byte) {
	var p protocol.JoinConference
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
		log.Debug().Str("module", "orch").Err(err).Msg("bad join_conference")
		return
	}
	if _, err := o.Rooms.Join(p.ConferenceID, p.UserID, p.Username); err != nil {
		reason := "not found"
		if errors.Is(err, domain.ErrConferenceFull) {
			reason = "capacity exceeded"
		}
		o.Notify.ToConn(src, protocol.JoinConferenceFailed{
			Type: protocol.EvJoinConferenceFailed, ConferenceID: p.ConferenceID, Reason: reason,
		})
	}
}

func (o *Orchestrator) onLeave(data []byte) {
	var p protocol.LeaveConference
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
		log.Debug().Str("module", "orch").Err(err).Msg("bad leave_conference")
		return
	}
	o.Rooms.Leave(p.ConferenceID, p.UserID)
}

func (o *Orchestrator) onClose(data []byte) {
	var p protocol.CloseConference
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
		log.Debug().Str("module", "orch").Err(err).Msg("bad close_conference")
		return
	}
	o.Rooms.Close(p.ConferenceID, p.UserID)
}

func (o *Orchestrator) onList(src core.SignalConnection) {
	o.Notify.ToConn(src, protocol.ConferenceListResponse{
		Type: protocol.EvConferenceListResponse, Conferences: o.Rooms.List(),
	})
}

func (o *Orchestrator) onMessage(data []byte) {
	var p protocol.SendMessage
	if err := json.Unmarshal(data, &p); err != nil {
		log.Debug().Str("module", "orch").Err(err).Msg("bad send_message")
		return
	}
	conf, ok := o.Rooms.Snapshot(p.ConferenceID)
	if !ok {
		return
	}
	sender, member := conf.Participants[p.UserID]
	if !member {
		return
	}
	// Chat goes to the whole room, sender included: the sender's own UI
	// renders the message from the same event as everyone else's.
	o.Notify.ToRoom(participantIDs(conf), domain.ChannelMain, "", protocol.MessageReceived{
		Type: protocol.EvMessageReceived, Sender: sender, Message: p.Message,
	})
}

func participantIDs(conf *domain.Conference) []domain.UserID {
	out := make([]domain.UserID, 0, len(conf.Participants))
	for id := range conf.Participants {
		out = append(out, id)
	}
	return out
}
