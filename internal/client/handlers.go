package client

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/domain"
	"github.com/okulov/huddle/internal/protocol"
)

func (c *Client) handleMain(data []byte) {
	ev, err := protocol.Peek(data)
	if err != nil {
		log.Debug().Str("module", "client").Err(err).Msg("bad frame on main channel")
		return
	}

	switch ev {
	case protocol.EvConferenceJoined:
		var p protocol.ConferenceJoined
		if json.Unmarshal(data, &p) != nil || p.Conference == nil {
			return
		}
		c.mu.Lock()
		c.conf = p.Conference
		c.mu.Unlock()
		c.corr.Resolve(reqJoin, p.Conference.Clone())

	case protocol.EvJoinConferenceFailed:
		var p protocol.JoinConferenceFailed
		if json.Unmarshal(data, &p) != nil {
			return
		}
		err := domain.ErrConferenceNotFound
		if p.Reason == "capacity exceeded" {
			err = domain.ErrConferenceFull
		}
		c.corr.Fail(reqJoin, err)

	case protocol.EvConferenceListResponse:
		var p protocol.ConferenceListResponse
		if json.Unmarshal(data, &p) != nil {
			return
		}
		c.corr.Resolve(reqList, p.Conferences)

	case protocol.EvConferenceCreated:
		var p protocol.ConferenceCreated
		if json.Unmarshal(data, &p) != nil {
			return
		}
		if cb := c.opts.Callbacks.OnConferenceCreated; cb != nil {
			cb(p.ConferenceID, p.Name)
		}

	case protocol.EvParticipantJoined:
		var p protocol.ParticipantJoined
		if json.Unmarshal(data, &p) != nil {
			return
		}
		c.mu.Lock()
		if c.conf != nil && c.conf.ID == p.ConferenceID {
			c.conf.Participants[p.ClientID] = p.ClientName
		}
		c.mu.Unlock()

	case protocol.EvParticipantLeft:
		var p protocol.ParticipantLeft
		if json.Unmarshal(data, &p) != nil {
			return
		}
		c.mu.Lock()
		if c.conf != nil && c.conf.ID == p.ConferenceID {
			delete(c.conf.Participants, p.ClientID)
		}
		c.mu.Unlock()

	case protocol.EvConferenceClosed:
		var p protocol.ConferenceClosed
		if json.Unmarshal(data, &p) != nil {
			return
		}
		c.mu.Lock()
		closed := c.conf != nil && c.conf.ID == p.ConferenceID
		var peer *PeerSession
		if closed {
			c.conf = nil
			peer = c.peer
			c.peer = nil
		}
		c.mu.Unlock()
		if peer != nil {
			peer.Close()
		}
		if closed {
			if cb := c.opts.Callbacks.OnConferenceClosed; cb != nil {
				cb(p.ConferenceID)
			}
		}

	case protocol.EvMessageReceived:
		var p protocol.MessageReceived
		if json.Unmarshal(data, &p) != nil {
			return
		}
		if cb := c.opts.Callbacks.OnMessage; cb != nil {
			cb(p.Sender, p.Message)
		}

	case protocol.EvAudio:
		var p protocol.Media
		if json.Unmarshal(data, &p) != nil {
			return
		}
		if cb := c.opts.Callbacks.OnAudio; cb != nil {
			cb(p.Data)
		}

	case protocol.EvModeChange:
		var p protocol.ModeChange
		if json.Unmarshal(data, &p) != nil {
			return
		}
		c.handleModeChange(p)

	case protocol.EvP2POffer, protocol.EvP2PAnswer, protocol.EvICECandidate:
		var p protocol.Signaling
		if json.Unmarshal(data, &p) != nil {
			return
		}
		c.handleSignaling(ev, p)

	default:
		log.Debug().Str("module", "client").Str("event", string(ev)).Msg("unexpected event on main channel")
	}
}

func (c *Client) handleVideo(data []byte) {
	c.handleMediaFrame(data, protocol.EvVideo, protocol.EvVideoStopped,
		c.opts.Callbacks.OnVideo, c.opts.Callbacks.OnVideoStopped)
}

func (c *Client) handleScreen(data []byte) {
	c.handleMediaFrame(data, protocol.EvScreenShare, protocol.EvScreenShareStopped,
		c.opts.Callbacks.OnScreenShare, c.opts.Callbacks.OnScreenStopped)
}

func (c *Client) handleMediaFrame(data []byte, frameEv, stoppedEv protocol.EventType,
	onFrame func(domain.UserID, []byte), onStopped func(domain.UserID)) {
	ev, err := protocol.Peek(data)
	if err != nil {
		return
	}
	switch ev {
	case frameEv:
		var p protocol.Media
		if json.Unmarshal(data, &p) != nil {
			return
		}
		if onFrame != nil {
			onFrame(p.UserID, p.Data)
		}
	case stoppedEv:
		var p protocol.MediaStopped
		if json.Unmarshal(data, &p) != nil {
			return
		}
		if onStopped != nil {
			onStopped(p.UserID)
		}
	}
}
