package client

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/domain"
	"github.com/okulov/huddle/internal/protocol"
)

type sdpPayload struct {
	SDP string `json:"sdp"`
}

// handleModeChange reacts to the server's topology directive. On P2P the
// recipient named as target stays passive and waits for the offer; everyone
// else initiates toward it. On CS any existing direct session is torn down.
func (c *Client) handleModeChange(p protocol.ModeChange) {
	c.mu.Lock()
	if c.conf == nil || c.conf.ID != p.ConferenceID {
		c.mu.Unlock()
		return
	}
	c.conf.Mode = p.Mode
	oldPeer := c.peer
	c.peer = nil
	c.mu.Unlock()

	if oldPeer != nil {
		oldPeer.Close()
	}
	if p.Mode != domain.ModeP2P {
		return
	}

	initiator := p.TargetSID != c.opts.UserID
	peer, err := c.newPeer(initiator)
	if err != nil {
		// Known corner case: stay in P2P with a null session; sends no-op.
		log.Error().Str("module", "client").Err(err).Msg("peer session setup failed")
		return
	}

	c.mu.Lock()
	c.peer = peer
	c.mu.Unlock()

	if initiator {
		go c.negotiate(peer)
	}
}

func (c *Client) newPeer(initiator bool) (*PeerSession, error) {
	peer, err := NewPeerSession(peerConfig(c.opts.STUNServer), initiator, c.opts.Callbacks.OnPeerData)
	if err != nil {
		return nil, err
	}
	peer.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		c.sendSignaling(protocol.EvICECandidate, ci)
	})
	return peer, nil
}

// negotiate runs the initiator side: offer after local gathering completes.
// Runs off the read loop because gathering can take a while.
func (c *Client) negotiate(peer *PeerSession) {
	sdp, err := peer.CreateOffer()
	if err != nil {
		log.Error().Str("module", "client").Err(err).Msg("create offer")
		return
	}
	c.sendSignaling(protocol.EvP2POffer, sdpPayload{SDP: sdp})
}

func (c *Client) handleSignaling(ev protocol.EventType, p protocol.Signaling) {
	if p.UserID == c.opts.UserID {
		return
	}
	c.mu.Lock()
	peer := c.peer
	inConf := c.conf != nil && c.conf.ID == p.ConferenceID
	c.mu.Unlock()
	if !inConf || peer == nil {
		return
	}

	switch ev {
	case protocol.EvP2POffer:
		var sp sdpPayload
		if json.Unmarshal(p.Payload, &sp) != nil {
			return
		}
		go func() {
			answer, err := peer.ApplyOfferAndCreateAnswer(sp.SDP)
			if err != nil {
				log.Error().Str("module", "client").Err(err).Msg("apply offer")
				return
			}
			c.sendSignaling(protocol.EvP2PAnswer, sdpPayload{SDP: answer})
		}()

	case protocol.EvP2PAnswer:
		var sp sdpPayload
		if json.Unmarshal(p.Payload, &sp) != nil {
			return
		}
		if err := peer.ApplyAnswer(sp.SDP); err != nil {
			log.Error().Str("module", "client").Err(err).Msg("apply answer")
		}

	case protocol.EvICECandidate:
		var ci webrtc.ICECandidateInit
		if json.Unmarshal(p.Payload, &ci) != nil {
			return
		}
		if err := peer.AddICECandidate(ci); err != nil {
			log.Debug().Str("module", "client").Err(err).Msg("add ice candidate")
		}
	}
}

func (c *Client) sendSignaling(ev protocol.EventType, payload any) {
	id, _, _, ok := c.snapshot()
	if !ok {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := c.main.send(protocol.Signaling{
		Type: ev, ConferenceID: id, Payload: raw, UserID: c.opts.UserID,
	}); err != nil {
		log.Debug().Str("module", "client").Err(err).Msg("signaling send failed")
	}
}
