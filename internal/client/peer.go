package client

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Labels of the four sub-channels the initiator opens over a direct session.
const (
	LabelMessage = "message"
	LabelAudio   = "audio"
	LabelVideo   = "video"
	LabelScreen  = "screen"
)

var channelLabels = []string{LabelMessage, LabelAudio, LabelVideo, LabelScreen}

func peerConfig(stunServer string) webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{stunServer}},
		},
	}
}

// PeerSession is the negotiated direct connection of P2P mode plus its
// labeled sub-channels. The initiator opens all four channels; the responder
// receives them by label as they arrive.
type PeerSession struct {
	pc     *webrtc.PeerConnection
	mu     sync.Mutex
	chans  map[string]*webrtc.DataChannel
	onData func(label string, data []byte)
}

func NewPeerSession(cfg webrtc.Configuration, initiator bool, onData func(label string, data []byte)) (*PeerSession, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	s := &PeerSession{
		pc:     pc,
		chans:  make(map[string]*webrtc.DataChannel, len(channelLabels)),
		onData: onData,
	}

	pc.OnICEConnectionStateChange(func(st webrtc.ICEConnectionState) {
		log.Info().Str("module", "client.peer").Str("ice_state", st.String()).Msg("ICE state")
	})

	if initiator {
		for _, label := range channelLabels {
			dc, err := pc.CreateDataChannel(label, nil)
			if err != nil {
				_ = pc.Close()
				return nil, err
			}
			s.bind(dc)
		}
	} else {
		pc.OnDataChannel(s.bind)
	}
	return s, nil
}

func (s *PeerSession) bind(dc *webrtc.DataChannel) {
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if s.onData != nil {
			s.onData(dc.Label(), msg.Data)
		}
	})
	s.mu.Lock()
	s.chans[dc.Label()] = dc
	s.mu.Unlock()
}

func (s *PeerSession) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	s.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil {
			fn(cand.ToJSON())
		}
	})
}

// CreateOffer builds the local offer and blocks until ICE gathering reports
// complete, so the SDP carries the discovered candidates.
func (s *PeerSession) CreateOffer() (string, error) {
	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	gatherComplete := webrtc.GatheringCompletePromise(s.pc)
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return "", err
	}
	<-gatherComplete
	return s.pc.LocalDescription().SDP, nil
}

// ApplyOfferAndCreateAnswer applies the remote offer and replies after the
// responder's own gathering completes.
func (s *PeerSession) ApplyOfferAndCreateAnswer(sdp string) (string, error) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return "", err
	}
	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	gatherComplete := webrtc.GatheringCompletePromise(s.pc)
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return "", err
	}
	<-gatherComplete
	return s.pc.LocalDescription().SDP, nil
}

func (s *PeerSession) ApplyAnswer(sdp string) error {
	return s.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer, SDP: sdp,
	})
}

func (s *PeerSession) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return s.pc.AddICECandidate(ci)
}

// Send writes to one labeled sub-channel. A channel that has not arrived or
// opened yet makes this a silent no-op: media is lossy by design.
func (s *PeerSession) Send(label string, data []byte) error {
	s.mu.Lock()
	dc, ok := s.chans[label]
	s.mu.Unlock()
	if !ok || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return nil
	}
	return dc.Send(data)
}

func (s *PeerSession) Close() {
	if err := s.pc.Close(); err != nil {
		log.Debug().Str("module", "client.peer").Err(err).Msg("peer close")
	}
}
