// Package client implements the conference client: three transport channels
// against the server, request/response correlation on top of the event
// stream, and the direct peer session used in P2P mode.
package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/domain"
	"github.com/okulov/huddle/internal/protocol"
)

// Correlated request kinds. One in-flight request per kind.
const (
	reqJoin = "join_conference"
	reqList = "get_conferences"
)

// Callbacks deliver server pushes to the embedding application. Any nil
// callback is skipped. All callbacks run on the client's read loops.
type Callbacks struct {
	OnConferenceCreated func(id domain.ConferenceID, name string)
	OnConferenceClosed  func(id domain.ConferenceID)
	OnMessage           func(sender, message string)
	OnAudio             func(data []byte)
	OnVideo             func(from domain.UserID, data []byte)
	OnVideoStopped      func(from domain.UserID)
	OnScreenShare       func(from domain.UserID, data []byte)
	OnScreenStopped     func(from domain.UserID)
	OnPeerData          func(label string, data []byte)
}

type Options struct {
	ServerURL      string
	UserID         domain.UserID
	Username       string
	RequestTimeout time.Duration
	STUNServer     string
	Callbacks      Callbacks
	Header         http.Header
}

type Client struct {
	opts    Options
	timeout time.Duration

	main   *channel
	video  *channel
	screen *channel

	corr   *Correlator
	cancel context.CancelFunc

	mu   sync.Mutex
	conf *domain.Conference
	peer *PeerSession
}

func New(opts Options) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if opts.STUNServer == "" {
		opts.STUNServer = "stun:stun.l.google.com:19302"
	}
	return &Client{
		opts:    opts,
		timeout: opts.RequestTimeout,
		corr:    NewCorrelator(),
	}
}

// Connect dials the three channels and registers each against the logical
// user id. The channels are independent: losing one later does not tear the
// others down.
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	for _, b := range []struct {
		kind   domain.ChannelKind
		target **channel
		handle func([]byte)
	}{
		{domain.ChannelMain, &c.main, c.handleMain},
		{domain.ChannelVideo, &c.video, c.handleVideo},
		{domain.ChannelScreen, &c.screen, c.handleScreen},
	} {
		ch, err := dialChannel(ctx, c.opts.ServerURL, b.kind, c.opts.Header)
		if err != nil {
			cancel()
			c.closeChannels()
			return err
		}
		*b.target = ch
		if err := ch.send(protocol.RegisterConnection{
			Type: protocol.EvRegisterConnection, UserID: c.opts.UserID,
		}); err != nil {
			cancel()
			c.closeChannels()
			return err
		}
		go ch.readLoop(ctx, b.handle)
	}
	log.Info().Str("module", "client").Str("user", string(c.opts.UserID)).Msg("connected")
	return nil
}

func (c *Client) Disconnect() {
	if c.cancel != nil {
		c.cancel()
	}
	c.closeChannels()
	c.mu.Lock()
	peer := c.peer
	c.peer = nil
	c.conf = nil
	c.mu.Unlock()
	if peer != nil {
		peer.Close()
	}
}

func (c *Client) closeChannels() {
	for _, ch := range []*channel{c.main, c.video, c.screen} {
		if ch != nil {
			ch.close()
		}
	}
}

// Conference returns the current conference state, nil when not joined.
func (c *Client) Conference() *domain.Conference {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conf == nil {
		return nil
	}
	return c.conf.Clone()
}

// CreateConference asks the server for a new room. The resulting state
// arrives as a conference_joined push and is correlated like a join.
func (c *Client) CreateConference(ctx context.Context, name string) (*domain.Conference, error) {
	p := c.corr.Begin(reqJoin)
	defer c.corr.Finish(p)
	if err := c.main.send(protocol.CreateConference{
		Type: protocol.EvCreateConference, Name: name,
		Username: c.opts.Username, UserID: c.opts.UserID,
	}); err != nil {
		return nil, err
	}
	return c.awaitConference(ctx, p)
}

// JoinConference issues the join and waits for confirmation or failure
// within the request timeout.
func (c *Client) JoinConference(ctx context.Context, id domain.ConferenceID) (*domain.Conference, error) {
	p := c.corr.Begin(reqJoin)
	defer c.corr.Finish(p)
	if err := c.main.send(protocol.JoinConference{
		Type: protocol.EvJoinConference, ConferenceID: id,
		Username: c.opts.Username, UserID: c.opts.UserID,
	}); err != nil {
		return nil, err
	}
	return c.awaitConference(ctx, p)
}

func (c *Client) awaitConference(ctx context.Context, p *Pending) (*domain.Conference, error) {
	v, err := p.Wait(ctx, c.timeout)
	if err != nil {
		return nil, err
	}
	conf, _ := v.(*domain.Conference)
	return conf, nil
}

func (c *Client) LeaveConference() error {
	conf := c.dropConference()
	if conf == nil {
		return nil
	}
	return c.main.send(protocol.LeaveConference{
		Type: protocol.EvLeaveConference, ConferenceID: conf.ID, UserID: c.opts.UserID,
	})
}

// CloseConference is honored by the server only when this client created
// the conference.
func (c *Client) CloseConference() error {
	conf := c.dropConference()
	if conf == nil {
		return nil
	}
	return c.main.send(protocol.CloseConference{
		Type: protocol.EvCloseConference, ConferenceID: conf.ID, UserID: c.opts.UserID,
	})
}

func (c *Client) dropConference() *domain.Conference {
	c.mu.Lock()
	conf := c.conf
	peer := c.peer
	c.conf = nil
	c.peer = nil
	c.mu.Unlock()
	if peer != nil {
		peer.Close()
	}
	return conf
}

// ListConferences fetches a snapshot of live conferences. A timeout yields
// the zero list and domain.ErrRequestTimeout; callers may retry.
func (c *Client) ListConferences(ctx context.Context) ([]*domain.Conference, error) {
	p := c.corr.Begin(reqList)
	defer c.corr.Finish(p)
	if err := c.main.send(protocol.GetConferences{Type: protocol.EvGetConferences}); err != nil {
		return nil, err
	}
	v, err := p.Wait(ctx, c.timeout)
	if err != nil {
		return nil, err
	}
	confs, _ := v.([]*domain.Conference)
	return confs, nil
}

func (c *Client) SendMessage(message string) error {
	id, mode, peer, ok := c.snapshot()
	if !ok {
		return nil
	}
	if mode == domain.ModeP2P {
		if peer == nil {
			return nil
		}
		return peer.Send(LabelMessage, []byte(message))
	}
	return c.main.send(protocol.SendMessage{
		Type: protocol.EvSendMessage, ConferenceID: id,
		Message: message, UserID: c.opts.UserID,
	})
}

// SendAudio routes a raw buffer either to the server mixdown (CS) or over
// the direct audio channel (P2P). Without a negotiated session in P2P mode
// the frame is silently dropped.
func (c *Client) SendAudio(data []byte) error {
	return c.sendMedia(c.main, protocol.EvAudio, LabelAudio, data)
}

func (c *Client) SendVideo(data []byte) error {
	return c.sendMedia(c.video, protocol.EvVideo, LabelVideo, data)
}

func (c *Client) SendScreenShare(data []byte) error {
	return c.sendMedia(c.screen, protocol.EvScreenShare, LabelScreen, data)
}

func (c *Client) sendMedia(ch *channel, ev protocol.EventType, label string, data []byte) error {
	id, mode, peer, ok := c.snapshot()
	if !ok {
		return nil
	}
	if mode == domain.ModeP2P {
		if peer == nil {
			return nil
		}
		return peer.Send(label, data)
	}
	return ch.send(protocol.Media{
		Type: ev, ConferenceID: id, Data: data, UserID: c.opts.UserID,
	})
}

func (c *Client) StopVideo() error {
	return c.sendStopped(c.video, protocol.EvVideoStopped)
}

func (c *Client) StopScreenShare() error {
	return c.sendStopped(c.screen, protocol.EvScreenShareStopped)
}

func (c *Client) sendStopped(ch *channel, ev protocol.EventType) error {
	id, _, _, ok := c.snapshot()
	if !ok {
		return nil
	}
	return ch.send(protocol.MediaStopped{
		Type: ev, ConferenceID: id, UserID: c.opts.UserID,
	})
}

// snapshot copies the fields the send paths route on. The live conference
// is mutated under mu by the read loop (mode flips, membership), so it must
// never leak past the lock.
func (c *Client) snapshot() (domain.ConferenceID, domain.Mode, *PeerSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conf == nil {
		return "", "", nil, false
	}
	return c.conf.ID, c.conf.Mode, c.peer, true
}
