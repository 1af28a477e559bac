package app

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/okulov/huddle/internal/domain"
	"github.com/okulov/huddle/internal/protocol"
)

// conference pairs the authoritative state with its own lock and mixer.
// Every mutating operation against the same conference serializes on mu,
// across the capacity check, the membership change, the mode evaluation and
// the notice emission, so members observe notices in causal order.
type conference struct {
	mu     sync.Mutex
	conf   *domain.Conference
	mixer  *Mixer
	closed bool
}

// ConferenceManager is the authoritative store for live conferences.
type ConferenceManager struct {
	mu     sync.RWMutex
	confs  map[domain.ConferenceID]*conference
	byUser map[domain.UserID]domain.ConferenceID

	notify          Notifier
	maxParticipants int
}

func NewConferenceManager(notify Notifier, maxParticipants int) *ConferenceManager {
	if maxParticipants <= 0 {
		maxParticipants = domain.DefaultMaxParticipants
	}
	return &ConferenceManager{
		confs:           make(map[domain.ConferenceID]*conference),
		byUser:          make(map[domain.UserID]domain.ConferenceID),
		notify:          notify,
		maxParticipants: maxParticipants,
	}
}

// Create allocates a conference with the creator as sole participant. The
// creator gets the full state; everyone else gets a lightweight created
// notice so idle clients can refresh their list. That notice is the single
// globally-scoped broadcast in the system.
func (m *ConferenceManager) Create(name string, creator domain.UserID, username string) *domain.Conference {
	c := &conference{
		conf: &domain.Conference{
			ID:              domain.ConferenceID(uuid.NewString()),
			Name:            name,
			CreatorID:       creator,
			Participants:    map[domain.UserID]string{creator: username},
			MaxParticipants: m.maxParticipants,
			Mode:            domain.ModeCS,
		},
		mixer: NewMixer(),
	}

	m.mu.Lock()
	m.confs[c.conf.ID] = c
	m.byUser[creator] = c.conf.ID
	m.mu.Unlock()

	snap := c.conf.Clone()
	log.Info().Str("module", "app.rooms").Str("conference", string(snap.ID)).
		Str("creator", string(creator)).Str("name", name).Msg("conference created")

	m.notify.ToUser(creator, domain.ChannelMain, protocol.ConferenceJoined{
		Type: protocol.EvConferenceJoined, Conference: snap,
	})
	m.notify.BroadcastMain(creator, protocol.ConferenceCreated{
		Type: protocol.EvConferenceCreated, ConferenceID: snap.ID, Name: snap.Name,
	})
	return snap
}

// Join admits a user, honoring capacity, and re-evaluates the topology.
func (m *ConferenceManager) Join(id domain.ConferenceID, user domain.UserID, username string) (*domain.Conference, error) {
	c, ok := m.lookup(id)
	if !ok {
		return nil, domain.ErrConferenceNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		// Lost the race against a destroy between lookup and lock.
		return nil, domain.ErrConferenceNotFound
	}
	if len(c.conf.Participants) >= c.conf.MaxParticipants {
		return nil, domain.ErrConferenceFull
	}
	c.conf.Participants[user] = username

	m.mu.Lock()
	m.byUser[user] = id
	m.mu.Unlock()

	snap := c.conf.Clone()
	log.Info().Str("module", "app.rooms").Str("conference", string(id)).
		Str("user", string(user)).Int("participants", len(snap.Participants)).Msg("participant joined")

	m.notify.ToUser(user, domain.ChannelMain, protocol.ConferenceJoined{
		Type: protocol.EvConferenceJoined, Conference: snap,
	})
	m.notify.ToRoom(members(c.conf), domain.ChannelMain, user, protocol.ParticipantJoined{
		Type: protocol.EvParticipantJoined, ConferenceID: id, ClientID: user, ClientName: username,
	})
	m.evalMode(c, user)
	return snap, nil
}

// Leave removes a participant and destroys the conference once empty.
func (m *ConferenceManager) Leave(id domain.ConferenceID, user domain.UserID) {
	c, ok := m.lookup(id)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	username, ok := c.conf.Participants[user]
	if !ok {
		return
	}
	delete(c.conf.Participants, user)
	c.mixer.RemoveStream(user)

	m.mu.Lock()
	delete(m.byUser, user)
	m.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("conference", string(id)).
		Str("user", string(user)).Int("participants", len(c.conf.Participants)).Msg("participant left")

	m.notify.ToRoom(members(c.conf), domain.ChannelMain, "", protocol.ParticipantLeft{
		Type: protocol.EvParticipantLeft, ConferenceID: id, ClientID: user, ClientName: username,
	})

	if len(c.conf.Participants) == 0 {
		m.destroy(id, c)
		return
	}
	m.evalMode(c, "")
}

// Close tears a conference down. Only the creator may do this; anyone else
// is a silent no-op.
func (m *ConferenceManager) Close(id domain.ConferenceID, user domain.UserID) {
	c, ok := m.lookup(id)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.conf.CreatorID != user {
		log.Warn().Str("module", "app.rooms").Str("conference", string(id)).
			Str("user", string(user)).Err(domain.ErrNotCreator).Msg("close refused")
		return
	}

	m.notify.ToRoom(members(c.conf), domain.ChannelMain, "", protocol.ConferenceClosed{
		Type: protocol.EvConferenceClosed, ConferenceID: id,
	})
	c.conf.Participants = map[domain.UserID]string{}
	m.destroy(id, c)
}

// List snapshots all live conferences.
func (m *ConferenceManager) List() []*domain.Conference {
	m.mu.RLock()
	states := make([]*conference, 0, len(m.confs))
	for _, c := range m.confs {
		states = append(states, c)
	}
	m.mu.RUnlock()

	out := make([]*domain.Conference, 0, len(states))
	for _, c := range states {
		c.mu.Lock()
		out = append(out, c.conf.Clone())
		c.mu.Unlock()
	}
	return out
}

// Snapshot returns a copy of one conference's state.
func (m *ConferenceManager) Snapshot(id domain.ConferenceID) (*domain.Conference, bool) {
	c, ok := m.lookup(id)
	if !ok {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conf.Clone(), true
}

// Disconnect treats the loss of a user's main channel as a leave from
// whichever conference holds them.
func (m *ConferenceManager) Disconnect(user domain.UserID) {
	m.mu.RLock()
	id, ok := m.byUser[user]
	m.mu.RUnlock()
	if !ok {
		return
	}
	m.Leave(id, user)
}

// MixAudio stores the sender's latest buffer and produces one mixed frame
// on the room's current snapshot of buffers. The add/mix pair runs under
// the conference lock so no half-updated stream map is ever read. Returns
// the frame plus the member set to fan it out to; mixing only happens in
// CS mode for a current member.
func (m *ConferenceManager) MixAudio(id domain.ConferenceID, user domain.UserID, data []byte) ([]byte, []domain.UserID, bool) {
	c, ok := m.lookup(id)
	if !ok {
		return nil, nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, member := c.conf.Participants[user]; !member || c.conf.Mode != domain.ModeCS {
		return nil, nil, false
	}
	c.mixer.AddStream(user, data)
	return c.mixer.Mix(), members(c.conf), true
}

func (m *ConferenceManager) lookup(id domain.ConferenceID) (*conference, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.confs[id]
	return c, ok
}

// destroy drops the conference from the index. Caller holds c.mu.
func (m *ConferenceManager) destroy(id domain.ConferenceID, c *conference) {
	c.closed = true
	m.mu.Lock()
	for user := range c.conf.Participants {
		delete(m.byUser, user)
	}
	delete(m.confs, id)
	m.mu.Unlock()
	log.Info().Str("module", "app.rooms").Str("conference", string(id)).Msg("conference destroyed")
}

// evalMode re-checks the topology after a membership change and notifies
// the room when it flips. joiner is set on the join path so the directive
// targets the participant that was already present; on the leave path the
// tie-break is the lexicographically smallest remaining id.
func (m *ConferenceManager) evalMode(c *conference, joiner domain.UserID) {
	next := modeFor(len(c.conf.Participants))
	if next == c.conf.Mode {
		return
	}
	c.conf.Mode = next

	mc := protocol.ModeChange{
		Type: protocol.EvModeChange, ConferenceID: c.conf.ID, Mode: next,
	}
	if next == domain.ModeP2P {
		if joiner != "" {
			mc.TargetSID = p2pTargetAfterJoin(c.conf.Participants, joiner)
		} else {
			mc.TargetSID = p2pTargetAfterLeave(c.conf.Participants)
		}
	}
	log.Info().Str("module", "app.rooms").Str("conference", string(c.conf.ID)).
		Str("mode", string(next)).Str("target", string(mc.TargetSID)).Msg("mode change")
	m.notify.ToRoom(members(c.conf), domain.ChannelMain, "", mc)
}

func members(conf *domain.Conference) []domain.UserID {
	out := make([]domain.UserID, 0, len(conf.Participants))
	for id := range conf.Participants {
		out = append(out, id)
	}
	return out
}
