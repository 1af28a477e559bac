package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okulov/huddle/internal/core"
	"github.com/okulov/huddle/internal/domain"
	"github.com/okulov/huddle/internal/protocol"
)

type sentEvent struct {
	scope  string // "user", "room", "global"
	user   domain.UserID
	users  []domain.UserID
	kind   domain.ChannelKind
	except domain.UserID
	msg    any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) ToConn(conn core.SignalConnection, msg any) {
	n.record(sentEvent{scope: "conn", msg: msg})
}

func (n *recordingNotifier) ToUser(user domain.UserID, kind domain.ChannelKind, msg any) {
	n.record(sentEvent{scope: "user", user: user, kind: kind, msg: msg})
}

func (n *recordingNotifier) ToRoom(users []domain.UserID, kind domain.ChannelKind, except domain.UserID, msg any) {
	n.record(sentEvent{scope: "room", users: users, kind: kind, except: except, msg: msg})
}

func (n *recordingNotifier) BroadcastMain(except domain.UserID, msg any) {
	n.record(sentEvent{scope: "global", except: except, msg: msg})
}

func (n *recordingNotifier) record(e sentEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) modeChanges() []protocol.ModeChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []protocol.ModeChange
	for _, e := range n.events {
		if mc, ok := e.msg.(protocol.ModeChange); ok {
			out = append(out, mc)
		}
	}
	return out
}

func (n *recordingNotifier) lastModeChange(t *testing.T) protocol.ModeChange {
	t.Helper()
	mcs := n.modeChanges()
	require.NotEmpty(t, mcs)
	return mcs[len(mcs)-1]
}

func newTestManager(maxParticipants int) (*ConferenceManager, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewConferenceManager(n, maxParticipants), n
}

func TestCreateConference(t *testing.T) {
	m, n := newTestManager(10)
	conf := m.Create("Standup", "alice", "Alice")

	require.NotEmpty(t, conf.ID)
	assert.Equal(t, domain.UserID("alice"), conf.CreatorID)
	assert.Equal(t, map[domain.UserID]string{"alice": "Alice"}, conf.Participants)
	assert.Equal(t, domain.ModeCS, conf.Mode)
	assert.Equal(t, 10, conf.MaxParticipants)

	// Creator gets the full state, everyone else the lightweight notice.
	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.events, 2)
	assert.Equal(t, "user", n.events[0].scope)
	assert.Equal(t, domain.UserID("alice"), n.events[0].user)
	assert.IsType(t, protocol.ConferenceJoined{}, n.events[0].msg)
	assert.Equal(t, "global", n.events[1].scope)
	assert.Equal(t, domain.UserID("alice"), n.events[1].except)
	assert.IsType(t, protocol.ConferenceCreated{}, n.events[1].msg)
}

func TestJoinUnknownConference(t *testing.T) {
	m, _ := newTestManager(10)
	_, err := m.Join("missing", "bob", "Bob")
	assert.ErrorIs(t, err, domain.ErrConferenceNotFound)
}

func TestJoinCapacity(t *testing.T) {
	m, _ := newTestManager(2)
	conf := m.Create("Tiny", "alice", "Alice")
	_, err := m.Join(conf.ID, "bob", "Bob")
	require.NoError(t, err)

	_, err = m.Join(conf.ID, "carol", "Carol")
	assert.ErrorIs(t, err, domain.ErrConferenceFull)

	snap, ok := m.Snapshot(conf.ID)
	require.True(t, ok)
	assert.Len(t, snap.Participants, 2)
	assert.NotContains(t, snap.Participants, domain.UserID("carol"))
}

func TestLeaveDestroysEmptyConference(t *testing.T) {
	m, _ := newTestManager(10)
	conf := m.Create("Solo", "alice", "Alice")

	m.Leave(conf.ID, "alice")

	_, ok := m.Snapshot(conf.ID)
	assert.False(t, ok)
	assert.Empty(t, m.List())
}

func TestCloseRequiresCreator(t *testing.T) {
	m, n := newTestManager(10)
	conf := m.Create("Guarded", "alice", "Alice")
	_, err := m.Join(conf.ID, "bob", "Bob")
	require.NoError(t, err)

	m.Close(conf.ID, "bob")
	_, ok := m.Snapshot(conf.ID)
	assert.True(t, ok, "non-creator close must be a no-op")

	m.Close(conf.ID, "alice")
	_, ok = m.Snapshot(conf.ID)
	assert.False(t, ok)

	var closed []protocol.ConferenceClosed
	n.mu.Lock()
	for _, e := range n.events {
		if c, ok := e.msg.(protocol.ConferenceClosed); ok {
			closed = append(closed, c)
		}
	}
	n.mu.Unlock()
	require.Len(t, closed, 1)
	assert.Equal(t, conf.ID, closed[0].ConferenceID)
}

func TestModeTransitions(t *testing.T) {
	m, n := newTestManager(10)
	conf := m.Create("Standup", "alice", "Alice")

	requireMode := func(want domain.Mode, count int) {
		t.Helper()
		snap, ok := m.Snapshot(conf.ID)
		require.True(t, ok)
		assert.Equal(t, want, snap.Mode)
		assert.Len(t, snap.Participants, count)
	}

	requireMode(domain.ModeCS, 1)

	// Second member: P2P, the pre-existing participant is the target so the
	// joiner initiates toward it.
	_, err := m.Join(conf.ID, "bob", "Bob")
	require.NoError(t, err)
	requireMode(domain.ModeP2P, 2)
	mc := n.lastModeChange(t)
	assert.Equal(t, domain.ModeP2P, mc.Mode)
	assert.Equal(t, domain.UserID("alice"), mc.TargetSID)

	// Third member: back to server relay for everyone.
	_, err = m.Join(conf.ID, "carol", "Carol")
	require.NoError(t, err)
	requireMode(domain.ModeCS, 3)
	mc = n.lastModeChange(t)
	assert.Equal(t, domain.ModeCS, mc.Mode)
	assert.Empty(t, mc.TargetSID)

	// Shrink to two: P2P again, lexicographically smallest id is the target.
	m.Leave(conf.ID, "carol")
	requireMode(domain.ModeP2P, 2)
	mc = n.lastModeChange(t)
	assert.Equal(t, domain.ModeP2P, mc.Mode)
	assert.Equal(t, domain.UserID("alice"), mc.TargetSID)

	// Down to one: CS.
	m.Leave(conf.ID, "bob")
	requireMode(domain.ModeCS, 1)
	mc = n.lastModeChange(t)
	assert.Equal(t, domain.ModeCS, mc.Mode)

	// No mode change is emitted when the count moves between >2 values.
	before := len(n.modeChanges())
	_, _ = m.Join(conf.ID, "bob", "Bob")
	_, _ = m.Join(conf.ID, "carol", "Carol")
	_, _ = m.Join(conf.ID, "dave", "Dave")
	after := n.modeChanges()
	assert.Len(t, after, before+2) // 1->2 flips to P2P, 2->3 flips back, 3->4 silent
}

func TestDisconnectActsAsLeave(t *testing.T) {
	m, _ := newTestManager(10)
	conf := m.Create("Flaky", "alice", "Alice")
	_, err := m.Join(conf.ID, "bob", "Bob")
	require.NoError(t, err)

	m.Disconnect("bob")

	snap, ok := m.Snapshot(conf.ID)
	require.True(t, ok)
	assert.NotContains(t, snap.Participants, domain.UserID("bob"))

	m.Disconnect("alice")
	_, ok = m.Snapshot(conf.ID)
	assert.False(t, ok)
}

func TestMixAudioGuards(t *testing.T) {
	m, _ := newTestManager(10)
	conf := m.Create("Audio", "alice", "Alice")

	// Non-members never mix.
	_, _, ok := m.MixAudio(conf.ID, "mallory", pcm(1, 2))
	assert.False(t, ok)

	mixed, users, ok := m.MixAudio(conf.ID, "alice", pcm(100, -100))
	require.True(t, ok)
	assert.Equal(t, []int16{100, -100}, samples(mixed))
	assert.Equal(t, []domain.UserID{"alice"}, users)

	// Exactly two members means P2P: the server mixdown is bypassed.
	_, err := m.Join(conf.ID, "bob", "Bob")
	require.NoError(t, err)
	_, _, ok = m.MixAudio(conf.ID, "alice", pcm(1, 2))
	assert.False(t, ok)

	// A third member flips back to CS and mixing resumes.
	_, err = m.Join(conf.ID, "carol", "Carol")
	require.NoError(t, err)
	_, _, ok = m.MixAudio(conf.ID, "alice", pcm(1, 2))
	assert.True(t, ok)
}

func TestLeaveClearsMixerEntry(t *testing.T) {
	m, _ := newTestManager(10)
	conf := m.Create("Mix", "alice", "Alice")
	for _, u := range []domain.UserID{"bob", "carol", "dave"} {
		_, err := m.Join(conf.ID, u, string(u))
		require.NoError(t, err)
	}

	_, _, ok := m.MixAudio(conf.ID, "bob", pcm(1000, 1000))
	require.True(t, ok)

	m.Leave(conf.ID, "bob") // three remain, still CS
	mixed, _, ok := m.MixAudio(conf.ID, "alice", pcm(100, -100))
	require.True(t, ok)
	// bob's stale buffer is gone; alice's stream mixes alone.
	assert.Equal(t, []int16{100, -100}, samples(mixed))
}
