package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okulov/huddle/internal/core"
	"github.com/okulov/huddle/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) sent() []core.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Frame(nil), f.frames...)
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", domain.ChannelVideo, "ch-video")

	ch, ok := r.Lookup("u1", domain.ChannelVideo)
	require.True(t, ok)
	assert.Equal(t, core.ChannelID("ch-video"), ch)

	_, ok = r.Lookup("u1", domain.ChannelMain)
	assert.False(t, ok)
}

func TestRegistryPruneLeavesSiblingsIntact(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", domain.ChannelMain, "ch-main")
	r.Register("u1", domain.ChannelVideo, "ch-video")
	r.Register("u1", domain.ChannelScreen, "ch-screen")

	user, kind, ok := r.PruneByChannelID("ch-video")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("u1"), user)
	assert.Equal(t, domain.ChannelVideo, kind)

	_, ok = r.Lookup("u1", domain.ChannelVideo)
	assert.False(t, ok)
	_, ok = r.Lookup("u1", domain.ChannelMain)
	assert.True(t, ok)
	_, ok = r.Lookup("u1", domain.ChannelScreen)
	assert.True(t, ok)
}

func TestRegistryPruneUnknownChannel(t *testing.T) {
	r := NewRegistry()
	_, _, ok := r.PruneByChannelID("nope")
	assert.False(t, ok)
}

func TestRegistryLastWriteWins(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", domain.ChannelMain, "ch-old")
	r.Register("u1", domain.ChannelMain, "ch-new")

	ch, ok := r.Lookup("u1", domain.ChannelMain)
	require.True(t, ok)
	assert.Equal(t, core.ChannelID("ch-new"), ch)

	// The superseded channel no longer maps back to the user.
	_, _, ok = r.PruneByChannelID("ch-old")
	assert.False(t, ok)

	ch, ok = r.Lookup("u1", domain.ChannelMain)
	require.True(t, ok)
	assert.Equal(t, core.ChannelID("ch-new"), ch)
}

func TestRegistryConn(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{}
	r.Attach("ch1", conn)
	r.Register("u1", domain.ChannelMain, "ch1")

	got, ok := r.Conn("u1", domain.ChannelMain)
	require.True(t, ok)
	assert.Same(t, conn, got.(*fakeConn))

	r.PruneByChannelID("ch1")
	_, ok = r.Conn("u1", domain.ChannelMain)
	assert.False(t, ok)
}
