package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okulov/huddle/internal/domain"
)

func TestCorrelatorResolve(t *testing.T) {
	c := NewCorrelator()
	p := c.Begin("list")

	go c.Resolve("list", "payload")

	v, err := p.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "payload", v)
}

func TestCorrelatorTimeout(t *testing.T) {
	c := NewCorrelator()
	p := c.Begin("join")
	defer c.Finish(p)

	start := time.Now()
	_, err := p.Wait(context.Background(), 50*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrRequestTimeout)
	assert.Less(t, time.Since(start), time.Second, "timeout must not hang the caller")
}

func TestCorrelatorReplaceAbandonsFirst(t *testing.T) {
	c := NewCorrelator()
	p1 := c.Begin("join")
	p2 := c.Begin("join")

	// The superseded request resolves as timed out, immediately.
	_, err := p1.Wait(context.Background(), time.Second)
	assert.ErrorIs(t, err, domain.ErrRequestTimeout)

	c.Resolve("join", 42)
	v, err := p2.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCorrelatorLateReplyIsNoop(t *testing.T) {
	c := NewCorrelator()
	p := c.Begin("join")
	c.Finish(p)

	// No slot outstanding: the reply has nothing to land on.
	c.Resolve("join", "stale")

	p2 := c.Begin("join")
	defer c.Finish(p2)
	_, err := p2.Wait(context.Background(), 50*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrRequestTimeout, "stale reply must not resolve a later request")
}

func TestCorrelatorFail(t *testing.T) {
	c := NewCorrelator()
	p := c.Begin("join")

	go c.Fail("join", domain.ErrConferenceFull)

	_, err := p.Wait(context.Background(), time.Second)
	assert.ErrorIs(t, err, domain.ErrConferenceFull)
}

func TestCorrelatorContextCancel(t *testing.T) {
	c := NewCorrelator()
	p := c.Begin("join")
	defer c.Finish(p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Wait(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
