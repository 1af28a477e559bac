package client

import (
	"context"
	"sync"
	"time"

	"github.com/okulov/huddle/internal/domain"
)

// Correlator turns the fire-and-forget event transport into request/response.
// One pending slot per request kind: beginning a new request of the same kind
// replaces the slot, and the superseded waiter resolves as timed out rather
// than lingering. A reply is matched against the current slot only, so a late
// answer to an abandoned request is a no-op.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]*Pending
}

type outcome struct {
	value any
	err   error
}

type Pending struct {
	kind string
	ch   chan outcome
}

func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[string]*Pending)}
}

// Begin opens a slot for one in-flight request of the given kind.
func (c *Correlator) Begin(kind string) *Pending {
	p := &Pending{kind: kind, ch: make(chan outcome, 1)}
	c.mu.Lock()
	if old, ok := c.pending[kind]; ok {
		old.deliver(outcome{err: domain.ErrRequestTimeout})
	}
	c.pending[kind] = p
	c.mu.Unlock()
	return p
}

// Resolve completes the current slot for kind, if any.
func (c *Correlator) Resolve(kind string, v any) {
	c.take(kind).deliver(outcome{value: v})
}

// Fail completes the current slot for kind with an error.
func (c *Correlator) Fail(kind string, err error) {
	c.take(kind).deliver(outcome{err: err})
}

// Finish drops the slot if it still belongs to p. Callers defer it so a
// timed-out slot does not swallow the next request's reply.
func (c *Correlator) Finish(p *Pending) {
	c.mu.Lock()
	if c.pending[p.kind] == p {
		delete(c.pending, p.kind)
	}
	c.mu.Unlock()
}

func (c *Correlator) take(kind string) *Pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pending[kind]
	delete(c.pending, kind)
	return p
}

// Wait blocks for the reply, the timeout, or the context, whichever first.
func (p *Pending) Wait(ctx context.Context, timeout time.Duration) (any, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case out := <-p.ch:
		return out.value, out.err
	case <-t.C:
		return nil, domain.ErrRequestTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pending) deliver(out outcome) {
	if p == nil {
		return
	}
	select {
	case p.ch <- out:
	default:
	}
}
