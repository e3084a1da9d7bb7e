// Package hitl implements the human-in-the-loop rendezvous coordinator: a
// single-shot request/response handoff between an agent-side (or tool-side)
// suspension point and the next user message for that handle (spec §4.6).
package hitl

import (
	"context"
	"sync"
	"time"

	"github.com/relaymind/conduit/internal/obslog"
)

// TimeoutSentinel is returned by RequestApproval when no reply arrives
// before the deadline.
const TimeoutSentinel = "TIMEOUT"

// DefaultTimeout is the spec default HITL wait (config key hitl_timeout).
const DefaultTimeout = 120 * time.Second

type pending struct {
	mu       sync.Mutex
	resolved bool
	response string
	done     chan struct{}
}

// Coordinator serializes at most one pending approval request per handle.
type Coordinator struct {
	mu      sync.Mutex
	pending map[string]*pending
	log     *obslog.Logger
}

// New builds a Coordinator.
func New(log *obslog.Logger) *Coordinator {
	return &Coordinator{pending: make(map[string]*pending), log: log.WithFields("component", "hitl")}
}

// RequestApproval blocks until the next message for handle resolves it (via
// Resolve) or DefaultTimeout elapses, in which case it returns
// TimeoutSentinel. It does not send question anywhere: callers that need
// the question delivered over a messaging client do so before calling; the
// coordinator itself only manages the rendezvous.
func (c *Coordinator) RequestApproval(ctx context.Context, handle, question string) string {
	return c.Await(ctx, handle, DefaultTimeout)
}

// Await registers a new pending slot for handle, replacing any slot already
// registered for it, and blocks until Resolve deposits a response or timeout
// elapses.
func (c *Coordinator) Await(ctx context.Context, handle string, timeout time.Duration) string {
	p := &pending{done: make(chan struct{})}

	c.mu.Lock()
	c.pending[handle] = p
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.pending[handle] == p {
			delete(c.pending, handle)
		}
		c.mu.Unlock()
	}()

	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.response
	case <-time.After(timeout):
		c.log.Warn(ctx, "hitl: approval request timed out", "handle", handle)
		return TimeoutSentinel
	case <-ctx.Done():
		return TimeoutSentinel
	}
}

// Resolve deposits text for handle's pending request, if one exists and
// hasn't already been resolved. Returns true if the message was consumed
// (the dispatcher should not route it further); false means there was no
// pending request (or it already timed out) and the text should flow into
// the normal pipeline instead (spec invariant 13).
func (c *Coordinator) Resolve(handle, text string) bool {
	c.mu.Lock()
	p, ok := c.pending[handle]
	c.mu.Unlock()
	if !ok {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved {
		return false
	}
	p.resolved = true
	p.response = text
	close(p.done)
	return true
}

// HasPending reports whether handle currently has an outstanding HITL
// request, used by the dispatcher's pre-check (spec §4.1 step 2).
func (c *Coordinator) HasPending(handle string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[handle]
	return ok
}
