// Package cancel hands out "latest intent" tokens: each new token cancels
// the previous one, and owners check IsSuperseded before applying a result.
//
// Cancellation is cooperative. The transport is asked to abort through the
// token's context, but a response may still arrive; the freshness check is
// what decides whether it is applied.
package cancel

import (
	"context"
	"sync"
	"sync/atomic"
)

// Coordinator owns at most one live Token at a time.
type Coordinator struct {
	mu      sync.Mutex
	seq     atomic.Uint64
	cancel  context.CancelFunc
	stopped bool
}

// Token identifies one request as the most recent for its owner.
type Token struct {
	ctx   context.Context
	seq   uint64
	owner *Coordinator
}

// Next cancels the current token and returns a new one derived from
// parent. After Stop, Next returns a token that is already cancelled and
// superseded.
func (c *Coordinator) Next(parent context.Context) *Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	ctx, cancel := context.WithCancel(parent)
	if c.stopped {
		cancel()
		return &Token{ctx: ctx, seq: 0, owner: c}
	}

	c.cancel = cancel
	return &Token{ctx: ctx, seq: c.seq.Add(1), owner: c}
}

// Cancel supersedes and cancels the current token, if any.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq.Add(1)
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Stop cancels the current token; every later token is born superseded.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()

	c.Cancel()
}

// Release cancels t's context if t is still current, freeing its
// resources. The token stays current.
func (c *Coordinator) Release(t *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !t.IsSuperseded() && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Context is cancelled as soon as the token is superseded.
func (t *Token) Context() context.Context {
	return t.ctx
}

// IsSuperseded reports whether a newer token was minted, or the owner was
// cancelled, after t.
func (t *Token) IsSuperseded() bool {
	return t.seq == 0 || t.owner.seq.Load() != t.seq
}
