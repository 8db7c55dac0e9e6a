// Package platform reads OS-level input idleness, used to stop counting
// active screen time when the user has walked away from the machine.
package platform

import (
	"errors"
	"sync"
	"time"
)

// queryTimeout bounds one shell-out to an idle tool
const queryTimeout = time.Second

var (
	// ErrIdleUnsupported is returned where no idle source exists on this system
	ErrIdleUnsupported = errors.New("system idle time is not available on this platform")

	// ErrIdlePending is returned by a CachedIdleProvider before its first reading completes
	ErrIdlePending = errors.New("system idle reading has not completed yet")
)

// IdleProvider returns the time since the last keyboard or mouse input
type IdleProvider interface {
	IdleDuration() (time.Duration, error)
}

// NewIdleProvider returns the provider for the current OS
func NewIdleProvider() IdleProvider {
	return newIdleProvider()
}

// StaticIdleProvider reports a fixed value; hosts without a real idle source and
// tests use it.
type StaticIdleProvider struct {
	mu   sync.Mutex
	idle time.Duration
	err  error
}

func NewStaticIdleProvider(idle time.Duration, err error) *StaticIdleProvider {
	return &StaticIdleProvider{idle: idle, err: err}
}

func (p *StaticIdleProvider) Set(idle time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle, p.err = idle, err
}

func (p *StaticIdleProvider) IdleDuration() (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle, p.err
}

// IsSystemIdle reports whether the machine has seen no input for threshold.
// Source errors count as "not idle" so a missing source never hides activity.
func IsSystemIdle(p IdleProvider, threshold time.Duration) bool {
	if p == nil || threshold <= 0 {
		return false
	}
	idle, err := p.IdleDuration()
	if err != nil {
		return false
	}
	return idle >= threshold
}

// CachedIdleProvider serves the last reading and refreshes it in the
// background once it is older than maxAge, so callers never wait on the source.
// The served duration grows by the time elapsed since the sample was taken.
type CachedIdleProvider struct {
	source IdleProvider
	maxAge time.Duration
	now    func() time.Time

	mu        sync.Mutex
	idle      time.Duration
	err       error
	sampledAt time.Time
	inflight  bool
}

func NewCachedIdleProvider(source IdleProvider, maxAge time.Duration, now func() time.Time) *CachedIdleProvider {
	if now == nil {
		now = time.Now
	}
	return &CachedIdleProvider{source: source, maxAge: maxAge, now: now, err: ErrIdlePending}
}

func (c *CachedIdleProvider) IdleDuration() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.inflight && (c.sampledAt.IsZero() || now.Sub(c.sampledAt) >= c.maxAge) {
		c.inflight = true
		go c.refresh()
	}
	if c.err != nil {
		return 0, c.err
	}
	return c.idle + max(now.Sub(c.sampledAt), 0), nil
}

func (c *CachedIdleProvider) refresh() {
	idle, err := c.source.IdleDuration()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.idle, c.err = idle, err
	c.sampledAt = c.now()
	c.inflight = false
}
