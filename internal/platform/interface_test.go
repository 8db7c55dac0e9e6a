package platform

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsSystemIdle(t *testing.T) {
	tests := []struct {
		name      string
		idle      time.Duration
		err       error
		threshold time.Duration
		want      bool
	}{
		{"below threshold", 10 * time.Second, nil, time.Minute, false},
		{"at threshold", time.Minute, nil, time.Minute, true},
		{"source error", time.Hour, ErrIdleUnsupported, time.Minute, false},
		{"disabled threshold", time.Hour, nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewStaticIdleProvider(tt.idle, tt.err)
			if got := IsSystemIdle(p, tt.threshold); got != tt.want {
				t.Errorf("IsSystemIdle() = %v, want %v", got, tt.want)
			}
		})
	}

	if IsSystemIdle(nil, time.Second) {
		t.Error("IsSystemIdle(nil) = true")
	}
}

func TestStaticIdleProvider_Set(t *testing.T) {
	p := NewStaticIdleProvider(0, nil)
	boom := errors.New("boom")
	p.Set(5*time.Second, boom)

	idle, err := p.IdleDuration()
	if idle != 5*time.Second || !errors.Is(err, boom) {
		t.Errorf("IdleDuration() = %v, %v", idle, err)
	}
}

func TestNewIdleProvider(t *testing.T) {
	if NewIdleProvider() == nil {
		t.Fatal("NewIdleProvider() = nil")
	}
}

type blockingProvider struct {
	release chan struct{}
	idle    time.Duration
	calls   atomic.Int32
}

func (p *blockingProvider) IdleDuration() (time.Duration, error) {
	p.calls.Add(1)
	<-p.release
	return p.idle, nil
}

func TestCachedIdleProvider_NeverWaitsOnSource(t *testing.T) {
	src := &blockingProvider{release: make(chan struct{}), idle: 2 * time.Minute}
	var mu sync.Mutex
	now := time.UnixMilli(1_700_000_000_000)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := NewCachedIdleProvider(src, 5*time.Second, clock)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			if _, err := c.IdleDuration(); !errors.Is(err, ErrIdlePending) {
				t.Errorf("IdleDuration() error = %v, want ErrIdlePending", err)
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("IdleDuration() blocked on a hung idle source")
	}
	if IsSystemIdle(c, time.Minute) {
		t.Error("pending read reported idle")
	}

	close(src.release)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if idle, err := c.IdleDuration(); err == nil {
			if idle != 2*time.Minute {
				t.Errorf("IdleDuration() = %v, want 2m", idle)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("idle reading never arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("source queried %d times while in flight, want 1", got)
	}

	// the cached sample ages with the clock until the next refresh lands
	mu.Lock()
	now = now.Add(3 * time.Second)
	mu.Unlock()
	if idle, _ := c.IdleDuration(); idle != 2*time.Minute+3*time.Second {
		t.Errorf("aged IdleDuration() = %v, want 2m3s", idle)
	}
}
