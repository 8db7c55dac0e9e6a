package activity

import (
	"math"
	"sync"
	"testing"
	"time"

	"breeze/internal/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func (c *fakeClock) Ms() int64 { return c.Now().UnixMilli() }

func newTestSampler(cfg Config) (*Sampler, *fakeClock) {
	clock := newFakeClock()
	return NewSampler(cfg, WithClock(clock.Now)), clock
}

func TestSampler_VelocityBetweenRecordedSamples(t *testing.T) {
	s, clock := newTestSampler(DefaultConfig())
	t0 := clock.Ms()

	s.Record(types.RawEvent{Kind: types.EventMouseMove, X: 0, Y: 0, Timestamp: t0})
	s.Record(types.RawEvent{Kind: types.EventMouseMove, X: 30, Y: 40, Timestamp: t0 + 250})

	moves := s.Events().MouseMoves
	if len(moves) != 2 {
		t.Fatalf("recorded moves = %d, want 2", len(moves))
	}
	if moves[0].Velocity != nil {
		t.Errorf("first move velocity = %v, want nil", *moves[0].Velocity)
	}
	want := 50.0 / 250.0
	if moves[1].Velocity == nil || math.Abs(*moves[1].Velocity-want) > 1e-9 {
		t.Errorf("velocity = %v, want %v", moves[1].Velocity, want)
	}
}

func TestSampler_ThrottlesMouseMoves(t *testing.T) {
	s, clock := newTestSampler(DefaultConfig())
	t0 := clock.Ms()

	for i := int64(0); i < 10; i++ {
		s.Record(types.RawEvent{Kind: types.EventMouseMove, X: float64(i), Timestamp: t0 + i*20})
	}
	s.Record(types.RawEvent{Kind: types.EventMouseMove, X: 100, Y: 0, Timestamp: t0 + 200})

	moves := s.Events().MouseMoves
	// t0 and t0+100 pass the 100ms throttle from the 20ms stream, then t0+200
	if len(moves) != 3 {
		t.Fatalf("recorded moves = %d, want 3", len(moves))
	}
	// velocity uses the previous recorded sample (x=5 at t0+100), not the last raw event
	want := (100.0 - 5.0) / 100.0
	if got := *moves[2].Velocity; math.Abs(got-want) > 1e-9 {
		t.Errorf("velocity = %v, want %v", got, want)
	}
}

func TestSampler_IdleEdge(t *testing.T) {
	s, clock := newTestSampler(DefaultConfig())

	var mu sync.Mutex
	var edges []bool
	unsubscribe := s.OnIdleChange(func(c IdleChange) {
		mu.Lock()
		defer mu.Unlock()
		edges = append(edges, c.Idle)
	})
	defer unsubscribe()

	s.Record(types.RawEvent{Kind: types.EventClick, Timestamp: clock.Ms()})
	last := clock.Now()

	if snap := s.SnapshotAt(last.Add(30*time.Second - time.Millisecond)); snap.IsCurrentlyIdle {
		t.Fatal("idle before the threshold elapsed")
	}
	if snap := s.SnapshotAt(last.Add(30 * time.Second)); !snap.IsCurrentlyIdle {
		t.Fatal("not idle once the threshold elapsed")
	}

	clock.Advance(31 * time.Second)
	s.Record(types.RawEvent{Kind: types.EventScroll, ScrollTop: 10, Timestamp: last.Add(31 * time.Second).UnixMilli()})
	if snap := s.SnapshotAt(last.Add(31 * time.Second)); snap.IsCurrentlyIdle {
		t.Error("still idle after a qualifying event")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(edges) != 2 || !edges[0] || edges[1] {
		t.Errorf("idle edges = %v, want [true false]", edges)
	}
}

func TestSampler_KeydownDisabledDoesNotResetIdle(t *testing.T) {
	s, clock := newTestSampler(DefaultConfig())
	start := clock.Now()

	s.Record(types.RawEvent{Kind: types.EventKeydown, Key: "a", Timestamp: start.Add(20 * time.Second).UnixMilli()})

	if len(s.Events().Keydowns) != 0 {
		t.Error("keydown recorded while disabled")
	}
	if snap := s.SnapshotAt(start.Add(30 * time.Second)); !snap.IsCurrentlyIdle {
		t.Error("disabled keydown reset the idle watchdog")
	}
}

func TestSampler_KeydownStoresCategoryOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableKeydown = true
	s, clock := newTestSampler(cfg)

	s.Record(types.RawEvent{Kind: types.EventKeydown, Key: "p", Timestamp: clock.Ms()})
	s.Record(types.RawEvent{Kind: types.EventKeydown, Key: "ArrowUp", Timestamp: clock.Ms()})

	keys := s.Events().Keydowns
	if len(keys) != 2 {
		t.Fatalf("keydowns = %d, want 2", len(keys))
	}
	if keys[0].Category != types.KeyTyping || keys[1].Category != types.KeyNavigation {
		t.Errorf("categories = %v, %v", keys[0].Category, keys[1].Category)
	}
}

func TestSampler_Scroll(t *testing.T) {
	s, clock := newTestSampler(DefaultConfig())
	t0 := clock.Ms()

	s.Record(types.RawEvent{Kind: types.EventScroll, ScrollTop: 100, ScrollHeight: 1000, Timestamp: t0})
	s.Record(types.RawEvent{Kind: types.EventScroll, ScrollTop: 400, ScrollHeight: 1000, Timestamp: t0 + 500})
	s.Record(types.RawEvent{Kind: types.EventScroll, ScrollTop: 300, ScrollHeight: 0, Timestamp: t0 + 500})

	scrolls := s.Events().Scrolls
	if len(scrolls) != 3 {
		t.Fatalf("scrolls = %d, want 3", len(scrolls))
	}
	if scrolls[0].Speed != 0 {
		t.Errorf("first scroll speed = %v, want 0", scrolls[0].Speed)
	}
	if scrolls[1].Direction != types.ScrollDown || scrolls[1].Speed != 600 || scrolls[1].ScrollPct != 40 {
		t.Errorf("second scroll = %+v, want down, 600px/s, 40%%", scrolls[1])
	}
	if scrolls[2].Direction != types.ScrollUp || scrolls[2].Speed != 0 || scrolls[2].ScrollPct != 0 {
		t.Errorf("third scroll = %+v, want up, 0px/s, 0%%", scrolls[2])
	}
}

func TestSampler_Hover(t *testing.T) {
	s, clock := newTestSampler(DefaultConfig())
	t0 := clock.Ms()

	s.Record(types.RawEvent{Kind: types.EventHoverLeave, Timestamp: t0})
	s.Record(types.RawEvent{Kind: types.EventHoverEnter, Target: &types.ElementInfo{Tag: "A", ElemID: "home"}, Timestamp: t0 + 10})
	if snap := s.SnapshotAt(clock.Now().Add(10 * time.Millisecond)); snap.CurrentHover != "a#home" {
		t.Errorf("CurrentHover = %q, want a#home", snap.CurrentHover)
	}
	s.Record(types.RawEvent{Kind: types.EventHoverLeave, Timestamp: t0 + 760})

	hovers := s.Events().Hovers
	if len(hovers) != 1 {
		t.Fatalf("hovers = %d, want 1", len(hovers))
	}
	if hovers[0].DwellMs != 750 || hovers[0].Target != "a#home" {
		t.Errorf("hover = %+v, want a#home with 750ms dwell", hovers[0])
	}
}

func TestSampler_ClickTargetDegrades(t *testing.T) {
	s, clock := newTestSampler(DefaultConfig())
	s.Record(types.RawEvent{Kind: types.EventClick, Timestamp: clock.Ms()})

	if got := s.Events().Clicks[0].Target; got != "unknown" {
		t.Errorf("Target = %q, want unknown", got)
	}
}

func TestSampler_SnapshotWindow(t *testing.T) {
	s, clock := newTestSampler(DefaultConfig())
	now := clock.Now()
	nowMs := now.UnixMilli()

	// outside the window: exactly 60s old
	s.Record(types.RawEvent{Kind: types.EventClick, Timestamp: nowMs - 60_000})
	s.Record(types.RawEvent{Kind: types.EventClick, Timestamp: nowMs - 59_999})
	s.Record(types.RawEvent{Kind: types.EventMouseMove, X: 0, Y: 0, Timestamp: nowMs - 2_000})
	s.Record(types.RawEvent{Kind: types.EventMouseMove, X: 0, Y: 100, Timestamp: nowMs - 1_000})
	s.Record(types.RawEvent{Kind: types.EventScroll, ScrollTop: 5, Timestamp: nowMs - 500})

	snap := s.SnapshotAt(now)
	if snap.ClicksLastMinute != 1 {
		t.Errorf("ClicksLastMinute = %d, want 1", snap.ClicksLastMinute)
	}
	if snap.MouseMovesLastMinute != 2 {
		t.Errorf("MouseMovesLastMinute = %d, want 2", snap.MouseMovesLastMinute)
	}
	if snap.EventsLastMinute != 4 {
		t.Errorf("EventsLastMinute = %d, want 4", snap.EventsLastMinute)
	}
	// velocities: nil (counts as 0) and 0.1 px/ms
	if math.Abs(snap.AverageVelocity-0.05) > 1e-9 {
		t.Errorf("AverageVelocity = %v, want 0.05", snap.AverageVelocity)
	}
	if snap.TotalEvents != 5 {
		t.Errorf("TotalEvents = %d, want 5", snap.TotalEvents)
	}
}

func TestSampler_BoundedLists(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEvents = 3
	s, clock := newTestSampler(cfg)
	t0 := clock.Ms()

	for i := int64(0); i < 7; i++ {
		s.Record(types.RawEvent{Kind: types.EventClick, X: float64(i), Timestamp: t0 + i})
	}

	clicks := s.Events().Clicks
	if len(clicks) != 3 {
		t.Fatalf("clicks = %d, want 3", len(clicks))
	}
	for i, c := range clicks {
		if want := float64(4 + i); c.X != want {
			t.Errorf("clicks[%d].X = %v, want %v", i, c.X, want)
		}
	}
}

func TestSampler_VisibilityAndReset(t *testing.T) {
	s, clock := newTestSampler(DefaultConfig())

	if v, f := s.ScreenActive(); !v || !f {
		t.Errorf("ScreenActive() initial = %v, %v, want true, true", v, f)
	}
	s.Record(types.RawEvent{Kind: types.EventVisibility, Visible: true, Focused: false, Timestamp: clock.Ms()})
	if v, f := s.ScreenActive(); !v || f {
		t.Errorf("ScreenActive() = %v, %v, want true, false", v, f)
	}

	s.Record(types.RawEvent{Kind: types.EventClick, Timestamp: clock.Ms()})
	s.Reset()

	log := s.Events()
	if len(log.Clicks) != 0 || len(log.Visibility) != 0 || len(log.Idle) != 0 {
		t.Errorf("Events() after Reset = %+v, want empty", log)
	}
}

func TestSampler_IgnoresUnknownKinds(t *testing.T) {
	s, clock := newTestSampler(DefaultConfig())
	start := clock.Now()

	s.Record(types.RawEvent{Kind: "pinch", Timestamp: start.Add(29 * time.Second).UnixMilli()})

	if snap := s.SnapshotAt(start.Add(30 * time.Second)); !snap.IsCurrentlyIdle {
		t.Error("unknown event kind reset the idle watchdog")
	}
}

func TestSampler_FutureTimestampTakesSamplerClock(t *testing.T) {
	s, clock := newTestSampler(DefaultConfig())

	// one event stamped ten minutes ahead of the sampler clock
	s.Record(types.RawEvent{Kind: types.EventMouseMove, X: 0, Y: 0, Timestamp: clock.Now().Add(10 * time.Minute).UnixMilli()})
	for i := 1; i <= 50; i++ {
		now := clock.Advance(time.Second)
		s.Record(types.RawEvent{Kind: types.EventMouseMove, X: float64(i), Y: 0, Timestamp: now.UnixMilli()})
	}

	moves := s.Events().MouseMoves
	if len(moves) != 51 {
		t.Fatalf("moves stored = %d, want 51", len(moves))
	}
	if snap := s.SnapshotAt(clock.Now()); snap.MouseMovesLastMinute != 51 {
		t.Errorf("MouseMovesLastMinute = %d, want 51", snap.MouseMovesLastMinute)
	}

	// the skewed stamp must not hold off the idle watchdog
	if snap := s.SnapshotAt(clock.Now().Add(30 * time.Second)); !snap.IsCurrentlyIdle {
		t.Error("not idle 30s after the last event")
	}
}

func TestSampler_StampsNeverGoBackwards(t *testing.T) {
	s, clock := newTestSampler(DefaultConfig())
	t0 := clock.Ms()

	s.Record(types.RawEvent{Kind: types.EventClick, Timestamp: t0})
	s.Record(types.RawEvent{Kind: types.EventClick, Timestamp: t0 - 5_000})

	clicks := s.Events().Clicks
	if len(clicks) != 2 || clicks[1].Timestamp != t0 {
		t.Errorf("clicks = %+v, want the late stamp raised to %d", clicks, t0)
	}
}
