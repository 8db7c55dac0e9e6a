package activity

import (
	"math"
	"sync"
	"time"

	"breeze/internal/types"
)

const (
	DefaultThrottleInterval = 100 * time.Millisecond
	DefaultIdleThreshold    = 30 * time.Second
	DefaultMaxEvents        = 1000
	DefaultWindow           = time.Minute
	DefaultMaxClockSkew     = 2 * time.Second
)

// Config tunes the sampler
type Config struct {
	ThrottleInterval time.Duration `mapstructure:"throttle_interval"`
	IdleThreshold    time.Duration `mapstructure:"idle_threshold"`
	MaxEvents        int           `mapstructure:"max_events"`
	EnableKeydown    bool          `mapstructure:"enable_keydown"`
	Window           time.Duration `mapstructure:"window"`

	// MaxClockSkew is how far ahead of the sampler clock a host timestamp may
	// run before it is replaced by the sampler clock
	MaxClockSkew time.Duration `mapstructure:"max_clock_skew"`
}

func DefaultConfig() Config {
	return Config{
		ThrottleInterval: DefaultThrottleInterval,
		IdleThreshold:    DefaultIdleThreshold,
		MaxEvents:        DefaultMaxEvents,
		Window:           DefaultWindow,
		MaxClockSkew:     DefaultMaxClockSkew,
	}
}

func (c Config) withDefaults() Config {
	if c.ThrottleInterval < 0 {
		c.ThrottleInterval = 0
	}
	if c.IdleThreshold <= 0 {
		c.IdleThreshold = DefaultIdleThreshold
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = DefaultMaxEvents
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MaxClockSkew <= 0 {
		c.MaxClockSkew = DefaultMaxClockSkew
	}
	return c
}

// Option configures a Sampler
type Option func(*Sampler)

// WithClock replaces time.Now, used for events without a timestamp and for Snapshot
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) {
		if now != nil {
			s.now = now
		}
	}
}

// Log is a copy of every bounded event list
type Log struct {
	MouseMoves []types.MouseMoveRecord  `json:"mouseMoves"`
	Clicks     []types.ClickRecord      `json:"clicks"`
	Hovers     []types.HoverRecord      `json:"hovers"`
	Scrolls    []types.ScrollRecord     `json:"scrolls"`
	Keydowns   []types.KeydownRecord    `json:"keydowns"`
	Visibility []types.VisibilityRecord `json:"visibility"`
	Idle       []types.IdleInterval     `json:"idle"`
}

// Sampler turns raw input events into bounded, timestamped records and
// rolling statistics. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	moves      *Ring[types.MouseMoveRecord]
	clicks     *Ring[types.ClickRecord]
	hovers     *Ring[types.HoverRecord]
	scrolls    *Ring[types.ScrollRecord]
	keydowns   *Ring[types.KeydownRecord]
	visibility *Ring[types.VisibilityRecord]
	idle       *IdleDetector

	currentHover   *types.HoverRecord
	lastScrollTop  float64
	lastScrollTime int64
	lastStamp      int64
	visible        bool
	focused        bool

	listeners map[int]func(IdleChange)
	nextID    int
}

func NewSampler(cfg Config, opts ...Option) *Sampler {
	cfg = cfg.withDefaults()
	s := &Sampler{
		cfg:        cfg,
		now:        time.Now,
		moves:      NewRing[types.MouseMoveRecord](cfg.MaxEvents),
		clicks:     NewRing[types.ClickRecord](cfg.MaxEvents),
		hovers:     NewRing[types.HoverRecord](cfg.MaxEvents),
		scrolls:    NewRing[types.ScrollRecord](cfg.MaxEvents),
		keydowns:   NewRing[types.KeydownRecord](cfg.MaxEvents),
		visibility: NewRing[types.VisibilityRecord](cfg.MaxEvents),
		visible:    true,
		focused:    true,
		listeners:  make(map[int]func(IdleChange)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.idle = NewIdleDetector(cfg.IdleThreshold, cfg.MaxEvents, s.now().UnixMilli())
	return s
}

// OnIdleChange registers fn for idle edges. Callbacks run outside the sampler lock.
func (s *Sampler) OnIdleChange(fn func(IdleChange)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Record classifies and stores one raw event. Unknown kinds are ignored.
func (s *Sampler) Record(ev types.RawEvent) {
	s.mu.Lock()
	ts := s.stampLocked(ev.Timestamp)

	qualifying := true
	switch ev.Kind {
	case types.EventMouseMove:
		s.recordMoveLocked(ev, ts)
	case types.EventClick:
		s.clicks.Push(types.ClickRecord{
			X:         ev.X,
			Y:         ev.Y,
			Target:    describeTarget(ev.Target),
			Button:    ev.Button,
			Modifiers: ev.Modifiers,
			Timestamp: ts,
		})
	case types.EventHoverEnter:
		s.closeHoverLocked(ts)
		s.currentHover = &types.HoverRecord{Target: describeTarget(ev.Target), EnterTime: ts}
	case types.EventHoverLeave:
		qualifying = s.closeHoverLocked(ts)
	case types.EventScroll:
		s.recordScrollLocked(ev, ts)
	case types.EventKeydown:
		qualifying = s.cfg.EnableKeydown
		if qualifying {
			s.keydowns.Push(types.KeydownRecord{Category: ClassifyKey(ev.Key, ev.Modifiers), Timestamp: ts})
		}
	case types.EventVisibility:
		s.visible, s.focused = ev.Visible, ev.Focused
		s.visibility.Push(types.VisibilityRecord{Visible: ev.Visible, Focused: ev.Focused, Timestamp: ts})
	default:
		qualifying = false
	}

	var changes []IdleChange
	if qualifying {
		changes = s.idle.Touch(ts)
	}
	listeners := s.listenersLocked(len(changes))
	s.mu.Unlock()

	notify(listeners, changes)
}

// stampLocked bounds a host timestamp to [last accepted stamp, now+skew].
// Missing or far-future stamps take the sampler clock.
func (s *Sampler) stampLocked(ts int64) int64 {
	now := s.now().UnixMilli()
	if ts <= 0 || ts > now+s.cfg.MaxClockSkew.Milliseconds() {
		ts = now
	}
	ts = max(ts, s.lastStamp)
	s.lastStamp = ts
	return ts
}

// describeTarget keeps a nil *ElementInfo from becoming a non-nil interface
func describeTarget(t *types.ElementInfo) string {
	if t == nil {
		return unknownTarget
	}
	return Describe(t)
}

func (s *Sampler) recordMoveLocked(ev types.RawEvent, ts int64) {
	rec := types.MouseMoveRecord{X: ev.X, Y: ev.Y, Timestamp: ts}

	if prev, ok := s.moves.Last(); ok {
		dt := ts - prev.Timestamp
		if dt < s.cfg.ThrottleInterval.Milliseconds() {
			return
		}
		if dt > 0 {
			v := math.Hypot(ev.X-prev.X, ev.Y-prev.Y) / float64(dt)
			rec.Velocity = &v
		}
	}

	s.moves.Push(rec)
}

// closeHoverLocked completes the open hover, reporting whether there was one
func (s *Sampler) closeHoverLocked(ts int64) bool {
	if s.currentHover == nil {
		return false
	}
	h := *s.currentHover
	h.LeaveTime = max(ts, h.EnterTime)
	h.DwellMs = h.LeaveTime - h.EnterTime
	s.hovers.Push(h)
	s.currentHover = nil
	return true
}

func (s *Sampler) recordScrollLocked(ev types.RawEvent, ts int64) {
	rec := types.ScrollRecord{ScrollTop: ev.ScrollTop, Timestamp: ts, Direction: types.ScrollUp}

	if ev.ScrollTop > s.lastScrollTop {
		rec.Direction = types.ScrollDown
	}
	if s.lastScrollTime > 0 {
		if dt := ts - s.lastScrollTime; dt > 0 {
			rec.Speed = math.Abs(ev.ScrollTop-s.lastScrollTop) / (float64(dt) / 1000)
		}
	}
	if ev.ScrollHeight > 0 {
		rec.ScrollPct = math.Min(100, math.Max(0, ev.ScrollTop/ev.ScrollHeight*100))
	}

	s.lastScrollTop = ev.ScrollTop
	s.lastScrollTime = ts
	s.scrolls.Push(rec)
}

// Snapshot summarises the trailing window ending now
func (s *Sampler) Snapshot() types.ActivitySnapshot {
	return s.SnapshotAt(s.now())
}

// SnapshotAt runs the idle check for now before counting, so the idle flag
// and the counts describe the same instant.
func (s *Sampler) SnapshotAt(now time.Time) types.ActivitySnapshot {
	nowMs := now.UnixMilli()
	cutoff := nowMs - s.cfg.Window.Milliseconds()

	s.mu.Lock()
	var changes []IdleChange
	if change, ok := s.idle.Check(nowMs); ok {
		changes = append(changes, change)
	}

	snap := types.ActivitySnapshot{
		IsCurrentlyIdle: s.idle.IsIdle(),
		Visible:         s.visible,
		Focused:         s.focused,
		At:              nowMs,
		TotalEvents: s.moves.Len() + s.clicks.Len() + s.hovers.Len() +
			s.scrolls.Len() + s.keydowns.Len() + s.visibility.Len(),
	}

	var velocitySum float64
	for m := range s.moves.Backward() {
		if m.Timestamp <= cutoff {
			break
		}
		snap.MouseMovesLastMinute++
		if m.Velocity != nil {
			velocitySum += *m.Velocity
		}
	}
	if snap.MouseMovesLastMinute > 0 {
		snap.AverageVelocity = velocitySum / float64(snap.MouseMovesLastMinute)
	}

	snap.ClicksLastMinute = countSince(s.clicks, cutoff, func(c types.ClickRecord) int64 { return c.Timestamp })
	snap.ScrollsLastMinute = countSince(s.scrolls, cutoff, func(r types.ScrollRecord) int64 { return r.Timestamp })
	snap.KeydownsLastMinute = countSince(s.keydowns, cutoff, func(k types.KeydownRecord) int64 { return k.Timestamp })
	snap.HoversLastMinute = countSince(s.hovers, cutoff, func(h types.HoverRecord) int64 { return h.LeaveTime })
	snap.EventsLastMinute = snap.MouseMovesLastMinute + snap.ClicksLastMinute + snap.ScrollsLastMinute

	if s.currentHover != nil {
		snap.CurrentHover = s.currentHover.Target
	}

	listeners := s.listenersLocked(len(changes))
	s.mu.Unlock()

	notify(listeners, changes)
	return snap
}

// countSince counts entries newer than cutoff, scanning from the newest
func countSince[T any](r *Ring[T], cutoff int64, ts func(T) int64) int {
	n := 0
	for v := range r.Backward() {
		if ts(v) <= cutoff {
			break
		}
		n++
	}
	return n
}

// ScreenActive reports the last visibility/focus state seen (true, true before any event)
func (s *Sampler) ScreenActive() (visible, focused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible, s.focused
}

// Events copies out every bounded list
func (s *Sampler) Events() Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Log{
		MouseMoves: s.moves.Items(),
		Clicks:     s.clicks.Items(),
		Hovers:     s.hovers.Items(),
		Scrolls:    s.scrolls.Items(),
		Keydowns:   s.keydowns.Items(),
		Visibility: s.visibility.Items(),
		Idle:       s.idle.Intervals(),
	}
}

// Reset clears every list and restarts the idle watchdog
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.moves.Reset()
	s.clicks.Reset()
	s.hovers.Reset()
	s.scrolls.Reset()
	s.keydowns.Reset()
	s.visibility.Reset()
	s.currentHover = nil
	s.lastScrollTop = 0
	s.lastScrollTime = 0
	s.lastStamp = 0
	s.idle.Reset(s.now().UnixMilli())
}

func (s *Sampler) listenersLocked(changes int) []func(IdleChange) {
	if changes == 0 || len(s.listeners) == 0 {
		return nil
	}
	out := make([]func(IdleChange), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(IdleChange), changes []IdleChange) {
	for _, change := range changes {
		for _, fn := range listeners {
			fn(change)
		}
	}
}
