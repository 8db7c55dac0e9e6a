package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"breeze/internal/activity"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/metrics"
	"breeze/internal/notify"
	"breeze/internal/platform"
	"breeze/internal/profile"
	"breeze/internal/repository"
	"breeze/internal/timer"
	"breeze/internal/types"
)

const (
	DefaultTickInterval        = time.Second
	DefaultHeartbeatInterval   = time.Minute
	DefaultSystemIdleThreshold = 5 * time.Minute
	DefaultPersistTimeout      = 2 * time.Second
)

// SessionConfig tunes a Session. Zero values select defaults.
type SessionConfig struct {
	Activity activity.Config
	Weights  metrics.Weights

	// Timer seeds the durations when nothing is persisted and no profile exists
	Timer types.TimerSettings

	ProfileID           string
	TickInterval        time.Duration
	HeartbeatInterval   time.Duration
	SystemIdleThreshold time.Duration
	PersistTimeout      time.Duration
	AlertTimeout        time.Duration // per-sink delivery bound; zero keeps the dispatcher default

	// RetentionDays > 0 prunes older heartbeats and accumulators at start and at every rollover
	RetentionDays int
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.ProfileID == "" {
		c.ProfileID = profile.DefaultID
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.SystemIdleThreshold <= 0 {
		c.SystemIdleThreshold = DefaultSystemIdleThreshold
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = DefaultPersistTimeout
	}
	if c.Timer == (types.TimerSettings{}) {
		c.Timer = timer.DefaultSettings()
	}
	return c
}

// SessionDeps are the collaborators a Session uses. All are optional.
type SessionDeps struct {
	Repository   repository.StateRepository
	Profiles     profile.Store
	IdleProvider platform.IdleProvider
	Alerters     []notify.Alerter
	Chimers      []notify.Chimer
	Logger       logging.Logger

	// Clock replaces time.Now
	Clock func() time.Time
}

// ChangeReason says why observers are being called
type ChangeReason string

const (
	ReasonTick       ChangeReason = "tick"
	ReasonStart      ChangeReason = "start"
	ReasonPause      ChangeReason = "pause"
	ReasonReset      ChangeReason = "reset"
	ReasonConfigure  ChangeReason = "configure"
	ReasonTransition ChangeReason = "transition"
	ReasonIdleStart  ChangeReason = "idle-start"
	ReasonIdleEnd    ChangeReason = "idle-end"
	ReasonRollover   ChangeReason = "rollover"
)

// Change is what observers receive
type Change struct {
	Reason      ChangeReason           `json:"reason"`
	At          int64                  `json:"at"`
	Timer       types.TimerView        `json:"timer"`
	Snapshot    types.ActivitySnapshot `json:"snapshot"`
	Scores      types.Scores           `json:"scores"`
	Totals      types.DailyTotals      `json:"totals"`
	Transitions []types.Transition     `json:"transitions,omitempty"`
}

// MetricsView is the current scores plus today's accumulators
type MetricsView struct {
	Scores types.Scores      `json:"scores"`
	Totals types.DailyTotals `json:"totals"`
}

// TimerConfig is a partial timer configuration; nil fields are unchanged
type TimerConfig struct {
	WorkMinutes       *float64 `json:"workMinutes,omitempty"`
	BreakMinutes      *float64 `json:"breakMinutes,omitempty"`
	AutoStartNextWork *bool    `json:"autoStartNextWork,omitempty"`
}

// Session owns the sampler, timer, aggregator and dispatcher of one user
// and drives them from a single tick. Create it with Init and always call
// Teardown.
type Session struct {
	cfg    SessionConfig
	deps   SessionDeps
	logger logging.Logger
	now    func() time.Time

	sampler    *activity.Sampler
	dispatcher *notify.Dispatcher
	writer     *stateWriter

	mu           sync.Mutex
	timer        *timer.Timer
	agg          *metrics.Aggregator
	lastSnapshot types.ActivitySnapshot
	lastPrefs    *types.Preferences
	observers    map[int]func(Change)
	nextObserver int

	completion *time.Timer
	armedEnd   int64
	generation uint64

	closed      atomic.Bool
	stop        chan struct{}
	wg          sync.WaitGroup
	unsubscribe []func()
}

// Init builds a Session, restores persisted state and starts its loops
func Init(ctx context.Context, cfg SessionConfig, deps SessionDeps) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = logging.NewDefaultLogger()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	s := &Session{
		cfg:       cfg,
		deps:      deps,
		logger:    deps.Logger,
		now:       deps.Clock,
		observers: make(map[int]func(Change)),
		stop:      make(chan struct{}),
	}

	opts := []notify.Option{notify.WithAlerter(notify.NewLogAlerter(s.logger)), notify.WithClock(s.now)}
	for _, a := range deps.Alerters {
		opts = append(opts, notify.WithAlerter(a))
	}
	for _, c := range deps.Chimers {
		opts = append(opts, notify.WithChimer(c))
	}
	if cfg.AlertTimeout > 0 {
		opts = append(opts, notify.WithSinkTimeout(cfg.AlertTimeout))
	}
	s.dispatcher = notify.NewDispatcher(s.logger, opts...)
	s.writer = newStateWriter(cfg.PersistTimeout, s.logger)
	s.sampler = activity.NewSampler(cfg.Activity, activity.WithClock(s.now))

	now := s.now()
	s.agg = metrics.NewAggregator(cfg.Weights, now)
	s.restore(ctx, now)

	s.unsubscribe = append(s.unsubscribe, s.sampler.OnIdleChange(s.onIdleChange))
	if deps.Profiles != nil {
		s.unsubscribe = append(s.unsubscribe, deps.Profiles.Subscribe(cfg.ProfileID, s.onProfileChange))
	}

	s.wg.Add(2)
	go s.tickLoop()
	go s.heartbeatLoop()

	s.logger.Info("Session started",
		"profile", cfg.ProfileID,
		"phase", s.View().Phase,
		"persistence", deps.Repository != nil)
	return s, nil
}

// Teardown stops every loop and timer, writes the final state and drops all
// observers. It is idempotent; operations afterwards are no-ops.
func (s *Session) Teardown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(s.stop)
	s.wg.Wait()

	s.mu.Lock()
	s.disarmLocked()
	s.observers = make(map[int]func(Change))
	now := s.now()
	state, settings := s.timer.State(), s.timer.Settings()
	totals := s.agg.TotalsAt(now)
	s.mu.Unlock()

	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}

	s.persistTimer(state, settings)
	s.persistAccumulators(metrics.Accumulators(totals))

	var errs []error
	if err := s.writer.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.dispatcher.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("Session stopped", "profile", s.cfg.ProfileID)
	return errors.Join(errs...)
}

// OnChange registers cb for every change. Callbacks run outside the session
// lock, on whichever goroutine caused the change.
func (s *Session) OnChange(cb func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return func() {}
	}
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = cb

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Record feeds one raw input event to the sampler
func (s *Session) Record(ev types.RawEvent) {
	if s.closed.Load() {
		return
	}
	s.sampler.Record(ev)
}

// Start runs the current phase and persists the new state
func (s *Session) Start() types.TimerView {
	return s.mutate(ReasonStart, func(now time.Time) timer.Outcome { return s.timer.Start(now) })
}

// Pause freezes the remaining time of the running phase
func (s *Session) Pause() types.TimerView {
	return s.mutate(ReasonPause, func(now time.Time) timer.Outcome { return s.timer.Pause(now) })
}

// Reset returns the timer to an inactive work phase
func (s *Session) Reset() types.TimerView {
	return s.mutate(ReasonReset, func(now time.Time) timer.Outcome { return s.timer.Reset(now) })
}

// SetWorkDurationMinutes changes the work length used from the next work phase
func (s *Session) SetWorkDurationMinutes(minutes float64) types.TimerView {
	return s.mutate(ReasonConfigure, func(now time.Time) timer.Outcome {
		return s.timer.SetWorkDurationMinutes(minutes, now)
	})
}

// SetBreakDurationMinutes changes the break length used from the next break
func (s *Session) SetBreakDurationMinutes(minutes float64) types.TimerView {
	return s.mutate(ReasonConfigure, func(now time.Time) timer.Outcome {
		return s.timer.SetBreakDurationMinutes(minutes, now)
	})
}

// SetAutoStartNextWork toggles starting work automatically after a break
func (s *Session) SetAutoStartNextWork(enabled bool) types.TimerView {
	return s.mutate(ReasonConfigure, func(now time.Time) timer.Outcome {
		return s.timer.SetAutoStartNextWork(enabled, now)
	})
}

// Configure applies every set field of cfg as one change
func (s *Session) Configure(cfg TimerConfig) types.TimerView {
	return s.mutate(ReasonConfigure, func(now time.Time) timer.Outcome {
		var out timer.Outcome
		merge := func(o timer.Outcome) {
			out.Changed = out.Changed || o.Changed
			out.Transitions = append(out.Transitions, o.Transitions...)
		}
		if cfg.WorkMinutes != nil {
			merge(s.timer.SetWorkDurationMinutes(*cfg.WorkMinutes, now))
		}
		if cfg.BreakMinutes != nil {
			merge(s.timer.SetBreakDurationMinutes(*cfg.BreakMinutes, now))
		}
		if cfg.AutoStartNextWork != nil {
			merge(s.timer.SetAutoStartNextWork(*cfg.AutoStartNextWork, now))
		}
		return out
	})
}

// View evaluates the timer against the clock and returns its state
func (s *Session) View() types.TimerView {
	now := s.now()

	s.mu.Lock()
	if s.closed.Load() {
		defer s.mu.Unlock()
		return s.timer.View(now)
	}
	out := s.timer.Evaluate(now)
	if !out.Changed {
		defer s.mu.Unlock()
		return s.timer.View(now)
	}
	p := s.commitLocked(ReasonTransition, now, s.lastSnapshot, out)
	s.mu.Unlock()

	s.publish(p)
	return p.change.Timer
}

// Snapshot returns the activity statistics as of now
func (s *Session) Snapshot() types.ActivitySnapshot {
	return s.sampler.SnapshotAt(s.now())
}

// Events copies the bounded event lists
func (s *Session) Events() activity.Log {
	return s.sampler.Events()
}

// Metrics returns today's totals with the derived scores
func (s *Session) Metrics() MetricsView {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return MetricsView{Scores: s.agg.Scores(), Totals: s.agg.TotalsAt(now)}
}

// SetNotificationsEnabled overrides the profile preference until the next profile change
func (s *Session) SetNotificationsEnabled(enabled bool) {
	s.dispatcher.SetEnabled(enabled)
}

// NotificationsEnabled reports whether alerts are currently delivered
func (s *Session) NotificationsEnabled() bool {
	return s.dispatcher.Enabled()
}
