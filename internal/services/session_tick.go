package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"breeze/internal/activity"
	"breeze/internal/metrics"
	"breeze/internal/platform"
	"breeze/internal/timer"
	"breeze/internal/types"
)

// published is a change ready to hand to observers once the lock is released
type published struct {
	change    Change
	observers []func(Change)
}

func (s *Session) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tickAt(s.now())
		case <-s.stop:
			return
		}
	}
}

// tickAt runs one scheduler step against a single now: the idle check
// (inside SnapshotAt), timer evaluation, aggregation, then observers.
func (s *Session) tickAt(now time.Time) {
	if s.closed.Load() {
		return
	}

	snap := s.sampler.SnapshotAt(now)
	systemIdle := platform.IsSystemIdle(s.deps.IdleProvider, s.cfg.SystemIdleThreshold)
	screenActive := snap.Visible && snap.Focused && !systemIdle

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return
	}

	out := s.timer.Evaluate(now)
	obs := s.agg.Observe(now, snap, s.timer.View(now), screenActive)

	reason := ReasonTick
	if obs.RolledOver {
		reason = ReasonRollover
		s.persistAccumulators(metrics.Accumulators(obs.Previous))
		s.pruneOldData(now)
	}
	if accs, ok := s.agg.TakeDirty(); ok {
		s.persistAccumulators(accs)
	}
	if len(out.Transitions) > 0 {
		reason = ReasonTransition
	}

	p := s.commitLocked(reason, now, snap, out)
	s.mu.Unlock()

	s.publish(p)
}

// mutate runs a user operation against the timer and publishes the result
func (s *Session) mutate(reason ChangeReason, op func(now time.Time) timer.Outcome) types.TimerView {
	now := s.now()
	snap := s.sampler.SnapshotAt(now)

	s.mu.Lock()
	if s.closed.Load() {
		defer s.mu.Unlock()
		return s.timer.View(now)
	}
	out := op(now)
	p := s.commitLocked(reason, now, snap, out)
	s.mu.Unlock()

	s.publish(p)
	return p.change.Timer
}

// commitLocked applies the side effects of a timer outcome: persistence,
// notifications, stats writeback and re-arming the completion timer. It
// returns the change for observers. s.mu must be held.
func (s *Session) commitLocked(reason ChangeReason, now time.Time, snap types.ActivitySnapshot, out timer.Outcome) published {
	s.lastSnapshot = snap

	if out.Changed {
		s.persistTimer(s.timer.State(), s.timer.Settings())
	}
	for _, tr := range out.Transitions {
		s.dispatcher.NotifyPhaseTransition(tr.Kind)
		s.writeBackStats(tr, now)
	}
	s.armCompletionLocked(now)

	return s.changeLocked(reason, now, out.Transitions)
}

func (s *Session) changeLocked(reason ChangeReason, now time.Time, transitions []types.Transition) published {
	p := published{
		change: Change{
			Reason:      reason,
			At:          now.UnixMilli(),
			Timer:       s.timer.View(now),
			Snapshot:    s.lastSnapshot,
			Scores:      s.agg.Scores(),
			Totals:      s.agg.TotalsAt(now),
			Transitions: transitions,
		},
	}
	if len(s.observers) > 0 {
		p.observers = make([]func(Change), 0, len(s.observers))
		for _, cb := range s.observers {
			p.observers = append(p.observers, cb)
		}
	}
	return p
}

func (s *Session) publish(p published) {
	for _, cb := range p.observers {
		s.safeCallback(cb, p.change)
	}
}

func (s *Session) safeCallback(cb func(Change), c Change) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Change observer panicked", "reason", c.Reason, "panic", r)
		}
	}()
	cb(c)
}

// armCompletionLocked schedules a precise evaluation at the running phase's
// end. Every re-arm bumps the generation so an older timer that already
// fired does nothing.
func (s *Session) armCompletionLocked(now time.Time) {
	state := s.timer.State()
	var end int64
	if state.IsActive && state.EndTimestampMs != nil {
		end = *state.EndTimestampMs
	}
	if end == s.armedEnd {
		return
	}

	s.disarmLocked()
	s.armedEnd = end
	if end == 0 {
		return
	}

	gen := s.generation
	delay := time.Duration(max(0, end-now.UnixMilli())) * time.Millisecond
	s.completion = time.AfterFunc(delay, func() { s.onCompletion(gen) })
}

func (s *Session) disarmLocked() {
	s.generation++
	s.armedEnd = 0
	if s.completion != nil {
		s.completion.Stop()
		s.completion = nil
	}
}

func (s *Session) onCompletion(gen uint64) {
	now := s.now()

	s.mu.Lock()
	if s.closed.Load() || gen != s.generation {
		s.mu.Unlock()
		return
	}
	out := s.timer.Evaluate(now)
	if !out.Changed {
		// the tick loop picks up anything this early wake-up missed
		s.mu.Unlock()
		return
	}
	p := s.commitLocked(ReasonTransition, now, s.lastSnapshot, out)
	s.mu.Unlock()

	s.publish(p)
}

// onIdleChange runs outside the sampler lock, so it may take the session lock
func (s *Session) onIdleChange(change activity.IdleChange) {
	if s.closed.Load() {
		return
	}

	reason := ReasonIdleEnd
	if change.Idle {
		reason = ReasonIdleStart
	}
	s.logger.Debug("Idle state changed", "idle", change.Idle, "idle_start", change.Interval.IdleStart)

	now := s.now()
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return
	}
	s.lastSnapshot.IsCurrentlyIdle = change.Idle
	p := s.changeLocked(reason, now, nil)
	s.mu.Unlock()

	s.publish(p)
}

func (s *Session) heartbeatLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.heartbeatAt(s.now())
		case <-s.stop:
			return
		}
	}
}

// heartbeatAt records one activity log entry for the last minute
func (s *Session) heartbeatAt(now time.Time) (types.ActivityHeartbeat, bool) {
	if s.closed.Load() || s.deps.Repository == nil {
		return types.ActivityHeartbeat{}, false
	}

	snap := s.sampler.SnapshotAt(now)
	s.mu.Lock()
	view := s.timer.View(now)
	scores := s.agg.Scores()
	s.mu.Unlock()

	hb := types.ActivityHeartbeat{
		ID:           uuid.NewString(),
		ProfileID:    s.cfg.ProfileID,
		ActivityType: classifyActivity(view, snap),
		Timestamp:    now.UnixMilli(),
		Details: types.HeartbeatDetails{
			EventsLastMinute:  snap.EventsLastMinute,
			IsIdle:            snap.IsCurrentlyIdle,
			Phase:             view.Phase,
			ProductivityScore: scores.Productivity,
		},
	}

	repo := s.deps.Repository
	s.writer.Put("heartbeat:"+hb.ID, func(ctx context.Context) error {
		return repo.SaveHeartbeat(ctx, hb)
	})
	return hb, true
}

func classifyActivity(view types.TimerView, snap types.ActivitySnapshot) types.ActivityType {
	switch {
	case view.IsActive && view.Phase == types.PhaseBreak:
		return types.ActivityBreak
	case view.IsActive && !snap.IsCurrentlyIdle:
		return types.ActivityWork
	case snap.IsCurrentlyIdle:
		return types.ActivityIdle
	default:
		return types.ActivityAway
	}
}
