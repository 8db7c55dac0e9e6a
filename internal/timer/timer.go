// Package timer implements the work/break phase state machine. Remaining time
// is always derived from an absolute end timestamp and the caller's "now", so
// a reload or a suspended process recomputes the correct phase immediately.
package timer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"breeze/internal/types"
)

const (
	DefaultWorkSeconds  int64 = 3 * 60 * 60
	DefaultBreakSeconds int64 = 30 * 60

	maxMinutes = 7 * 24 * 60
)

// DefaultSettings are used when nothing is persisted and no profile seeds the timer
func DefaultSettings() types.TimerSettings {
	return types.TimerSettings{
		WorkDurationSeconds:  DefaultWorkSeconds,
		BreakDurationSeconds: DefaultBreakSeconds,
	}
}

// Outcome describes what an operation did. Changed means the state record
// must be persisted.
type Outcome struct {
	Changed     bool
	Transitions []types.Transition
}

// Timer is not safe for concurrent use; the owning session serialises calls.
type Timer struct {
	state    types.TimerState
	settings types.TimerSettings

	// remaining time seen by the previous evaluation; -1 when unknown
	lastRemaining int64
}

// New creates an inactive work timer from settings
func New(settings types.TimerSettings) *Timer {
	settings = sanitizeSettings(settings)
	return &Timer{
		state:         stateFromSettings(settings),
		settings:      settings,
		lastRemaining: -1,
	}
}

func stateFromSettings(s types.TimerSettings) types.TimerState {
	return types.TimerState{
		WorkDurationSeconds:  s.WorkDurationSeconds,
		BreakDurationSeconds: s.BreakDurationSeconds,
		Phase:                types.PhaseWork,
		AutoStartNextWork:    s.AutoStartNextWork,
	}
}

func sanitizeSettings(s types.TimerSettings) types.TimerSettings {
	s.WorkDurationSeconds = max(s.WorkDurationSeconds, 0)
	s.BreakDurationSeconds = max(s.BreakDurationSeconds, 0)
	return s
}

// Restore replaces the in-memory state with persisted records and evaluates
// against now. Nil records fall back to settings or defaults.
func (t *Timer) Restore(state *types.TimerState, settings *types.TimerSettings, now time.Time) Outcome {
	if settings != nil {
		t.settings = sanitizeSettings(*settings)
	}

	if state == nil {
		t.state = stateFromSettings(t.settings)
	} else {
		t.state = *state
		t.state.WorkDurationSeconds = max(t.state.WorkDurationSeconds, 0)
		t.state.BreakDurationSeconds = max(t.state.BreakDurationSeconds, 0)
		if t.state.Phase != types.PhaseBreak {
			t.state.Phase = types.PhaseWork
		}
		if t.state.EndTimestampMs == nil {
			t.state.IsActive = false
		}
		if !t.state.IsActive {
			t.state.EndTimestampMs = nil
		}
		if settings == nil {
			t.settings.AutoStartNextWork = t.state.AutoStartNextWork
		}
	}
	t.lastRemaining = -1

	return t.Evaluate(now)
}

// State returns a copy of the persisted record
func (t *Timer) State() types.TimerState {
	s := t.state
	if s.EndTimestampMs != nil {
		end := *s.EndTimestampMs
		s.EndTimestampMs = &end
	}
	return s
}

// Settings returns the configured durations
func (t *Timer) Settings() types.TimerSettings { return t.settings }

// Remaining is max(0, end-now) while active, else the stored phase duration
func (t *Timer) Remaining(now time.Time) time.Duration {
	if !t.state.IsActive || t.state.EndTimestampMs == nil {
		return time.Duration(t.phaseSeconds(t.state.Phase)) * time.Second
	}
	return time.Duration(max(0, *t.state.EndTimestampMs-now.UnixMilli())) * time.Millisecond
}

// View is the observer-facing state at now. It does not evaluate.
func (t *Timer) View(now time.Time) types.TimerView {
	remaining := t.Remaining(now).Milliseconds()
	phaseMs := t.configuredSeconds(t.state.Phase) * 1000

	return types.TimerView{
		TimerState:       t.State(),
		RemainingMs:      remaining,
		RemainingSeconds: (remaining + 999) / 1000,
		ElapsedMs:        max(0, phaseMs-remaining),
		PhaseDurationMs:  phaseMs,
	}
}

func (t *Timer) phaseSeconds(p types.Phase) int64 {
	if p == types.PhaseBreak {
		return t.state.BreakDurationSeconds
	}
	return t.state.WorkDurationSeconds
}

func (t *Timer) configuredSeconds(p types.Phase) int64 {
	if p == types.PhaseBreak {
		return t.settings.BreakDurationSeconds
	}
	return t.settings.WorkDurationSeconds
}

func endAt(now time.Time, seconds int64) *int64 {
	end := now.UnixMilli() + seconds*1000
	return &end
}

// Start begins the current phase. No-op while active.
func (t *Timer) Start(now time.Time) Outcome {
	out := t.Evaluate(now)
	if t.state.IsActive {
		return out
	}

	t.state.IsActive = true
	t.state.EndTimestampMs = endAt(now, t.phaseSeconds(t.state.Phase))
	t.lastRemaining = -1
	out.Changed = true
	return out
}

// Pause stores the remaining time as the phase duration so a later Start resumes it
func (t *Timer) Pause(now time.Time) Outcome {
	out := t.Evaluate(now)
	if !t.state.IsActive {
		return out
	}

	remainingMs := max(0, *t.state.EndTimestampMs-now.UnixMilli())
	seconds := (remainingMs + 999) / 1000
	if t.state.Phase == types.PhaseBreak {
		t.state.BreakDurationSeconds = seconds
	} else {
		t.state.WorkDurationSeconds = seconds
	}

	t.state.IsActive = false
	t.state.EndTimestampMs = nil
	t.lastRemaining = -1
	out.Changed = true
	return out
}

// Reset returns to an inactive work phase with the configured durations
func (t *Timer) Reset(now time.Time) Outcome {
	t.state = stateFromSettings(t.settings)
	t.lastRemaining = -1
	return Outcome{Changed: true}
}

// Evaluate applies at most one completion per call. A completion fires only
// on the >0 -> 0 edge of remaining time.
func (t *Timer) Evaluate(now time.Time) Outcome {
	if !t.state.IsActive || t.state.EndTimestampMs == nil {
		t.lastRemaining = -1
		return Outcome{}
	}

	end := *t.state.EndTimestampMs
	remaining := max(0, end-now.UnixMilli())
	crossed := remaining == 0 && t.lastRemaining != 0
	t.lastRemaining = remaining
	if !crossed {
		return Outcome{}
	}

	nowMs := now.UnixMilli()
	var out Outcome
	out.Changed = true

	if t.state.Phase == types.PhaseWork {
		out.Transitions = append(out.Transitions,
			types.Transition{Kind: types.TransitionSessionComplete, From: types.PhaseWork, To: types.PhaseBreak,
				At: nowMs, PhaseSeconds: t.settings.WorkDurationSeconds, EndTimestampMs: end},
			types.Transition{Kind: types.TransitionBreakStart, From: types.PhaseWork, To: types.PhaseBreak,
				At: nowMs, PhaseSeconds: t.settings.WorkDurationSeconds, EndTimestampMs: end},
		)
		t.state.Phase = types.PhaseBreak
		t.state.WorkDurationSeconds = t.settings.WorkDurationSeconds
		t.state.BreakDurationSeconds = t.settings.BreakDurationSeconds
		t.state.EndTimestampMs = endAt(now, t.state.BreakDurationSeconds)
	} else {
		out.Transitions = append(out.Transitions,
			types.Transition{Kind: types.TransitionBreakEnd, From: types.PhaseBreak, To: types.PhaseWork,
				At: nowMs, PhaseSeconds: t.settings.BreakDurationSeconds, EndTimestampMs: end},
		)
		t.state.Phase = types.PhaseWork
		t.state.WorkDurationSeconds = t.settings.WorkDurationSeconds
		t.state.BreakDurationSeconds = t.settings.BreakDurationSeconds
		if t.state.AutoStartNextWork {
			t.state.EndTimestampMs = endAt(now, t.state.WorkDurationSeconds)
		} else {
			t.state.IsActive = false
			t.state.EndTimestampMs = nil
		}
	}

	// the new phase has not been observed yet
	t.lastRemaining = -1
	return out
}

// SetWorkDurationMinutes updates the configured work length. The running
// phase keeps its end timestamp; the change applies to the next work phase.
func (t *Timer) SetWorkDurationMinutes(minutes float64, now time.Time) Outcome {
	out := t.Evaluate(now)
	t.settings.WorkDurationSeconds = MinutesToSeconds(minutes)
	if !t.state.IsActive {
		t.state.WorkDurationSeconds = t.settings.WorkDurationSeconds
	}
	out.Changed = true
	return out
}

// SetBreakDurationMinutes is SetWorkDurationMinutes for breaks
func (t *Timer) SetBreakDurationMinutes(minutes float64, now time.Time) Outcome {
	out := t.Evaluate(now)
	t.settings.BreakDurationSeconds = MinutesToSeconds(minutes)
	if !t.state.IsActive {
		t.state.BreakDurationSeconds = t.settings.BreakDurationSeconds
	}
	out.Changed = true
	return out
}

// SetAutoStartNextWork controls whether a finished break starts the next work phase
func (t *Timer) SetAutoStartNextWork(enabled bool, now time.Time) Outcome {
	out := t.Evaluate(now)
	t.settings.AutoStartNextWork = enabled
	t.state.AutoStartNextWork = enabled
	out.Changed = true
	return out
}

// MinutesToSeconds clamps invalid input (NaN, infinities, negatives) to zero
// and drops fractional minutes.
func MinutesToSeconds(minutes float64) int64 {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes <= 0 {
		return 0
	}
	return int64(math.Floor(math.Min(minutes, maxMinutes))) * 60
}

// ParseMinutes reads user input; anything non-numeric becomes zero
func ParseMinutes(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}
