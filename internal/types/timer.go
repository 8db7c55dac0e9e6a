package types

// Phase is the current mode of the session timer
type Phase string

const (
	PhaseWork  Phase = "work"
	PhaseBreak Phase = "break"
)

// TimerState is the persisted timer record. EndTimestampMs is set iff IsActive.
type TimerState struct {
	WorkDurationSeconds  int64  `json:"workDurationSeconds"`
	BreakDurationSeconds int64  `json:"breakDurationSeconds"`
	IsActive             bool   `json:"isActive"`
	EndTimestampMs       *int64 `json:"endTimestampMs"`
	Phase                Phase  `json:"phase"`
	AutoStartNextWork    bool   `json:"autoStartNextWork"`
}

// TimerSettings are the configured durations that reset and phase entry reload
type TimerSettings struct {
	WorkDurationSeconds  int64 `json:"workDurationSeconds"`
	BreakDurationSeconds int64 `json:"breakDurationSeconds"`
	AutoStartNextWork    bool  `json:"autoStartNextWork"`
}

// TimerView is what observers and hosts see
type TimerView struct {
	TimerState
	RemainingMs      int64 `json:"remainingMs"`
	RemainingSeconds int64 `json:"remainingSeconds"`
	ElapsedMs        int64 `json:"elapsedMs"`
	PhaseDurationMs  int64 `json:"phaseDurationMs"`
}

// TransitionKind names a notification-worthy timer event
type TransitionKind string

const (
	TransitionBreakStart      TransitionKind = "break-start"
	TransitionBreakEnd        TransitionKind = "break-end"
	TransitionSessionComplete TransitionKind = "session-complete"
)

// Transition is emitted by the timer when a phase completes
type Transition struct {
	Kind           TransitionKind `json:"kind"`
	From           Phase          `json:"from"`
	To             Phase          `json:"to"`
	At             int64          `json:"at"`
	PhaseSeconds   int64          `json:"phaseSeconds"` // length of the phase that just ended
	EndTimestampMs int64          `json:"endTimestampMs"`
}
