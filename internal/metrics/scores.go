package metrics

import (
	"math"

	"breeze/internal/types"
)

func clampScore(v float64) int {
	return int(math.Max(0, math.Min(100, v)))
}

func (w Weights) cappedEvents(epm int) float64 {
	return math.Min(w.EventsPerMinuteCap, float64(max(epm, 0))) / w.EventsPerMinuteCap
}

// Productivity rises with events per minute and drops for idleness and for
// jittery cursor velocity. Each term is capped on its own.
func (w Weights) Productivity(snap types.ActivitySnapshot) int {
	score := math.Floor(w.cappedEvents(snap.EventsLastMinute) * w.ProductivityEventsMax)
	if snap.IsCurrentlyIdle {
		score -= w.IdlePenalty
	}
	score -= math.Min(w.VelocityPenaltyCap, math.Floor(math.Max(0, snap.AverageVelocity)*w.VelocityPenaltyFactor))
	return clampScore(score)
}

// Wellness blends productivity, how much of the current break has been used
// and how close productivity sits to a moderate band.
func (w Weights) Wellness(productivity int, breakProgress float64) int {
	p := float64(productivity)
	balance := 1 - math.Min(1, math.Abs(p-w.BalanceTarget)/w.BalanceTarget)
	breakProgress = math.Max(0, math.Min(1, breakProgress))

	score := w.WellnessProductivity*p + w.WellnessBreak*breakProgress*100 + w.WellnessBalance*balance*100
	return clampScore(math.Round(score))
}

func (w Weights) Focus(snap types.ActivitySnapshot) int {
	penalty := math.Min(w.FocusVelocityCap, math.Floor(math.Max(0, snap.AverageVelocity)*w.FocusVelocityFactor))
	bonus := math.Floor(w.cappedEvents(snap.EventsLastMinute) * w.FocusEventsBonus)
	return clampScore(100 - penalty + bonus)
}

// EyeStrain grows with input intensity and with today's screen exposure
func (w Weights) EyeStrain(snap types.ActivitySnapshot, activeSeconds int64) int {
	intensity := math.Floor(w.cappedEvents(snap.EventsLastMinute) * w.EyeStrainEventsMax)
	exposure := math.Min(w.EyeStrainExposureCap, math.Floor(float64(activeSeconds)/w.EyeStrainExposureStep.Seconds()))
	return clampScore(intensity + exposure)
}

// Adherence compares completed break time with the breaks suggested for
// today's screen exposure.
func (w Weights) Adherence(breakSeconds, configuredBreakSeconds, activeSeconds int64) types.BreakAdherence {
	out := types.BreakAdherence{
		BreaksTaken:     breakSeconds / max(1, configuredBreakSeconds),
		SuggestedBreaks: activeSeconds / max(1, int64(w.SuggestedBreakEvery.Seconds())),
		Ratio:           1,
	}
	if out.SuggestedBreaks > 0 {
		out.Ratio = float64(out.BreaksTaken) / float64(out.SuggestedBreaks)
	}
	return out
}

// BreakProgress is the consumed fraction of an active break, else 0
func BreakProgress(view types.TimerView) float64 {
	if !view.IsActive || view.Phase != types.PhaseBreak || view.PhaseDurationMs <= 0 {
		return 0
	}
	return math.Min(1, float64(view.ElapsedMs)/float64(view.PhaseDurationMs))
}
