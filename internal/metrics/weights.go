package metrics

import "time"

// Weights holds every coefficient used by the score heuristics
type Weights struct {
	EventsPerMinuteCap float64 `mapstructure:"events_per_minute_cap"`

	ProductivityEventsMax float64 `mapstructure:"productivity_events_max"`
	IdlePenalty           float64 `mapstructure:"idle_penalty"`
	VelocityPenaltyFactor float64 `mapstructure:"velocity_penalty_factor"`
	VelocityPenaltyCap    float64 `mapstructure:"velocity_penalty_cap"`

	WellnessProductivity float64 `mapstructure:"wellness_productivity"`
	WellnessBreak        float64 `mapstructure:"wellness_break"`
	WellnessBalance      float64 `mapstructure:"wellness_balance"`
	BalanceTarget        float64 `mapstructure:"balance_target"`

	FocusVelocityFactor float64 `mapstructure:"focus_velocity_factor"`
	FocusVelocityCap    float64 `mapstructure:"focus_velocity_cap"`
	FocusEventsBonus    float64 `mapstructure:"focus_events_bonus"`

	EyeStrainEventsMax    float64       `mapstructure:"eye_strain_events_max"`
	EyeStrainExposureStep time.Duration `mapstructure:"eye_strain_exposure_step"`
	EyeStrainExposureCap  float64       `mapstructure:"eye_strain_exposure_cap"`

	SuggestedBreakEvery time.Duration `mapstructure:"suggested_break_every"`
}

func DefaultWeights() Weights {
	return Weights{
		EventsPerMinuteCap: 120,

		ProductivityEventsMax: 95,
		IdlePenalty:           25,
		VelocityPenaltyFactor: 60,
		VelocityPenaltyCap:    20,

		WellnessProductivity: 0.5,
		WellnessBreak:        0.3,
		WellnessBalance:      0.2,
		BalanceTarget:        70,

		FocusVelocityFactor: 100,
		FocusVelocityCap:    60,
		FocusEventsBonus:    30,

		EyeStrainEventsMax:    60,
		EyeStrainExposureStep: 10 * time.Minute,
		EyeStrainExposureCap:  40,

		SuggestedBreakEvery: 90 * time.Minute,
	}
}

// withDefaults fills zero-valued fields so a partial config stays usable
func (w Weights) withDefaults() Weights {
	d := DefaultWeights()
	fill := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}

	fill(&w.EventsPerMinuteCap, d.EventsPerMinuteCap)
	fill(&w.ProductivityEventsMax, d.ProductivityEventsMax)
	fill(&w.IdlePenalty, d.IdlePenalty)
	fill(&w.VelocityPenaltyFactor, d.VelocityPenaltyFactor)
	fill(&w.VelocityPenaltyCap, d.VelocityPenaltyCap)
	if w.WellnessProductivity <= 0 && w.WellnessBreak <= 0 && w.WellnessBalance <= 0 {
		w.WellnessProductivity, w.WellnessBreak, w.WellnessBalance = d.WellnessProductivity, d.WellnessBreak, d.WellnessBalance
	}
	fill(&w.BalanceTarget, d.BalanceTarget)
	fill(&w.FocusVelocityFactor, d.FocusVelocityFactor)
	fill(&w.FocusVelocityCap, d.FocusVelocityCap)
	fill(&w.FocusEventsBonus, d.FocusEventsBonus)
	fill(&w.EyeStrainEventsMax, d.EyeStrainEventsMax)
	fill(&w.EyeStrainExposureCap, d.EyeStrainExposureCap)
	if w.EyeStrainExposureStep <= 0 {
		w.EyeStrainExposureStep = d.EyeStrainExposureStep
	}
	if w.SuggestedBreakEvery <= 0 {
		w.SuggestedBreakEvery = d.SuggestedBreakEvery
	}
	return w
}
