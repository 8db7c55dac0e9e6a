// Package metrics turns activity snapshots and timer state into daily
// accumulators and derived scores.
package metrics

import (
	"sync"
	"time"

	"breeze/internal/types"
)

// DayKey is local midnight of t in epoch milliseconds
func DayKey(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).UnixMilli()
}

// Observation is the result of one tick
type Observation struct {
	Scores types.Scores
	Totals types.DailyTotals

	// RolledOver is set on the first tick of a new day; Previous then holds
	// the closed day's final totals.
	RolledOver bool
	Previous   types.DailyTotals
}

// maxTickCredit bounds the seconds one tick may add; longer gaps (sleep,
// suspend) are not counted as work.
const maxTickCredit int64 = 5

// Aggregator owns today's accumulators. It is safe for concurrent use.
type Aggregator struct {
	mu      sync.Mutex
	weights Weights

	totals     types.DailyTotals
	lastSecond int64
	scores     types.Scores
	dirty      bool
}

func NewAggregator(weights Weights, now time.Time) *Aggregator {
	return &Aggregator{
		weights:    weights.withDefaults(),
		totals:     types.DailyTotals{Day: DayKey(now)},
		lastSecond: -1,
	}
}

func (a *Aggregator) Weights() Weights { return a.weights }

// creditLocked returns how many seconds the tick at second may count
func (a *Aggregator) creditLocked(second int64) int64 {
	if second <= a.lastSecond {
		return 0
	}
	credit := int64(1)
	if a.lastSecond >= 0 {
		credit = min(second-a.lastSecond, maxTickCredit)
	}
	a.lastSecond = second
	return credit
}

// Restore loads persisted accumulators. Records for any day other than
// today are ignored.
func (a *Aggregator) Restore(accs []types.DailyAccumulator, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	today := DayKey(now)
	a.totals = types.DailyTotals{Day: today}
	for _, acc := range accs {
		if acc.Day != today || acc.Seconds < 0 {
			continue
		}
		addMetric(&a.totals, acc.Metric, acc.Seconds)
	}
}

func addMetric(t *types.DailyTotals, m types.Metric, seconds int64) {
	switch m {
	case types.MetricActiveScreenTime:
		t.ActiveScreenTime += seconds
	case types.MetricWorkTime:
		t.WorkTime += seconds
	case types.MetricBreakTime:
		t.BreakTime += seconds
	}
}

// Observe accounts one tick. Work and break seconds accrue while the timer
// runs in that phase; active screen time accrues while screenActive.
// Each tick credits the whole seconds elapsed since the last counted second,
// up to maxTickCredit, so a late tick does not lose time and a repeated or
// backwards tick adds nothing.
func (a *Aggregator) Observe(now time.Time, snap types.ActivitySnapshot, view types.TimerView, screenActive bool) Observation {
	a.mu.Lock()
	defer a.mu.Unlock()

	var obs Observation
	credit := a.creditLocked(now.Unix())
	if day := DayKey(now); day != a.totals.Day {
		obs.RolledOver = true
		obs.Previous = a.totals
		a.totals = types.DailyTotals{Day: day}
		a.dirty = true
		// a new day only owns the seconds since its midnight
		credit = min(credit, max(now.Unix()-day/1000, 1))
	}

	if credit > 0 {
		if view.IsActive {
			if view.Phase == types.PhaseBreak {
				a.totals.BreakTime += credit
			} else {
				a.totals.WorkTime += credit
			}
			a.dirty = true
		}
		if screenActive {
			a.totals.ActiveScreenTime += credit
			a.dirty = true
		}
	}

	w := a.weights
	productivity := w.Productivity(snap)
	a.scores = types.Scores{
		Productivity: productivity,
		Wellness:     w.Wellness(productivity, BreakProgress(view)),
		Focus:        w.Focus(snap),
		EyeStrain:    w.EyeStrain(snap, a.totals.ActiveScreenTime),
		Breaks:       w.Adherence(a.totals.BreakTime, view.BreakDurationSeconds, a.totals.ActiveScreenTime),
	}

	obs.Scores = a.scores
	obs.Totals = a.totals
	return obs
}

// TotalsAt reads today's totals as of now. A day that has not been observed
// yet reads as zero.
func (a *Aggregator) TotalsAt(now time.Time) types.DailyTotals {
	a.mu.Lock()
	defer a.mu.Unlock()

	if day := DayKey(now); day != a.totals.Day {
		return types.DailyTotals{Day: day}
	}
	return a.totals
}

// Scores returns the scores computed by the last Observe
func (a *Aggregator) Scores() types.Scores {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scores
}

// TakeDirty returns today's accumulators if anything changed since the last
// call, for persistence.
func (a *Aggregator) TakeDirty() ([]types.DailyAccumulator, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.dirty {
		return nil, false
	}
	a.dirty = false
	return Accumulators(a.totals), true
}

// Accumulators splits totals into one record per metric
func Accumulators(t types.DailyTotals) []types.DailyAccumulator {
	return []types.DailyAccumulator{
		{Metric: types.MetricActiveScreenTime, Day: t.Day, Seconds: t.ActiveScreenTime},
		{Metric: types.MetricWorkTime, Day: t.Day, Seconds: t.WorkTime},
		{Metric: types.MetricBreakTime, Day: t.Day, Seconds: t.BreakTime},
	}
}

// TotalsFrom folds accumulator records for one day back into totals
func TotalsFrom(day int64, accs []types.DailyAccumulator) types.DailyTotals {
	t := types.DailyTotals{Day: day}
	for _, acc := range accs {
		if acc.Day == day {
			addMetric(&t, acc.Metric, acc.Seconds)
		}
	}
	return t
}
