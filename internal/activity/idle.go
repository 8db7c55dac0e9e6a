package activity

import (
	"time"

	"breeze/internal/types"
)

// IdleChange reports an Active->Idle or Idle->Active edge
type IdleChange struct {
	Idle     bool
	Interval types.IdleInterval
}

// IdleDetector is a deadline watchdog: it turns idle once Threshold passes
// without a Touch, and records one interval per idle period. It is not safe
// for concurrent use; the Sampler serialises access.
type IdleDetector struct {
	threshold time.Duration
	lastTouch int64
	idle      bool
	intervals *Ring[types.IdleInterval]
}

func NewIdleDetector(threshold time.Duration, capacity int, nowMs int64) *IdleDetector {
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}
	return &IdleDetector{
		threshold: threshold,
		lastTouch: nowMs,
		intervals: NewRing[types.IdleInterval](capacity),
	}
}

func (d *IdleDetector) IsIdle() bool { return d.idle }

func (d *IdleDetector) LastTouch() int64 { return d.lastTouch }

func (d *IdleDetector) Intervals() []types.IdleInterval { return d.intervals.Items() }

// Check opens an idle interval if the threshold has passed since the last touch
func (d *IdleDetector) Check(nowMs int64) (IdleChange, bool) {
	if d.idle || nowMs-d.lastTouch < d.threshold.Milliseconds() {
		return IdleChange{}, false
	}

	d.idle = true
	interval := types.IdleInterval{IdleStart: d.lastTouch + d.threshold.Milliseconds()}
	d.intervals.Push(interval)
	return IdleChange{Idle: true, Interval: interval}, true
}

// Touch resets the watchdog. A period of silence that no Check observed is
// still recorded, so the returned slice may hold both edges.
func (d *IdleDetector) Touch(nowMs int64) []IdleChange {
	var changes []IdleChange
	if change, ok := d.Check(nowMs); ok {
		changes = append(changes, change)
	}

	if d.idle {
		d.idle = false
		if open, ok := d.intervals.Last(); ok && open.IdleEnd == nil {
			end := max(nowMs, open.IdleStart)
			idleMs := end - open.IdleStart
			open.IdleEnd = &end
			open.IdleMs = &idleMs
			changes = append(changes, IdleChange{Idle: false, Interval: *open})
		}
	}

	if nowMs > d.lastTouch {
		d.lastTouch = nowMs
	}
	return changes
}

// Reset drops recorded intervals and restarts the watchdog at nowMs
func (d *IdleDetector) Reset(nowMs int64) {
	d.intervals.Reset()
	d.idle = false
	d.lastTouch = nowMs
}
