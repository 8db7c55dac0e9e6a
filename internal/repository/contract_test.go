package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	repoerrors "breeze/internal/infrastructure/errors"
	"breeze/internal/types"
)

var local = time.FixedZone("UTC+2", 2*3600)

func midnight(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 0, 0, 0, 0, local).UnixMilli()
}

func byMetric(accs []types.DailyAccumulator) map[types.Metric]int64 {
	out := make(map[types.Metric]int64, len(accs))
	for _, acc := range accs {
		out[acc.Metric] = acc.Seconds
	}
	return out
}

// testStateRepository runs the behaviour every StateRepository shares
func testStateRepository(t *testing.T, newRepo func(t *testing.T) StateRepository) {
	t.Run("KeyValue", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		if _, err := repo.Get(ctx, TimerStateKey); !repoerrors.IsNotFound(err) {
			t.Fatalf("Get(missing) error = %v, want not found", err)
		}
		if err := repo.Put(ctx, TimerStateKey, []byte(`{"a":1}`)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := repo.Put(ctx, TimerStateKey, []byte(`{"a":2}`)); err != nil {
			t.Fatalf("Put() overwrite error = %v", err)
		}
		got, err := repo.Get(ctx, TimerStateKey)
		if err != nil || string(got) != `{"a":2}` {
			t.Fatalf("Get() = %q, %v", got, err)
		}
		if err := repo.Delete(ctx, TimerStateKey); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := repo.Get(ctx, TimerStateKey); !repoerrors.IsNotFound(err) {
			t.Errorf("Get() after Delete error = %v, want not found", err)
		}
		if err := repo.Put(ctx, "", []byte("x")); !repoerrors.IsValidation(err) {
			t.Errorf("Put(empty key) error = %v, want validation", err)
		}
	})

	t.Run("TimerRecords", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		state, err := LoadTimerState(ctx, repo)
		if err != nil || state != nil {
			t.Fatalf("LoadTimerState(empty) = %v, %v, want nil, nil", state, err)
		}

		end := int64(1_700_000_300_000)
		want := types.TimerState{
			IsActive:             true,
			Phase:                types.PhaseBreak,
			EndTimestampMs:       &end,
			WorkDurationSeconds:  1500,
			BreakDurationSeconds: 300,
		}
		if err := SaveJSON(ctx, repo, TimerStateKey, want); err != nil {
			t.Fatalf("SaveJSON() error = %v", err)
		}
		state, err = LoadTimerState(ctx, repo)
		if err != nil || state == nil {
			t.Fatalf("LoadTimerState() = %v, %v", state, err)
		}
		if state.Phase != types.PhaseBreak || !state.IsActive || state.EndTimestampMs == nil || *state.EndTimestampMs != end {
			t.Errorf("LoadTimerState() = %+v, want %+v", state, want)
		}

		if err := repo.Put(ctx, TimerSettingsKey, []byte("{not json")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if _, err := LoadTimerSettings(ctx, repo); !repoerrors.HasCode(err, repoerrors.ErrCodeCorruption) {
			t.Errorf("LoadTimerSettings(corrupt) error = %v, want corruption", err)
		}
	})

	t.Run("Accumulators", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		today := midnight(2025, 3, 10)

		if err := repo.SaveAccumulators(ctx, []types.DailyAccumulator{
			{Metric: types.MetricActiveScreenTime, Day: today, Seconds: 10},
			{Metric: types.MetricWorkTime, Day: today, Seconds: 8},
			{Metric: types.MetricBreakTime, Day: today, Seconds: 2},
		}); err != nil {
			t.Fatalf("SaveAccumulators() error = %v", err)
		}
		if err := repo.SaveAccumulators(ctx, []types.DailyAccumulator{
			{Metric: types.MetricWorkTime, Day: today, Seconds: 9},
		}); err != nil {
			t.Fatalf("SaveAccumulators() overwrite error = %v", err)
		}

		accs, err := repo.GetAccumulators(ctx, today)
		if err != nil {
			t.Fatalf("GetAccumulators() error = %v", err)
		}
		got := byMetric(accs)
		if len(got) != 3 || got[types.MetricActiveScreenTime] != 10 || got[types.MetricWorkTime] != 9 || got[types.MetricBreakTime] != 2 {
			t.Errorf("GetAccumulators() = %v", got)
		}

		if accs, err := repo.GetAccumulators(ctx, midnight(2025, 3, 9)); err != nil || len(accs) != 0 {
			t.Errorf("GetAccumulators(other day) = %v, %v, want empty", accs, err)
		}

		err = repo.SaveAccumulators(ctx, []types.DailyAccumulator{{Metric: types.MetricWorkTime, Day: today, Seconds: -1}})
		if !repoerrors.IsValidation(err) {
			t.Errorf("SaveAccumulators(negative) error = %v, want validation", err)
		}
	})

	t.Run("History", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Date(2025, 3, 10, 15, 0, 0, 0, local)

		if err := repo.SaveAccumulators(ctx, []types.DailyAccumulator{
			{Metric: types.MetricWorkTime, Day: midnight(2025, 3, 6), Seconds: 99},
			{Metric: types.MetricWorkTime, Day: midnight(2025, 3, 8), Seconds: 60},
			{Metric: types.MetricBreakTime, Day: midnight(2025, 3, 8), Seconds: 15},
			{Metric: types.MetricActiveScreenTime, Day: midnight(2025, 3, 10), Seconds: 30},
		}); err != nil {
			t.Fatalf("SaveAccumulators() error = %v", err)
		}

		hist, err := repo.GetAccumulatorHistory(ctx, types.MetricWorkTime, midnight(2025, 3, 7), midnight(2025, 3, 10))
		if err != nil || len(hist) != 1 || hist[0].Seconds != 60 {
			t.Errorf("GetAccumulatorHistory() = %v, %v", hist, err)
		}
		if _, err := repo.GetAccumulatorHistory(ctx, types.MetricWorkTime, 10, 5); !repoerrors.IsValidation(err) {
			t.Errorf("GetAccumulatorHistory(reversed) error = %v, want validation", err)
		}

		days, err := DailyHistory(ctx, repo, 3, now)
		if err != nil {
			t.Fatalf("DailyHistory() error = %v", err)
		}
		if len(days) != 3 {
			t.Fatalf("DailyHistory() returned %d days, want 3", len(days))
		}
		if days[0].Day != midnight(2025, 3, 8) || days[0].WorkTime != 60 || days[0].BreakTime != 15 {
			t.Errorf("day 0 = %+v", days[0])
		}
		if days[1] != (types.DailyTotals{Day: midnight(2025, 3, 9)}) {
			t.Errorf("gap day = %+v, want zeros", days[1])
		}
		if days[2].ActiveScreenTime != 30 {
			t.Errorf("today = %+v", days[2])
		}

		if _, err := DailyHistory(ctx, repo, 0, now); !repoerrors.IsValidation(err) {
			t.Errorf("DailyHistory(0) error = %v, want validation", err)
		}
	})

	t.Run("Heartbeats", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i, ts := range []int64{3000, 1000, 2000} {
			hb := types.ActivityHeartbeat{
				ID:           string(rune('a' + i)),
				ProfileID:    "default",
				ActivityType: types.ActivityWork,
				Timestamp:    ts,
				Details:      types.HeartbeatDetails{EventsLastMinute: i, Phase: types.PhaseWork},
			}
			if err := repo.SaveHeartbeat(ctx, hb); err != nil {
				t.Fatalf("SaveHeartbeat() error = %v", err)
			}
		}
		if err := repo.SaveHeartbeat(ctx, types.ActivityHeartbeat{Timestamp: 1}); !repoerrors.IsValidation(err) {
			t.Errorf("SaveHeartbeat(no id) error = %v, want validation", err)
		}

		got, err := repo.GetHeartbeats(ctx, 1500, 0)
		if err != nil {
			t.Fatalf("GetHeartbeats() error = %v", err)
		}
		if len(got) != 2 || got[0].Timestamp != 2000 || got[1].Timestamp != 3000 {
			t.Fatalf("GetHeartbeats(1500) = %+v", got)
		}
		if got[1].ID != "a" || got[1].Details.Phase != types.PhaseWork || got[1].ProfileID != "default" {
			t.Errorf("heartbeat did not round trip: %+v", got[1])
		}

		limited, err := repo.GetHeartbeats(ctx, 0, 1)
		if err != nil || len(limited) != 1 || limited[0].Timestamp != 1000 {
			t.Errorf("GetHeartbeats(limit 1) = %+v, %v", limited, err)
		}
	})

	t.Run("DeleteOldData", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		cutoff := time.Date(2025, 3, 10, 0, 0, 0, 0, local)

		if err := repo.SaveAccumulators(ctx, []types.DailyAccumulator{
			{Metric: types.MetricWorkTime, Day: midnight(2025, 3, 9), Seconds: 1},
			{Metric: types.MetricWorkTime, Day: midnight(2025, 3, 10), Seconds: 2},
		}); err != nil {
			t.Fatalf("SaveAccumulators() error = %v", err)
		}
		for _, hb := range []types.ActivityHeartbeat{
			{ID: "old", ActivityType: types.ActivityIdle, Timestamp: cutoff.UnixMilli() - 1},
			{ID: "edge", ActivityType: types.ActivityWork, Timestamp: cutoff.UnixMilli()},
		} {
			if err := repo.SaveHeartbeat(ctx, hb); err != nil {
				t.Fatalf("SaveHeartbeat() error = %v", err)
			}
		}

		if err := repo.DeleteOldData(ctx, cutoff); err != nil {
			t.Fatalf("DeleteOldData() error = %v", err)
		}

		hist, err := repo.GetAccumulatorHistory(ctx, types.MetricWorkTime, 0, midnight(2025, 3, 11))
		if err != nil || len(hist) != 1 || hist[0].Day != midnight(2025, 3, 10) {
			t.Errorf("accumulators after prune = %v, %v", hist, err)
		}
		hbs, err := repo.GetHeartbeats(ctx, 0, 0)
		if err != nil || len(hbs) != 1 || hbs[0].ID != "edge" {
			t.Errorf("heartbeats after prune = %+v, %v", hbs, err)
		}
	})

	t.Run("TransactionRollsBack", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		boom := errors.New("boom")

		err := repo.WithTransaction(ctx, func(tx StateRepository) error {
			if err := tx.Put(ctx, "scratch", []byte("1")); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("WithTransaction() error = %v, want boom", err)
		}
		if _, err := repo.Get(ctx, "scratch"); !repoerrors.IsNotFound(err) {
			t.Errorf("Get() after rollback error = %v, want not found", err)
		}
	})

	t.Run("TransactionCommits", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		day := midnight(2025, 3, 10)

		err := repo.WithTransaction(ctx, func(tx StateRepository) error {
			if err := tx.Put(ctx, "scratch", []byte("1")); err != nil {
				return err
			}
			// nested calls join the outer transaction
			return tx.SaveAccumulators(ctx, []types.DailyAccumulator{{Metric: types.MetricBreakTime, Day: day, Seconds: 5}})
		})
		if err != nil {
			t.Fatalf("WithTransaction() error = %v", err)
		}
		if v, err := repo.Get(ctx, "scratch"); err != nil || string(v) != "1" {
			t.Errorf("Get() after commit = %q, %v", v, err)
		}
		accs, err := repo.GetAccumulators(ctx, day)
		if err != nil || byMetric(accs)[types.MetricBreakTime] != 5 {
			t.Errorf("GetAccumulators() after commit = %v, %v", accs, err)
		}
	})

	t.Run("Health", func(t *testing.T) {
		if err := newRepo(t).Health(context.Background()); err != nil {
			t.Errorf("Health() error = %v", err)
		}
	})
}
