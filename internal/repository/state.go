package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	repoerrors "breeze/internal/infrastructure/errors"
	"breeze/internal/types"
)

// Fixed keys of the persisted timer records
const (
	TimerStateKey    = "work-session-timer-v1"
	TimerSettingsKey = "work-session-settings-v1"
)

// LoadJSON reads key into a T. A missing key is (nil, nil).
func LoadJSON[T any](ctx context.Context, repo StateRepository, key string) (*T, error) {
	raw, err := repo.Get(ctx, key)
	if err != nil {
		if repoerrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, repoerrors.NewRepositoryErrorWithContext("LoadJSON", err, repoerrors.ErrCodeCorruption,
			map[string]string{"key": key})
	}
	return &v, nil
}

// SaveJSON encodes v and stores it under key
func SaveJSON(ctx context.Context, repo StateRepository, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return repoerrors.NewRepositoryErrorWithContext("SaveJSON", err, repoerrors.ErrCodeValidation,
			map[string]string{"key": key})
	}
	return repo.Put(ctx, key, raw)
}

func LoadTimerState(ctx context.Context, repo StateRepository) (*types.TimerState, error) {
	return LoadJSON[types.TimerState](ctx, repo, TimerStateKey)
}

func LoadTimerSettings(ctx context.Context, repo StateRepository) (*types.TimerSettings, error) {
	return LoadJSON[types.TimerSettings](ctx, repo, TimerSettingsKey)
}

// DailyHistory returns one totals entry per day from days-1 days ago to
// today, filling gaps with zeros.
func DailyHistory(ctx context.Context, repo StateRepository, days int, now time.Time) ([]types.DailyTotals, error) {
	if days <= 0 {
		return nil, repoerrors.HandleValidationError("DailyHistory", "days", fmt.Sprintf("%d", days), "must be positive")
	}

	out := HistoryDays(days, now)
	index := make(map[int64]int, days)
	for i, totals := range out {
		index[totals.Day] = i
	}
	first, last := out[0].Day, out[days-1].Day

	for _, metric := range types.AllMetrics {
		accs, err := repo.GetAccumulatorHistory(ctx, metric, first, last)
		if err != nil {
			return nil, err
		}
		for _, acc := range accs {
			i, ok := index[acc.Day]
			if !ok {
				continue
			}
			switch acc.Metric {
			case types.MetricActiveScreenTime:
				out[i].ActiveScreenTime = acc.Seconds
			case types.MetricWorkTime:
				out[i].WorkTime = acc.Seconds
			case types.MetricBreakTime:
				out[i].BreakTime = acc.Seconds
			}
		}
	}

	return out, nil
}

// HistoryDays returns zeroed totals for the days-1 days before now and today
func HistoryDays(days int, now time.Time) []types.DailyTotals {
	if days <= 0 {
		return nil
	}
	y, m, d := now.Date()
	out := make([]types.DailyTotals, days)
	for i := range out {
		out[i].Day = time.Date(y, m, d-(days-1)+i, 0, 0, 0, 0, now.Location()).UnixMilli()
	}
	return out
}
