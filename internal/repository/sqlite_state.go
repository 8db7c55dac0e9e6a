package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	queries "breeze/internal/database/generated"
	repoerrors "breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/types"
)

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.exec(ctx, "Get", map[string]string{"key": key}, func() error {
		var err error
		value, err = r.queries.GetKV(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (r *SQLiteRepository) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return repoerrors.HandleValidationError("Put", "key", key, "key cannot be empty")
	}

	start := time.Now()
	err := r.exec(ctx, "Put", map[string]string{"key": key}, func() error {
		return r.queries.UpsertKV(ctx, queries.UpsertKVParams{Key: key, Value: string(value)})
	})
	if err == nil {
		logging.LogOperation(r.logger, "Put", time.Since(start), map[string]any{"key": key, "bytes": len(value)})
	}
	return err
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	return r.exec(ctx, "Delete", map[string]string{"key": key}, func() error {
		return r.queries.DeleteKV(ctx, key)
	})
}

// SaveAccumulators writes every record in one transaction
func (r *SQLiteRepository) SaveAccumulators(ctx context.Context, accs []types.DailyAccumulator) error {
	if len(accs) == 0 {
		return nil
	}
	for _, acc := range accs {
		if acc.Seconds < 0 {
			return repoerrors.HandleValidationError("SaveAccumulators", "seconds", fmt.Sprintf("%d", acc.Seconds), "cannot be negative")
		}
	}

	return r.WithTransaction(ctx, func(repo StateRepository) error {
		tx := repo.(*SQLiteRepository)
		for _, acc := range accs {
			err := tx.queries.UpsertAccumulator(ctx, queries.UpsertAccumulatorParams{
				Metric:  string(acc.Metric),
				Day:     acc.Day,
				Seconds: acc.Seconds,
			})
			if err != nil {
				return repoerrors.NewRepositoryErrorWithContext("SaveAccumulators", err, repoerrors.ClassifyError(err),
					map[string]string{"metric": string(acc.Metric), "day": fmt.Sprintf("%d", acc.Day)})
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetAccumulators(ctx context.Context, day int64) ([]types.DailyAccumulator, error) {
	var rows []queries.DailyAccumulator
	err := r.exec(ctx, "GetAccumulators", map[string]string{"day": fmt.Sprintf("%d", day)}, func() error {
		var err error
		rows, err = r.queries.ListAccumulatorsByDay(ctx, day)
		return err
	})
	if err != nil {
		return nil, err
	}
	return convertAccumulators(rows), nil
}

func (r *SQLiteRepository) GetAccumulatorHistory(ctx context.Context, metric types.Metric, fromDay, toDay int64) ([]types.DailyAccumulator, error) {
	if fromDay > toDay {
		return nil, repoerrors.HandleValidationError("GetAccumulatorHistory", "fromDay", fmt.Sprintf("%d", fromDay), "must not be after toDay")
	}

	var rows []queries.DailyAccumulator
	err := r.exec(ctx, "GetAccumulatorHistory", map[string]string{"metric": string(metric)}, func() error {
		var err error
		rows, err = r.queries.ListAccumulatorHistory(ctx, queries.ListAccumulatorHistoryParams{
			Metric:  string(metric),
			FromDay: fromDay,
			ToDay:   toDay,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return convertAccumulators(rows), nil
}

func convertAccumulators(rows []queries.DailyAccumulator) []types.DailyAccumulator {
	out := make([]types.DailyAccumulator, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.DailyAccumulator{Metric: types.Metric(row.Metric), Day: row.Day, Seconds: row.Seconds})
	}
	return out
}

func (r *SQLiteRepository) SaveHeartbeat(ctx context.Context, hb types.ActivityHeartbeat) error {
	if hb.ID == "" {
		return repoerrors.HandleValidationError("SaveHeartbeat", "id", "", "heartbeat id is required")
	}
	details, err := json.Marshal(hb.Details)
	if err != nil {
		return repoerrors.NewRepositoryError("SaveHeartbeat", err, repoerrors.ErrCodeValidation)
	}

	return r.exec(ctx, "SaveHeartbeat", map[string]string{"id": hb.ID}, func() error {
		return r.queries.InsertHeartbeat(ctx, queries.InsertHeartbeatParams{
			ID:           hb.ID,
			ProfileID:    hb.ProfileID,
			ActivityType: string(hb.ActivityType),
			Timestamp:    hb.Timestamp,
			Details:      string(details),
		})
	})
}

func (r *SQLiteRepository) GetHeartbeats(ctx context.Context, sinceMs int64, limit int) ([]types.ActivityHeartbeat, error) {
	if limit <= 0 {
		limit = 1440
	}

	var rows []queries.ActivityHeartbeat
	err := r.exec(ctx, "GetHeartbeats", nil, func() error {
		var err error
		rows, err = r.queries.ListHeartbeatsSince(ctx, queries.ListHeartbeatsSinceParams{Timestamp: sinceMs, Limit: int64(limit)})
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]types.ActivityHeartbeat, 0, len(rows))
	for _, row := range rows {
		hb := types.ActivityHeartbeat{
			ID:           row.ID,
			ProfileID:    row.ProfileID,
			ActivityType: types.ActivityType(row.ActivityType),
			Timestamp:    row.Timestamp,
		}
		if err := json.Unmarshal([]byte(row.Details), &hb.Details); err != nil {
			r.logger.Warn("Skipping heartbeat with unreadable details", "id", row.ID, "error", err)
			continue
		}
		out = append(out, hb)
	}
	return out, nil
}

// DeleteOldData removes heartbeats before olderThan and accumulators of days
// that started before it.
func (r *SQLiteRepository) DeleteOldData(ctx context.Context, olderThan time.Time) error {
	cutoff := olderThan.UnixMilli()
	start := time.Now()
	var heartbeats, accumulators int64

	err := r.WithTransaction(ctx, func(repo StateRepository) error {
		tx := repo.(*SQLiteRepository)
		var err error
		if heartbeats, err = tx.queries.DeleteHeartbeatsBefore(ctx, cutoff); err != nil {
			return repoerrors.NewRepositoryError("DeleteOldData.Heartbeats", err, repoerrors.ClassifyError(err))
		}
		if accumulators, err = tx.queries.DeleteAccumulatorsBefore(ctx, cutoff); err != nil {
			return repoerrors.NewRepositoryError("DeleteOldData.Accumulators", err, repoerrors.ClassifyError(err))
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "DeleteOldData", time.Since(start), map[string]any{
			"cutoff":       olderThan.Format(time.RFC3339),
			"heartbeats":   heartbeats,
			"accumulators": accumulators,
		})
	}
	return err
}
