package repository

import (
	"context"
	"time"

	"breeze/internal/types"
)

// StateRepository persists timer records, daily accumulators and activity
// heartbeats. Implementations must be safe for concurrent use.
type StateRepository interface {
	// Key/value records. Get returns a NotFound RepositoryError for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Daily accumulators; saving overwrites the stored seconds for {metric, day}
	SaveAccumulators(ctx context.Context, accs []types.DailyAccumulator) error
	GetAccumulators(ctx context.Context, day int64) ([]types.DailyAccumulator, error)
	GetAccumulatorHistory(ctx context.Context, metric types.Metric, fromDay, toDay int64) ([]types.DailyAccumulator, error)

	SaveHeartbeat(ctx context.Context, hb types.ActivityHeartbeat) error
	GetHeartbeats(ctx context.Context, sinceMs int64, limit int) ([]types.ActivityHeartbeat, error)

	// DeleteOldData drops heartbeats and accumulators older than the cutoff
	DeleteOldData(ctx context.Context, olderThan time.Time) error

	WithTransaction(ctx context.Context, fn func(repo StateRepository) error) error
	Health(ctx context.Context) error
}
