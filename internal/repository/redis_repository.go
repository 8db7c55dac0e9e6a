package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	repoerrors "breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/types"
)

// RedisConfig selects the Redis server backing a RedisRepository
type RedisConfig struct {
	Address      string `json:"address" yaml:"address" mapstructure:"address"`
	Password     string `json:"password" yaml:"password" mapstructure:"password"`
	DB           int    `json:"db" yaml:"db" mapstructure:"db"`
	PoolSize     int    `json:"poolSize" yaml:"poolSize" mapstructure:"pool_size"`
	MinIdleConns int    `json:"minIdleConns" yaml:"minIdleConns" mapstructure:"min_idle_conns"`
	KeyPrefix    string `json:"keyPrefix" yaml:"keyPrefix" mapstructure:"key_prefix"`
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Address:      "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    "breeze",
	}
}

// NewRedisClient connects and pings the server
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, repoerrors.NewRepositoryErrorWithContext("NewRedisClient", err, repoerrors.ClassifyError(err),
			map[string]string{"address": cfg.Address})
	}
	return rdb, nil
}

// RedisRepository implements StateRepository on Redis. Records live under
// <prefix>:kv:<key>, accumulators in one hash per metric keyed by day, and
// heartbeats in a sorted set scored by timestamp.
type RedisRepository struct {
	client      *redis.Client
	reader      redis.Cmdable
	writer      redis.Cmdable
	prefix      string
	retryConfig *repoerrors.RetryConfig
	logger      logging.Logger

	inTx bool
}

var _ StateRepository = (*RedisRepository)(nil)

func NewRedisRepository(client *redis.Client, prefix string, logger logging.Logger) *RedisRepository {
	if prefix == "" {
		prefix = DefaultRedisConfig().KeyPrefix
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &RedisRepository{
		client:      client,
		reader:      client,
		writer:      client,
		prefix:      prefix,
		retryConfig: repoerrors.DefaultRetryConfig(),
		logger:      logger,
	}
}

func (r *RedisRepository) SetRetryConfig(config *repoerrors.RetryConfig) {
	if config != nil {
		r.retryConfig = config
	}
}

func (r *RedisRepository) kvKey(key string) string { return r.prefix + ":kv:" + key }

func (r *RedisRepository) accKey(metric types.Metric) string {
	return r.prefix + ":acc:" + string(metric)
}

func (r *RedisRepository) heartbeatKey() string { return r.prefix + ":heartbeats" }

func (r *RedisRepository) exec(ctx context.Context, op string, fields map[string]string, fn func() error) error {
	return repoerrors.WithRetryNamed(ctx, r.retryConfig, op, func() error {
		err := fn()
		if err == nil {
			return nil
		}

		code := repoerrors.ClassifyError(err)
		repoErr := repoerrors.NewRepositoryErrorWithContext(op, err, code, fields)
		switch {
		case code == repoerrors.ErrCodeNotFound:
		case repoErr.IsRetryable():
			r.logger.Debug("Retryable error in "+op, "error", err)
		default:
			logging.LogError(r.logger, repoErr, op, nil)
		}
		return repoErr
	})
}

func (r *RedisRepository) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return repoerrors.NewRepositoryError("Health", err, repoerrors.ClassifyError(err))
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.exec(ctx, "Get", map[string]string{"key": key}, func() error {
		var err error
		value, err = r.reader.Get(ctx, r.kvKey(key)).Bytes()
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (r *RedisRepository) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return repoerrors.HandleValidationError("Put", "key", key, "key cannot be empty")
	}
	return r.exec(ctx, "Put", map[string]string{"key": key}, func() error {
		return r.writer.Set(ctx, r.kvKey(key), value, 0).Err()
	})
}

func (r *RedisRepository) Delete(ctx context.Context, key string) error {
	return r.exec(ctx, "Delete", map[string]string{"key": key}, func() error {
		return r.writer.Del(ctx, r.kvKey(key)).Err()
	})
}

func (r *RedisRepository) SaveAccumulators(ctx context.Context, accs []types.DailyAccumulator) error {
	if len(accs) == 0 {
		return nil
	}
	for _, acc := range accs {
		if acc.Seconds < 0 {
			return repoerrors.HandleValidationError("SaveAccumulators", "seconds", fmt.Sprintf("%d", acc.Seconds), "cannot be negative")
		}
	}

	return r.WithTransaction(ctx, func(repo StateRepository) error {
		tx := repo.(*RedisRepository)
		for _, acc := range accs {
			field := strconv.FormatInt(acc.Day, 10)
			if err := tx.writer.HSet(ctx, tx.accKey(acc.Metric), field, acc.Seconds).Err(); err != nil {
				return repoerrors.NewRepositoryErrorWithContext("SaveAccumulators", err, repoerrors.ClassifyError(err),
					map[string]string{"metric": string(acc.Metric), "day": field})
			}
		}
		return nil
	})
}

func (r *RedisRepository) GetAccumulators(ctx context.Context, day int64) ([]types.DailyAccumulator, error) {
	field := strconv.FormatInt(day, 10)
	out := make([]types.DailyAccumulator, 0, len(types.AllMetrics))

	for _, metric := range types.AllMetrics {
		var seconds int64
		err := r.exec(ctx, "GetAccumulators", map[string]string{"metric": string(metric), "day": field}, func() error {
			var err error
			seconds, err = r.reader.HGet(ctx, r.accKey(metric), field).Int64()
			return err
		})
		if repoerrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, types.DailyAccumulator{Metric: metric, Day: day, Seconds: seconds})
	}
	return out, nil
}

func (r *RedisRepository) GetAccumulatorHistory(ctx context.Context, metric types.Metric, fromDay, toDay int64) ([]types.DailyAccumulator, error) {
	if fromDay > toDay {
		return nil, repoerrors.HandleValidationError("GetAccumulatorHistory", "fromDay", fmt.Sprintf("%d", fromDay), "must not be after toDay")
	}

	var all map[string]string
	err := r.exec(ctx, "GetAccumulatorHistory", map[string]string{"metric": string(metric)}, func() error {
		var err error
		all, err = r.reader.HGetAll(ctx, r.accKey(metric)).Result()
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]types.DailyAccumulator, 0, len(all))
	for field, raw := range all {
		day, err := strconv.ParseInt(field, 10, 64)
		if err != nil || day < fromDay || day > toDay {
			continue
		}
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			r.logger.Warn("Skipping unreadable accumulator", "metric", metric, "day", field, "error", err)
			continue
		}
		out = append(out, types.DailyAccumulator{Metric: metric, Day: day, Seconds: seconds})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (r *RedisRepository) SaveHeartbeat(ctx context.Context, hb types.ActivityHeartbeat) error {
	if hb.ID == "" {
		return repoerrors.HandleValidationError("SaveHeartbeat", "id", "", "heartbeat id is required")
	}
	member, err := json.Marshal(hb)
	if err != nil {
		return repoerrors.NewRepositoryError("SaveHeartbeat", err, repoerrors.ErrCodeValidation)
	}

	return r.exec(ctx, "SaveHeartbeat", map[string]string{"id": hb.ID}, func() error {
		return r.writer.ZAdd(ctx, r.heartbeatKey(), &redis.Z{Score: float64(hb.Timestamp), Member: member}).Err()
	})
}

func (r *RedisRepository) GetHeartbeats(ctx context.Context, sinceMs int64, limit int) ([]types.ActivityHeartbeat, error) {
	if limit <= 0 {
		limit = 1440
	}

	var members []string
	err := r.exec(ctx, "GetHeartbeats", nil, func() error {
		var err error
		members, err = r.reader.ZRangeByScore(ctx, r.heartbeatKey(), &redis.ZRangeBy{
			Min:   strconv.FormatInt(sinceMs, 10),
			Max:   "+inf",
			Count: int64(limit),
		}).Result()
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]types.ActivityHeartbeat, 0, len(members))
	for _, member := range members {
		var hb types.ActivityHeartbeat
		if err := json.Unmarshal([]byte(member), &hb); err != nil {
			r.logger.Warn("Skipping unreadable heartbeat", "error", err)
			continue
		}
		out = append(out, hb)
	}
	return out, nil
}

func (r *RedisRepository) DeleteOldData(ctx context.Context, olderThan time.Time) error {
	cutoff := olderThan.UnixMilli()
	start := time.Now()

	stale := make(map[types.Metric][]string, len(types.AllMetrics))
	for _, metric := range types.AllMetrics {
		var days map[string]string
		err := r.exec(ctx, "DeleteOldData.Scan", map[string]string{"metric": string(metric)}, func() error {
			var err error
			days, err = r.reader.HGetAll(ctx, r.accKey(metric)).Result()
			return err
		})
		if err != nil {
			return err
		}
		for field := range days {
			if day, err := strconv.ParseInt(field, 10, 64); err == nil && day < cutoff {
				stale[metric] = append(stale[metric], field)
			}
		}
	}

	err := r.WithTransaction(ctx, func(repo StateRepository) error {
		tx := repo.(*RedisRepository)
		// exclusive upper bound, matching timestamp < cutoff
		upper := "(" + strconv.FormatInt(cutoff, 10)
		if err := tx.writer.ZRemRangeByScore(ctx, tx.heartbeatKey(), "-inf", upper).Err(); err != nil {
			return repoerrors.NewRepositoryError("DeleteOldData.Heartbeats", err, repoerrors.ClassifyError(err))
		}
		for metric, fields := range stale {
			if err := tx.writer.HDel(ctx, tx.accKey(metric), fields...).Err(); err != nil {
				return repoerrors.NewRepositoryError("DeleteOldData.Accumulators", err, repoerrors.ClassifyError(err))
			}
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "DeleteOldData", time.Since(start), map[string]any{
			"cutoff": olderThan.Format(time.RFC3339),
			"store":  "redis",
		})
	}
	return err
}

// WithTransaction queues every write made by fn in a MULTI/EXEC pipeline.
// Reads inside fn see committed data only.
func (r *RedisRepository) WithTransaction(ctx context.Context, fn func(repo StateRepository) error) error {
	if r.inTx {
		return fn(r)
	}

	return repoerrors.WithRetryNamed(ctx, r.retryConfig, "WithTransaction", func() error {
		pipe := r.client.TxPipeline()
		txRepo := &RedisRepository{
			client:      r.client,
			reader:      r.client,
			writer:      pipe,
			prefix:      r.prefix,
			retryConfig: &repoerrors.RetryConfig{MaxAttempts: 1},
			logger:      r.logger,
			inTx:        true,
		}

		if err := fn(txRepo); err != nil {
			_ = pipe.Discard()
			r.logger.Debug("Transaction function failed", "error", err)
			return err
		}

		if _, err := pipe.Exec(ctx); err != nil {
			repoErr := repoerrors.NewRepositoryError("WithTransaction.Exec", err, repoerrors.ClassifyError(err))
			if !repoErr.IsRetryable() {
				logging.LogError(r.logger, repoErr, "WithTransaction.Exec", nil)
			}
			return repoErr
		}
		return nil
	})
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
