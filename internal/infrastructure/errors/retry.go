package errors

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

// RetryLogger receives retry progress messages
type RetryLogger interface {
	Printf(format string, v ...interface{})
}

// RetryConfig controls WithRetry
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	Jitter          bool
	RetryableErrors []ErrorCode
}

var (
	retryLoggerMu sync.RWMutex
	retryLogger   RetryLogger
)

// DefaultRetryConfig is used by the storage layer
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
		RetryableErrors: []ErrorCode{
			ErrCodeConnection,
			ErrCodeTimeout,
			ErrCodeTransaction,
			ErrCodeBusy,
		},
	}
}

// SetRetryLogger installs the package-level retry logger (nil disables logging)
func SetRetryLogger(logger RetryLogger) {
	retryLoggerMu.Lock()
	defer retryLoggerMu.Unlock()
	retryLogger = logger
}

func logRetry(format string, v ...interface{}) {
	retryLoggerMu.RLock()
	logger := retryLogger
	retryLoggerMu.RUnlock()
	if logger != nil {
		logger.Printf(format, v...)
	}
}

// WithRetry runs operation until it succeeds, fails with a non-retryable error,
// runs out of attempts or ctx is done
func WithRetry(ctx context.Context, config *RetryConfig, operation func() error) error {
	return WithRetryNamed(ctx, config, "", operation)
}

// WithRetryNamed is WithRetry with an operation name for log and error messages
func WithRetryNamed(ctx context.Context, config *RetryConfig, name string, operation func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := max(config.MaxAttempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 {
				logRetry("operation %q succeeded after %d attempts", name, attempt+1)
			}
			return nil
		}
		lastErr = err

		if !shouldRetry(err, config) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		delay := calculateDelay(attempt, config)
		logRetry("operation %q failed (attempt %d/%d), retrying in %v: %v", name, attempt+1, attempts, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("operation %q cancelled during retry: %w", name, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("operation %q failed after %d attempts: %w", name, attempts, lastErr)
}

// RetryQuick is a short retry policy for cheap local writes
func RetryQuick(ctx context.Context, operation func() error) error {
	return WithRetry(ctx, &RetryConfig{
		MaxAttempts:     2,
		InitialDelay:    25 * time.Millisecond,
		MaxDelay:        250 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: []ErrorCode{ErrCodeBusy, ErrCodeConnection, ErrCodeTimeout},
	}, operation)
}

func shouldRetry(err error, config *RetryConfig) bool {
	var repoErr *RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.Retryable {
		return false
	}
	return slices.Contains(config.RetryableErrors, repoErr.Code)
}

func calculateDelay(attempt int, config *RetryConfig) time.Duration {
	multiplier := 1.0
	for range attempt {
		multiplier *= config.BackoffFactor
	}
	delay := time.Duration(float64(config.InitialDelay) * multiplier)

	if config.Jitter && delay > 0 {
		if quarter := int64(delay) / 4; quarter > 0 {
			delay += time.Duration(rand.Int64N(quarter))
		}
	}

	if config.MaxDelay > 0 {
		delay = min(delay, config.MaxDelay)
	}
	return delay
}
