package errors

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffFactor:   2,
		RetryableErrors: []ErrorCode{ErrCodeBusy, ErrCodeConnection},
	}
}

func TestWithRetry_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		calls++
		if calls < 3 {
			return NewRepositoryError("op", errors.New("locked"), ErrCodeBusy)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("WithRetry() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetry_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	want := NewRepositoryError("op", errors.New("bad"), ErrCodeValidation)
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return want
	})

	if !errors.Is(err, want) {
		t.Errorf("WithRetry() error = %v, want %v", err, want)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetry_MaxAttemptsExceeded(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		calls++
		return NewRepositoryError("op", errors.New("refused"), ErrCodeConnection)
	})

	if err == nil {
		t.Fatal("WithRetry() error = nil, want error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !IsConnection(err) {
		t.Errorf("IsConnection(%v) = false, want true", err)
	}
}

func TestWithRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetryConfig()
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = time.Second

	calls := 0
	err := WithRetry(ctx, cfg, func() error {
		calls++
		cancel()
		return NewRepositoryError("op", errors.New("locked"), ErrCodeBusy)
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("WithRetry() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCalculateDelay(t *testing.T) {
	cfg := &RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := calculateDelay(tt.attempt, cfg); got != tt.want {
			t.Errorf("calculateDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	cfg.Jitter = true
	cfg.MaxDelay = time.Second
	for i := 0; i < 20; i++ {
		got := calculateDelay(0, cfg)
		if got < 100*time.Millisecond || got >= 125*time.Millisecond {
			t.Fatalf("calculateDelay() with jitter = %v, want within [100ms, 125ms)", got)
		}
	}
}

type recordingRetryLogger struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingRetryLogger) Printf(format string, v ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, format)
}

func TestSetRetryLogger(t *testing.T) {
	logger := &recordingRetryLogger{}
	SetRetryLogger(logger)
	defer SetRetryLogger(nil)

	calls := 0
	_ = RetryQuick(context.Background(), func() error {
		calls++
		if calls == 1 {
			return NewRepositoryError("op", errors.New("locked"), ErrCodeBusy)
		}
		return nil
	})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.lines) != 2 {
		t.Errorf("logged %d lines, want 2 (retry + success)", len(logger.lines))
	}
}
