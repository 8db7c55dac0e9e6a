package services

import (
	"context"
	"strings"
	"time"

	"breeze/internal/ai"
	"breeze/internal/infrastructure/errors"
)

// generateRetry retries provider hiccups once; a malformed reply is not retried
var generateRetry = &errors.RetryConfig{
	MaxAttempts:     2,
	InitialDelay:    200 * time.Millisecond,
	MaxDelay:        time.Second,
	BackoffFactor:   2.0,
	Jitter:          true,
	RetryableErrors: []errors.ErrorCode{errors.ErrCodeUpstream, errors.ErrCodeTimeout, errors.ErrCodeConnection},
}

func generateText(ctx context.Context, gen ai.Generator, op, prompt string) (string, error) {
	var text string
	err := errors.WithRetryNamed(ctx, generateRetry, op, func() error {
		var genErr error
		text, genErr = gen.Generate(ctx, prompt)
		return genErr
	})
	return strings.TrimSpace(text), err
}
