package errors

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// ClassifyError maps driver, context and message patterns onto an ErrorCode
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return ErrCodeUnknown
	}

	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.Code
	}
	if code := classifySQLiteError(err); code != ErrCodeUnknown {
		return code
	}
	if code := classifyRedisError(err); code != ErrCodeUnknown {
		return code
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrCodeNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrCodeTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"):
		return ErrCodeDuplicate
	case strings.Contains(msg, "constraint"):
		return ErrCodeConstraint
	case strings.Contains(msg, "database is locked"):
		return ErrCodeBusy
	case strings.Contains(msg, "malformed"):
		return ErrCodeCorruption
	case strings.Contains(msg, "no such table"), strings.Contains(msg, "no such column"):
		return ErrCodeSchema
	case strings.Contains(msg, "permission denied"):
		return ErrCodePermission
	case strings.Contains(msg, "no space left"), strings.Contains(msg, "disk full"):
		return ErrCodeDiskSpace
	case strings.Contains(msg, "connection refused"):
		return ErrCodeConnection
	case strings.Contains(msg, "timeout"):
		return ErrCodeTimeout
	default:
		return ErrCodeUnknown
	}
}

// WrapDatabaseError classifies err and wraps it for op; nil stays nil
func WrapDatabaseError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewRepositoryError(op, err, ClassifyError(err))
}

// WrapDatabaseErrorWithContext is WrapDatabaseError with extra context
func WrapDatabaseErrorWithContext(op string, err error, contextMap map[string]string) error {
	if err == nil {
		return nil
	}
	return NewRepositoryErrorWithContext(op, err, ClassifyError(err), contextMap)
}

// HandleNotFound reports a missing record
func HandleNotFound(op, resource, identifier string) error {
	return NewRepositoryErrorWithContext(op, sql.ErrNoRows, ErrCodeNotFound, map[string]string{
		"resource":   resource,
		"identifier": identifier,
	})
}

// HandleValidationError reports rejected input
func HandleValidationError(op, field, value, reason string) error {
	return NewRepositoryErrorWithContext(op, errors.New("validation failed"), ErrCodeValidation, map[string]string{
		"field":  field,
		"value":  value,
		"reason": reason,
	})
}

// HandleConnectionError reports an unusable backend
func HandleConnectionError(op, details string) error {
	return NewRepositoryErrorWithContext(op, errors.New("connection error"), ErrCodeConnection, map[string]string{
		"details": details,
	})
}

// HandleUpstreamError wraps a failure from an external collaborator such as the AI provider
func HandleUpstreamError(op, provider string, err error) error {
	if err == nil {
		err = errors.New("upstream failure")
	}
	return NewRepositoryErrorWithContext(op, err, ErrCodeUpstream, map[string]string{
		"provider": provider,
	})
}
