package errors

import (
	"errors"
	"net"
	"strings"

	"github.com/go-redis/redis/v8"
)

// classifyRedisError maps go-redis failures; ErrCodeUnknown means "not recognised"
func classifyRedisError(err error) ErrorCode {
	if errors.Is(err, redis.Nil) {
		return ErrCodeNotFound
	}
	if errors.Is(err, redis.ErrClosed) {
		return ErrCodeConnection
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrCodeTimeout
		}
		return ErrCodeConnection
	}

	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "LOADING"), strings.HasPrefix(msg, "BUSY"), strings.HasPrefix(msg, "TRYAGAIN"):
		return ErrCodeBusy
	case strings.HasPrefix(msg, "NOPERM"), strings.HasPrefix(msg, "NOAUTH"):
		return ErrCodePermission
	case strings.HasPrefix(msg, "OOM"):
		return ErrCodeDiskSpace
	case strings.HasPrefix(msg, "WRONGTYPE"):
		return ErrCodeSchema
	default:
		return ErrCodeUnknown
	}
}
