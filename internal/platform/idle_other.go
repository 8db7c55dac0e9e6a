//go:build !linux && !windows && !darwin

package platform

import "time"

type unsupportedIdleProvider struct{}

func newIdleProvider() IdleProvider {
	return unsupportedIdleProvider{}
}

func (unsupportedIdleProvider) IdleDuration() (time.Duration, error) {
	return 0, ErrIdleUnsupported
}
