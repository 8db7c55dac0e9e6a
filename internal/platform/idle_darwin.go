//go:build darwin

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

var hidIdleRe = regexp.MustCompile(`"HIDIdleTime"\s*=\s*([0-9]+)`)

// ioregProvider reads HIDIdleTime (nanoseconds) from the IOHIDSystem registry entry
type ioregProvider struct{}

func newIdleProvider() IdleProvider {
	return ioregProvider{}
}

func (ioregProvider) IdleDuration() (time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "/usr/sbin/ioreg", "-c", "IOHIDSystem").Output()
	if err != nil {
		return 0, fmt.Errorf("ioreg: %w", err)
	}
	return parseHIDIdle(out)
}

func parseHIDIdle(out []byte) (time.Duration, error) {
	m := hidIdleRe.FindSubmatch(out)
	if len(m) != 2 {
		return 0, fmt.Errorf("HIDIdleTime not found")
	}
	ns, err := strconv.ParseInt(string(m[1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse HIDIdleTime: %w", err)
	}
	return time.Duration(ns), nil
}
