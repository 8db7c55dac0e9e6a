package notify

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"breeze/internal/infrastructure/logging"
)

// LogAlerter writes every notification to the log at info level
type LogAlerter struct {
	logger logging.Logger
}

func NewLogAlerter(logger logging.Logger) *LogAlerter {
	return &LogAlerter{logger: logger}
}

func (a *LogAlerter) Alert(_ context.Context, n Notification) error {
	if a.logger == nil {
		return nil
	}
	fields := []interface{}{"kind", string(n.Kind), "title", n.Title}
	if len(n.Suggestions) > 0 {
		fields = append(fields, "suggestions", strings.Join(n.Suggestions, "; "))
	}
	a.logger.Info("phase transition", fields...)
	return nil
}

// BellChimer rings the terminal bell once per tone, honouring tone offsets
type BellChimer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBellChimer(w io.Writer) *BellChimer {
	return &BellChimer{w: w}
}

func (b *BellChimer) Chime(ctx context.Context, tones []Tone) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var elapsed time.Duration
	for _, tone := range tones {
		if wait := tone.Offset - elapsed; wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
			elapsed = tone.Offset
		}
		if _, err := io.WriteString(b.w, "\a"); err != nil {
			return err
		}
	}
	return nil
}
