package testutils

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"breeze/internal/infrastructure/logging"
)

var _ logging.Logger = (*RecordingLogger)(nil)

// failureCollector stands in for *testing.T when a helper is expected to report
type failureCollector struct {
	mu       sync.Mutex
	failures []string
}

func (f *failureCollector) Errorf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, fmt.Sprintf(format, args...))
}

func TestRecordingLogger_EntriesByLevel(t *testing.T) {
	logger := &RecordingLogger{}
	writeErr := errors.New("disk full")

	logger.Debug("tick", "second", int64(42))
	logger.Info("alert delivered", "title", "Time for a break")
	logger.Error("state write failed", "key", "timer", "error", writeErr)
	logger.Error("sink panicked", "sink", 0)
	logger.Warn("idle source unavailable")

	tests := []struct {
		level string
		want  []string
	}{
		{"", []string{"tick", "alert delivered", "state write failed", "sink panicked", "idle source unavailable"}},
		{"debug", []string{"tick"}},
		{"info", []string{"alert delivered"}},
		{"warn", []string{"idle source unavailable"}},
		{"error", []string{"state write failed", "sink panicked"}},
		{"fatal", nil},
	}

	for _, tt := range tests {
		t.Run("level="+tt.level, func(t *testing.T) {
			entries := logger.Entries(tt.level)
			if len(entries) != len(tt.want) {
				t.Fatalf("Entries(%q) returned %d entries, want %d", tt.level, len(entries), len(tt.want))
			}
			for i, msg := range tt.want {
				if entries[i].Msg != msg {
					t.Errorf("Entries(%q)[%d].Msg = %q, want %q", tt.level, i, entries[i].Msg, msg)
				}
				if tt.level != "" && entries[i].Level != tt.level {
					t.Errorf("Entries(%q)[%d].Level = %q", tt.level, i, entries[i].Level)
				}
			}
		})
	}

	fields := FieldsToMap(t, logger.Entries("error")[0].Fields)
	if fields["key"] != "timer" {
		t.Errorf("key field = %v, want timer", fields["key"])
	}
	if fields["error"] != writeErr {
		t.Errorf("error field = %v, want %v", fields["error"], writeErr)
	}
}

func TestRecordingLogger_EntriesIsACopy(t *testing.T) {
	logger := &RecordingLogger{}
	logger.Info("first")

	entries := logger.Entries("")
	entries[0].Msg = "changed"
	logger.Info("second")

	got := logger.Entries("")
	if len(entries) != 1 {
		t.Errorf("earlier snapshot grew to %d entries", len(entries))
	}
	if got[0].Msg != "first" || len(got) != 2 {
		t.Errorf("Entries() = %+v, want [first second]", got)
	}
}

func TestRecordingLogger_ConcurrentWriters(t *testing.T) {
	logger := &RecordingLogger{}

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if i%2 == 0 {
					logger.Error("alert sink failed", "sink", w)
				} else {
					logger.Info("alert delivered", "sink", w)
				}
			}
		}(w)
	}
	wg.Wait()

	if got := len(logger.Entries("")); got != writers*perWriter {
		t.Errorf("captured %d entries, want %d", got, writers*perWriter)
	}
	if got := len(logger.Entries("error")); got != writers*perWriter/2 {
		t.Errorf("captured %d errors, want %d", got, writers*perWriter/2)
	}
}

func TestFieldsToMap(t *testing.T) {
	tests := []struct {
		name     string
		fields   []any
		expected map[string]any
	}{
		{
			name:     "no fields",
			fields:   nil,
			expected: map[string]any{},
		},
		{
			name:     "repository failure",
			fields:   []any{"operation", "SaveDailyMetrics", "date", "2024-03-01"},
			expected: map[string]any{"operation": "SaveDailyMetrics", "date": "2024-03-01"},
		},
		{
			name:     "later key wins",
			fields:   []any{"attempt", 1, "attempt", 3},
			expected: map[string]any{"attempt": 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FieldsToMap(t, tt.fields)

			if len(result) != len(tt.expected) {
				t.Errorf("FieldsToMap() has %d keys, want %d", len(result), len(tt.expected))
			}
			for key, want := range tt.expected {
				if got, ok := result[key]; !ok || got != want {
					t.Errorf("FieldsToMap()[%q] = %v, want %v", key, got, want)
				}
			}
		})
	}
}

func TestFieldsToMap_MalformedInput(t *testing.T) {
	tests := []struct {
		name     string
		fields   []any
		wantKeys int
	}{
		{"dangling key", []any{"key", "broken", "error"}, 1},
		{"non-string key", []any{42, "value", "sink", 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := &failureCollector{}
			result := FieldsToMap(collector, tt.fields)

			if len(result) != tt.wantKeys {
				t.Errorf("FieldsToMap() kept %d keys, want %d", len(result), tt.wantKeys)
			}
			if len(collector.failures) != 1 {
				t.Errorf("reported %d failures, want 1: %v", len(collector.failures), collector.failures)
			}
		})
	}
}
