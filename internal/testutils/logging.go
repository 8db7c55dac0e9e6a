package testutils

import "sync"

// TestingT is the part of testing.T the helpers need
type TestingT interface {
	Errorf(format string, args ...any)
}

// FieldsToMap turns alternating key/value log fields into a map,
// reporting malformed entries through t instead of panicking.
func FieldsToMap(t TestingT, fields []any) map[string]any {
	out := make(map[string]any, len(fields)/2)

	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			t.Errorf("malformed fields: key at index %d has no value", i)
			break
		}
		key, ok := fields[i].(string)
		if !ok {
			t.Errorf("malformed fields: key at index %d is %T, not string", i, fields[i])
			continue
		}
		out[key] = fields[i+1]
	}

	return out
}

// LogEntry is one call captured by RecordingLogger
type LogEntry struct {
	Level  string
	Msg    string
	Fields []any
}

// RecordingLogger captures log calls and is safe for use from several goroutines
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (r *RecordingLogger) record(level, msg string, fields []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, LogEntry{Level: level, Msg: msg, Fields: fields})
}

func (r *RecordingLogger) Debug(msg string, fields ...any) { r.record("debug", msg, fields) }
func (r *RecordingLogger) Info(msg string, fields ...any)  { r.record("info", msg, fields) }
func (r *RecordingLogger) Warn(msg string, fields ...any)  { r.record("warn", msg, fields) }
func (r *RecordingLogger) Error(msg string, fields ...any) { r.record("error", msg, fields) }

// Entries returns a copy of the captured calls, optionally filtered by level
func (r *RecordingLogger) Entries(level string) []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]LogEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
