package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"breeze/internal/testutils"
)

type mockRepositoryError struct {
	message   string
	code      string
	retryable bool
	context   map[string]string
	timestamp time.Time
}

func (m *mockRepositoryError) Error() string                 { return m.message }
func (m *mockRepositoryError) GetCode() string               { return m.code }
func (m *mockRepositoryError) IsRetryable() bool             { return m.retryable }
func (m *mockRepositoryError) GetContext() map[string]string { return m.context }
func (m *mockRepositoryError) GetTimestamp() time.Time       { return m.timestamp }

type logCall struct {
	msg    string
	fields []interface{}
}

type mockLogger struct {
	debugCalls []logCall
	infoCalls  []logCall
	warnCalls  []logCall
	errorCalls []logCall
}

func (m *mockLogger) Debug(msg string, fields ...interface{}) {
	m.debugCalls = append(m.debugCalls, logCall{msg: msg, fields: fields})
}

func (m *mockLogger) Info(msg string, fields ...interface{}) {
	m.infoCalls = append(m.infoCalls, logCall{msg: msg, fields: fields})
}

func (m *mockLogger) Warn(msg string, fields ...interface{}) {
	m.warnCalls = append(m.warnCalls, logCall{msg: msg, fields: fields})
}

func (m *mockLogger) Error(msg string, fields ...interface{}) {
	m.errorCalls = append(m.errorCalls, logCall{msg: msg, fields: fields})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewDefaultLogger(t *testing.T) {
	logger := NewDefaultLogger()
	if logger == nil {
		t.Fatal("NewDefaultLogger() returned nil")
	}
	if _, ok := logger.(*DefaultLogger); !ok {
		t.Errorf("NewDefaultLogger() returned %T, want *DefaultLogger", logger)
	}
}

func TestDefaultLogger_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Options{Level: "debug", Output: &buf, Component: "timer"})

	logger.Info("phase changed", "phase", "break", "remaining_ms", 1000)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]

	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["message"] != "phase changed" {
		t.Errorf("message = %v, want %q", entry["message"], "phase changed")
	}
	if entry["phase"] != "break" {
		t.Errorf("phase = %v, want break", entry["phase"])
	}
	if entry["remaining_ms"] != float64(1000) {
		t.Errorf("remaining_ms = %v, want 1000", entry["remaining_ms"])
	}
	if entry["component"] != "timer" {
		t.Errorf("component = %v, want timer", entry["component"])
	}
}

func TestDefaultLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Options{Level: "warn", Output: &buf})

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestParseLevel_Unknown(t *testing.T) {
	if got := parseLevel("verbose"); got.String() != "info" {
		t.Errorf("parseLevel(verbose) = %v, want info", got)
	}
	if got := parseLevel(""); got.String() != "info" {
		t.Errorf("parseLevel(\"\") = %v, want info", got)
	}
}

func TestFieldsToMap(t *testing.T) {
	tests := []struct {
		name   string
		fields []interface{}
		want   map[string]interface{}
	}{
		{
			name:   "pairs",
			fields: []interface{}{"a", 1, "b", "two"},
			want:   map[string]interface{}{"a": 1, "b": "two"},
		},
		{
			name:   "dangling value",
			fields: []interface{}{"a", 1, "orphan"},
			want:   map[string]interface{}{"a": 1, "field_1": "orphan"},
		},
		{
			name:   "non string key",
			fields: []interface{}{42, "x"},
			want:   map[string]interface{}{"field_0": 42, "field_0_value": "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldsToMap(tt.fields)
			if len(got) != len(tt.want) {
				t.Fatalf("fieldsToMap() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("fieldsToMap()[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestLogError_WithRepositoryError(t *testing.T) {
	logger := &mockLogger{}
	repoErr := &mockRepositoryError{
		message:   "save failed",
		code:      "BUSY",
		retryable: true,
		context:   map[string]string{"key": "work-session-timer-v1"},
		timestamp: time.Now(),
	}

	LogError(logger, repoErr, "SaveTimerState", map[string]interface{}{"attempt": 2})

	if len(logger.errorCalls) != 1 {
		t.Fatalf("error calls = %d, want 1", len(logger.errorCalls))
	}
	fields := testutils.FieldsToMap(t, logger.errorCalls[0].fields)

	if fields["operation"] != "SaveTimerState" {
		t.Errorf("operation = %v, want SaveTimerState", fields["operation"])
	}
	if fields["error_code"] != "BUSY" {
		t.Errorf("error_code = %v, want BUSY", fields["error_code"])
	}
	if fields["retryable"] != true {
		t.Errorf("retryable = %v, want true", fields["retryable"])
	}
	if fields["key"] != "work-session-timer-v1" {
		t.Errorf("key = %v, want work-session-timer-v1", fields["key"])
	}
	if fields["attempt"] != 2 {
		t.Errorf("attempt = %v, want 2", fields["attempt"])
	}
}

func TestLogError_PlainError(t *testing.T) {
	logger := &mockLogger{}
	LogError(logger, errors.New("boom"), "Generate", nil)

	if len(logger.errorCalls) != 1 {
		t.Fatalf("error calls = %d, want 1", len(logger.errorCalls))
	}
	fields := testutils.FieldsToMap(t, logger.errorCalls[0].fields)
	if fields["error_type"] != "*errors.errorString" {
		t.Errorf("error_type = %v, want *errors.errorString", fields["error_type"])
	}
}

func TestLogError_NilSafe(t *testing.T) {
	LogError(nil, errors.New("ignored"), "op", nil)

	logger := &mockLogger{}
	LogError(logger, nil, "op", nil)
	if len(logger.errorCalls) != 0 {
		t.Errorf("LogError(nil err) logged %d entries, want 0", len(logger.errorCalls))
	}
}

func TestLogOperation(t *testing.T) {
	logger := &mockLogger{}
	LogOperation(logger, "Flush", 1500*time.Millisecond, map[string]interface{}{"keys": 3})

	if len(logger.debugCalls) != 1 {
		t.Fatalf("debug calls = %d, want 1", len(logger.debugCalls))
	}
	fields := testutils.FieldsToMap(t, logger.debugCalls[0].fields)
	if fields["duration_ms"] != int64(1500) {
		t.Errorf("duration_ms = %v, want 1500", fields["duration_ms"])
	}
	if fields["keys"] != 3 {
		t.Errorf("keys = %v, want 3", fields["keys"])
	}
}

func TestWailsLoggerAdapter(t *testing.T) {
	logger := &mockLogger{}
	adapter := NewWailsLoggerAdapter(logger)

	adapter.Print("p")
	adapter.Trace("t")
	adapter.Debug("d")
	adapter.Info("i")
	adapter.Warning("w")
	adapter.Error("e")
	adapter.Fatal("f")

	if len(logger.infoCalls) != 2 {
		t.Errorf("info calls = %d, want 2", len(logger.infoCalls))
	}
	if len(logger.debugCalls) != 2 {
		t.Errorf("debug calls = %d, want 2", len(logger.debugCalls))
	}
	if len(logger.warnCalls) != 1 {
		t.Errorf("warn calls = %d, want 1", len(logger.warnCalls))
	}
	if len(logger.errorCalls) != 2 {
		t.Errorf("error calls = %d, want 2", len(logger.errorCalls))
	}

	fatal := testutils.FieldsToMap(t, logger.errorCalls[1].fields)
	if fatal["level"] != "fatal" {
		t.Errorf("fatal level field = %v, want fatal", fatal["level"])
	}
}
