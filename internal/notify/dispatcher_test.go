package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"breeze/internal/infrastructure/logging"
	"breeze/internal/testutils"
	"breeze/internal/types"
)

func collectAlerts(ch chan Notification) AlerterFunc {
	return func(_ context.Context, n Notification) error {
		ch <- n
		return nil
	}
}

func closeDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestBuild_Content(t *testing.T) {
	now := time.UnixMilli(1_000)

	n, ok := Build(types.TransitionSessionComplete, 0, now)
	if !ok {
		t.Fatal("Build(session-complete) ok = false")
	}
	if n.Title != "Work session complete" || len(n.Suggestions) != 2 || len(n.Tones) != 2 {
		t.Errorf("session-complete notification = %+v", n)
	}
	if n.Tones[0].FrequencyHz != 880 || n.Tones[1].FrequencyHz != 1320 {
		t.Errorf("chime frequencies = %v, %v", n.Tones[0].FrequencyHz, n.Tones[1].FrequencyHz)
	}
	if !strings.Contains(n.Body, n.Suggestions[0]) || !strings.Contains(n.Body, n.Suggestions[1]) {
		t.Errorf("body %q does not list the suggestions", n.Body)
	}

	n, _ = Build(types.TransitionBreakStart, 0, now)
	if n.Title != "Break started" || n.Body != "Time to rest. Your break timer is running." || len(n.Tones) != 0 {
		t.Errorf("break-start notification = %+v", n)
	}

	n, _ = Build(types.TransitionBreakEnd, 0, now)
	if n.Title != "Break complete" {
		t.Errorf("break-end title = %q", n.Title)
	}

	if _, ok := Build("lunch", 0, now); ok {
		t.Error("Build(unknown) ok = true")
	}
}

func TestSuggestions_RotateWithoutRepeats(t *testing.T) {
	seen := map[string]int{}
	for r := 0; r < 4; r++ {
		pair := Suggestions(r)
		if pair[0] == pair[1] {
			t.Errorf("Suggestions(%d) repeats %q", r, pair[0])
		}
		for _, s := range pair {
			seen[s]++
		}
	}
	if len(seen) != len(wellnessSuggestions) {
		t.Errorf("four rotations covered %d suggestions, want %d", len(seen), len(wellnessSuggestions))
	}
	if Suggestions(0)[0] != Suggestions(4)[0] {
		t.Error("rotation is not periodic")
	}
}

func TestDispatcher_DeliversAlertAndChime(t *testing.T) {
	alerts := make(chan Notification, 4)
	chimes := make(chan []Tone, 4)

	d := NewDispatcher(logging.NewNopLogger(),
		WithAlerter(collectAlerts(alerts)),
		WithChimer(ChimerFunc(func(_ context.Context, tones []Tone) error {
			chimes <- tones
			return nil
		})),
	)
	defer closeDispatcher(t, d)

	if !d.NotifyPhaseTransition(types.TransitionSessionComplete) {
		t.Fatal("NotifyPhaseTransition() = false, want true")
	}

	select {
	case n := <-alerts:
		if n.Kind != types.TransitionSessionComplete {
			t.Errorf("alert kind = %s", n.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("no alert delivered")
	}
	select {
	case tones := <-chimes:
		if len(tones) != 2 {
			t.Errorf("chime tones = %d, want 2", len(tones))
		}
	case <-time.After(time.Second):
		t.Fatal("no chime delivered")
	}
}

func TestDispatcher_DisabledSkipsSilently(t *testing.T) {
	alerts := make(chan Notification, 1)
	d := NewDispatcher(logging.NewNopLogger(), WithAlerter(collectAlerts(alerts)))
	d.SetEnabled(false)

	if d.NotifyPhaseTransition(types.TransitionBreakStart) {
		t.Error("NotifyPhaseTransition() accepted while disabled")
	}
	closeDispatcher(t, d)

	if len(alerts) != 0 {
		t.Errorf("delivered %d alerts while disabled", len(alerts))
	}
}

func TestDispatcher_SinkFailuresAreContained(t *testing.T) {
	logger := &testutils.RecordingLogger{}
	alerts := make(chan Notification, 2)

	d := NewDispatcher(logger,
		WithAlerter(AlerterFunc(func(context.Context, Notification) error { panic("boom") })),
		WithAlerter(AlerterFunc(func(context.Context, Notification) error { return errors.New("denied") })),
		WithAlerter(collectAlerts(alerts)),
	)

	d.NotifyPhaseTransition(types.TransitionBreakEnd)
	closeDispatcher(t, d)

	if len(alerts) != 1 {
		t.Errorf("healthy sink received %d alerts, want 1", len(alerts))
	}
	if got := len(logger.Entries("error")); got != 2 {
		t.Errorf("logged %d errors, want 2", got)
	}
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(logging.NewNopLogger(),
		WithQueueSize(1),
		WithAlerter(AlerterFunc(func(context.Context, Notification) error {
			<-release
			return nil
		})),
	)

	accepted := 0
	for i := 0; i < 10; i++ {
		if d.NotifyPhaseTransition(types.TransitionBreakStart) {
			accepted++
		}
	}
	close(release)
	closeDispatcher(t, d)

	if accepted < 1 || accepted > 2 {
		t.Errorf("accepted %d notifications with a queue of 1, want 1 or 2", accepted)
	}
}

func TestDispatcher_RejectsAfterClose(t *testing.T) {
	d := NewDispatcher(logging.NewNopLogger())
	closeDispatcher(t, d)

	if d.NotifyPhaseTransition(types.TransitionBreakStart) {
		t.Error("NotifyPhaseTransition() accepted after Close")
	}
}

func TestBellChimer_RingsPerTone(t *testing.T) {
	var buf bytes.Buffer
	tones := []Tone{{FrequencyHz: 880}, {FrequencyHz: 1320, Offset: 5 * time.Millisecond}}

	if err := NewBellChimer(&buf).Chime(context.Background(), tones); err != nil {
		t.Fatalf("Chime() error = %v", err)
	}
	if buf.String() != "\a\a" {
		t.Errorf("Chime() wrote %q, want two bells", buf.String())
	}
}

func TestLogAlerter_LogsTitle(t *testing.T) {
	logger := &testutils.RecordingLogger{}
	n, _ := Build(types.TransitionSessionComplete, 1, time.Now())

	if err := NewLogAlerter(logger).Alert(context.Background(), n); err != nil {
		t.Fatalf("Alert() error = %v", err)
	}

	entries := logger.Entries("info")
	if len(entries) != 1 {
		t.Fatalf("logged %d info entries, want 1", len(entries))
	}
	fields := testutils.FieldsToMap(t, entries[0].Fields)
	if fields["title"] != "Work session complete" {
		t.Errorf("title field = %v", fields["title"])
	}
}
