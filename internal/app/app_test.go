package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"breeze/internal/config"
	"breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/platform"
	"breeze/internal/services"
	"breeze/internal/types"
)

type emitted struct {
	mu     sync.Mutex
	events map[string]int
}

func (e *emitted) emit(_ context.Context, name string, _ ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events[name]++
}

func (e *emitted) count(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events[name]
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendMemory
	cfg.Profile.Path = filepath.Join(t.TempDir(), "profiles.yaml")
	cfg.AI.Enabled = false
	cfg.AI.WeatherURL = ""
	cfg.Session.TickInterval = time.Hour
	cfg.Session.HeartbeatInterval = time.Hour
	return cfg
}

func startApp(t *testing.T, cfg config.Config) (*App, *emitted) {
	t.Helper()
	rec := &emitted{events: make(map[string]int)}
	a := NewApp(cfg, StackOptions{
		Logger:       logging.NewNopLogger(),
		IdleProvider: platform.NewStaticIdleProvider(0, nil),
	})
	a.emit = rec.emit
	a.Startup(context.Background())
	t.Cleanup(func() { a.Shutdown(context.Background()) })
	return a, rec
}

func TestApp_NotRunning(t *testing.T) {
	a := NewApp(testConfig(t), StackOptions{Logger: logging.NewNopLogger()})
	if _, err := a.GetTimer(); !errors.IsConnection(err) {
		t.Errorf("GetTimer() before Startup error = %v, want a connection error", err)
	}
	// Shutdown without Startup is a no-op
	a.Shutdown(context.Background())
}

func TestApp_TimerBindings(t *testing.T) {
	a, rec := startApp(t, testConfig(t))

	work := 1.0
	view, err := a.ConfigureTimer(services.TimerConfig{WorkMinutes: &work})
	if err != nil || view.WorkDurationSeconds != 60 {
		t.Fatalf("ConfigureTimer() = %+v, %v", view.TimerState, err)
	}

	view, _ = a.StartTimer()
	if !view.IsActive {
		t.Error("StartTimer() left the timer inactive")
	}
	view, _ = a.PauseTimer()
	if view.IsActive {
		t.Error("PauseTimer() left the timer active")
	}
	view, _ = a.ResetTimer()
	if view.WorkDurationSeconds != 60 {
		t.Errorf("ResetTimer() work = %d, want 60", view.WorkDurationSeconds)
	}

	if rec.count(EventChange) < 4 {
		t.Errorf("%s emitted %d times, want at least 4", EventChange, rec.count(EventChange))
	}

	a.DomReady(context.Background())
	if _, err := a.GetTimer(); err != nil {
		t.Errorf("GetTimer() error = %v", err)
	}
}

func TestApp_ActivityAndMetrics(t *testing.T) {
	a, _ := startApp(t, testConfig(t))

	if err := a.RecordEvents([]types.RawEvent{{Kind: types.EventClick}, {Kind: types.EventClick}}); err != nil {
		t.Fatalf("RecordEvents() error = %v", err)
	}
	snap, _ := a.GetSnapshot()
	if snap.ClicksLastMinute != 2 {
		t.Errorf("ClicksLastMinute = %d, want 2", snap.ClicksLastMinute)
	}

	history, err := a.GetHistory(3)
	if err != nil || len(history) != 3 {
		t.Errorf("GetHistory(3) = %d entries, %v", len(history), err)
	}
	if _, err := a.GetHistory(0); !errors.IsValidation(err) {
		t.Errorf("GetHistory(0) error = %v, want a validation error", err)
	}
	if _, err := a.GetMetrics(); err != nil {
		t.Errorf("GetMetrics() error = %v", err)
	}
}

func TestApp_Preferences(t *testing.T) {
	a, _ := startApp(t, testConfig(t))

	p, err := a.GetProfile()
	if err != nil || !p.Preferences.Notifications {
		t.Fatalf("GetProfile() = %+v, %v", p, err)
	}

	prefs := p.Preferences
	prefs.Notifications = false
	if _, err := a.UpdatePreferences(prefs); err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.session().NotificationsEnabled() {
		if time.Now().After(deadline) {
			t.Fatal("session never saw the notifications preference")
		}
		time.Sleep(10 * time.Millisecond)
	}

	prefs.BreakDuration = -5
	if _, err := a.UpdatePreferences(prefs); !errors.IsValidation(err) {
		t.Errorf("UpdatePreferences(negative) error = %v, want a validation error", err)
	}
}

func TestApp_Suggestions(t *testing.T) {
	a, _ := startApp(t, testConfig(t))

	res, err := a.GetHealthyRecipe(types.RecipeRequest{DishName: "rajma"})
	if err != nil || res.Source != types.SourceFallback || res.Recipe.Title != "Rajma (Healthy Version)" {
		t.Errorf("GetHealthyRecipe() = %+v, %v", res, err)
	}

	food, err := a.GetFoodSuggestions(types.FoodSuggestionRequest{Location: "Kochi", Weather: "humid and hot"})
	if err != nil || food.Source != types.SourceFallback {
		t.Errorf("GetFoodSuggestions() = %+v, %v", food, err)
	}

	mood, err := a.AnalyzeEmotion("feeling great")
	if err != nil || mood.Emotion != "happy" {
		t.Errorf("AnalyzeEmotion() = %+v, %v", mood, err)
	}
}

func TestBuildStack_DegradesOnStorageFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = config.BackendRedis
	cfg.Redis.Address = "127.0.0.1:1" // nothing listens here

	st, err := BuildStack(context.Background(), cfg, StackOptions{
		Logger:       logging.NewNopLogger(),
		IdleProvider: platform.NewStaticIdleProvider(0, nil),
	})
	if err != nil {
		t.Fatalf("BuildStack() error = %v", err)
	}
	defer st.Close(context.Background())

	if st.Repo != nil {
		t.Error("Repo is set although the backend is unreachable")
	}
	if err := st.Session.Health(context.Background()); err != nil {
		t.Errorf("Health() without a repository = %v", err)
	}
}

func TestBuildStack_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = config.BackendSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "breeze.db")

	st, err := BuildStack(context.Background(), cfg, StackOptions{
		Logger:       logging.NewNopLogger(),
		IdleProvider: platform.NewStaticIdleProvider(0, nil),
	})
	if err != nil {
		t.Fatalf("BuildStack() error = %v", err)
	}
	if st.Repo == nil || st.DB == nil {
		t.Fatal("SQLite repository was not opened")
	}

	st.Session.Start()
	if err := st.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// a second stack on the same file sees the running timer
	again, err := BuildStack(context.Background(), cfg, StackOptions{
		Logger:       logging.NewNopLogger(),
		IdleProvider: platform.NewStaticIdleProvider(0, nil),
	})
	if err != nil {
		t.Fatalf("second BuildStack() error = %v", err)
	}
	defer again.Close(context.Background())
	if !again.Session.View().IsActive {
		t.Error("timer state was not restored from SQLite")
	}
}
