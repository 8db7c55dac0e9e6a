package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"breeze/internal/config"
	"breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/notify"
	"breeze/internal/profile"
	"breeze/internal/services"
	"breeze/internal/types"
)

// Events emitted to the frontend
const (
	EventChange       = "session:change"
	EventNotification = "session:notification"
)

const shutdownTimeout = 30 * time.Second

// emitFunc matches runtime.EventsEmit
type emitFunc func(ctx context.Context, name string, data ...interface{})

// App is the desktop host. Its exported methods are bound to the frontend.
type App struct {
	ctx  context.Context
	cfg  config.Config
	opts StackOptions
	emit emitFunc

	mu          sync.RWMutex
	stack       *Stack
	unsubscribe func()
	logger      logging.Logger
}

// NewApp creates the desktop host; nothing starts until Startup
func NewApp(cfg config.Config, opts StackOptions) *App {
	if opts.Logger == nil {
		opts.Logger = NewLoggerFromConfig(cfg.Logging, opts.LogOutput, "desktop")
	}
	return &App{cfg: cfg, opts: opts, emit: runtime.EventsEmit, logger: opts.Logger}
}

// Startup is called at application startup
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	opts := a.opts
	opts.Alerters = append(opts.Alerters, notify.AlerterFunc(func(_ context.Context, n notify.Notification) error {
		a.emit(a.ctx, EventNotification, n)
		return nil
	}))

	stack, err := BuildStack(ctx, a.cfg, opts)
	if err != nil {
		logging.LogError(a.logger, err, "Startup", nil)
		return
	}

	unsubscribe := stack.Session.OnChange(func(c services.Change) {
		a.emit(a.ctx, EventChange, c)
	})

	a.mu.Lock()
	a.stack, a.unsubscribe = stack, unsubscribe
	a.mu.Unlock()

	a.logger.Info("Application started", "environment", a.cfg.App.Environment, "storage", a.cfg.Storage.Backend)
}

// DomReady pushes the current state so the UI does not wait for the first tick
func (a *App) DomReady(ctx context.Context) {
	if s := a.session(); s != nil {
		a.emit(ctx, EventChange, services.Change{
			Reason:   services.ReasonTick,
			At:       time.Now().UnixMilli(),
			Timer:    s.View(),
			Snapshot: s.Snapshot(),
			Scores:   s.Metrics().Scores,
			Totals:   s.Metrics().Totals,
		})
	}
}

// BeforeClose is called when the application is about to quit
func (a *App) BeforeClose(ctx context.Context) (prevent bool) {
	return false
}

// Shutdown is called at application termination
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	stack, unsubscribe := a.stack, a.unsubscribe
	a.stack, a.unsubscribe = nil, nil
	a.mu.Unlock()

	if stack == nil {
		return
	}
	if unsubscribe != nil {
		unsubscribe()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := stack.Close(shutdownCtx); err != nil {
		a.logger.Warn("Shutdown finished with errors", "error", err.Error())
		return
	}
	a.logger.Info("Application shutdown completed")
}

func (a *App) currentStack() *Stack {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stack
}

func (a *App) session() *services.Session {
	if st := a.currentStack(); st != nil {
		return st.Session
	}
	return nil
}

func (a *App) requireStack(op string) (*Stack, error) {
	st := a.currentStack()
	if st == nil {
		return nil, errors.NewRepositoryError(op, fmt.Errorf("application is not running"), errors.ErrCodeConnection)
	}
	return st, nil
}

func (a *App) GetTimer() (types.TimerView, error) {
	st, err := a.requireStack("GetTimer")
	if err != nil {
		return types.TimerView{}, err
	}
	return st.Session.View(), nil
}

func (a *App) StartTimer() (types.TimerView, error) {
	st, err := a.requireStack("StartTimer")
	if err != nil {
		return types.TimerView{}, err
	}
	return st.Session.Start(), nil
}

func (a *App) PauseTimer() (types.TimerView, error) {
	st, err := a.requireStack("PauseTimer")
	if err != nil {
		return types.TimerView{}, err
	}
	return st.Session.Pause(), nil
}

func (a *App) ResetTimer() (types.TimerView, error) {
	st, err := a.requireStack("ResetTimer")
	if err != nil {
		return types.TimerView{}, err
	}
	return st.Session.Reset(), nil
}

// ConfigureTimer changes durations in minutes; nil fields are unchanged
func (a *App) ConfigureTimer(cfg services.TimerConfig) (types.TimerView, error) {
	st, err := a.requireStack("ConfigureTimer")
	if err != nil {
		return types.TimerView{}, err
	}
	return st.Session.Configure(cfg), nil
}

// RecordEvents feeds a batch of webview input events to the sampler
func (a *App) RecordEvents(events []types.RawEvent) error {
	st, err := a.requireStack("RecordEvents")
	if err != nil {
		return err
	}
	for _, ev := range events {
		st.Session.Record(ev)
	}
	return nil
}

func (a *App) GetSnapshot() (types.ActivitySnapshot, error) {
	st, err := a.requireStack("GetSnapshot")
	if err != nil {
		return types.ActivitySnapshot{}, err
	}
	return st.Session.Snapshot(), nil
}

func (a *App) GetMetrics() (services.MetricsView, error) {
	st, err := a.requireStack("GetMetrics")
	if err != nil {
		return services.MetricsView{}, err
	}
	return st.Session.Metrics(), nil
}

// GetHistory returns per-day totals for the last days days, oldest first
func (a *App) GetHistory(days int) ([]types.DailyTotals, error) {
	st, err := a.requireStack("GetHistory")
	if err != nil {
		return nil, err
	}
	return st.Session.History(a.ctx, days)
}

func (a *App) SetNotificationsEnabled(enabled bool) error {
	st, err := a.requireStack("SetNotificationsEnabled")
	if err != nil {
		return err
	}
	st.Session.SetNotificationsEnabled(enabled)
	return nil
}

func (a *App) GetProfile() (types.UserProfile, error) {
	st, err := a.requireStack("GetProfile")
	if err != nil {
		return types.UserProfile{}, err
	}
	id := a.cfg.Session.ProfileID
	if st.Profiles == nil {
		return profile.New(id, time.Now()), nil
	}
	p, err := st.Profiles.Get(a.ctx, id)
	if err != nil {
		return types.UserProfile{}, err
	}
	if p == nil {
		return profile.New(id, time.Now()), nil
	}
	return *p, nil
}

// UpdatePreferences stores new preferences; the session picks them up
// through its profile subscription.
func (a *App) UpdatePreferences(prefs types.Preferences) (types.UserProfile, error) {
	st, err := a.requireStack("UpdatePreferences")
	if err != nil {
		return types.UserProfile{}, err
	}
	if st.Profiles == nil {
		return types.UserProfile{}, errors.NewRepositoryError("UpdatePreferences",
			fmt.Errorf("profile storage is not configured"), errors.ErrCodeConnection)
	}
	if prefs.WorkSessionDuration < 0 || prefs.BreakDuration < 0 {
		return types.UserProfile{}, errors.HandleValidationError("UpdatePreferences", "preferences",
			fmt.Sprintf("%d/%d", prefs.WorkSessionDuration, prefs.BreakDuration), "durations cannot be negative")
	}
	if err := st.Profiles.Set(a.ctx, a.cfg.Session.ProfileID, types.ProfilePatch{Preferences: &prefs}); err != nil {
		return types.UserProfile{}, err
	}
	return a.GetProfile()
}

// RecipeResult is a recipe plus where it came from
type RecipeResult struct {
	Recipe types.Recipe `json:"recipe"`
	Source types.Source `json:"source"`
}

func (a *App) GetHealthyRecipe(req types.RecipeRequest) (RecipeResult, error) {
	st, err := a.requireStack("GetHealthyRecipe")
	if err != nil {
		return RecipeResult{}, err
	}
	recipe, source, err := st.Recipes.Healthy(a.ctx, req)
	if err != nil {
		return RecipeResult{}, err
	}
	return RecipeResult{Recipe: recipe, Source: source}, nil
}

func (a *App) GetFoodSuggestions(req types.FoodSuggestionRequest) (types.FoodSuggestions, error) {
	st, err := a.requireStack("GetFoodSuggestions")
	if err != nil {
		return types.FoodSuggestions{}, err
	}
	return st.Food.Suggest(a.ctx, req)
}

func (a *App) AnalyzeEmotion(text string) (types.EmotionAnalysis, error) {
	st, err := a.requireStack("AnalyzeEmotion")
	if err != nil {
		return types.EmotionAnalysis{}, err
	}
	return st.Emotions.Analyze(a.ctx, text)
}

// GetLogger returns the application's structured logger
func (a *App) GetLogger() logging.Logger {
	return a.logger
}
