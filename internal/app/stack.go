package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"breeze/internal/ai"
	"breeze/internal/cache"
	"breeze/internal/config"
	"breeze/internal/database"
	repoerrors "breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/notify"
	"breeze/internal/platform"
	"breeze/internal/profile"
	"breeze/internal/repository"
	"breeze/internal/services"
)

const (
	startupTimeout  = 10 * time.Second
	idleReadingMaxAge = 5 * time.Second
)

// StackOptions are the host-specific pieces of a Stack
type StackOptions struct {
	Logger       logging.Logger // built from cfg.Logging when nil
	LogOutput    io.Writer
	Component    string
	Alerters     []notify.Alerter
	Chimers      []notify.Chimer
	IdleProvider platform.IdleProvider
}

// Stack is everything a host needs: storage, profile store, AI services and
// the running session. Close releases it in reverse order.
type Stack struct {
	Config    config.Config
	Logger    logging.Logger
	DB        *database.SQLiteService
	Repo      repository.StateRepository
	Profiles  profile.Store
	Cache     *cache.Cache
	Generator ai.Generator
	Recipes   *services.RecipeService
	Food      *services.FoodSuggestionService
	Emotions  *services.EmotionService
	Session   *services.Session

	closers []func() error
}

// NewLoggerFromConfig builds the zerolog-backed logger a host uses
func NewLoggerFromConfig(cfg config.LoggingConfig, out io.Writer, component string) logging.Logger {
	return logging.NewLogger(logging.Options{
		Level:     cfg.Level,
		Console:   cfg.Console,
		Output:    out,
		Component: component,
	})
}

// BuildStack opens storage and starts the session. Storage and AI failures
// degrade the stack (no persistence, fallback-only suggestions) instead of
// failing it.
func BuildStack(ctx context.Context, cfg config.Config, opts StackOptions) (*Stack, error) {
	logger := opts.Logger
	if logger == nil {
		logger = NewLoggerFromConfig(cfg.Logging, opts.LogOutput, opts.Component)
	}
	st := &Stack{Config: cfg, Logger: logger}
	repoerrors.SetRetryLogger(repoerrors.NewLoggerBridge(logger))

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	if err := st.openStorage(startCtx); err != nil {
		logging.LogError(logger, err, "OpenStorage", map[string]interface{}{"backend": cfg.Storage.Backend})
		logger.Warn("Continuing without persistence - data will not be saved")
	}

	if path, err := cfg.ProfilePath(); err != nil {
		logger.Warn("Profile storage unavailable", "error", err.Error())
	} else {
		st.Profiles = profile.NewYAMLStore(path, logger)
	}

	c, err := cache.New(cfg.Cache, logger)
	if err != nil {
		logger.Warn("Result cache disabled", "error", err.Error())
	}
	st.Cache = c
	st.closers = append(st.closers, func() error { st.Cache.Close(); return nil })

	st.Generator = newGenerator(startCtx, cfg.AI, logger)
	var weather services.WeatherLookup
	if cfg.AI.WeatherURL != "" {
		weather = services.NewWeatherScraper(cfg.AI.WeatherURL, cfg.AI.WeatherTimeout)
	}
	st.Recipes = services.NewRecipeService(st.Generator, st.Cache, logger)
	st.Food = services.NewFoodSuggestionService(st.Generator, weather, st.Cache, logger)
	st.Emotions = services.NewEmotionService(st.Generator, logger)

	idle := opts.IdleProvider
	if idle == nil {
		idle = platform.NewCachedIdleProvider(platform.NewIdleProvider(), idleReadingMaxAge, nil)
	}
	session, err := services.Init(ctx, cfg.SessionConfig(), services.SessionDeps{
		Repository:   st.Repo,
		Profiles:     st.Profiles,
		IdleProvider: idle,
		Alerters:     opts.Alerters,
		Chimers:      opts.Chimers,
		Logger:       logger,
	})
	if err != nil {
		_ = st.closeResources()
		return nil, fmt.Errorf("start session: %w", err)
	}
	st.Session = session
	return st, nil
}

// newGenerator returns nil when AI is disabled or has no key; the services
// then answer from their fallbacks.
func newGenerator(ctx context.Context, cfg config.AIConfig, logger logging.Logger) ai.Generator {
	if !cfg.Enabled {
		logger.Info("AI suggestions disabled by configuration")
		return nil
	}
	if cfg.APIKey == "" {
		logger.Warn("No Gemini API key configured; using local fallbacks")
		return nil
	}
	gen, err := ai.NewGeminiGenerator(ctx, cfg.Gemini(), logger)
	if err != nil {
		logging.LogError(logger, err, "NewGeminiGenerator", map[string]interface{}{"model": cfg.Model})
		return nil
	}
	return gen
}

func (st *Stack) openStorage(ctx context.Context) error {
	switch st.Config.Storage.Backend {
	case config.BackendMemory:
		return nil
	case config.BackendRedis:
		client, err := repository.NewRedisClient(ctx, st.Config.Redis)
		if err != nil {
			return err
		}
		repo := repository.NewRedisRepository(client, st.Config.Redis.KeyPrefix, st.Logger)
		st.Repo = repo
		st.closers = append(st.closers, repo.Close)
		return nil
	default:
		dbCfg := st.Config.Database
		db, err := database.Open(ctx, &dbCfg, st.Logger)
		if err != nil {
			return err
		}
		st.DB = db
		st.Repo = repository.NewSQLiteRepository(db, st.Logger)
		st.closers = append(st.closers, db.Close)
		return nil
	}
}

// Close stops the session, waits for its final writes and closes storage
func (st *Stack) Close(ctx context.Context) error {
	var errs []error
	if st.Session != nil {
		if err := st.Session.Teardown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := st.closeResources(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		logging.LogError(st.Logger, err, "CloseStack", nil)
		return repoerrors.NewRepositoryError("CloseStack", err, repoerrors.ClassifyError(err))
	}
	return nil
}

func (st *Stack) closeResources() error {
	var errs []error
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	st.closers = nil
	return errors.Join(errs...)
}
