// Command breeze-server runs the wellness session behind the HTTP API and
// websocket feed.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"breeze/internal/api"
	"breeze/internal/app"
	"breeze/internal/config"
	"breeze/internal/notify"
)

func main() {
	configPath := flag.String("config", "", "path to breeze.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := app.NewLoggerFromConfig(cfg.Logging, os.Stderr, "server")
	hub := api.NewHub(logger)

	stack, err := app.BuildStack(context.Background(), cfg, app.StackOptions{
		Logger:   logger,
		Alerters: []notify.Alerter{hub},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start session")
	}

	srv := api.NewServer(api.Deps{
		Session:  stack.Session,
		Recipes:  stack.Recipes,
		Food:     stack.Food,
		Emotions: stack.Emotions,
		Profiles: stack.Profiles,
		Cache:    stack.Cache,
		Hub:      hub,
		Logger:   logger,
	}, api.Options{
		ProfileID:         cfg.Session.ProfileID,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Starting server", "address", cfg.Server.Address, "storage", cfg.Storage.Backend,
			"ai", stack.Generator != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// websocket connections are hijacked, so Shutdown does not wait for them
	srv.Close()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err.Error())
	}
	if err := stack.Close(ctx); err != nil {
		logger.Error("Failed to close session", "error", err.Error())
	}

	logger.Info("Server stopped gracefully")
}
