// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sizieks/parsers/internal/browser"
	"github.com/sizieks/parsers/internal/config"
	"github.com/sizieks/parsers/internal/pipeline"
	"github.com/sizieks/parsers/internal/runner"
	"github.com/sizieks/parsers/internal/sched"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config    *config.Config
	Logger    *zerolog.Logger
	Browser   *browser.Browser
	Registry  pipeline.Registry
	Queue     *sched.Queue
	Runner    *runner.Runner
	startTime time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It configures logging, opens the local continuation queue, and wires the
// pipeline registry, browser and runner together. If any step fails, an
// error is returned and no resources are left open.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logLevel := zerolog.ErrorLevel
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	// Treat "info" as non-verbose (don't display info logs unless -v is used)
	default:
		logLevel = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.NewConsoleWriter()
	}
	logger := log.Output(logWriter).With().Timestamp().Logger()
	log.Logger = logger

	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	queue, err := sched.OpenQueue(cfg.QueuePath)
	if err != nil {
		return nil, fmt.Errorf("opening queue %s: %w", cfg.QueuePath, err)
	}
	logger.Debug().Str("path", cfg.QueuePath).Msg("Continuation queue opened")

	registry := pipeline.DefaultRegistry(cfg.MaterializeTimeout)
	b := browser.New(cfg)

	app := &Application{
		Config:    cfg,
		Logger:    &logger,
		Browser:   b,
		Registry:  registry,
		Queue:     queue,
		Runner:    runner.New(cfg, registry, b, queue),
		startTime: time.Now(),
	}

	logger.Debug().Msg("Application initialized")
	return app, nil
}

// Close gracefully shuts down the application and all its resources.
//
// Errors during shutdown are logged but do not prevent other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Msg("Shutting down application")

	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing queue")
		}
	}

	a.Logger.Debug().Dur("uptime", time.Since(a.startTime)).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
