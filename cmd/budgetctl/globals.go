package main

import (
	"context"
	"log/slog"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
)

// globals are the flags every command shares.
type globals struct {
	LogLevel string `name:"log-level" default:"warn" help:"Log level [debug info warn error]."`
}

// env is opened on first use so that commands like keygen need no
// configuration at all.
var env struct {
	cfg    *config.Config
	logger *slog.Logger
	res    *backend.BackendResult
}

func (g *globals) config() *config.Config {
	if env.cfg == nil {
		cli.LoadEnvFile()
		env.logger = cli.SetupLogger(g.LogLevel)
		env.cfg = cli.LoadAndValidateConfig(env.logger)
	}
	return env.cfg
}

func (g *globals) logger() *slog.Logger {
	g.config()
	return env.logger
}

func (g *globals) backend(ctx context.Context) backend.Backend {
	if env.res == nil {
		env.res = cli.InitBackend(ctx, g.logger(), g.config())
	}
	return env.res.Backend
}

func (g *globals) close() {
	if env.res == nil {
		return
	}
	if err := env.res.Cleanup(); err != nil {
		env.logger.Error("Backend cleanup failed", "error", err)
	}
	env.res = nil
}
