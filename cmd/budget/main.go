package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/cli"
	"budget/internal/grpcserver"
	apphttp "budget/internal/http"
	applog "budget/internal/log"
	"budget/internal/middleware/ratelimit"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting budget", "port", cfg.Port, "backend", cfg.DataBackend, "auth_mode", cfg.AuthMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	provider, err := cli.NewProvider(cfg)
	if err != nil {
		logger.Error("Failed to initialize auth provider", "error", err)
		os.Exit(1)
	}
	codec, err := cli.NewCodec(cfg)
	if err != nil {
		logger.Error("Invalid session keys", "error", err)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:     ":" + cfg.Port,
		Store:    res.Backend,
		Provider: provider,
		Codec:    codec,
		Ready:    res.Ready,
		Logger: applog.New(applog.Config{
			Level:     applog.ParseLevel(cfg.LogLevel),
			Component: applog.ComponentApp,
			Handler:   logger.Handler(),
		}),
		SessionTTL:       cfg.SessionTTL,
		SessionCacheSize: cfg.SessionCacheSize,
		ExportLocale:     cfg.ExportLocale,
		ExportLocation:   cfg.ExportLocation(),
		RateLimit:        ratelimit.DefaultConfig(),
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", "error", err)
		os.Exit(1)
	}

	var grpcSrv *grpcserver.Server
	if cfg.GRPCAddr != "" {
		grpcSrv = grpcserver.New(cfg.GRPCAddr, res.Ready, 0)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if grpcSrv != nil {
		g.Go(grpcSrv.Start)
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if grpcSrv != nil {
			grpcSrv.Stop()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
