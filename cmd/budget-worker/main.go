package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budget/internal/amqp"
	"budget/internal/cli"
	"budget/internal/services"
	"budget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting budget-worker", "backend", cfg.DataBackend)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if !cfg.MirrorsConfigured() {
		logger.Warn("No mirrors configured, events will be consumed and dropped",
			"hint", "set EXPORT_DIR, ELASTICSEARCH_URL or GOOGLE_SPREADSHEET_ID")
	}

	res := cli.InitBackend(context.Background(), logger, cfg)

	sinks, err := cli.NewSinks(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize mirrors", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	processor := services.NewMirrorProcessor(res.Backend, res.Backend, services.MirrorProcessorConfig{
		ResyncInterval: cfg.ResyncInterval,
		Locale:         cfg.ExportLocale,
		Location:       cfg.ExportLocation(),
	}, sinks...)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := processor.Stop(stopCtx); err != nil {
			logger.Error("Mirror processor stop failed", "error", err)
		}
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close failed", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	})

	if len(sinks) > 0 {
		if err := processor.Start(ctx); err != nil {
			logger.Error("Failed to start mirror processor", "error", err)
			os.Exit(1)
		}
	}

	go func() {
		err := worker.NewMirrorWorker(processor).Run(ctx, amqpClient)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
