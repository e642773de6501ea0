package main

import (
	"context"
	"os"
	"time"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/backend"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/cli"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/log"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/services"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting recap mirror worker")

	cfg := cli.LoadAndValidateConfig(logger)

	mirrorCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", log.FieldError, err)
		os.Exit(1)
	}
	if mirrorCfg.Type == backend.NoneBackend {
		logger.Info("Recap mirror disabled, nothing to do", "backend", cfg.MirrorBackend)
		return
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	result, err := backend.NewFactory(logger.WithComponent(log.ComponentMirror).Logger).
		CreateMirror(context.Background(), mirrorCfg)
	if err != nil {
		logger.Error("Failed to create recap mirror", log.FieldError, err, "backend", cfg.MirrorBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Mirror cleanup failed", log.FieldError, err)
			}
		}()
	}

	var consumer worker.Consumer
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		consumer = amqpClient
		defer amqpClient.Close()
	} else {
		logger.Info("Running on schedule only", "schedule", cfg.MirrorSchedule)
	}

	dash := services.NewDashboardService(repo, cfg.DashboardCacheTTL)
	runner := worker.NewRunner(worker.NewMirrorWorker(dash, result.Mirror), consumer, cfg.MirrorSchedule)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := runner.Stop(ctx); err != nil {
			logger.Error("Mirror runner stop failed", log.FieldError, err)
		}
	})

	if err := runner.Start(ctx); err != nil {
		logger.Error("Failed to start mirror runner", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
