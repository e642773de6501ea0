package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/cli"
	apphttp "github.com/FirjiAchmad24/dashmonitoring-pln/internal/http"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/log"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.Publisher
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	dash := services.NewDashboardService(repo, cfg.DashboardCacheTTL)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Dashboard:   dash,
		Bfko:        services.NewBfkoService(repo, publisher, dash),
		Cards:       services.NewCardService(repo, publisher, dash),
		ServiceFees: services.NewServiceFeeService(repo, publisher, dash),
	}, repo, apphttp.Options{
		ImportMaxBytes: cfg.ImportMaxBytes,
		Logger:         logger.WithComponent(log.ComponentHTTP),
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting dashboard server",
		"port", cfg.Port,
		"database", cfg.SQLiteDBPath,
		"events", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
