package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/portfolio_tracker/config"
	"github.com/KotFed0t/portfolio_tracker/data"
	"github.com/KotFed0t/portfolio_tracker/data/cache"
	"github.com/KotFed0t/portfolio_tracker/data/repository/postgres"
	"github.com/KotFed0t/portfolio_tracker/data/session"
	"github.com/KotFed0t/portfolio_tracker/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/portfolio_tracker/internal/externalApi/yahooApi"
	"github.com/KotFed0t/portfolio_tracker/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/portfolio_tracker/internal/scheduler"
	"github.com/KotFed0t/portfolio_tracker/internal/service/portfolioService"
	"github.com/KotFed0t/portfolio_tracker/internal/service/quoteService"
	"github.com/KotFed0t/portfolio_tracker/internal/transport/rest"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	quoteCache := cache.NewRedisCache(redisClient)
	redisSession := session.NewRedisSession(redisClient, cfg.SessionExpiration)

	yahooApiClient := yahooApi.New(cfg)
	quoteSrv := quoteService.New(cfg, yahooApiClient, quoteCache)

	reportGenerator := xlsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	portfolioSrv := portfolioService.New(cfg, pgRepo, quoteSrv, redisSession, reportGenerator, googleCloudStorage)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh quotes", portfolioSrv.RefreshQuotes, cfg.Jobs.RefreshQuotesInterval, true)
	sched.NewCrontabJob("backup reports", portfolioSrv.BackupReports, cfg.Jobs.ReportBackupCrontab, false)
	sched.NewCrontabJob("cleanup cloud storage", portfolioSrv.CleanupCloudStorage, cfg.Jobs.DriveCleanupCrontab, false)
	sched.Start()
	defer sched.Stop()

	controller := rest.NewController(portfolioSrv)
	router := rest.NewRouter(controller, redisSession)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		slog.Info("HTTP server starting", slog.Int("port", cfg.HTTP.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-interrupt:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
