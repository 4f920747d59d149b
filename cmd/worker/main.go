package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"cvbuilder/internal/config"
	"cvbuilder/internal/database"
	"cvbuilder/internal/export"
	"cvbuilder/internal/metrics"
	"cvbuilder/internal/storage"
	"cvbuilder/internal/tasks"
	"cvbuilder/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready for worker")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	browser, err := export.LaunchBrowser(export.BrowserOptions{
		Bin:           cfg.Export.ChromiumBin,
		DeviceScale:   cfg.Export.DeviceScale,
		SettleTimeout: cfg.Export.SettleTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("launch browser: %v", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Error("close browser failed", slog.Any("error", err))
		}
	}()

	pipeline := export.NewPipeline(browser, browser, logger, export.WithWidth(cfg.Export.WidthPx))

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 4,
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeCVExport, worker.NewExportTaskHandler(db, pipeline, storageClient, redisClient, logger))
	mux.Handle(tasks.TypeLayoutPreview, worker.NewLayoutPreviewHandler(db, browser, storageClient, logger))

	logger.Info("worker service started", slog.String("redis_addr", redisAddr))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
