package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvbuilder/internal/api"
	"cvbuilder/internal/auth"
	"cvbuilder/internal/config"
	"cvbuilder/internal/database"
	"cvbuilder/internal/storage"
	"cvbuilder/internal/tasks"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	logger.Info("api bootstrapped",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	logger.Info("database migrated")

	privatePEM, publicPEM, err := cfg.Auth.ReadKeys()
	if err != nil {
		log.Fatalf("read jwt keys: %v", err)
	}
	authService, err := auth.NewAuthService(privatePEM, publicPEM, cfg.Auth.AccessTokenTTL)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	seedLayouts(context.Background(), logger, db, asynqClient)

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Deps{
		DB:          db,
		AuthService: authService,
		Redis:       redisClient,
		Queue:       asynqClient,
		Store:       storageClient,
		Logger:      logger,
		LoginLimits: api.LoginLimits{
			PerHour:       cfg.Auth.LoginRateLimitPerHour,
			LockThreshold: cfg.Auth.LoginLockThreshold,
			LockTTL:       cfg.Auth.LoginLockTTL,
		},
		CV: api.CVOptions{
			MaxCVsPerUser: cfg.API.MaxCVsPerUser,
			DownloadTTL:   cfg.Export.DownloadTTL,
			WidthPx:       cfg.Export.WidthPx,
		},
		Payment: api.PaymentOptions{
			KeySecret: cfg.Payment.KeySecret,
			Amount:    cfg.Payment.Amount,
			Currency:  cfg.Payment.Currency,
		},
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}

// seedLayouts 写入内置版式，并为新写入的版式投递缩略图任务。
func seedLayouts(ctx context.Context, logger *slog.Logger, db *gorm.DB, queue *asynq.Client) {
	created, err := database.SeedLayouts(ctx, db)
	if err != nil {
		log.Fatalf("seed layouts: %v", err)
	}
	for _, row := range created {
		task, err := tasks.NewLayoutPreviewTask(row.ID, uuid.NewString())
		if err != nil {
			logger.Error("build layout preview task failed", slog.String("slug", row.Slug), slog.Any("error", err))
			continue
		}
		if _, err := queue.EnqueueContext(ctx, task); err != nil {
			logger.Warn("enqueue layout preview failed", slog.String("slug", row.Slug), slog.Any("error", err))
			continue
		}
		logger.Info("layout seeded", slog.String("slug", row.Slug))
	}
}
