package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"realestate/internal/config"
	"realestate/internal/database"
	"realestate/internal/listing"
	"realestate/internal/metrics"
	"realestate/internal/notify"
	"realestate/internal/storage"
	"realestate/internal/tasks"
	"realestate/internal/worker"
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

	images, _, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	logger.Info("image storage ready", slog.String("driver", cfg.Storage.Driver))

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

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
	})

	// worker 只读取房源，无需扫描器和上传大小限制。
	refs := listing.NewService(db, images, nil, 0, logger)
	emailHandler := worker.NewEmailTaskHandler(notify.NewMailer(cfg.Mail, logger), cfg.API.BaseURL, logger)
	sweepHandler := worker.NewImageSweepHandler(images, refs, cfg.Worker.SweepGracePeriod, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeEmailConfirmation, emailHandler)
	mux.Handle(tasks.TypeEmailPasswordReset, emailHandler)
	mux.Handle(tasks.TypeImageSweep, sweepHandler)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register(cfg.Worker.SweepCron, tasks.NewImageSweepTask()); err != nil {
		log.Fatalf("register image sweep: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Shutdown()

	logger.Info("worker service started",
		slog.String("redis_addr", redisAddr),
		slog.String("sweep_cron", cfg.Worker.SweepCron),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
