package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"realestate/internal/account"
	"realestate/internal/api"
	"realestate/internal/auth"
	"realestate/internal/config"
	"realestate/internal/database"
	"realestate/internal/errcode"
	"realestate/internal/listing"
	"realestate/internal/messaging"
	"realestate/internal/notify"
	"realestate/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		if errcode.IsFatal(err) {
			log.Fatalf("api: %v", err)
		}
		logger.Error("api stopped with error", slog.Any("error", err))
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return errcode.Fatal(fmt.Errorf("init database: %w", err))
	}
	if err := database.Migrate(db); err != nil {
		return errcode.Fatal(err)
	}
	if err := database.SeedReferenceData(db); err != nil {
		return errcode.Fatal(err)
	}
	logger.Info("database ready",
		slog.String("host", cfg.Database.Host),
		slog.String("db", cfg.Database.Name),
	)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return errcode.Fatal(fmt.Errorf("ping redis: %w", err))
	}

	images, uploads, err := storage.Open(cfg)
	if err != nil {
		return errcode.Fatal(fmt.Errorf("init storage: %w", err))
	}
	logger.Info("image storage ready", slog.String("driver", cfg.Storage.Driver))

	sessions, err := auth.NewAuthService([]byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL)
	if err != nil {
		return errcode.Fatal(err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	router := api.NewRouter(api.Dependencies{
		Config:   cfg,
		Redis:    redisClient,
		Sessions: sessions,
		Accounts: account.NewStore(db),
		Listings: listing.NewService(db, images, storage.NewScanner(cfg.Clamd.Addr), cfg.API.MaxUploadBytes, logger),
		Messages: messaging.NewService(db, redisClient, logger),
		Images:   images,
		Notifier: notify.NewAsynqNotifier(asynqClient, logger),
		Uploads:  uploads,
		Logger:   logger,
	})
	router.MaxMultipartMemory = cfg.API.MaxUploadBytes

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errcode.Fatal(fmt.Errorf("serve http: %w", err))
	case <-ctx.Done():
	}

	logger.Info("shutting down api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	// 排空超时只记录，不算启动失败。
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
