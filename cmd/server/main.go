package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/reviewflow/reviews-api/internal/config"
	"github.com/reviewflow/reviews-api/internal/logger"
	"github.com/reviewflow/reviews-api/internal/server"
	"github.com/reviewflow/reviews-api/internal/storage"
	"go.uber.org/zap"
)

func main() {
	// Load env if it exists
	godotenv.Load()

	cfg, err := config.Load("config.json")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.Init(cfg.Server.Environment, os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	redis, err := storage.NewRedis(
		cfg.Redis.GetRedisAddr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()

	log.Info("connected to redis")

	// The database is optional: without it, tiers come from key prefixes
	// and the admin API stays off.
	var postgres *storage.Postgres
	if cfg.Database.DSN != "" {
		postgres, err = storage.NewPostgres(cfg.Database.DSN)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer postgres.Close()

		if err := postgres.AutoMigrate(); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}

		log.Info("connected to database")
	} else {
		log.Warn("DATABASE_DSN not set, running without the system of record")
	}

	srv := server.New(cfg, redis, postgres)

	go func() {
		addr := ":" + cfg.Server.Port
		if err := srv.Run(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
