// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/brainbattle/battle-service/internal/auth"
	"github.com/brainbattle/battle-service/internal/broadcast"
	"github.com/brainbattle/battle-service/internal/cache"
	"github.com/brainbattle/battle-service/internal/config"
	"github.com/brainbattle/battle-service/internal/database"
	"github.com/brainbattle/battle-service/internal/handlers"
	"github.com/brainbattle/battle-service/internal/lock"
	"github.com/brainbattle/battle-service/internal/middleware"
	"github.com/brainbattle/battle-service/internal/room"
	"github.com/brainbattle/battle-service/internal/users"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Load()

	if err := auth.Init(); err != nil {
		logger.Fatalf("auth init: %v", err)
	}

	var repo room.Repository
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pool, err := database.Connect(ctx, dsn)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		repo = database.NewRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repository")
		repo = room.NewMemoryRepository()
	}

	rdb, err := cache.Connect(ctx)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	bus := broadcast.NewRedis(rdb)
	svc := room.NewService(repo, lock.New(rdb), cache.NewStateCache(rdb), bus, cfg, logger)

	sweeper := room.NewSweeper(repo, bus, logger, cfg.SweepInterval, cfg.SweepBatch)
	go sweeper.Run(ctx)

	srv := &handlers.Server{
		Rooms: svc,
		Auth:  auth.NewResolver(os.Getenv("AUTH_ME_URL")),
		Users: users.NewClient(os.Getenv("USER_PUBLIC_PROFILE_URL")),
		Rdb:   rdb,
		Log:   logger,
	}

	mux := http.NewServeMux()
	srv.Routes(mux)

	addr := ":" + config.GetEnv("PORT", "8080")
	server := &http.Server{
		Addr:         addr,
		Handler:      middleware.LogMiddleware(logger)(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case <-ctx.Done():
		logger.Info("terminating")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
	}
}
