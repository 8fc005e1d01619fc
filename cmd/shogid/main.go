// cmd/shogid/main.go
//
// shogid is the game-service daemon: it owns the authoritative game
// documents in Postgres and runs the deadline workers that guarantee
// every game reaches a terminal state. The transport layer (rooms,
// websockets, auth) lives in a separate service and calls into the
// game.Service API.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/retroaegx/shogicenter/internal/cache"
	"github.com/retroaegx/shogicenter/internal/config"
	"github.com/retroaegx/shogicenter/internal/game"
	"github.com/retroaegx/shogicenter/internal/scheduler"
	"github.com/retroaegx/shogicenter/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logrus.WithError(err).Fatal("postgres connect failed")
	}
	defer pool.Close()

	games := store.NewPostgres(pool)
	if err := games.EnsureSchema(ctx); err != nil {
		logrus.WithError(err).Fatal("schema setup failed")
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logrus.WithError(err).Fatal("redis connect failed")
	}
	defer redisClient.Close()

	timeoutStore := scheduler.NewRedisStore(redisClient.Redis(), "deadlines:timeout")
	disconnectStore := scheduler.NewRedisStore(redisClient.Redis(), "deadlines:disconnect")

	svc := game.NewService(game.Config{
		Store:         games,
		Timeouts:      scheduler.New(timeoutStore, "timeout"),
		Disconnects:   scheduler.New(disconnectStore, "disconnect"),
		Rating:        noopRating{},
		Analyzer:      analyzerQueue{redisClient},
		Presence:      presenceStore{redisClient},
		Notifier:      notifier{redisClient},
		Actions:       redisClient,
		Claims:        redisClient,
		GraceBudgetMs: int64(cfg.GraceBudgetMs),
	})

	poll := time.Duration(cfg.WorkerPollIntervalMs) * time.Millisecond
	timeoutWorker := scheduler.NewWorker(timeoutStore, "timeout",
		svc.HandleTimeoutDeadline, scheduler.WithPollInterval(poll))
	disconnectWorker := scheduler.NewWorker(disconnectStore, "disconnect",
		svc.HandleDisconnectDeadline, scheduler.WithPollInterval(poll))

	var wg sync.WaitGroup
	for _, w := range []*scheduler.Worker{timeoutWorker, disconnectWorker} {
		wg.Add(1)
		go func(w *scheduler.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	logrus.Info("shogid running")
	<-ctx.Done()
	logrus.Info("shutting down")
	wg.Wait()
	os.Exit(0)
}
