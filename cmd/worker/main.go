package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/db"
	"github.com/inkwell/inkwell/internal/notifications"
	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/internal/queue/worker"
	"github.com/inkwell/inkwell/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "inkwell-worker", cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing disabled", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("database unavailable", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	jobsRepo := postgres.NewJobsRepo(pool, prom)
	postsRepo := postgres.NewPostsRepo(pool, prom)
	commentsRepo := postgres.NewCommentsRepo(pool, prom)
	usersRepo := postgres.NewUsersRepo(pool)

	notifier := notifications.NewLogNotifier(log)

	workerID := fmt.Sprintf("worker-%s", uuid.NewString()[:8])

	w := worker.New(worker.Config{
		WorkerID:      workerID,
		PollInterval:  500 * time.Millisecond,
		Concurrency:   2,
		ShutdownGrace: 10 * time.Second,
	}, jobsRepo, postsRepo, commentsRepo, usersRepo, notifier, prom, log)

	log.Info("worker starting", "worker_id", workerID, "env", cfg.Env)

	if err := w.Run(ctx); err != nil {
		log.Error("worker exited with error", "err", err)
	}

	sctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	if err := shutdownTracer(sctx); err != nil {
		log.Error("tracer shutdown failed", "err", err)
	}

	log.Info("worker stopped")
}
