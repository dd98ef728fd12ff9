package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/inkwell/inkwell/internal/domain/comment"
	"github.com/inkwell/inkwell/internal/domain/job"
	"github.com/inkwell/inkwell/internal/domain/post"
	"github.com/inkwell/inkwell/internal/domain/user"
	"github.com/inkwell/inkwell/internal/notifications"
	"github.com/inkwell/inkwell/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
}

type PostsStore interface {
	GetByID(ctx context.Context, id string) (post.Post, error)
	Publish(ctx context.Context, id string) (bool, error)
}

type CommentsStore interface {
	GetByID(ctx context.Context, id string) (comment.Comment, error)
}

type UsersStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	posts    PostsStore
	comments CommentsStore
	users    UsersStore
	notifier notifications.Notifier
	prom     *observability.Prom
	log      *slog.Logger
}

func New(cfg Config, repo JobsRepository, posts PostsStore, comments CommentsStore, users UsersStore, notifier notifications.Notifier, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		posts:    posts,
		comments: comments,
		users:    users,
		notifier: notifier,
		prom:     prom,
		log:      log,
	}
}

// Run polls for due jobs with Concurrency independent loops until the
// context is cancelled, then waits up to ShutdownGrace for in-flight jobs.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				processed, err := w.ProcessOne(ctx)

				if err != nil {
					w.log.Error("job claim failed", "err", err)
				}

				if !processed {
					select {
					case <-ctx.Done():
						return
					case <-time.After(w.cfg.PollInterval):
					}
				}
			}
		}()
	}

	<-ctx.Done()
	w.log.Info("worker received shutdown signal")

	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Error("worker shutdown grace elapsed with jobs in flight")
	}

	return nil
}
