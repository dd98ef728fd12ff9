package worker

import (
	"context"
	"errors"
	"time"

	"github.com/inkwell/inkwell/internal/domain/comment"
	"github.com/inkwell/inkwell/internal/domain/job"
	"github.com/inkwell/inkwell/internal/domain/post"
	"github.com/inkwell/inkwell/internal/domain/user"
	"github.com/inkwell/inkwell/internal/jobs"
	"github.com/inkwell/inkwell/internal/notifications"
)

// ProcessOne claims and executes a single due job. The bool reports whether
// a job was claimed at all so callers can back off when the queue is empty.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	start := time.Now()

	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
	}

	err = w.execute(ctx, j)

	if w.prom != nil {
		w.prom.JobsInFlight.Dec()
	}

	if err != nil {
		w.handleFailure(ctx, j, err)
		w.observeResult(j.Type, resultFor(j), time.Since(start))
		return true, nil
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		w.observeResult(j.Type, "failed", time.Since(start))
		return true, err
	}

	w.observeResult(j.Type, "done", time.Since(start))
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	decoded, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	switch p := decoded.(type) {
	case jobs.PublishPostPayload:
		return w.publishPost(ctx, p)

	case jobs.NotifyCommentPayload:
		return w.notifyComment(ctx, p)

	default:
		return jobs.ErrInvalidJobType
	}
}

func (w *Worker) publishPost(ctx context.Context, p jobs.PublishPostPayload) error {
	published, err := w.posts.Publish(ctx, p.PostID)

	if err != nil {
		return err
	}

	if !published {
		// already published, rescheduled or deleted; nothing left to do
		w.log.Info("publish skipped", "post_id", p.PostID)
		return nil
	}

	w.log.Info("post published", "post_id", p.PostID)
	return nil
}

func (w *Worker) notifyComment(ctx context.Context, p jobs.NotifyCommentPayload) error {
	c, err := w.comments.GetByID(ctx, p.CommentID)

	if err != nil {
		if errors.Is(err, comment.ErrNotFound) {
			return nil // comment deleted before we got to it
		}
		return err
	}

	pst, err := w.posts.GetByID(ctx, c.PostID)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			return nil
		}
		return err
	}

	author, err := w.users.GetByID(ctx, pst.AuthorID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return err
	}

	return w.notifier.SendCommentNotification(ctx, notifications.CommentNotificationInput{
		AuthorEmail: author.Email,
		AuthorName:  author.Name,
		PostTitle:   pst.Title,
		CommentID:   c.ID,
		CommentBody: c.Body,
	})
}

func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) {
	if j.Attempts >= j.MaxAttempts {
		w.log.Error("job failed permanently", "job_id", j.ID, "type", j.Type, "err", execErr)
		_ = w.repo.MarkFailed(ctx, j.ID, execErr.Error())
		return
	}

	delay := ExponentialBackoff(j.Attempts)

	w.log.Warn("job failed, rescheduling", "job_id", j.ID, "type", j.Type, "delay", delay, "err", execErr)
	_ = w.repo.Reschedule(ctx, j.ID, time.Now().UTC().Add(delay), execErr.Error())
}

func resultFor(j job.Job) string {
	if j.Attempts >= j.MaxAttempts {
		return "failed"
	}
	return "retry"
}

func (w *Worker) observeResult(jobType, result string, elapsed time.Duration) {
	if w.prom == nil {
		return
	}

	w.prom.JobResults.WithLabelValues(jobType, result).Inc()
	w.prom.JobDuration.WithLabelValues(jobType, result).Observe(elapsed.Seconds())
}
