package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/domain/comment"
	"github.com/inkwell/inkwell/internal/domain/job"
	"github.com/inkwell/inkwell/internal/domain/post"
	"github.com/inkwell/inkwell/internal/jobs"
	"github.com/inkwell/inkwell/internal/utils"
)

const (
	defaultCommentPageSize = 50
	maxCommentPageSize     = 200
)

type CommentsStore interface {
	Create(ctx context.Context, postID string, req comment.CreateCommentRequest) (comment.Comment, error)
	GetByID(ctx context.Context, id string) (comment.Comment, error)
	ListForPost(ctx context.Context, postID string, afterCreatedAt time.Time, afterID string, limit int) ([]comment.Comment, *string, bool, error)
	ListByStatus(ctx context.Context, status comment.Status, limit, offset int) ([]comment.Comment, int, error)
	SetStatus(ctx context.Context, id string, status comment.Status) (comment.Comment, error)
}

type PostReader interface {
	GetByID(ctx context.Context, id string) (post.Post, error)
}

type CommentsHandler struct {
	repo  CommentsStore
	posts PostReader
	jobs  JobEnqueuer
}

func NewCommentsHandler(repo CommentsStore, posts PostReader, jobStore JobEnqueuer) *CommentsHandler {
	return &CommentsHandler{
		repo:  repo,
		posts: posts,
		jobs:  jobStore,
	}
}

// SubmitComment accepts a guest comment on a published post. The comment
// lands pending and only shows up publicly once a moderator approves it.
func (h *CommentsHandler) SubmitComment(ctx *gin.Context) {
	postID := ctx.Param("id")

	var req comment.CreateCommentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.posts.GetByID(cctx, postID)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}
		RespondInternal(ctx, "Could not submit comment")
		return
	}

	if p.Status != post.StatusPublished {
		// unpublished posts do not accept comments and do not leak existence
		RespondNotFound(ctx, "Post not found")
		return
	}

	c, err := h.repo.Create(cctx, postID, req)

	if err != nil {
		RespondInternal(ctx, "Could not submit comment")
		return
	}

	h.enqueueNotification(cctx, c)

	ctx.JSON(http.StatusCreated, gin.H{
		"comment": c,
		"status":  "pending_review",
	})
}

func (h *CommentsHandler) enqueueNotification(ctx context.Context, c comment.Comment) {
	payload, err := jobs.EncodePayload(jobs.JobNotifyComment, jobs.NotifyCommentPayload{
		CommentID: c.ID,
		PostID:    c.PostID,
	})
	if err != nil {
		return
	}

	// best-effort: a lost notification never fails the submission
	_, _ = h.jobs.Create(ctx, job.CreateRequest{
		Type:    string(jobs.JobNotifyComment),
		Payload: payload,
	})
}

// ListComments pages approved comments for a post, oldest first.
func (h *CommentsHandler) ListComments(ctx *gin.Context) {
	postID := ctx.Param("id")

	limit := defaultCommentPageSize

	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxCommentPageSize {
			RespondBadRequest(ctx, "Invalid limit", nil)
			return
		}
		limit = n
	}

	// zero values sort before every real row, so the first page needs no cursor
	afterCreatedAt := time.Time{}
	afterID := ""

	if cur := ctx.Query("cursor"); cur != "" {
		decoded, err := utils.DecodeCommentCursor(cur)
		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return
		}
		afterCreatedAt = decoded.CreatedAt
		afterID = decoded.ID
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, next, hasMore, err := h.repo.ListForPost(cctx, postID, afterCreatedAt, afterID, limit)

	if err != nil {
		RespondInternal(ctx, "Could not list comments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items":      items,
		"count":      len(items),
		"hasMore":    hasMore,
		"nextCursor": next,
	})
}

// ModerationQueue lists comments by status for admins, pending by default.
func (h *CommentsHandler) ModerationQueue(ctx *gin.Context) {
	status := comment.StatusPending

	if v := ctx.Query("status"); v != "" {
		status = comment.Status(v)
		if !status.IsValid() {
			RespondBadRequest(ctx, "Unknown status", nil)
			return
		}
	}

	limit := defaultCommentPageSize
	offset := 0

	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxCommentPageSize {
			RespondBadRequest(ctx, "Invalid limit", nil)
			return
		}
		limit = n
	}

	if v := ctx.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			RespondBadRequest(ctx, "Invalid offset", nil)
			return
		}
		offset = n
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, err := h.repo.ListByStatus(cctx, status, limit, offset)

	if err != nil {
		RespondInternal(ctx, "Could not list comments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
		"total": total,
	})
}

// Moderate returns a handler that moves a comment into the given status.
// One route per action keeps the admin surface explicit: approve, reject, spam.
func (h *CommentsHandler) Moderate(status comment.Status) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.Param("id")

		cctx, cancel := config.WithTimeout(3 * time.Second)
		defer cancel()

		c, err := h.repo.SetStatus(cctx, id, status)

		if err != nil {
			if errors.Is(err, comment.ErrNotFound) {
				RespondNotFound(ctx, "Comment not found")
				return
			}
			RespondInternal(ctx, "Could not moderate comment")
			return
		}

		ctx.JSON(http.StatusOK, c)
	}
}
