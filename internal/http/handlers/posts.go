package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/inkwell/internal/analytics"
	"github.com/inkwell/inkwell/internal/cache"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/domain/job"
	"github.com/inkwell/inkwell/internal/domain/post"
	"github.com/inkwell/inkwell/internal/domain/user"
	"github.com/inkwell/inkwell/internal/http/middlewares"
	"github.com/inkwell/inkwell/internal/jobs"
	"github.com/inkwell/inkwell/internal/utils"
)

const (
	defaultPostPageSize = 20
	maxPostPageSize     = 100
)

type PostsStore interface {
	Create(ctx context.Context, authorID string, req post.CreatePostRequest) (post.Post, error)
	GetByID(ctx context.Context, id string) (post.Post, error)
	ListCursor(ctx context.Context, filters post.ListFilter, beforeCreatedAt time.Time, beforeID string) ([]post.Post, *string, bool, error)
	Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error)
	Delete(ctx context.Context, id string) error
}

type JobEnqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type PostsHandler struct {
	repo      PostsStore
	jobs      JobEnqueuer
	views     *analytics.Views
	listCache *cache.Cache
}

func NewPostsHandler(repo PostsStore, jobStore JobEnqueuer, views *analytics.Views, listCache *cache.Cache) *PostsHandler {
	return &PostsHandler{
		repo:      repo,
		jobs:      jobStore,
		views:     views,
		listCache: listCache,
	}
}

func (h *PostsHandler) CreatePost(ctx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(ctx)
	if !ok {
		RespondInternal(ctx, "Could not resolve current user")
		return
	}

	var req post.CreatePostRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Status == post.StatusScheduled && req.PublishAt == nil {
		RespondBadRequest(ctx, "Scheduled posts need a publishAt time", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.repo.Create(cctx, principal.ID, req)

	if err != nil {
		RespondInternal(ctx, "Could not create post")
		return
	}

	if p.Status == post.StatusScheduled && p.PublishAt != nil {
		h.enqueuePublish(ctx, p, principal.ID)
	}

	h.invalidateListCache()

	ctx.JSON(http.StatusCreated, p)
}

func (h *PostsHandler) enqueuePublish(ctx *gin.Context, p post.Post, actorID string) {
	payload, err := jobs.EncodePayload(jobs.JobPublishPost, jobs.PublishPostPayload{
		PostID:    p.ID,
		ActorID:   actorID,
		RequestID: requestIDFrom(ctx),
	})
	if err != nil {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// best-effort: the worker re-checks publish_at before flipping status
	_, _ = h.jobs.Create(cctx, job.CreateRequest{
		Type:    string(jobs.JobPublishPost),
		Payload: payload,
		RunAt:   *p.PublishAt,
	})
}

func (h *PostsHandler) ListPosts(ctx *gin.Context) {
	filters, cacheable, ok := h.parseListFilters(ctx)
	if !ok {
		return
	}

	beforeCreatedAt := time.Now().UTC().Add(time.Hour)
	beforeID := "ffffffff-ffff-ffff-ffff-ffffffffffff"

	cursorParam := ctx.Query("cursor")

	if cursorParam != "" {
		cur, err := utils.DecodePostCursor(cursorParam)
		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return
		}
		beforeCreatedAt = cur.CreatedAt
		beforeID = cur.ID
		cacheable = false
	}

	cacheKey := fmt.Sprintf("posts:%v:%d", ctx.Request.URL.RawQuery, filters.Limit)

	if cacheable && h.listCache != nil {
		if v, hit := h.listCache.Get(cacheKey); hit {
			RespondJSONWithETag(ctx, http.StatusOK, v)
			return
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, next, hasMore, err := h.repo.ListCursor(cctx, filters, beforeCreatedAt, beforeID)

	if err != nil {
		RespondInternal(ctx, "Could not list posts")
		return
	}

	payload := gin.H{
		"items":      items,
		"count":      len(items),
		"hasMore":    hasMore,
		"nextCursor": next,
	}

	if cacheable && h.listCache != nil {
		h.listCache.Set(cacheKey, payload)
	}

	RespondJSONWithETag(ctx, http.StatusOK, payload)
}

func (h *PostsHandler) parseListFilters(ctx *gin.Context) (post.ListFilter, bool, bool) {
	filters := post.ListFilter{Limit: defaultPostPageSize}

	// anonymous listing only ever sees published posts; a principal set by
	// the optional gate unlocks the status filter below
	published := post.StatusPublished
	filters.Status = &published
	cacheable := true

	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPostPageSize {
			RespondBadRequest(ctx, fmt.Sprintf("limit must be between 1 and %d", maxPostPageSize), nil)
			return post.ListFilter{}, false, false
		}
		filters.Limit = n
	}

	if v := ctx.Query("category"); v != "" {
		filters.CategoryID = &v
		cacheable = false
	}

	if v := ctx.Query("tag"); v != "" {
		filters.TagID = &v
		cacheable = false
	}

	if v := ctx.Query("q"); v != "" {
		filters.Query = &v
		cacheable = false
	}

	if v := ctx.Query("status"); v != "" {
		principal, ok := middlewares.PrincipalFromContext(ctx)
		if !ok {
			RespondUnAuthorized(ctx, "authentication_missing", "Sign in to filter by status")
			return post.ListFilter{}, false, false
		}

		status := post.Status(v)
		if !status.IsValid() {
			RespondBadRequest(ctx, "Unknown status filter", nil)
			return post.ListFilter{}, false, false
		}

		filters.Status = &status
		cacheable = false

		// non-admins only see their own non-published posts
		if status != post.StatusPublished && principal.Role != user.RoleAdmin {
			filters.AuthorID = &principal.ID
		}
	}

	if v := ctx.Query("author"); v != "" {
		filters.AuthorID = &v
		cacheable = false
	}

	return filters, cacheable, true
}

func (h *PostsHandler) GetPostById(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}
		RespondInternal(ctx, "Could not fetch post")
		return
	}

	if p.Status != post.StatusPublished && !h.canSeeUnpublished(ctx, p) {
		// hide the existence of unpublished posts from outsiders
		RespondNotFound(ctx, "Post not found")
		return
	}

	if p.Status == post.StatusPublished && h.views != nil {
		// best-effort counter; a redis outage never fails the read
		_ = h.views.Record(ctx.Request.Context(), p.ID)
	}

	ctx.JSON(http.StatusOK, p)
}

func (h *PostsHandler) canSeeUnpublished(ctx *gin.Context, p post.Post) bool {
	principal, ok := middlewares.PrincipalFromContext(ctx)
	if !ok {
		return false
	}

	return principal.ID == p.AuthorID || principal.Role == user.RoleAdmin
}

func (h *PostsHandler) UpdatePost(ctx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(ctx)
	if !ok {
		RespondInternal(ctx, "Could not resolve current user")
		return
	}

	id := ctx.Param("id")

	var req post.UpdatePostRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Status == post.StatusScheduled && req.PublishAt == nil {
		RespondBadRequest(ctx, "Scheduled posts need a publishAt time", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}
		RespondInternal(ctx, "Could not update post")
		return
	}

	if existing.AuthorID != principal.ID && principal.Role != user.RoleAdmin {
		RespondForbidden(ctx, "You can only edit your own posts")
		return
	}

	updated, err := h.repo.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}
		RespondInternal(ctx, "Could not update post")
		return
	}

	if updated.Status == post.StatusScheduled && updated.PublishAt != nil {
		h.enqueuePublish(ctx, updated, principal.ID)
	}

	h.invalidateListCache()

	ctx.JSON(http.StatusOK, updated)
}

func (h *PostsHandler) DeletePost(ctx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(ctx)
	if !ok {
		RespondInternal(ctx, "Could not resolve current user")
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}
		RespondInternal(ctx, "Could not delete post")
		return
	}

	if existing.AuthorID != principal.ID && principal.Role != user.RoleAdmin {
		RespondForbidden(ctx, "You can only delete your own posts")
		return
	}

	if err := h.repo.Delete(cctx, id); err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}
		RespondInternal(ctx, "Could not delete post")
		return
	}

	h.invalidateListCache()

	ctx.Status(http.StatusNoContent)
}

func (h *PostsHandler) invalidateListCache() {
	if h.listCache != nil {
		h.listCache.Clear()
	}
}
