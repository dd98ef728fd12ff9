package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/inkwell/internal/analytics"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/domain/comment"
	"github.com/inkwell/inkwell/internal/domain/post"
)

type PostCounter interface {
	CountByStatus(ctx context.Context) (map[post.Status]int, error)
	ListCursor(ctx context.Context, filters post.ListFilter, beforeCreatedAt time.Time, beforeID string) ([]post.Post, *string, bool, error)
}

type CommentCounter interface {
	CountByStatus(ctx context.Context) (map[comment.Status]int, error)
}

type UserCounter interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type AnalyticsHandler struct {
	posts    PostCounter
	comments CommentCounter
	users    UserCounter
	views    *analytics.Views
}

func NewAnalyticsHandler(posts PostCounter, comments CommentCounter, users UserCounter, views *analytics.Views) *AnalyticsHandler {
	return &AnalyticsHandler{
		posts:    posts,
		comments: comments,
		users:    users,
		views:    views,
	}
}

type topPost struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Views int64  `json:"views"`
}

// Dashboard aggregates counts for the admin overview page.
func (h *AnalyticsHandler) Dashboard(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	postCounts, err := h.posts.CountByStatus(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not load analytics")
		return
	}

	commentCounts, err := h.comments.CountByStatus(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not load analytics")
		return
	}

	signups, err := h.users.CountSince(cctx, time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		RespondInternal(ctx, "Could not load analytics")
		return
	}

	top, err := h.topPosts(cctx, 10)
	if err != nil {
		// view counters are best-effort; an empty list beats a failed dashboard
		top = []topPost{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"posts":         postCounts,
		"comments":      commentCounts,
		"signupsLast30": signups,
		"topPosts":      top,
	})
}

func (h *AnalyticsHandler) topPosts(ctx context.Context, n int) ([]topPost, error) {
	published := post.StatusPublished

	// recent published posts only; the counter set is unbounded otherwise
	items, _, _, err := h.posts.ListCursor(ctx, post.ListFilter{
		Status: &published,
		Limit:  100,
	}, time.Now().UTC().Add(time.Hour), "ffffffff-ffff-ffff-ffff-ffffffffffff")
	if err != nil {
		return nil, err
	}

	if len(items) == 0 || h.views == nil {
		return []topPost{}, nil
	}

	ids := make([]string, len(items))
	for i, p := range items {
		ids[i] = p.ID
	}

	counts, err := h.views.Counts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]topPost, len(items))
	for i, p := range items {
		out[i] = topPost{ID: p.ID, Title: p.Title, Slug: p.Slug, Views: counts[i]}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Views > out[j].Views })

	if len(out) > n {
		out = out[:n]
	}

	return out, nil
}
