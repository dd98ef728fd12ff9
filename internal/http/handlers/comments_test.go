package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/inkwell/internal/domain/comment"
	"github.com/inkwell/inkwell/internal/domain/post"
)

type fakeCommentsStore struct {
	createFn       func(ctx context.Context, postID string, req comment.CreateCommentRequest) (comment.Comment, error)
	listForPostFn  func(ctx context.Context, postID string, afterCreatedAt time.Time, afterID string, limit int) ([]comment.Comment, *string, bool, error)
	listByStatusFn func(ctx context.Context, status comment.Status, limit, offset int) ([]comment.Comment, int, error)
	setStatusFn    func(ctx context.Context, id string, status comment.Status) (comment.Comment, error)
}

func (f *fakeCommentsStore) Create(ctx context.Context, postID string, req comment.CreateCommentRequest) (comment.Comment, error) {
	if f.createFn != nil {
		return f.createFn(ctx, postID, req)
	}
	return comment.Comment{
		ID:          "c1",
		PostID:      postID,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Body:        req.Body,
		Status:      comment.StatusPending,
	}, nil
}

func (f *fakeCommentsStore) GetByID(ctx context.Context, id string) (comment.Comment, error) {
	return comment.Comment{}, comment.ErrNotFound
}

func (f *fakeCommentsStore) ListForPost(ctx context.Context, postID string, afterCreatedAt time.Time, afterID string, limit int) ([]comment.Comment, *string, bool, error) {
	if f.listForPostFn != nil {
		return f.listForPostFn(ctx, postID, afterCreatedAt, afterID, limit)
	}
	return nil, nil, false, nil
}

func (f *fakeCommentsStore) ListByStatus(ctx context.Context, status comment.Status, limit, offset int) ([]comment.Comment, int, error) {
	if f.listByStatusFn != nil {
		return f.listByStatusFn(ctx, status, limit, offset)
	}
	return nil, 0, nil
}

func (f *fakeCommentsStore) SetStatus(ctx context.Context, id string, status comment.Status) (comment.Comment, error) {
	if f.setStatusFn != nil {
		return f.setStatusFn(ctx, id, status)
	}
	return comment.Comment{}, comment.ErrNotFound
}

type fakePostReader struct {
	getFn func(ctx context.Context, id string) (post.Post, error)
}

func (f *fakePostReader) GetByID(ctx context.Context, id string) (post.Post, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return post.Post{}, post.ErrNotFound
}

func commentsRouter(h *CommentsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/posts/:id/comments", h.SubmitComment)
	r.GET("/api/posts/:id/comments", h.ListComments)
	r.GET("/api/admin/comments", h.ModerationQueue)
	r.POST("/api/admin/comments/:id/approve", h.Moderate(comment.StatusApproved))
	r.POST("/api/admin/comments/:id/reject", h.Moderate(comment.StatusRejected))
	r.POST("/api/admin/comments/:id/spam", h.Moderate(comment.StatusSpam))
	return r
}

func publishedPostReader() *fakePostReader {
	return &fakePostReader{
		getFn: func(ctx context.Context, id string) (post.Post, error) {
			return post.Post{ID: id, Status: post.StatusPublished}, nil
		},
	}
}

func TestSubmitComment_LandsPendingAndEnqueuesNotification(t *testing.T) {
	store := &fakeCommentsStore{}
	enq := &fakeJobEnqueuer{}

	h := NewCommentsHandler(store, publishedPostReader(), enq)
	r := commentsRouter(h)

	body, _ := json.Marshal(gin.H{
		"authorName":  "Guest",
		"authorEmail": "guest@example.com",
		"body":        "Great read, thanks!",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/posts/p1/comments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "pending_review") {
		t.Fatalf("expected pending_review, got %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "guest@example.com") {
		t.Fatalf("response leaks commenter email: %s", w.Body.String())
	}
	if len(enq.created) != 1 || enq.created[0].Type != "notify_comment" {
		t.Fatalf("expected one notify_comment job, got %+v", enq.created)
	}
}

func TestSubmitComment_UnpublishedPostIs404(t *testing.T) {
	reader := &fakePostReader{
		getFn: func(ctx context.Context, id string) (post.Post, error) {
			return post.Post{ID: id, Status: post.StatusDraft}, nil
		},
	}

	h := NewCommentsHandler(&fakeCommentsStore{}, reader, &fakeJobEnqueuer{})
	r := commentsRouter(h)

	body, _ := json.Marshal(gin.H{
		"authorName":  "Guest",
		"authorEmail": "guest@example.com",
		"body":        "first!",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/posts/p1/comments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for draft post, got %d", w.Code)
	}
}

func TestSubmitComment_InvalidEmailRejected(t *testing.T) {
	h := NewCommentsHandler(&fakeCommentsStore{}, publishedPostReader(), &fakeJobEnqueuer{})
	r := commentsRouter(h)

	body, _ := json.Marshal(gin.H{
		"authorName":  "Guest",
		"authorEmail": "not-an-email",
		"body":        "hello there",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/posts/p1/comments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestModerationQueue_DefaultsToPending(t *testing.T) {
	var seenStatus comment.Status

	store := &fakeCommentsStore{
		listByStatusFn: func(ctx context.Context, status comment.Status, limit, offset int) ([]comment.Comment, int, error) {
			seenStatus = status
			return []comment.Comment{{ID: "c1", Status: status}}, 1, nil
		},
	}

	h := NewCommentsHandler(store, publishedPostReader(), &fakeJobEnqueuer{})
	r := commentsRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/comments", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seenStatus != comment.StatusPending {
		t.Fatalf("expected pending default, got %s", seenStatus)
	}
}

func TestModerate_Actions(t *testing.T) {
	cases := []struct {
		path string
		want comment.Status
	}{
		{"/api/admin/comments/c1/approve", comment.StatusApproved},
		{"/api/admin/comments/c1/reject", comment.StatusRejected},
		{"/api/admin/comments/c1/spam", comment.StatusSpam},
	}

	for _, tc := range cases {
		var seenStatus comment.Status

		store := &fakeCommentsStore{
			setStatusFn: func(ctx context.Context, id string, status comment.Status) (comment.Comment, error) {
				seenStatus = status
				return comment.Comment{ID: id, Status: status}, nil
			},
		}

		h := NewCommentsHandler(store, publishedPostReader(), &fakeJobEnqueuer{})
		r := commentsRouter(h)

		req := httptest.NewRequest(http.MethodPost, tc.path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", tc.path, w.Code, w.Body.String())
		}
		if seenStatus != tc.want {
			t.Fatalf("%s: expected status %s, got %s", tc.path, tc.want, seenStatus)
		}
	}
}

func TestModerate_UnknownCommentIs404(t *testing.T) {
	h := NewCommentsHandler(&fakeCommentsStore{}, publishedPostReader(), &fakeJobEnqueuer{})
	r := commentsRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/comments/missing/approve", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown comment, got %d", w.Code)
	}
}
