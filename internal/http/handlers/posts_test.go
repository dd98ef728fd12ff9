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
	"github.com/google/uuid"
	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/cache"
	"github.com/inkwell/inkwell/internal/domain/job"
	"github.com/inkwell/inkwell/internal/domain/post"
	"github.com/inkwell/inkwell/internal/domain/user"
	"github.com/inkwell/inkwell/internal/http/middlewares"
	"github.com/inkwell/inkwell/internal/repo/memory"
)

type fakePostsStore struct {
	createFn func(ctx context.Context, authorID string, req post.CreatePostRequest) (post.Post, error)
	getFn    func(ctx context.Context, id string) (post.Post, error)
	listFn   func(ctx context.Context, filters post.ListFilter, beforeCreatedAt time.Time, beforeID string) ([]post.Post, *string, bool, error)
	updateFn func(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakePostsStore) Create(ctx context.Context, authorID string, req post.CreatePostRequest) (post.Post, error) {
	if f.createFn != nil {
		return f.createFn(ctx, authorID, req)
	}
	return post.NewFromCreateRequest(authorID, req), nil
}

func (f *fakePostsStore) GetByID(ctx context.Context, id string) (post.Post, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return post.Post{}, post.ErrNotFound
}

func (f *fakePostsStore) ListCursor(ctx context.Context, filters post.ListFilter, beforeCreatedAt time.Time, beforeID string) ([]post.Post, *string, bool, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filters, beforeCreatedAt, beforeID)
	}
	return nil, nil, false, nil
}

func (f *fakePostsStore) Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return post.Post{}, post.ErrNotFound
}

func (f *fakePostsStore) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return post.ErrNotFound
}

type fakeJobEnqueuer struct {
	created []job.CreateRequest
}

func (f *fakeJobEnqueuer) Create(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	f.created = append(f.created, req)
	return job.New(req), nil
}

func asPrincipal(u user.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		middlewares.SetPrincipal(c, u)
		c.Next()
	}
}

func postsRouter(h *PostsHandler, principal *user.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	group := r.Group("/api")
	if principal != nil {
		group.Use(asPrincipal(*principal))
	}

	group.GET("/posts", h.ListPosts)
	group.GET("/posts/:id", h.GetPostById)
	group.POST("/posts", h.CreatePost)
	group.PUT("/posts/:id", h.UpdatePost)
	group.DELETE("/posts/:id", h.DeletePost)

	return r
}

func author() user.User {
	return user.User{ID: uuid.NewString(), Email: "author@example.com", Name: "Author", Role: user.RoleAuthor}
}

func TestCreatePost_Draft(t *testing.T) {
	store := &fakePostsStore{}
	enq := &fakeJobEnqueuer{}
	u := author()

	h := NewPostsHandler(store, enq, nil, nil)
	r := postsRouter(h, &u)

	body, _ := json.Marshal(gin.H{
		"title": "My first post",
		"body":  "Hello world",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var p post.Post
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if p.Status != post.StatusDraft {
		t.Fatalf("expected draft by default, got %s", p.Status)
	}
	if p.AuthorID != u.ID {
		t.Fatalf("author not taken from principal: %s", p.AuthorID)
	}
	if len(enq.created) != 0 {
		t.Fatalf("draft must not enqueue a publish job")
	}
}

func TestCreatePost_ScheduledEnqueuesJob(t *testing.T) {
	store := &fakePostsStore{}
	enq := &fakeJobEnqueuer{}
	u := author()

	h := NewPostsHandler(store, enq, nil, nil)
	r := postsRouter(h, &u)

	publishAt := time.Now().UTC().Add(2 * time.Hour).Format(time.RFC3339)

	body, _ := json.Marshal(gin.H{
		"title":     "Scheduled post",
		"body":      "Later",
		"status":    "scheduled",
		"publishAt": publishAt,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(enq.created) != 1 {
		t.Fatalf("expected one publish job, got %d", len(enq.created))
	}
	if enq.created[0].Type != "publish_post" {
		t.Fatalf("unexpected job type %s", enq.created[0].Type)
	}
}

func TestCreatePost_ScheduledWithoutPublishAtRejected(t *testing.T) {
	store := &fakePostsStore{}
	u := author()

	h := NewPostsHandler(store, &fakeJobEnqueuer{}, nil, nil)
	r := postsRouter(h, &u)

	body, _ := json.Marshal(gin.H{
		"title":  "Scheduled post",
		"body":   "Later",
		"status": "scheduled",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetPost_DraftHiddenFromStrangers(t *testing.T) {
	owner := author()
	draft := post.Post{ID: "p1", AuthorID: owner.ID, Title: "Secret", Status: post.StatusDraft}

	store := &fakePostsStore{
		getFn: func(ctx context.Context, id string) (post.Post, error) {
			return draft, nil
		},
	}

	h := NewPostsHandler(store, &fakeJobEnqueuer{}, nil, nil)

	// anonymous
	r := postsRouter(h, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/posts/p1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("anonymous: expected 404 for draft, got %d", w.Code)
	}

	// different signed-in user
	stranger := author()
	r = postsRouter(h, &stranger)
	req = httptest.NewRequest(http.MethodGet, "/api/posts/p1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("stranger: expected 404 for draft, got %d", w.Code)
	}

	// the owner sees it
	r = postsRouter(h, &owner)
	req = httptest.NewRequest(http.MethodGet, "/api/posts/p1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("owner: expected 200 for own draft, got %d", w.Code)
	}
}

// The public read routes sit behind the optional gate, so a bearer token on
// a plain GET must reach the handler as a loaded principal.
func postsRouterWithGate(t *testing.T, h *PostsHandler) (*gin.Engine, *auth.Manager, *memory.UsersRepo) {
	t.Helper()

	m, err := auth.NewManager("posts-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	users := memory.NewUsersRepo()
	gate := middlewares.NewAuthGate(m, users, nil, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/posts", gate.Optional(), h.ListPosts)
	r.GET("/api/posts/:id", gate.Optional(), h.GetPostById)

	return r, m, users
}

func TestListPosts_StatusFilterWithBearerToken(t *testing.T) {
	var seenFilters post.ListFilter

	store := &fakePostsStore{
		listFn: func(ctx context.Context, filters post.ListFilter, beforeCreatedAt time.Time, beforeID string) ([]post.Post, *string, bool, error) {
			seenFilters = filters
			return []post.Post{{ID: "p1", Status: post.StatusDraft}}, nil, false, nil
		},
	}

	h := NewPostsHandler(store, &fakeJobEnqueuer{}, nil, nil)
	r, m, users := postsRouterWithGate(t, h)

	u, err := users.Create(context.Background(), "writer@example.com", "hash", "Writer", user.RoleAuthor)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	token, err := m.IssueToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/posts?status=draft", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for author's draft filter, got %d: %s", w.Code, w.Body.String())
	}
	if seenFilters.Status == nil || *seenFilters.Status != post.StatusDraft {
		t.Fatalf("expected draft status filter, got %+v", seenFilters.Status)
	}
	if seenFilters.AuthorID == nil || *seenFilters.AuthorID != u.ID {
		t.Fatalf("non-admin draft filter must be scoped to the caller, got %+v", seenFilters.AuthorID)
	}
}

func TestListPosts_StatusFilterAnonymousIs401(t *testing.T) {
	h := NewPostsHandler(&fakePostsStore{}, &fakeJobEnqueuer{}, nil, nil)
	r, _, _ := postsRouterWithGate(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/posts?status=draft", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "authentication_missing") {
		t.Fatalf("expected authentication_missing, got %s", w.Body.String())
	}
}

func TestGetPost_OwnDraftWithBearerToken(t *testing.T) {
	store := &fakePostsStore{}
	h := NewPostsHandler(store, &fakeJobEnqueuer{}, nil, nil)
	r, m, users := postsRouterWithGate(t, h)

	u, err := users.Create(context.Background(), "writer@example.com", "hash", "Writer", user.RoleAuthor)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	store.getFn = func(ctx context.Context, id string) (post.Post, error) {
		return post.Post{ID: id, AuthorID: u.ID, Title: "WIP", Status: post.StatusDraft}, nil
	}

	token, err := m.IssueToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	// anonymous read stays hidden
	req := httptest.NewRequest(http.MethodGet, "/api/posts/p1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("anonymous: expected 404 for draft, got %d", w.Code)
	}

	// the same route with the owner's token serves the draft
	req = httptest.NewRequest(http.MethodGet, "/api/posts/p1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("owner: expected 200 for own draft, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdatePost_OnlyOwnerOrAdmin(t *testing.T) {
	owner := author()
	existing := post.Post{ID: "p1", AuthorID: owner.ID, Title: "Mine", Status: post.StatusPublished}

	store := &fakePostsStore{
		getFn: func(ctx context.Context, id string) (post.Post, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error) {
			updated := existing
			updated.Title = req.Title
			return updated, nil
		},
	}

	h := NewPostsHandler(store, &fakeJobEnqueuer{}, nil, nil)

	body, _ := json.Marshal(gin.H{
		"title":  "Edited title",
		"body":   "Edited body",
		"status": "published",
	})

	stranger := author()
	r := postsRouter(h, &stranger)
	req := httptest.NewRequest(http.MethodPut, "/api/posts/p1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("stranger: expected 403, got %d: %s", w.Code, w.Body.String())
	}

	admin := user.User{ID: uuid.NewString(), Email: "admin@example.com", Role: user.RoleAdmin}
	r = postsRouter(h, &admin)
	req = httptest.NewRequest(http.MethodPut, "/api/posts/p1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListPosts_CacheServesSecondRead(t *testing.T) {
	listCalls := 0

	store := &fakePostsStore{
		listFn: func(ctx context.Context, filters post.ListFilter, beforeCreatedAt time.Time, beforeID string) ([]post.Post, *string, bool, error) {
			listCalls++
			return []post.Post{{ID: "p1", Title: "Hello", Status: post.StatusPublished}}, nil, false, nil
		},
	}

	h := NewPostsHandler(store, &fakeJobEnqueuer{}, nil, cache.New(time.Minute))
	r := postsRouter(h, nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}

	if listCalls != 1 {
		t.Fatalf("expected 1 store hit with warm cache, got %d", listCalls)
	}
}

func TestListPosts_ETagRevalidation(t *testing.T) {
	store := &fakePostsStore{
		listFn: func(ctx context.Context, filters post.ListFilter, beforeCreatedAt time.Time, beforeID string) ([]post.Post, *string, bool, error) {
			return []post.Post{{ID: "p1", Title: "Hello", Status: post.StatusPublished}}, nil, false, nil
		},
	}

	h := NewPostsHandler(store, &fakeJobEnqueuer{}, nil, nil)
	r := postsRouter(h, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}
}

func TestListPosts_InvalidCursorRejected(t *testing.T) {
	h := NewPostsHandler(&fakePostsStore{}, &fakeJobEnqueuer{}, nil, nil)
	r := postsRouter(h, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/posts?cursor=%21%21not-base64", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad cursor, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid cursor") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestDeletePost_Owner(t *testing.T) {
	owner := author()
	deleted := []string{}

	store := &fakePostsStore{
		getFn: func(ctx context.Context, id string) (post.Post, error) {
			return post.Post{ID: id, AuthorID: owner.ID}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deleted = append(deleted, id)
			return nil
		},
	}

	h := NewPostsHandler(store, &fakeJobEnqueuer{}, nil, nil)
	r := postsRouter(h, &owner)

	req := httptest.NewRequest(http.MethodDelete, "/api/posts/p1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if len(deleted) != 1 || deleted[0] != "p1" {
		t.Fatalf("expected delete of p1, got %v", deleted)
	}
}
