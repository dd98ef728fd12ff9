package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/inkwell/inkwell/internal/domain/user"
)

type fakeRoleUpdater struct {
	updateFn func(ctx context.Context, id string, role user.Role) (user.User, error)
}

func (f *fakeRoleUpdater) UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, role)
	}
	return user.User{}, user.ErrNotFound
}

func usersRouter(h *UsersHandler, admin *user.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	group := r.Group("/api/admin")
	if admin != nil {
		group.Use(asPrincipal(*admin))
	}
	group.PUT("/users/:id/role", h.UpdateRole)

	return r
}

func putRole(r *gin.Engine, id, role string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(gin.H{"role": role})
	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/"+id+"/role", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateRole_Promotion(t *testing.T) {
	var seenID string
	var seenRole user.Role

	store := &fakeRoleUpdater{
		updateFn: func(ctx context.Context, id string, role user.Role) (user.User, error) {
			seenID = id
			seenRole = role
			return user.User{ID: id, Email: "writer@example.com", Role: role}, nil
		},
	}

	admin := user.User{ID: uuid.NewString(), Email: "admin@example.com", Role: user.RoleAdmin}
	r := usersRouter(NewUsersHandler(store), &admin)

	w := putRole(r, "u1", "author")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if seenID != "u1" || seenRole != user.RoleAuthor {
		t.Fatalf("unexpected update: id=%s role=%s", seenID, seenRole)
	}
	if strings.Contains(w.Body.String(), "passwordHash") {
		t.Fatalf("response leaks password hash: %s", w.Body.String())
	}
}

func TestUpdateRole_UnknownRoleRejected(t *testing.T) {
	admin := user.User{ID: uuid.NewString(), Role: user.RoleAdmin}
	r := usersRouter(NewUsersHandler(&fakeRoleUpdater{}), &admin)

	w := putRole(r, "u1", "superuser")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", w.Code)
	}
}

func TestUpdateRole_UnknownUserIs404(t *testing.T) {
	admin := user.User{ID: uuid.NewString(), Role: user.RoleAdmin}
	r := usersRouter(NewUsersHandler(&fakeRoleUpdater{}), &admin)

	w := putRole(r, "missing", "author")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdateRole_SelfChangeRejected(t *testing.T) {
	admin := user.User{ID: uuid.NewString(), Email: "admin@example.com", Role: user.RoleAdmin}

	called := false
	store := &fakeRoleUpdater{
		updateFn: func(ctx context.Context, id string, role user.Role) (user.User, error) {
			called = true
			return user.User{ID: id, Role: role}, nil
		},
	}

	r := usersRouter(NewUsersHandler(store), &admin)

	w := putRole(r, admin.ID, "user")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for self role change, got %d", w.Code)
	}
	if called {
		t.Fatalf("store must not be touched on a rejected self change")
	}
}
