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
	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/repo/memory"
	"github.com/inkwell/inkwell/internal/security"

	"github.com/inkwell/inkwell/internal/domain/user"
)

func newAuthHandler(t *testing.T, users *memory.UsersRepo) *AuthHandler {
	t.Helper()

	jwtManager, err := auth.NewManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	return NewAuthHandler(users, jwtManager, config.Config{Env: "test", TokenTTLDays: 7})
}

func authRouter(h *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/auth/signup", h.SignUp)
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/logout", h.Logout)
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedUser(t *testing.T, users *memory.UsersRepo, email, password string) user.User {
	t.Helper()

	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	u, err := users.Create(context.Background(), email, hash, "Seed User", user.RoleUser)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	return u
}

func TestSignUp_CreatesUserAndReturnsToken(t *testing.T) {
	users := memory.NewUsersRepo()
	r := authRouter(newAuthHandler(t, users))

	w := postJSON(r, "/api/auth/signup", gin.H{
		"email":    "new@example.com",
		"password": "hunter2hunter2",
		"name":     "New User",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Token == "" {
		t.Fatalf("expected a token in the response")
	}
	if resp.User.Role != user.RoleUser {
		t.Fatalf("expected new signups to be role=user, got %s", resp.User.Role)
	}
	if strings.Contains(w.Body.String(), "passwordHash") {
		t.Fatalf("response leaks password hash: %s", w.Body.String())
	}

	if _, err := users.GetByEmail(context.Background(), "new@example.com"); err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
}

func TestSignUp_DuplicateEmailConflicts(t *testing.T) {
	users := memory.NewUsersRepo()
	seedUser(t, users, "taken@example.com", "irrelevant-pw")

	r := authRouter(newAuthHandler(t, users))

	w := postJSON(r, "/api/auth/signup", gin.H{
		"email":    "taken@example.com",
		"password": "hunter2hunter2",
		"name":     "Imposter",
	})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "email_taken") {
		t.Fatalf("expected email_taken code, got %s", w.Body.String())
	}
}

func TestSignUp_WeakPasswordRejected(t *testing.T) {
	users := memory.NewUsersRepo()
	r := authRouter(newAuthHandler(t, users))

	w := postJSON(r, "/api/auth/signup", gin.H{
		"email":    "short@example.com",
		"password": "short",
		"name":     "Shorty",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLogin_Success(t *testing.T) {
	users := memory.NewUsersRepo()
	seedUser(t, users, "reader@example.com", "correct-password")

	r := authRouter(newAuthHandler(t, users))

	w := postJSON(r, "/api/auth/login", gin.H{
		"email":    "reader@example.com",
		"password": "correct-password",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "token") {
		t.Fatalf("expected token in body")
	}

	foundCookie := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "auth_token" && c.Value != "" {
			foundCookie = true
			if !c.HttpOnly {
				t.Fatalf("auth cookie must be HttpOnly")
			}
		}
	}
	if !foundCookie {
		t.Fatalf("expected auth_token cookie to be set")
	}
}

// Unknown email and wrong password must be indistinguishable: same status,
// same code, same message.
func TestLogin_NoCredentialOracle(t *testing.T) {
	users := memory.NewUsersRepo()
	seedUser(t, users, "known@example.com", "correct-password")

	r := authRouter(newAuthHandler(t, users))

	unknown := postJSON(r, "/api/auth/login", gin.H{
		"email":    "nobody@example.com",
		"password": "whatever-password",
	})
	wrongPw := postJSON(r, "/api/auth/login", gin.H{
		"email":    "known@example.com",
		"password": "wrong-password",
	})

	if unknown.Code != http.StatusUnauthorized || wrongPw.Code != http.StatusUnauthorized {
		t.Fatalf("expected both 401, got %d and %d", unknown.Code, wrongPw.Code)
	}

	if unknown.Body.String() != wrongPw.Body.String() {
		t.Fatalf("response bodies differ:\n%s\n%s", unknown.Body.String(), wrongPw.Body.String())
	}

	if !strings.Contains(unknown.Body.String(), "invalid_credentials") {
		t.Fatalf("expected invalid_credentials code, got %s", unknown.Body.String())
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	users := memory.NewUsersRepo()
	r := authRouter(newAuthHandler(t, users))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "auth_token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected auth_token cookie to be cleared")
	}
}
