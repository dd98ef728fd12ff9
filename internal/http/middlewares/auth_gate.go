package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/domain/user"
	"github.com/inkwell/inkwell/internal/observability"
)

// Keep these interfaces small so tests can fake them easily.

type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

type PrincipalLoader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

// AuthGate wraps protected handlers with authentication and optional
// role-based authorization. It is the authority boundary: a handler behind
// the gate may trust the principal it receives for the whole request.
type AuthGate struct {
	jwt   TokenVerifier
	users PrincipalLoader
	prom  *observability.Prom
	log   *slog.Logger
}

func NewAuthGate(jwt TokenVerifier, users PrincipalLoader, prom *observability.Prom, log *slog.Logger) *AuthGate {
	if log == nil {
		log = slog.Default()
	}
	return &AuthGate{jwt: jwt, users: users, prom: prom, log: log}
}

// Require authenticates the request and, when allowed roles are given,
// authorizes against the principal's CURRENT role. The principal is always
// re-fetched: trusting the token's embedded role would let a demoted user
// keep elevated access until token expiry.
func (g *AuthGate) Require(allowed ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			g.count("missing")
			abortUnauthorized(c, "authentication_missing", "Missing or invalid Authorization header")
			return
		}

		principal, ok := g.resolvePrincipal(c, authHeader)
		if !ok {
			return
		}

		if len(allowed) > 0 && !principal.Role.In(allowed...) {
			g.count("forbidden")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "You do not have permission to perform this action",
				},
			})
			return
		}

		g.count("ok")

		// Stash the freshly loaded principal on the context
		SetPrincipal(c, principal)

		c.Next()
	}
}

// Optional resolves a principal when a bearer token is presented and passes
// anonymous requests through untouched. Presented-but-bad credentials still
// fail the request: silently downgrading a signed-in caller to anonymous
// would hide their own unpublished content behind 404s. Public read routes
// use this so visibility rules can distinguish callers.
func (g *AuthGate) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.Next()
			return
		}

		principal, ok := g.resolvePrincipal(c, authHeader)
		if !ok {
			return
		}

		g.count("ok")
		SetPrincipal(c, principal)

		c.Next()
	}
}

// resolvePrincipal verifies the bearer token and re-fetches the principal.
// On failure it writes the error response and reports !ok.
func (g *AuthGate) resolvePrincipal(c *gin.Context, authHeader string) (user.User, bool) {
	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if raw == "" {
		g.count("missing")
		abortUnauthorized(c, "authentication_missing", "Missing or invalid bearer token")
		return user.User{}, false
	}

	claims, err := g.jwt.VerifyToken(raw)
	if err != nil {
		g.count("invalid")
		g.log.DebugContext(c.Request.Context(), "token rejected", "err", err)
		abortUnauthorized(c, "authentication_invalid", "Invalid or expired token")
		return user.User{}, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	principal, err := g.users.GetByID(ctx, claims.UserID)
	cancel()

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// deleted since issuance; same response as a bad token
			g.count("invalid")
			g.log.InfoContext(c.Request.Context(), "token for unknown principal", "user_id", claims.UserID)
			abortUnauthorized(c, "authentication_invalid", "Invalid or expired token")
			return user.User{}, false
		}

		// infrastructure failure is NOT an auth failure: clients must
		// not prompt a re-login because the database blinked
		g.count("error")
		g.log.ErrorContext(c.Request.Context(), "principal lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "internal_error",
				"message": "Could not authenticate request",
			},
		})
		return user.User{}, false
	}

	return principal, true
}

func (g *AuthGate) count(outcome string) {
	if g.prom != nil {
		g.prom.AuthChecksTotal.WithLabelValues(outcome).Inc()
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// Helpers so handlers don't need to know the magic keys.

// SetPrincipal records the authenticated user on the request context.
// Handler tests use it to stand in for a passed gate.
func SetPrincipal(c *gin.Context, u user.User) {
	c.Set(ctxPrincipalKey, u)
	c.Set(ctxUserIDKey, u.ID)
	c.Set(ctxEmailKey, u.Email)
	c.Set(ctxRoleKey, string(u.Role))
}

func PrincipalFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxPrincipalKey)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func RoleFromContext(c *gin.Context) (user.Role, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return user.Role(role), ok
}
