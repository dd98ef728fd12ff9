package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Path prefixes that require a signed-in session before the page renders.
var guardedPrefixes = []string{
	"/dashboard",
	"/admin",
	"/profile",
	"/settings",
}

// RouteGuard is the coarse first line for browser page routes: it checks
// that the auth cookie holds a token that still verifies and bounces
// anonymous or stale visitors to the sign-in page with a return path.
// Signature and expiry only; no DB round trip and no role check. The API
// gate behind the page does the authoritative check, so a token that
// verifies here but belongs to a deleted user buys nothing but a rendered
// shell full of failed fetches.
func RouteGuard(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if strings.HasPrefix(path, "/api") ||
			strings.HasPrefix(path, "/static") ||
			path == "/favicon.ico" {
			c.Next()
			return
		}

		if !isGuardedPath(path) {
			c.Next()
			return
		}

		cookie, err := c.Cookie("auth_token")
		if err != nil || cookie == "" {
			redirectToSignIn(c, path)
			return
		}

		if _, err := verifier.VerifyToken(cookie); err != nil {
			redirectToSignIn(c, path)
			return
		}

		c.Next()
	}
}

func redirectToSignIn(c *gin.Context, path string) {
	c.Redirect(http.StatusSeeOther, "/signin?from="+path)
	c.Abort()
}

func isGuardedPath(path string) bool {
	for _, prefix := range guardedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
