package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondJSONWithETag writes the payload with a content-hash ETag and
// answers conditional reads with 304. A payload that cannot be hashed is
// served without the header rather than failing the request.
func RespondJSONWithETag(ctx *gin.Context, status int, payload interface{}) {
	etag, err := contentETag(payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	ctx.Header("ETag", etag)

	if etagMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(status, payload)
}

func contentETag(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)

	return `"` + hex.EncodeToString(sum[:]) + `"`, nil
}

// etagMatches implements the If-None-Match comparison: a comma-separated
// candidate list, "*" matching anything, weak validators compared by value.
func etagMatches(headerValue, currentETag string) bool {
	header := strings.TrimSpace(headerValue)
	if header == "" || strings.TrimSpace(currentETag) == "" {
		return false
	}

	if header == "*" {
		return true
	}

	current := stripWeakPrefix(currentETag)

	for _, candidate := range strings.Split(header, ",") {
		if stripWeakPrefix(candidate) == current {
			return true
		}
	}

	return false
}

func stripWeakPrefix(raw string) string {
	v := strings.TrimSpace(raw)

	if strings.HasPrefix(v, "W/") {
		v = strings.TrimSpace(strings.TrimPrefix(v, "W/"))
	}

	return v
}
