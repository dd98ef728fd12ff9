package post

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

func NewFromCreateRequest(authorID string, req CreatePostRequest) Post {
	now := time.Now().UTC()

	status := req.Status
	if status == "" {
		status = StatusDraft
	}

	// a scheduled post with no publish time is just a draft
	if status == StatusScheduled && req.PublishAt == nil {
		status = StatusDraft
	}

	return Post{
		ID:         uuid.NewString(),
		AuthorID:   authorID,
		Title:      req.Title,
		Slug:       Slugify(req.Title),
		Body:       req.Body,
		Excerpt:    req.Excerpt,
		Status:     status,
		CategoryID: req.CategoryID,
		TagIDs:     req.TagIDs,
		PublishAt:  req.PublishAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Slugify lowercases the title and collapses everything that is not a
// letter or digit into single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen

	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.Trim(b.String(), "-")
}
