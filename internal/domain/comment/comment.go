package comment

import (
	"errors"
	"time"
)

// Status is the moderation state of a comment. New comments always land
// pending; only moderators move them elsewhere.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusSpam     Status = "spam"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSpam:
		return true
	default:
		return false
	}
}

var ErrNotFound = errors.New("comment not found")

type Comment struct {
	ID          string    `json:"id"`
	PostID      string    `json:"postId"`
	AuthorName  string    `json:"authorName"`
	AuthorEmail string    `json:"-"` // kept for notifications, not exposed
	Body        string    `json:"body"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Guests may comment, so author identity is free-form rather than a user id.
type CreateCommentRequest struct {
	AuthorName  string `json:"authorName" binding:"required,min=2,max=80"`
	AuthorEmail string `json:"authorEmail" binding:"required,email"`
	Body        string `json:"body" binding:"required,min=2,max=2000"`
}
