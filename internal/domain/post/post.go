package post

import (
	"errors"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusPublished:
		return true
	default:
		return false
	}
}

var ErrNotFound = errors.New("post not found")

type Post struct {
	ID         string     `json:"id"`
	AuthorID   string     `json:"authorId"`
	Title      string     `json:"title"`
	Slug       string     `json:"slug"`
	Body       string     `json:"body"`
	Excerpt    string     `json:"excerpt,omitempty"`
	Status     Status     `json:"status"`
	CategoryID *string    `json:"categoryId,omitempty"`
	TagIDs     []string   `json:"tagIds,omitempty"`
	PublishAt  *time.Time `json:"publishAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Status     *Status
	AuthorID   *string
	CategoryID *string
	TagID      *string
	Query      *string
	Limit      int
	Offset     int
}

type CreatePostRequest struct {
	Title      string     `json:"title" binding:"required,min=3,max=160"`
	Body       string     `json:"body" binding:"required"`
	Excerpt    string     `json:"excerpt" binding:"omitempty,max=300"`
	Status     Status     `json:"status" binding:"omitempty,oneof=draft scheduled published"`
	CategoryID *string    `json:"categoryId" binding:"omitempty,uuid"`
	TagIDs     []string   `json:"tagIds" binding:"omitempty,dive,uuid"`
	PublishAt  *time.Time `json:"publishAt"`
}

// a full update payload; partial patches are not supported.
type UpdatePostRequest struct {
	Title      string     `json:"title" binding:"required,min=3,max=160"`
	Body       string     `json:"body" binding:"required"`
	Excerpt    string     `json:"excerpt" binding:"omitempty,max=300"`
	Status     Status     `json:"status" binding:"omitempty,oneof=draft scheduled published"`
	CategoryID *string    `json:"categoryId" binding:"omitempty,uuid"`
	TagIDs     []string   `json:"tagIds" binding:"omitempty,dive,uuid"`
	PublishAt  *time.Time `json:"publishAt"`
}
