package tag

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("tag not found")

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

type UpsertTagRequest struct {
	Name string `json:"name" binding:"required,min=1,max=50"`
}
