package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/domain/tag"
	"github.com/inkwell/inkwell/internal/repo/postgres"
)

type TagsStore interface {
	Create(ctx context.Context, req tag.UpsertTagRequest) (tag.Tag, error)
	List(ctx context.Context) ([]tag.Tag, error)
	Update(ctx context.Context, id string, req tag.UpsertTagRequest) (tag.Tag, error)
	Delete(ctx context.Context, id string) error
}

type TagsHandler struct {
	repo TagsStore
}

func NewTagsHandler(repo TagsStore) *TagsHandler {
	return &TagsHandler{repo: repo}
}

func (h *TagsHandler) CreateTag(ctx *gin.Context) {
	var req tag.UpsertTagRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	t, err := h.repo.Create(cctx, req)

	if err != nil {
		if errors.Is(err, postgres.ErrTagNameTaken) {
			RespondConflict(ctx, "name_taken", "A tag with that name already exists.")
			return
		}
		RespondInternal(ctx, "Could not create tag")
		return
	}

	ctx.JSON(http.StatusCreated, t)
}

func (h *TagsHandler) ListTags(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list tags")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *TagsHandler) UpdateTag(ctx *gin.Context) {
	id := ctx.Param("id")

	var req tag.UpsertTagRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	t, err := h.repo.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, postgres.ErrTagNameTaken) {
			RespondConflict(ctx, "name_taken", "A tag with that name already exists.")
			return
		}
		if errors.Is(err, tag.ErrNotFound) {
			RespondNotFound(ctx, "Tag not found")
			return
		}
		RespondInternal(ctx, "Could not update tag")
		return
	}

	ctx.JSON(http.StatusOK, t)
}

func (h *TagsHandler) DeleteTag(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		if errors.Is(err, tag.ErrNotFound) {
			RespondNotFound(ctx, "Tag not found")
			return
		}
		RespondInternal(ctx, "Could not delete tag")
		return
	}

	ctx.Status(http.StatusNoContent)
}
