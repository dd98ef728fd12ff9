package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/domain/category"
	"github.com/inkwell/inkwell/internal/repo/postgres"
)

type CategoriesStore interface {
	Create(ctx context.Context, req category.UpsertCategoryRequest) (category.Category, error)
	List(ctx context.Context) ([]category.Category, error)
	Update(ctx context.Context, id string, req category.UpsertCategoryRequest) (category.Category, error)
	Delete(ctx context.Context, id string) error
}

type CategoriesHandler struct {
	repo CategoriesStore
}

func NewCategoriesHandler(repo CategoriesStore) *CategoriesHandler {
	return &CategoriesHandler{repo: repo}
}

func (h *CategoriesHandler) CreateCategory(ctx *gin.Context) {
	var req category.UpsertCategoryRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	c, err := h.repo.Create(cctx, req)

	if err != nil {
		if errors.Is(err, postgres.ErrCategoryNameTaken) {
			RespondConflict(ctx, "name_taken", "A category with that name already exists.")
			return
		}
		RespondInternal(ctx, "Could not create category")
		return
	}

	ctx.JSON(http.StatusCreated, c)
}

func (h *CategoriesHandler) ListCategories(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list categories")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *CategoriesHandler) UpdateCategory(ctx *gin.Context) {
	id := ctx.Param("id")

	var req category.UpsertCategoryRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	c, err := h.repo.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, category.ErrNotFound) {
			RespondNotFound(ctx, "Category not found")
			return
		}
		if errors.Is(err, postgres.ErrCategoryNameTaken) {
			RespondConflict(ctx, "name_taken", "A category with that name already exists.")
			return
		}
		RespondInternal(ctx, "Could not update category")
		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (h *CategoriesHandler) DeleteCategory(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		if errors.Is(err, category.ErrNotFound) {
			RespondNotFound(ctx, "Category not found")
			return
		}
		RespondInternal(ctx, "Could not delete category")
		return
	}

	ctx.Status(http.StatusNoContent)
}
