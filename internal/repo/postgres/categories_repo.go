package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell/inkwell/internal/domain/category"
	"github.com/inkwell/inkwell/internal/domain/post"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCategoryNameTaken = errors.New("category name already in use")

type CategoriesRepo struct {
	pool *pgxpool.Pool
}

func NewCategoriesRepo(pool *pgxpool.Pool) *CategoriesRepo {
	return &CategoriesRepo{pool: pool}
}

func (r *CategoriesRepo) Create(ctx context.Context, req category.UpsertCategoryRequest) (category.Category, error) {
	now := time.Now().UTC()

	c := category.Category{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Slug:      post.Slugify(req.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories(id, name, slug, created_at, updated_at) VALUES($1,$2,$3,$4,$5)`,
		c.ID, c.Name, c.Slug, c.CreatedAt, c.UpdatedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			return category.Category{}, ErrCategoryNameTaken
		}
		return category.Category{}, err
	}

	return c, nil
}

func (r *CategoriesRepo) List(ctx context.Context) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]category.Category, 0)

	for rows.Next() {
		var c category.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

func (r *CategoriesRepo) Update(ctx context.Context, id string, req category.UpsertCategoryRequest) (category.Category, error) {
	var c category.Category

	err := r.pool.QueryRow(ctx,
		`UPDATE categories
			SET name = $2,
					slug = $3,
					updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, slug, created_at, updated_at`,
		id, req.Name, post.Slugify(req.Name),
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return category.Category{}, category.ErrNotFound
		}
		if IsUniqueViolation(err) {
			return category.Category{}, ErrCategoryNameTaken
		}
		return category.Category{}, err
	}

	return c, nil
}

func (r *CategoriesRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return category.ErrNotFound
	}

	return nil
}
