package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell/inkwell/internal/domain/post"
	"github.com/inkwell/inkwell/internal/domain/tag"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTagNameTaken = errors.New("tag name already in use")

type TagsRepo struct {
	pool *pgxpool.Pool
}

func NewTagsRepo(pool *pgxpool.Pool) *TagsRepo {
	return &TagsRepo{pool: pool}
}

func (r *TagsRepo) Create(ctx context.Context, req tag.UpsertTagRequest) (tag.Tag, error) {
	t := tag.Tag{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Slug:      post.Slugify(req.Name),
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO tags(id, name, slug, created_at) VALUES($1,$2,$3,$4)`,
		t.ID, t.Name, t.Slug, t.CreatedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			return tag.Tag{}, ErrTagNameTaken
		}
		return tag.Tag{}, err
	}

	return t, nil
}

func (r *TagsRepo) List(ctx context.Context) ([]tag.Tag, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, slug, created_at FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]tag.Tag, 0)

	for rows.Next() {
		var t tag.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	return out, rows.Err()
}

// Update renames a tag; the slug follows the new name.
func (r *TagsRepo) Update(ctx context.Context, id string, req tag.UpsertTagRequest) (tag.Tag, error) {
	var t tag.Tag

	err := r.pool.QueryRow(ctx,
		`UPDATE tags SET name = $2, slug = $3 WHERE id = $1
		 RETURNING id, name, slug, created_at`,
		id, req.Name, post.Slugify(req.Name)).
		Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			return tag.Tag{}, ErrTagNameTaken
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return tag.Tag{}, tag.ErrNotFound
		}
		return tag.Tag{}, err
	}

	return t, nil
}

func (r *TagsRepo) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)

	if err != nil {
		return err
	}

	if cmdTag.RowsAffected() == 0 {
		return tag.ErrNotFound
	}

	return nil
}
