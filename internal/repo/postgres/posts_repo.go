package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inkwell/inkwell/internal/domain/post"
	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPostsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PostsRepo {
	return &PostsRepo{pool: pool, prom: prom}
}

func (r *PostsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const postColumns = `id, author_id, title, slug, body, excerpt, status, category_id, publish_at, created_at, updated_at`

func scanPost(row pgx.Row) (post.Post, error) {
	var p post.Post

	err := row.Scan(
		&p.ID,
		&p.AuthorID,
		&p.Title,
		&p.Slug,
		&p.Body,
		&p.Excerpt,
		&p.Status,
		&p.CategoryID,
		&p.PublishAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}
		return post.Post{}, err
	}
	return p, nil
}

func (r *PostsRepo) Create(ctx context.Context, authorID string, req post.CreatePostRequest) (post.Post, error) {
	p := post.NewFromCreateRequest(authorID, req)

	err := r.observe("posts.create", func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		_, err = tx.Exec(ctx,
			`INSERT INTO posts(id, author_id, title, slug, body, excerpt, status, category_id, publish_at, created_at, updated_at)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			p.ID, p.AuthorID, p.Title, p.Slug, p.Body, p.Excerpt, string(p.Status), p.CategoryID, p.PublishAt, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return err
		}

		if err := replaceTags(ctx, tx, p.ID, p.TagIDs); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})

	if err != nil {
		return post.Post{}, err
	}

	return p, nil
}

// ListCursor pages published-first listings by (created_at, id) descending.
func (r *PostsRepo) ListCursor(ctx context.Context, filters post.ListFilter, beforeCreatedAt time.Time, beforeID string) ([]post.Post, *string, bool, error) {
	baseQuery := `SELECT ` + postColumns + ` FROM posts`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filters.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
		args = append(args, string(*filters.Status))
		argsPosition++
	}

	if filters.AuthorID != nil {
		conds = append(conds, fmt.Sprintf("author_id = $%d", argsPosition))
		args = append(args, *filters.AuthorID)
		argsPosition++
	}

	if filters.CategoryID != nil {
		conds = append(conds, fmt.Sprintf("category_id = $%d", argsPosition))
		args = append(args, *filters.CategoryID)
		argsPosition++
	}

	if filters.TagID != nil {
		conds = append(conds, fmt.Sprintf("id IN (SELECT post_id FROM post_tags WHERE tag_id = $%d)", argsPosition))
		args = append(args, *filters.TagID)
		argsPosition++
	}

	if filters.Query != nil {
		conds = append(conds, fmt.Sprintf("(title ILIKE '%%' || $%d || '%%' OR body ILIKE '%%' || $%d || '%%')", argsPosition, argsPosition))
		args = append(args, *filters.Query)
		argsPosition++
	}

	// keyset condition
	conds = append(conds, fmt.Sprintf("(created_at, id) < ($%d, $%d)", argsPosition, argsPosition+1))
	args = append(args, beforeCreatedAt, beforeID)
	argsPosition += 2

	query := baseQuery + " WHERE " + strings.Join(conds, " AND ")

	// stable ordering for pagination; fetch one extra row to detect more pages
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argsPosition)
	args = append(args, filters.Limit+1)

	var output []post.Post

	err := r.observe("posts.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		output = make([]post.Post, 0, filters.Limit)

		for rows.Next() {
			p, err := scanPost(rows)
			if err != nil {
				return err
			}
			output = append(output, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, nil, false, err
	}

	hasMore := len(output) > filters.Limit
	if hasMore {
		output = output[:filters.Limit]
	}

	var next *string

	if hasMore && len(output) > 0 {
		last := output[len(output)-1]
		cur, err := utils.EncodePostCursor(last.CreatedAt, last.ID)
		if err != nil {
			return nil, nil, false, err
		}
		next = &cur
	}

	return output, next, hasMore, nil
}

func (r *PostsRepo) GetByID(ctx context.Context, id string) (post.Post, error) {
	var p post.Post

	err := r.observe("posts.get", func() error {
		var err error
		p, err = scanPost(r.pool.QueryRow(ctx,
			`SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
		if err != nil {
			return err
		}

		p.TagIDs, err = tagsFor(ctx, r.pool, id)
		return err
	})

	if err != nil {
		return post.Post{}, err
	}

	return p, nil
}

func (r *PostsRepo) Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error) {
	var p post.Post

	err := r.observe("posts.update", func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		p, err = scanPost(tx.QueryRow(ctx,
			`UPDATE posts
				SET title = $2,
						slug = $3,
						body = $4,
						excerpt = $5,
						status = $6,
						category_id = $7,
						publish_at = $8,
						updated_at = NOW()
			WHERE id = $1
			RETURNING `+postColumns,
			id,
			req.Title,
			post.Slugify(req.Title),
			req.Body,
			req.Excerpt,
			string(req.Status),
			req.CategoryID,
			req.PublishAt,
		))
		if err != nil {
			return err
		}

		if err := replaceTags(ctx, tx, id, req.TagIDs); err != nil {
			return err
		}
		p.TagIDs = req.TagIDs

		return tx.Commit(ctx)
	})

	if err != nil {
		return post.Post{}, err
	}

	return p, nil
}

func (r *PostsRepo) Delete(ctx context.Context, id string) error {
	return r.observe("posts.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)

		if err != nil {
			return err
		}

		// if no rows were deleted as a result return a not found error
		if tag.RowsAffected() == 0 {
			return post.ErrNotFound
		}

		return nil
	})
}

// Publish flips a scheduled post whose publish time is due. Called by the
// worker; a no-op when someone already published or deleted it.
func (r *PostsRepo) Publish(ctx context.Context, id string) (bool, error) {
	var published bool

	err := r.observe("posts.publish", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE posts
				SET status = 'published',
						updated_at = NOW()
			WHERE id = $1
				AND status = 'scheduled'
				AND publish_at <= NOW()`,
			id)
		if err != nil {
			return err
		}

		published = tag.RowsAffected() > 0
		return nil
	})

	return published, err
}

// CountByStatus feeds the analytics dashboard.
func (r *PostsRepo) CountByStatus(ctx context.Context) (map[post.Status]int, error) {
	out := make(map[post.Status]int)

	err := r.observe("posts.count_by_status", func() error {
		rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM posts GROUP BY status`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s post.Status
			var n int
			if err := rows.Scan(&s, &n); err != nil {
				return err
			}
			out[s] = n
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func replaceTags(ctx context.Context, tx pgx.Tx, postID string, tagIDs []string) error {
	_, err := tx.Exec(ctx, `DELETE FROM post_tags WHERE post_id = $1`, postID)
	if err != nil {
		return err
	}

	for _, tagID := range tagIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO post_tags(post_id, tag_id) VALUES($1,$2)`,
			postID, tagID)
		if err != nil {
			return err
		}
	}

	return nil
}

func tagsFor(ctx context.Context, pool *pgxpool.Pool, postID string) ([]string, error) {
	rows, err := pool.Query(ctx,
		`SELECT tag_id FROM post_tags WHERE post_id = $1 ORDER BY tag_id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}

	return out, rows.Err()
}
