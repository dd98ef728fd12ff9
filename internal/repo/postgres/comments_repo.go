package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell/inkwell/internal/domain/comment"
	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CommentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCommentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *CommentsRepo {
	return &CommentsRepo{pool: pool, prom: prom}
}

func (r *CommentsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const commentColumns = `id, post_id, author_name, author_email, body, status, created_at, updated_at`

func scanComment(row pgx.Row) (comment.Comment, error) {
	var c comment.Comment

	err := row.Scan(
		&c.ID,
		&c.PostID,
		&c.AuthorName,
		&c.AuthorEmail,
		&c.Body,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return comment.Comment{}, comment.ErrNotFound
		}
		return comment.Comment{}, err
	}
	return c, nil
}

// Create inserts a new comment in pending state.
func (r *CommentsRepo) Create(ctx context.Context, postID string, req comment.CreateCommentRequest) (comment.Comment, error) {
	now := time.Now().UTC()

	c := comment.Comment{
		ID:          uuid.NewString(),
		PostID:      postID,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Body:        req.Body,
		Status:      comment.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.observe("comments.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO comments(id, post_id, author_name, author_email, body, status, created_at, updated_at)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			c.ID, c.PostID, c.AuthorName, c.AuthorEmail, c.Body, string(c.Status), c.CreatedAt, c.UpdatedAt)
		return err
	})

	if err != nil {
		return comment.Comment{}, err
	}

	return c, nil
}

func (r *CommentsRepo) GetByID(ctx context.Context, id string) (comment.Comment, error) {
	var c comment.Comment

	err := r.observe("comments.get", func() error {
		var err error
		c, err = scanComment(r.pool.QueryRow(ctx,
			`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
		return err
	})

	if err != nil {
		return comment.Comment{}, err
	}

	return c, nil
}

// ListForPost pages approved comments for a post, oldest first.
func (r *CommentsRepo) ListForPost(ctx context.Context, postID string, afterCreatedAt time.Time, afterID string, limit int) ([]comment.Comment, *string, bool, error) {
	var output []comment.Comment

	err := r.observe("comments.list_for_post", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+commentColumns+`
			 FROM comments
			 WHERE post_id = $1
			   AND status = 'approved'
			   AND (created_at, id) > ($2, $3)
			 ORDER BY created_at ASC, id ASC
			 LIMIT $4`,
			postID, afterCreatedAt, afterID, limit+1)
		if err != nil {
			return err
		}
		defer rows.Close()

		output = make([]comment.Comment, 0, limit)

		for rows.Next() {
			c, err := scanComment(rows)
			if err != nil {
				return err
			}
			output = append(output, c)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, nil, false, err
	}

	hasMore := len(output) > limit
	if hasMore {
		output = output[:limit]
	}

	var next *string

	if hasMore && len(output) > 0 {
		last := output[len(output)-1]
		cur, err := utils.EncodeCommentCursor(last.CreatedAt, last.ID)
		if err != nil {
			return nil, nil, false, err
		}
		next = &cur
	}

	return output, next, hasMore, nil
}

// ListByStatus backs the moderation queue.
func (r *CommentsRepo) ListByStatus(ctx context.Context, status comment.Status, limit, offset int) ([]comment.Comment, int, error) {
	var output []comment.Comment
	total := 0

	err := r.observe("comments.list_by_status", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+commentColumns+`, COUNT(*) OVER() AS total
			 FROM comments
			 WHERE status = $1
			 ORDER BY created_at ASC, id ASC
			 LIMIT $2 OFFSET $3`,
			string(status), limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		output = make([]comment.Comment, 0, limit)

		for rows.Next() {
			var c comment.Comment
			var t int

			err = rows.Scan(&c.ID, &c.PostID, &c.AuthorName, &c.AuthorEmail, &c.Body, &c.Status, &c.CreatedAt, &c.UpdatedAt, &t)
			if err != nil {
				return err
			}

			total = t
			output = append(output, c)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

// SetStatus moves a comment through moderation.
func (r *CommentsRepo) SetStatus(ctx context.Context, id string, status comment.Status) (comment.Comment, error) {
	var c comment.Comment

	err := r.observe("comments.set_status", func() error {
		var err error
		c, err = scanComment(r.pool.QueryRow(ctx,
			`UPDATE comments
				SET status = $2,
						updated_at = NOW()
			WHERE id = $1
			RETURNING `+commentColumns,
			id, string(status)))
		return err
	})

	if err != nil {
		return comment.Comment{}, err
	}

	return c, nil
}

func (r *CommentsRepo) CountByStatus(ctx context.Context) (map[comment.Status]int, error) {
	out := make(map[comment.Status]int)

	err := r.observe("comments.count_by_status", func() error {
		rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM comments GROUP BY status`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s comment.Status
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
