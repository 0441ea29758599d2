// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

// Package postgres provides the PostgreSQL implementation of the post
// repository.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/quillboard/quillboard/internal/account"
	"github.com/quillboard/quillboard/internal/post"
)

// PostRepository implements post.Repository using PostgreSQL.
type PostRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository creates a new PostRepository.
func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

const postColumns = `
	p.id, p.author_id, p.title, p.excerpt, p.content, p.status,
	a.email, p.created_at, p.updated_at
`

// Create stores a new post.
func (r *PostRepository) Create(ctx context.Context, p *post.Post) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO posts (id, author_id, title, excerpt, content, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		p.ID.String(),
		p.AuthorID.String(),
		p.Title,
		p.Excerpt,
		p.Content,
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return oops.Code("POST_CREATE_FAILED").
			With("operation", "insert post").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a post with its author email joined.
func (r *PostRepository) GetByID(ctx context.Context, id ulid.ULID) (*post.Post, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN accounts a ON a.id = p.author_id
		WHERE p.id = $1
	`, id.String())

	p, err := r.scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("POST_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("POST_GET_FAILED").
			With("operation", "get post by id").
			With("id", id.String()).
			Wrap(err)
	}
	return p, nil
}

// Update replaces the mutable fields of an existing post.
func (r *PostRepository) Update(ctx context.Context, p *post.Post) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE posts SET
			title = $2,
			excerpt = $3,
			content = $4,
			status = $5,
			updated_at = $6
		WHERE id = $1
	`,
		p.ID.String(),
		p.Title,
		p.Excerpt,
		p.Content,
		string(p.Status),
		p.UpdatedAt,
	)
	if err != nil {
		return oops.Code("POST_UPDATE_FAILED").
			With("operation", "update post").
			With("id", p.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("POST_NOT_FOUND").
			With("id", p.ID.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// Delete removes a post by ID.
func (r *PostRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM posts WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("POST_DELETE_FAILED").
			With("operation", "delete post").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("POST_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// DeleteMany removes the posts with the given IDs. Missing IDs are ignored.
func (r *PostRepository) DeleteMany(ctx context.Context, ids []ulid.ULID) error {
	if len(ids) == 0 {
		return nil
	}

	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = id.String()
	}

	_, err := r.pool.Exec(ctx, `
		DELETE FROM posts WHERE id = ANY($1)
	`, idStrs)
	if err != nil {
		return oops.Code("POST_DELETE_MANY_FAILED").
			With("operation", "delete posts").
			With("count", len(ids)).
			Wrap(err)
	}
	return nil
}

// ListPublished returns published posts, newest first.
func (r *PostRepository) ListPublished(ctx context.Context, skip, limit int) ([]*post.Post, error) {
	return r.list(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN accounts a ON a.id = p.author_id
		WHERE p.status = 'published'
		ORDER BY p.created_at DESC
		OFFSET $1 LIMIT $2
	`, skip, limit)
}

// CountPublished returns the number of published posts.
func (r *PostRepository) CountPublished(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM posts WHERE status = 'published'`)
}

// List returns all posts, newest first.
func (r *PostRepository) List(ctx context.Context, skip, limit int) ([]*post.Post, error) {
	return r.list(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN accounts a ON a.id = p.author_id
		ORDER BY p.created_at DESC
		OFFSET $1 LIMIT $2
	`, skip, limit)
}

// Count returns the total number of posts.
func (r *PostRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM posts`)
}

// ListByAuthor returns an author's posts, newest first.
func (r *PostRepository) ListByAuthor(ctx context.Context, authorID ulid.ULID, skip, limit int) ([]*post.Post, error) {
	return r.list(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN accounts a ON a.id = p.author_id
		WHERE p.author_id = $3
		ORDER BY p.created_at DESC
		OFFSET $1 LIMIT $2
	`, skip, limit, authorID.String())
}

// CountByAuthor returns the number of posts by an author.
func (r *PostRepository) CountByAuthor(ctx context.Context, authorID ulid.ULID) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM posts WHERE author_id = $1`, authorID.String())
}

func (r *PostRepository) list(ctx context.Context, query string, args ...any) ([]*post.Post, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, oops.Code("POST_LIST_FAILED").
			With("operation", "list posts").
			Wrap(err)
	}
	defer rows.Close()

	var posts []*post.Post
	for rows.Next() {
		p, err := r.scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("POST_LIST_FAILED").
			With("operation", "iterate posts").
			Wrap(err)
	}
	return posts, nil
}

func (r *PostRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, oops.Code("POST_COUNT_FAILED").
			With("operation", "count posts").
			Wrap(err)
	}
	return n, nil
}

func (r *PostRepository) scanPost(row pgx.Row) (*post.Post, error) {
	var (
		idStr       string
		authorIDStr string
		title       string
		excerpt     string
		content     string
		statusStr   string
		authorEmail string
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(
		&idStr,
		&authorIDStr,
		&title,
		&excerpt,
		&content,
		&statusStr,
		&authorEmail,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("POST_SCAN_FAILED").
			With("operation", "scan post").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("POST_INVALID_ID").
			With("operation", "parse post id").
			With("id", idStr).
			Wrap(err)
	}
	authorID, err := ulid.Parse(authorIDStr)
	if err != nil {
		return nil, oops.Code("POST_INVALID_ID").
			With("operation", "parse author id").
			With("author_id", authorIDStr).
			Wrap(err)
	}

	return &post.Post{
		ID:          id,
		AuthorID:    authorID,
		Title:       title,
		Excerpt:     excerpt,
		Content:     content,
		Status:      post.Status(statusStr),
		AuthorEmail: authorEmail,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// Compile-time interface check.
var _ post.Repository = (*PostRepository)(nil)
