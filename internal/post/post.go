// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

// Package post implements blog post management: drafting, publishing, and
// the listings backing both the public site and the admin dashboard.
package post

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Status is the publication state of a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Valid returns true if the status is a recognized value.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Field length bounds.
const (
	MinTitleLength   = 3
	MaxTitleLength   = 255
	MinExcerptLength = 3
	MaxExcerptLength = 255
	MinContentLength = 3
)

// Post is a blog entry. AuthorEmail is populated on reads that join the
// author row; it is never written.
type Post struct {
	ID          ulid.ULID
	AuthorID    ulid.ULID
	Title       string
	Excerpt     string
	Content     string
	Status      Status
	AuthorEmail string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPost creates a validated Post instance.
func NewPost(authorID ulid.ULID, title, excerpt, content string, status Status) (*Post, error) {
	if authorID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("POST_INVALID_AUTHOR").Errorf("author ID cannot be zero")
	}
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	if err := ValidateExcerpt(excerpt); err != nil {
		return nil, err
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, oops.Code("POST_INVALID_STATUS").
			With("status", string(status)).
			Errorf("status must be draft or published")
	}

	now := time.Now()
	return &Post{
		ID:        ulid.Make(),
		AuthorID:  authorID,
		Title:     title,
		Excerpt:   excerpt,
		Content:   content,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateTitle checks post title length bounds.
func ValidateTitle(title string) error {
	if len(title) < MinTitleLength || len(title) > MaxTitleLength {
		return oops.Code("POST_INVALID_TITLE").
			With("length", len(title)).
			Errorf("title must be between %d and %d characters", MinTitleLength, MaxTitleLength)
	}
	return nil
}

// ValidateExcerpt checks post excerpt length bounds.
func ValidateExcerpt(excerpt string) error {
	if len(excerpt) < MinExcerptLength || len(excerpt) > MaxExcerptLength {
		return oops.Code("POST_INVALID_EXCERPT").
			With("length", len(excerpt)).
			Errorf("excerpt must be between %d and %d characters", MinExcerptLength, MaxExcerptLength)
	}
	return nil
}

// ValidateContent checks post content length.
func ValidateContent(content string) error {
	if len(content) < MinContentLength {
		return oops.Code("POST_INVALID_CONTENT").
			With("length", len(content)).
			Errorf("content must be at least %d characters", MinContentLength)
	}
	return nil
}

// Repository manages post persistence.
type Repository interface {
	// Create stores a new post.
	Create(ctx context.Context, p *Post) error

	// GetByID retrieves a post by ID, with the author email joined.
	// Returns ErrNotFound if no post matches.
	GetByID(ctx context.Context, id ulid.ULID) (*Post, error)

	// Update replaces the mutable fields of an existing post.
	// Returns ErrNotFound if no post matches.
	Update(ctx context.Context, p *Post) error

	// Delete removes a post by ID. Returns ErrNotFound if no post matches.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteMany removes the posts with the given IDs. Missing IDs are
	// ignored.
	DeleteMany(ctx context.Context, ids []ulid.ULID) error

	// ListPublished returns published posts ordered by creation time
	// descending.
	ListPublished(ctx context.Context, skip, limit int) ([]*Post, error)

	// CountPublished returns the number of published posts.
	CountPublished(ctx context.Context) (int64, error)

	// List returns all posts ordered by creation time descending.
	List(ctx context.Context, skip, limit int) ([]*Post, error)

	// Count returns the total number of posts.
	Count(ctx context.Context) (int64, error)

	// ListByAuthor returns an author's posts ordered by creation time
	// descending.
	ListByAuthor(ctx context.Context, authorID ulid.ULID, skip, limit int) ([]*Post, error)

	// CountByAuthor returns the number of posts by an author.
	CountByAuthor(ctx context.Context, authorID ulid.ULID) (int64, error)
}
