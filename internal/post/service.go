// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package post

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/quillboard/quillboard/internal/account"
	"github.com/quillboard/quillboard/internal/observability"
)

// Service implements post management operations. Callers are identified by
// an account.Identity resolved upstream; admins may act on any post, other
// roles only on their own.
type Service struct {
	posts  Repository
	logger *slog.Logger
}

// NewService creates a new post Service.
func NewService(posts Repository) (*Service, error) {
	return NewServiceWithLogger(posts, slog.Default())
}

// NewServiceWithLogger creates a new post Service with a custom logger.
func NewServiceWithLogger(posts Repository, logger *slog.Logger) (*Service, error) {
	if posts == nil {
		return nil, oops.Code("POST_SERVICE_INVALID").Errorf("post repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{posts: posts, logger: logger}, nil
}

// CreateParams holds the fields for creating a post.
type CreateParams struct {
	Title   string
	Excerpt string
	Content string
	Status  Status
}

// Create stores a new post authored by the caller. Any authenticated role
// may create posts.
func (s *Service) Create(ctx context.Context, caller account.Identity, params CreateParams) (*Post, error) {
	if err := caller.Require(account.RoleAdmin, account.RoleUser); err != nil {
		return nil, err
	}

	p, err := NewPost(caller.AccountID, params.Title, params.Excerpt, params.Content, params.Status)
	if err != nil {
		return nil, err
	}

	if err := s.posts.Create(ctx, p); err != nil {
		return nil, oops.Code("POST_CREATE_FAILED").
			With("operation", "create post").
			Wrap(err)
	}

	if p.Status == StatusPublished {
		observability.RecordPostPublished()
	}

	s.logger.InfoContext(ctx, "post created",
		slog.String("post_id", p.ID.String()),
		slog.String("author_id", p.AuthorID.String()),
		slog.String("status", string(p.Status)))

	return p, nil
}

// UpdateParams holds the fields for updating a post. All fields replace the
// stored values.
type UpdateParams struct {
	Title   string
	Excerpt string
	Content string
	Status  Status
}

// Update replaces the mutable fields of a post. Admins may update any post;
// other roles only their own.
func (s *Service) Update(ctx context.Context, caller account.Identity, id ulid.ULID, params UpdateParams) (*Post, error) {
	p, err := s.authorize(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if err := ValidateTitle(params.Title); err != nil {
		return nil, err
	}
	if err := ValidateExcerpt(params.Excerpt); err != nil {
		return nil, err
	}
	if err := ValidateContent(params.Content); err != nil {
		return nil, err
	}
	if !params.Status.Valid() {
		return nil, oops.Code("POST_INVALID_STATUS").
			With("status", string(params.Status)).
			Errorf("status must be draft or published")
	}

	published := p.Status != StatusPublished && params.Status == StatusPublished

	p.Title = params.Title
	p.Excerpt = params.Excerpt
	p.Content = params.Content
	p.Status = params.Status
	p.UpdatedAt = time.Now()

	if err := s.posts.Update(ctx, p); err != nil {
		return nil, oops.Code("POST_UPDATE_FAILED").
			With("operation", "update post").
			With("post_id", id.String()).
			Wrap(err)
	}

	if published {
		observability.RecordPostPublished()
	}

	return p, nil
}

// Delete removes a post. Admins may delete any post; other roles only their
// own.
func (s *Service) Delete(ctx context.Context, caller account.Identity, id ulid.ULID) error {
	if _, err := s.authorize(ctx, caller, id); err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return oops.Code("POST_DELETE_FAILED").
			With("operation", "delete post").
			With("post_id", id.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "post deleted",
		slog.String("post_id", id.String()),
		slog.String("caller_id", caller.AccountID.String()))

	return nil
}

// DeleteMany removes a batch of posts. Admin only.
func (s *Service) DeleteMany(ctx context.Context, caller account.Identity, ids []ulid.ULID) error {
	if err := caller.Require(account.RoleAdmin); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if err := s.posts.DeleteMany(ctx, ids); err != nil {
		return oops.Code("POST_DELETE_MANY_FAILED").
			With("operation", "delete posts").
			With("count", len(ids)).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "posts deleted",
		slog.Int("count", len(ids)),
		slog.String("caller_id", caller.AccountID.String()))

	return nil
}

// Get retrieves a post by ID. Public.
func (s *Service) Get(ctx context.Context, id ulid.ULID) (*Post, error) {
	return s.posts.GetByID(ctx, id)
}

// ListPublished returns a page of published posts for the public site.
// page is 1-based.
func (s *Service) ListPublished(ctx context.Context, page, perPage int) ([]*Post, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	return s.posts.ListPublished(ctx, (page-1)*perPage, perPage)
}

// CountPublished returns the number of published posts. Public.
func (s *Service) CountPublished(ctx context.Context) (int64, error) {
	return s.posts.CountPublished(ctx)
}

// List returns all posts for the admin table. Admin only.
func (s *Service) List(ctx context.Context, caller account.Identity, skip, limit int) ([]*Post, error) {
	if err := caller.Require(account.RoleAdmin); err != nil {
		return nil, err
	}
	return s.posts.List(ctx, skip, limit)
}

// Count returns the total number of posts. Admin only.
func (s *Service) Count(ctx context.Context, caller account.Identity) (int64, error) {
	if err := caller.Require(account.RoleAdmin); err != nil {
		return 0, err
	}
	return s.posts.Count(ctx)
}

// ListMine returns the caller's own posts for the dashboard.
func (s *Service) ListMine(ctx context.Context, caller account.Identity, skip, limit int) ([]*Post, error) {
	if err := caller.Require(account.RoleAdmin, account.RoleUser); err != nil {
		return nil, err
	}
	return s.posts.ListByAuthor(ctx, caller.AccountID, skip, limit)
}

// CountMine returns the number of posts authored by the caller.
func (s *Service) CountMine(ctx context.Context, caller account.Identity) (int64, error) {
	if err := caller.Require(account.RoleAdmin, account.RoleUser); err != nil {
		return 0, err
	}
	return s.posts.CountByAuthor(ctx, caller.AccountID)
}

// authorize loads a post and checks the caller may modify it. Admins pass
// for any post, other roles only when they authored it.
func (s *Service) authorize(ctx context.Context, caller account.Identity, id ulid.ULID) (*Post, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if caller.Role != account.RoleAdmin && p.AuthorID.Compare(caller.AccountID) != 0 {
		return nil, oops.Code("POST_FORBIDDEN").
			With("post_id", id.String()).
			With("caller_id", caller.AccountID.String()).
			Wrap(account.ErrForbidden)
	}
	return p, nil
}
