// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package post_test

import (
	"context"
	"sort"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillboard/quillboard/internal/account"
	"github.com/quillboard/quillboard/internal/post"
)

// fakePostRepo is an in-memory post.Repository.
type fakePostRepo struct {
	posts map[ulid.ULID]*post.Post
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[ulid.ULID]*post.Post)}
}

func (f *fakePostRepo) Create(_ context.Context, p *post.Post) error {
	pCopy := *p
	f.posts[p.ID] = &pCopy
	return nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id ulid.ULID) (*post.Post, error) {
	if p, ok := f.posts[id]; ok {
		pCopy := *p
		return &pCopy, nil
	}
	return nil, account.ErrNotFound
}

func (f *fakePostRepo) Update(_ context.Context, p *post.Post) error {
	if _, ok := f.posts[p.ID]; !ok {
		return account.ErrNotFound
	}
	pCopy := *p
	f.posts[p.ID] = &pCopy
	return nil
}

func (f *fakePostRepo) Delete(_ context.Context, id ulid.ULID) error {
	if _, ok := f.posts[id]; !ok {
		return account.ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) DeleteMany(_ context.Context, ids []ulid.ULID) error {
	for _, id := range ids {
		delete(f.posts, id)
	}
	return nil
}

func (f *fakePostRepo) collect(filter func(*post.Post) bool) []*post.Post {
	var out []*post.Post
	for _, p := range f.posts {
		if filter(p) {
			pCopy := *p
			out = append(out, &pCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func page(posts []*post.Post, skip, limit int) []*post.Post {
	if skip >= len(posts) {
		return nil
	}
	posts = posts[skip:]
	if limit < len(posts) {
		posts = posts[:limit]
	}
	return posts
}

func (f *fakePostRepo) ListPublished(_ context.Context, skip, limit int) ([]*post.Post, error) {
	return page(f.collect(func(p *post.Post) bool { return p.Status == post.StatusPublished }), skip, limit), nil
}

func (f *fakePostRepo) CountPublished(_ context.Context) (int64, error) {
	return int64(len(f.collect(func(p *post.Post) bool { return p.Status == post.StatusPublished }))), nil
}

func (f *fakePostRepo) List(_ context.Context, skip, limit int) ([]*post.Post, error) {
	return page(f.collect(func(*post.Post) bool { return true }), skip, limit), nil
}

func (f *fakePostRepo) Count(_ context.Context) (int64, error) {
	return int64(len(f.posts)), nil
}

func (f *fakePostRepo) ListByAuthor(_ context.Context, authorID ulid.ULID, skip, limit int) ([]*post.Post, error) {
	return page(f.collect(func(p *post.Post) bool { return p.AuthorID == authorID }), skip, limit), nil
}

func (f *fakePostRepo) CountByAuthor(_ context.Context, authorID ulid.ULID) (int64, error) {
	return int64(len(f.collect(func(p *post.Post) bool { return p.AuthorID == authorID }))), nil
}

func admin() account.Identity {
	return account.Identity{AccountID: ulid.Make(), Role: account.RoleAdmin}
}

func user(id ulid.ULID) account.Identity {
	return account.Identity{AccountID: id, Role: account.RoleUser}
}

func validParams(status post.Status) post.CreateParams {
	return post.CreateParams{
		Title:   "A Title",
		Excerpt: "An excerpt",
		Content: "Some content",
		Status:  status,
	}
}

func TestPostService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("author is the caller", func(t *testing.T) {
		repo := newFakePostRepo()
		svc, err := post.NewService(repo)
		require.NoError(t, err)

		caller := user(ulid.Make())
		p, err := svc.Create(ctx, caller, validParams(post.StatusDraft))
		require.NoError(t, err)
		assert.Equal(t, caller.AccountID, p.AuthorID)
	})

	t.Run("rejects invalid fields", func(t *testing.T) {
		repo := newFakePostRepo()
		svc, err := post.NewService(repo)
		require.NoError(t, err)

		params := validParams(post.StatusDraft)
		params.Title = "ab"
		_, err = svc.Create(ctx, user(ulid.Make()), params)
		assert.Error(t, err)
		assert.Empty(t, repo.posts)
	})

	t.Run("unauthenticated role is forbidden", func(t *testing.T) {
		repo := newFakePostRepo()
		svc, err := post.NewService(repo)
		require.NoError(t, err)

		caller := account.Identity{AccountID: ulid.Make(), Role: account.Role("")}
		_, err = svc.Create(ctx, caller, validParams(post.StatusDraft))
		assert.ErrorIs(t, err, account.ErrForbidden)
	})
}

func TestPostService_Update(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*post.Service, *fakePostRepo, account.Identity, *post.Post) {
		t.Helper()
		repo := newFakePostRepo()
		svc, err := post.NewService(repo)
		require.NoError(t, err)
		author := user(ulid.Make())
		p, err := svc.Create(ctx, author, validParams(post.StatusDraft))
		require.NoError(t, err)
		return svc, repo, author, p
	}

	t.Run("owner updates own post", func(t *testing.T) {
		svc, repo, author, p := setup(t)

		updated, err := svc.Update(ctx, author, p.ID, post.UpdateParams{
			Title:   "New Title",
			Excerpt: "New excerpt",
			Content: "New content",
			Status:  post.StatusPublished,
		})
		require.NoError(t, err)
		assert.Equal(t, "New Title", updated.Title)
		assert.Equal(t, post.StatusPublished, updated.Status)
		assert.Equal(t, post.StatusPublished, repo.posts[p.ID].Status)
	})

	t.Run("admin updates any post", func(t *testing.T) {
		svc, _, _, p := setup(t)

		_, err := svc.Update(ctx, admin(), p.ID, post.UpdateParams{
			Title:   "Edited",
			Excerpt: "Edited excerpt",
			Content: "Edited content",
			Status:  post.StatusDraft,
		})
		assert.NoError(t, err)
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		svc, _, _, p := setup(t)

		_, err := svc.Update(ctx, user(ulid.Make()), p.ID, post.UpdateParams{
			Title:   "Hijacked",
			Excerpt: "Hijacked excerpt",
			Content: "Hijacked content",
			Status:  post.StatusDraft,
		})
		assert.ErrorIs(t, err, account.ErrForbidden)
	})

	t.Run("unknown post fails", func(t *testing.T) {
		svc, _, author, _ := setup(t)

		_, err := svc.Update(ctx, author, ulid.Make(), post.UpdateParams{
			Title:   "New Title",
			Excerpt: "New excerpt",
			Content: "New content",
			Status:  post.StatusDraft,
		})
		assert.ErrorIs(t, err, account.ErrNotFound)
	})
}

func TestPostService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("owner deletes own post", func(t *testing.T) {
		repo := newFakePostRepo()
		svc, err := post.NewService(repo)
		require.NoError(t, err)
		author := user(ulid.Make())
		p, err := svc.Create(ctx, author, validParams(post.StatusDraft))
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, author, p.ID))
		assert.Empty(t, repo.posts)
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		repo := newFakePostRepo()
		svc, err := post.NewService(repo)
		require.NoError(t, err)
		p, err := svc.Create(ctx, user(ulid.Make()), validParams(post.StatusDraft))
		require.NoError(t, err)

		err = svc.Delete(ctx, user(ulid.Make()), p.ID)
		assert.ErrorIs(t, err, account.ErrForbidden)
	})

	t.Run("delete many is admin only", func(t *testing.T) {
		repo := newFakePostRepo()
		svc, err := post.NewService(repo)
		require.NoError(t, err)
		author := user(ulid.Make())
		p1, err := svc.Create(ctx, author, validParams(post.StatusDraft))
		require.NoError(t, err)
		p2, err := svc.Create(ctx, author, validParams(post.StatusPublished))
		require.NoError(t, err)

		err = svc.DeleteMany(ctx, author, []ulid.ULID{p1.ID, p2.ID})
		assert.ErrorIs(t, err, account.ErrForbidden)

		require.NoError(t, svc.DeleteMany(ctx, admin(), []ulid.ULID{p1.ID, p2.ID}))
		assert.Empty(t, repo.posts)
	})
}

func TestPostService_Listings(t *testing.T) {
	ctx := context.Background()

	repo := newFakePostRepo()
	svc, err := post.NewService(repo)
	require.NoError(t, err)

	alice := user(ulid.Make())
	bob := user(ulid.Make())

	_, err = svc.Create(ctx, alice, validParams(post.StatusPublished))
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, validParams(post.StatusDraft))
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, validParams(post.StatusPublished))
	require.NoError(t, err)

	t.Run("published listing is public", func(t *testing.T) {
		posts, err := svc.ListPublished(ctx, 1, 10)
		require.NoError(t, err)
		assert.Len(t, posts, 2)

		n, err := svc.CountPublished(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("published listing paginates", func(t *testing.T) {
		posts, err := svc.ListPublished(ctx, 2, 1)
		require.NoError(t, err)
		assert.Len(t, posts, 1)
	})

	t.Run("full listing is admin only", func(t *testing.T) {
		_, err := svc.List(ctx, alice, 0, 10)
		assert.ErrorIs(t, err, account.ErrForbidden)

		posts, err := svc.List(ctx, admin(), 0, 10)
		require.NoError(t, err)
		assert.Len(t, posts, 3)

		n, err := svc.Count(ctx, admin())
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("my posts lists only the caller's", func(t *testing.T) {
		posts, err := svc.ListMine(ctx, alice, 0, 10)
		require.NoError(t, err)
		assert.Len(t, posts, 2)

		n, err := svc.CountMine(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
