// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillboard/quillboard/internal/account"
	"github.com/quillboard/quillboard/internal/account/postgres"
)

// createTestAccount creates an account row and registers cleanup.
func createTestAccount(ctx context.Context, t *testing.T, role account.Role) *account.Account {
	t.Helper()

	email := fmt.Sprintf("user_%s@example.com", ulid.Make().String())
	acct, err := account.NewAccount(email, "$argon2id$testhash", false, nil, role)
	require.NoError(t, err)

	repo := postgres.NewAccountRepository(testPool)
	require.NoError(t, repo.Create(ctx, acct))

	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, acct.ID.String())
	})

	return acct
}

func TestAccountRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	t.Run("create and get by id", func(t *testing.T) {
		acct := createTestAccount(ctx, t, account.RoleUser)

		got, err := repo.GetByID(ctx, acct.ID)
		require.NoError(t, err)
		assert.Equal(t, acct.Email, got.Email)
		assert.Equal(t, acct.Role, got.Role)
		assert.False(t, got.EmailVerified)
	})

	t.Run("get by email is case-insensitive", func(t *testing.T) {
		acct := createTestAccount(ctx, t, account.RoleUser)

		got, err := repo.GetByEmail(ctx, strings.ToUpper(acct.Email))
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
	})

	t.Run("duplicate email fails with ErrAlreadyExists", func(t *testing.T) {
		acct := createTestAccount(ctx, t, account.RoleUser)

		dup, err := account.NewAccount(acct.Email, "$argon2id$otherhash", false, nil, account.RoleUser)
		require.NoError(t, err)

		err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, account.ErrAlreadyExists)
	})

	t.Run("duplicate email differing only in case fails", func(t *testing.T) {
		acct := createTestAccount(ctx, t, account.RoleUser)

		dup, err := account.NewAccount(strings.ToUpper(acct.Email), "$argon2id$otherhash", false, nil, account.RoleUser)
		require.NoError(t, err)

		err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, account.ErrAlreadyExists)
	})

	t.Run("get unknown id fails with ErrNotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, ulid.Make())
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("update replaces mutable fields", func(t *testing.T) {
		acct := createTestAccount(ctx, t, account.RoleUser)

		avatar := "https://cdn.example.com/a.png"
		acct.Avatar = &avatar
		acct.EmailVerified = true
		acct.Role = account.RoleAdmin
		require.NoError(t, repo.Update(ctx, acct))

		got, err := repo.GetByID(ctx, acct.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Avatar)
		assert.Equal(t, avatar, *got.Avatar)
		assert.True(t, got.EmailVerified)
		assert.Equal(t, account.RoleAdmin, got.Role)
	})

	t.Run("update unknown account fails with ErrNotFound", func(t *testing.T) {
		ghost, err := account.NewAccount("ghost@example.com", "$argon2id$hash", false, nil, account.RoleUser)
		require.NoError(t, err)

		err = repo.Update(ctx, ghost)
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("update email sets address and flag", func(t *testing.T) {
		acct := createTestAccount(ctx, t, account.RoleUser)

		newEmail := fmt.Sprintf("changed_%s@example.com", acct.ID.String())
		require.NoError(t, repo.UpdateEmail(ctx, acct.ID, newEmail, true))

		got, err := repo.GetByID(ctx, acct.ID)
		require.NoError(t, err)
		assert.Equal(t, newEmail, got.Email)
		assert.True(t, got.EmailVerified)
	})

	t.Run("update email collision fails with ErrAlreadyExists", func(t *testing.T) {
		a := createTestAccount(ctx, t, account.RoleUser)
		b := createTestAccount(ctx, t, account.RoleUser)

		err := repo.UpdateEmail(ctx, a.ID, b.Email, false)
		assert.ErrorIs(t, err, account.ErrAlreadyExists)
	})

	t.Run("update password only touches the hash", func(t *testing.T) {
		acct := createTestAccount(ctx, t, account.RoleUser)

		require.NoError(t, repo.UpdatePassword(ctx, acct.ID, "$argon2id$newhash"))

		got, err := repo.GetByID(ctx, acct.ID)
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$newhash", got.PasswordHash)
		assert.Equal(t, acct.Email, got.Email)
	})
}

func TestAccountRepository_DeleteMany(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	t.Run("deletes all listed accounts", func(t *testing.T) {
		a := createTestAccount(ctx, t, account.RoleUser)
		b := createTestAccount(ctx, t, account.RoleUser)

		require.NoError(t, repo.DeleteMany(ctx, []ulid.ULID{a.ID, b.ID}))

		_, err := repo.GetByID(ctx, a.ID)
		assert.ErrorIs(t, err, account.ErrNotFound)
		_, err = repo.GetByID(ctx, b.ID)
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("missing ids are ignored", func(t *testing.T) {
		assert.NoError(t, repo.DeleteMany(ctx, []ulid.ULID{ulid.Make()}))
	})

	t.Run("empty set is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.DeleteMany(ctx, nil))
	})

	t.Run("cascade removes dependent rows", func(t *testing.T) {
		acct := createTestAccount(ctx, t, account.RoleUser)

		_, err := testPool.Exec(ctx, `
			INSERT INTO email_verifications (account_id, email, code_hash, expires_at)
			VALUES ($1, 'pending@example.com', $2, now() + interval '1 day')
		`, acct.ID.String(), "hash_"+acct.ID.String())
		require.NoError(t, err)

		require.NoError(t, repo.DeleteMany(ctx, []ulid.ULID{acct.ID}))

		var n int
		err = testPool.QueryRow(ctx, `SELECT COUNT(*) FROM email_verifications WHERE account_id = $1`, acct.ID.String()).Scan(&n)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestAccountRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	a := createTestAccount(ctx, t, account.RoleUser)
	b := createTestAccount(ctx, t, account.RoleUser)

	t.Run("list orders by creation time ascending", func(t *testing.T) {
		accts, err := repo.List(ctx, 0, 100)
		require.NoError(t, err)

		var posA, posB = -1, -1
		for i, acct := range accts {
			if acct.ID == a.ID {
				posA = i
			}
			if acct.ID == b.ID {
				posB = i
			}
		}
		require.GreaterOrEqual(t, posA, 0)
		require.GreaterOrEqual(t, posB, 0)
		assert.Less(t, posA, posB)
	})

	t.Run("count includes created accounts", func(t *testing.T) {
		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(2))
	})
}
