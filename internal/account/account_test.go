// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package account_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillboard/quillboard/internal/account"
)

func TestNewAccount(t *testing.T) {
	t.Run("creates account with fresh ID", func(t *testing.T) {
		acct, err := account.NewAccount("alice@example.com", "$argon2id$hash", false, nil, account.RoleUser)
		require.NoError(t, err)
		assert.NotZero(t, acct.ID)
		assert.Equal(t, "alice@example.com", acct.Email)
		assert.False(t, acct.EmailVerified)
		assert.Equal(t, account.RoleUser, acct.Role)
		assert.Nil(t, acct.Avatar)
		assert.False(t, acct.CreatedAt.IsZero())
	})

	t.Run("accepts avatar reference", func(t *testing.T) {
		avatar := "https://cdn.example.com/a.png"
		acct, err := account.NewAccount("bob@example.com", "$argon2id$hash", true, &avatar, account.RoleAdmin)
		require.NoError(t, err)
		require.NotNil(t, acct.Avatar)
		assert.Equal(t, avatar, *acct.Avatar)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		_, err := account.NewAccount("not-an-email", "$argon2id$hash", false, nil, account.RoleUser)
		assert.Error(t, err)
	})

	t.Run("rejects empty password hash", func(t *testing.T) {
		_, err := account.NewAccount("alice@example.com", "", false, nil, account.RoleUser)
		assert.Error(t, err)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := account.NewAccount("alice@example.com", "$argon2id$hash", false, nil, account.Role("SUPERUSER"))
		assert.Error(t, err)
	})

	t.Run("rejects oversized avatar", func(t *testing.T) {
		avatar := strings.Repeat("x", account.MaxAvatarLength+1)
		_, err := account.NewAccount("alice@example.com", "$argon2id$hash", false, &avatar, account.RoleUser)
		assert.Error(t, err)
	})
}

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.example.org",
		"u+tag@example.co",
	}
	for _, email := range valid {
		t.Run(email, func(t *testing.T) {
			assert.NoError(t, account.ValidateEmail(email))
		})
	}

	invalid := []string{
		"",
		"plain",
		"no@tld",
		"spaces in@example.com",
		"@example.com",
		"user@",
		strings.Repeat("a", 250) + "@example.com",
	}
	for _, email := range invalid {
		t.Run("rejects "+email, func(t *testing.T) {
			assert.Error(t, account.ValidateEmail(email))
		})
	}
}

func TestValidatePasswords(t *testing.T) {
	t.Run("new password accepts short values", func(t *testing.T) {
		assert.NoError(t, account.ValidateNewPassword("abc"))
	})

	t.Run("new password rejects empty", func(t *testing.T) {
		assert.Error(t, account.ValidateNewPassword(""))
	})

	t.Run("new password rejects oversized", func(t *testing.T) {
		assert.Error(t, account.ValidateNewPassword(strings.Repeat("x", account.MaxPasswordLength+1)))
	})

	t.Run("changed password enforces minimum", func(t *testing.T) {
		assert.Error(t, account.ValidateChangedPassword("short"))
		assert.NoError(t, account.ValidateChangedPassword("longenough"))
	})

	t.Run("changed password rejects oversized", func(t *testing.T) {
		assert.Error(t, account.ValidateChangedPassword(strings.Repeat("x", account.MaxPasswordLength+1)))
	})
}

func TestRoleValid(t *testing.T) {
	assert.True(t, account.RoleAdmin.Valid())
	assert.True(t, account.RoleUser.Valid())
	assert.False(t, account.Role("").Valid())
	assert.False(t, account.Role("admin").Valid())
}
