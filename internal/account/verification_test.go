// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package account_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillboard/quillboard/internal/account"
)

func TestGenerateVerificationCode(t *testing.T) {
	t.Run("produces hex code and matching hash", func(t *testing.T) {
		code, hash, err := account.GenerateVerificationCode()
		require.NoError(t, err)
		assert.Len(t, code, account.VerificationCodeBytes*2)
		assert.Equal(t, account.HashVerificationCode(code), hash)
	})

	t.Run("codes are unique", func(t *testing.T) {
		code1, _, err := account.GenerateVerificationCode()
		require.NoError(t, err)
		code2, _, err := account.GenerateVerificationCode()
		require.NoError(t, err)
		assert.NotEqual(t, code1, code2)
	})
}

func TestMatchVerificationCode(t *testing.T) {
	code, hash, err := account.GenerateVerificationCode()
	require.NoError(t, err)

	t.Run("matches its own hash", func(t *testing.T) {
		assert.True(t, account.MatchVerificationCode(code, hash))
	})

	t.Run("rejects a different code", func(t *testing.T) {
		other, _, err := account.GenerateVerificationCode()
		require.NoError(t, err)
		assert.False(t, account.MatchVerificationCode(other, hash))
	})

	t.Run("rejects empty inputs", func(t *testing.T) {
		assert.False(t, account.MatchVerificationCode("", hash))
		assert.False(t, account.MatchVerificationCode(code, ""))
	})
}

func TestNewPendingVerification(t *testing.T) {
	accountID := ulid.Make()
	expiry := time.Now().Add(account.VerificationCodeExpiry)

	t.Run("creates valid pending verification", func(t *testing.T) {
		pv, err := account.NewPendingVerification(accountID, "new@example.com", "somehash", expiry)
		require.NoError(t, err)
		assert.Equal(t, accountID, pv.AccountID)
		assert.Equal(t, "new@example.com", pv.Email)
		assert.False(t, pv.IsExpired())
	})

	t.Run("rejects zero account ID", func(t *testing.T) {
		_, err := account.NewPendingVerification(ulid.ULID{}, "new@example.com", "somehash", expiry)
		assert.Error(t, err)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		_, err := account.NewPendingVerification(accountID, "bad", "somehash", expiry)
		assert.Error(t, err)
	})

	t.Run("rejects empty code hash", func(t *testing.T) {
		_, err := account.NewPendingVerification(accountID, "new@example.com", "", expiry)
		assert.Error(t, err)
	})

	t.Run("rejects zero expiry", func(t *testing.T) {
		_, err := account.NewPendingVerification(accountID, "new@example.com", "somehash", time.Time{})
		assert.Error(t, err)
	})

	t.Run("reports expiry", func(t *testing.T) {
		pv, err := account.NewPendingVerification(accountID, "new@example.com", "somehash", time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, pv.IsExpired())
	})
}
