// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Verification code configuration.
const (
	VerificationCodeBytes  = 32             // 32 bytes = 64 hex chars
	VerificationCodeExpiry = 24 * time.Hour // 24 hour expiry
)

// PendingVerification binds an account to a candidate new email address
// awaiting confirmation. At most one live row exists per account; issuing a
// new code supersedes any prior one.
type PendingVerification struct {
	AccountID ulid.ULID
	Email     string // candidate address, not yet the account's login identity
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewPendingVerification creates a validated PendingVerification instance.
func NewPendingVerification(accountID ulid.ULID, email, codeHash string, expiresAt time.Time) (*PendingVerification, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("VERIFICATION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if codeHash == "" {
		return nil, oops.Code("VERIFICATION_INVALID_HASH").Errorf("code hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("VERIFICATION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &PendingVerification{
		AccountID: accountID,
		Email:     email,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpired returns true if the verification code has expired.
func (v *PendingVerification) IsExpired() bool {
	return time.Now().After(v.ExpiresAt)
}

// GenerateVerificationCode creates a secure random code and its hash.
// Returns (plaintext_code, sha256_hash, error).
// The plaintext code is mailed to the candidate address; the hash is stored
// in the database.
func GenerateVerificationCode() (code, hash string, err error) {
	codeBytes := make([]byte, VerificationCodeBytes)
	if _, err = rand.Read(codeBytes); err != nil {
		return "", "", oops.Code("VERIFICATION_CODE_GENERATE_FAILED").Wrap(err)
	}

	code = hex.EncodeToString(codeBytes)
	hash = HashVerificationCode(code)

	return code, hash, nil
}

// HashVerificationCode computes the SHA256 hash of a verification code.
func HashVerificationCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// MatchVerificationCode checks if the plaintext code matches the stored hash.
// Uses constant-time comparison to prevent timing attacks.
func MatchVerificationCode(code, hash string) bool {
	if code == "" || hash == "" {
		return false
	}
	computed := HashVerificationCode(code)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// VerificationRepository manages pending email verification persistence.
type VerificationRepository interface {
	// Upsert stores a pending verification, overwriting any existing row
	// for the same account.
	Upsert(ctx context.Context, pv *PendingVerification) error

	// Consume atomically looks up and deletes the row with the given code
	// hash, excluding expired rows. Returns ErrNotFound if no live row
	// matches; a second call with the same hash always fails.
	Consume(ctx context.Context, codeHash string) (*PendingVerification, error)

	// GetByAccount retrieves the pending verification for an account.
	GetByAccount(ctx context.Context, accountID ulid.ULID) (*PendingVerification, error)

	// DeleteByAccount removes the pending verification for an account.
	DeleteByAccount(ctx context.Context, accountID ulid.ULID) error

	// DeleteExpired removes all expired verifications and returns the count
	// of deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}
