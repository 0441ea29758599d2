// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes  = 32             // 32 bytes = 64 hex chars
	SessionTokenExpiry = 24 * time.Hour // 24 hour expiry
)

// Session maps an opaque token to an authenticated identity. Sessions are
// owned by the session store; the account core only reads them.
type Session struct {
	ID            ulid.ULID
	AccountID     ulid.ULID
	TokenHash     string
	Role          Role
	EmailVerified bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
	LastSeenAt    time.Time
}

// NewSession creates a validated Session instance.
func NewSession(accountID ulid.ULID, tokenHash string, role Role, emailVerified bool, expiresAt time.Time) (*Session, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if !role.Valid() {
		return nil, oops.Code("SESSION_INVALID_ROLE").Errorf("role must be ADMIN or USER")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now()
	return &Session{
		ID:            ulid.Make(),
		AccountID:     accountID,
		TokenHash:     tokenHash,
		Role:          role,
		EmailVerified: emailVerified,
		ExpiresAt:     expiresAt,
		CreatedAt:     now,
		LastSeenAt:    now,
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsExpiredAt returns true if the session would be expired at the given time.
// Useful for testing with deterministic time values.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is sent to the client; the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashSessionToken(token)

	return token, hash, nil
}

// HashSessionToken computes the SHA256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionStore manages session persistence. The account core only reads
// sessions; creation and deletion belong to the login flow that owns the
// store.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// UpdateLastSeen updates the LastSeenAt timestamp for a session.
	UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error

	// Delete removes a session by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteExpired removes all expired sessions and returns the count of
	// deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}

// Identity is the resolved caller of a request: who they are, what they may
// do, and a snapshot of their verification state. It is produced once per
// request by the Authorizer and passed explicitly into every service call.
type Identity struct {
	AccountID     ulid.ULID
	Role          Role
	EmailVerified bool
}

// Require checks that the identity holds one of the allowed roles.
// Pure check, no I/O.
func (id Identity) Require(allowed ...Role) error {
	for _, r := range allowed {
		if id.Role == r {
			return nil
		}
	}
	return oops.Code("AUTH_FORBIDDEN").
		With("role", string(id.Role)).
		Wrap(ErrForbidden)
}

// ResolveTarget returns the account the identity may operate on. Admins may
// target any account (falling back to their own when none is requested);
// other roles always operate on themselves, regardless of the requested id.
func (id Identity) ResolveTarget(requested ulid.ULID) ulid.ULID {
	if id.Role == RoleAdmin && requested.Compare(ulid.ULID{}) != 0 {
		return requested
	}
	return id.AccountID
}

// Authorizer resolves request identities from session tokens.
type Authorizer struct {
	sessions SessionStore
}

// NewAuthorizer creates a new Authorizer.
func NewAuthorizer(sessions SessionStore) (*Authorizer, error) {
	if sessions == nil {
		return nil, oops.Code("AUTHORIZER_INVALID").Errorf("session store is required")
	}
	return &Authorizer{sessions: sessions}, nil
}

// Resolve looks up the session for a token and returns the calling identity.
// Absent, unknown, and expired tokens all fail with ErrUnauthenticated.
// Also updates the session's LastSeenAt timestamp.
func (a *Authorizer) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, oops.Code("AUTH_UNAUTHENTICATED").Wrap(ErrUnauthenticated)
	}

	tokenHash := HashSessionToken(token)

	session, err := a.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, oops.Code("AUTH_UNAUTHENTICATED").Wrap(ErrUnauthenticated)
		}
		return Identity{}, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		return Identity{}, oops.Code("AUTH_UNAUTHENTICATED").
			With("reason", "session expired").
			Wrap(ErrUnauthenticated)
	}

	// Touch last seen (non-blocking, ignore errors)
	_ = a.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck // Best effort, resolution succeeds regardless

	return Identity{
		AccountID:     session.AccountID,
		Role:          session.Role,
		EmailVerified: session.EmailVerified,
	}, nil
}
