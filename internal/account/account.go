// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package account

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is the coarse authorization level of an account.
type Role string

// Supported roles.
const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Password validation constraints. Creation accepts any non-empty password
// up to the bound; password changes require the stricter minimum.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 255
	MaxAvatarLength   = 255
)

// emailRegex is a pragmatic address check. Uniqueness and deliverability are
// enforced elsewhere (storage index, verification mail).
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Account represents a user identity record.
type Account struct {
	ID            ulid.ULID
	Email         string
	PasswordHash  string
	EmailVerified bool
	Avatar        *string
	Role          Role
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAccount creates a validated Account with a fresh ID.
// The password hash must already be computed; raw secrets never enter
// the domain type.
func NewAccount(email, passwordHash string, emailVerified bool, avatar *string, role Role) (*Account, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if !role.Valid() {
		return nil, oops.Code("ACCOUNT_INVALID_ROLE").
			With("role", string(role)).
			Errorf("role must be ADMIN or USER")
	}
	if avatar != nil && len(*avatar) > MaxAvatarLength {
		return nil, oops.Code("ACCOUNT_INVALID_AVATAR").
			With("max", MaxAvatarLength).
			Errorf("avatar reference must be at most %d characters", MaxAvatarLength)
	}

	now := time.Now()
	return &Account{
		ID:            ulid.Make(),
		Email:         email,
		PasswordHash:  passwordHash,
		EmailVerified: emailVerified,
		Avatar:        avatar,
		Role:          role,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ValidateEmail validates an email address against rules.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if len(email) > 255 {
		return oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email must be at most 255 characters")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("please enter a valid email")
	}
	return nil
}

// ValidateNewPassword validates a password chosen on creation.
func ValidateNewPassword(password string) error {
	if password == "" {
		return oops.Code("ACCOUNT_INVALID_PASSWORD").Errorf("please provide a password")
	}
	if len(password) > MaxPasswordLength {
		return oops.Code("ACCOUNT_INVALID_PASSWORD").
			With("max", MaxPasswordLength).
			Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	return nil
}

// ValidateChangedPassword validates a password chosen on change, which has
// the stricter minimum length.
func ValidateChangedPassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("ACCOUNT_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password is too short, minimum %d characters required", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return oops.Code("ACCOUNT_INVALID_PASSWORD").
			With("max", MaxPasswordLength).
			Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	return nil
}

// Repository manages account persistence.
//
// Implementations must enforce email uniqueness at the write itself and
// surface violations as ErrAlreadyExists; the service-level existence check
// is an optimization, not the correctness mechanism.
type Repository interface {
	// Create stores a new account.
	Create(ctx context.Context, acct *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Update replaces the mutable fields of an existing account.
	Update(ctx context.Context, acct *Account) error

	// UpdateEmail sets the email and verification flag for an account.
	UpdateEmail(ctx context.Context, id ulid.ULID, email string, verified bool) error

	// UpdatePassword updates only the password hash for an account.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// DeleteMany removes the accounts with the given IDs. Missing IDs are
	// ignored; referential cleanup is the storage layer's responsibility.
	DeleteMany(ctx context.Context, ids []ulid.ULID) error

	// List returns accounts ordered by creation time ascending.
	List(ctx context.Context, skip, limit int) ([]*Account, error)

	// Count returns the number of accounts.
	Count(ctx context.Context) (int64, error)
}
