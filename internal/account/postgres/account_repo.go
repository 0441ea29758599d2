// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

// Package postgres provides PostgreSQL implementations of account repositories.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/quillboard/quillboard/internal/account"
)

// AccountRepository implements account.Repository using PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// isUniqueViolation reports whether err is a unique constraint rejection.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Create stores a new account. A duplicate email is rejected by the unique
// index and surfaces as ErrAlreadyExists.
func (r *AccountRepository) Create(ctx context.Context, acct *account.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (
			id, email, password_hash, email_verified,
			avatar, role, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		acct.ID.String(),
		acct.Email,
		acct.PasswordHash,
		acct.EmailVerified,
		acct.Avatar,
		string(acct.Role),
		acct.CreatedAt,
		acct.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_ALREADY_EXISTS").
				With("email", acct.Email).
				Wrap(account.ErrAlreadyExists)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*account.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, email_verified, avatar, role, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id.String())

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return acct, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, email_verified, avatar, role, created_at, updated_at
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`, email)

	acct, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	return acct, nil
}

// Update replaces the mutable fields of an existing account.
func (r *AccountRepository) Update(ctx context.Context, acct *account.Account) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET
			email = $2,
			password_hash = $3,
			email_verified = $4,
			avatar = $5,
			role = $6,
			updated_at = $7
		WHERE id = $1
	`,
		acct.ID.String(),
		acct.Email,
		acct.PasswordHash,
		acct.EmailVerified,
		acct.Avatar,
		string(acct.Role),
		acct.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_ALREADY_EXISTS").
				With("email", acct.Email).
				Wrap(account.ErrAlreadyExists)
		}
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("id", acct.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", acct.ID.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// UpdateEmail sets the email and verification flag for an account.
func (r *AccountRepository) UpdateEmail(ctx context.Context, id ulid.ULID, email string, verified bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET email = $2, email_verified = $3, updated_at = $4
		WHERE id = $1
	`, id.String(), email, verified, time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_ALREADY_EXISTS").
				With("email", email).
				Wrap(account.ErrAlreadyExists)
		}
		return oops.Code("ACCOUNT_UPDATE_EMAIL_FAILED").
			With("operation", "update email").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// UpdatePassword updates only the password hash for an account.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// DeleteMany removes the accounts with the given IDs. Missing IDs are not an
// error; dependent rows are removed by the schema's cascades.
func (r *AccountRepository) DeleteMany(ctx context.Context, ids []ulid.ULID) error {
	if len(ids) == 0 {
		return nil
	}

	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = id.String()
	}

	_, err := r.pool.Exec(ctx, `
		DELETE FROM accounts WHERE id = ANY($1)
	`, idStrs)
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_MANY_FAILED").
			With("operation", "delete accounts").
			With("count", len(ids)).
			Wrap(err)
	}
	return nil
}

// List returns accounts ordered by creation time ascending.
func (r *AccountRepository) List(ctx context.Context, skip, limit int) ([]*account.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, password_hash, email_verified, avatar, role, created_at, updated_at
		FROM accounts
		ORDER BY created_at ASC
		OFFSET $1 LIMIT $2
	`, skip, limit)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "list accounts").
			Wrap(err)
	}
	defer rows.Close()

	var accts []*account.Account
	for rows.Next() {
		acct, err := r.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accts = append(accts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "iterate accounts").
			Wrap(err)
	}
	return accts, nil
}

// Count returns the number of accounts.
func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	if err != nil {
		return 0, oops.Code("ACCOUNT_COUNT_FAILED").
			With("operation", "count accounts").
			Wrap(err)
	}
	return n, nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *AccountRepository) scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		idStr         string
		email         string
		passwordHash  string
		emailVerified bool
		avatar        *string
		roleStr       string
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(
		&idStr,
		&email,
		&passwordHash,
		&emailVerified,
		&avatar,
		&roleStr,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}

	return &account.Account{
		ID:            id,
		Email:         email,
		PasswordHash:  passwordHash,
		EmailVerified: emailVerified,
		Avatar:        avatar,
		Role:          account.Role(roleStr),
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, nil
}

// Compile-time interface check.
var _ account.Repository = (*AccountRepository)(nil)
