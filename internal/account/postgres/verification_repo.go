// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/quillboard/quillboard/internal/account"
)

// VerificationRepository implements account.VerificationRepository using
// PostgreSQL.
type VerificationRepository struct {
	pool *pgxpool.Pool
}

// NewVerificationRepository creates a new VerificationRepository.
func NewVerificationRepository(pool *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

// Upsert stores a pending verification, replacing any prior pending
// verification for the same account. The superseded code becomes unusable
// the moment the new row lands.
func (r *VerificationRepository) Upsert(ctx context.Context, pending *account.PendingVerification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO email_verifications (account_id, email, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO UPDATE SET
			email = EXCLUDED.email,
			code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at
	`,
		pending.AccountID.String(),
		pending.Email,
		pending.CodeHash,
		pending.ExpiresAt,
		pending.CreatedAt,
	)
	if err != nil {
		return oops.Code("VERIFICATION_UPSERT_FAILED").
			With("operation", "upsert verification").
			With("account_id", pending.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// Consume atomically removes and returns the pending verification matching
// codeHash, provided it has not expired. A single DELETE guarantees each code
// redeems at most once even under concurrent attempts.
func (r *VerificationRepository) Consume(ctx context.Context, codeHash string) (*account.PendingVerification, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM email_verifications
		WHERE code_hash = $1 AND expires_at > $2
		RETURNING account_id, email, code_hash, expires_at, created_at
	`, codeHash, time.Now())

	pending, err := r.scanVerification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("VERIFICATION_NOT_FOUND").
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("VERIFICATION_CONSUME_FAILED").
			With("operation", "consume verification").
			Wrap(err)
	}
	return pending, nil
}

// GetByAccount retrieves the pending verification for an account, if any.
func (r *VerificationRepository) GetByAccount(ctx context.Context, accountID ulid.ULID) (*account.PendingVerification, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT account_id, email, code_hash, expires_at, created_at
		FROM email_verifications
		WHERE account_id = $1
	`, accountID.String())

	pending, err := r.scanVerification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("VERIFICATION_NOT_FOUND").
			With("account_id", accountID.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("VERIFICATION_GET_FAILED").
			With("operation", "get verification").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return pending, nil
}

// DeleteByAccount removes any pending verification for an account. Deleting
// a nonexistent row is not an error.
func (r *VerificationRepository) DeleteByAccount(ctx context.Context, accountID ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM email_verifications WHERE account_id = $1
	`, accountID.String())
	if err != nil {
		return oops.Code("VERIFICATION_DELETE_FAILED").
			With("operation", "delete verification").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all verifications past their expiry and reports how
// many were removed.
func (r *VerificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM email_verifications WHERE expires_at <= $1
	`, time.Now())
	if err != nil {
		return 0, oops.Code("VERIFICATION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired verifications").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

func (r *VerificationRepository) scanVerification(row pgx.Row) (*account.PendingVerification, error) {
	var (
		accountIDStr string
		email        string
		codeHash     string
		expiresAt    time.Time
		createdAt    time.Time
	)

	err := row.Scan(&accountIDStr, &email, &codeHash, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("VERIFICATION_SCAN_FAILED").
			With("operation", "scan verification").
			Wrap(err)
	}

	accountID, err := ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("VERIFICATION_INVALID_ID").
			With("operation", "parse account id").
			With("account_id", accountIDStr).
			Wrap(err)
	}

	return &account.PendingVerification{
		AccountID: accountID,
		Email:     email,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// Compile-time interface check.
var _ account.VerificationRepository = (*VerificationRepository)(nil)
