// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package account

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// VerificationService issues and consumes single-use email change codes.
type VerificationService struct {
	verifications VerificationRepository
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(verifications VerificationRepository) (*VerificationService, error) {
	if verifications == nil {
		return nil, oops.Code("VERIFICATION_SERVICE_INVALID").Errorf("verification repository is required")
	}
	return &VerificationService{verifications: verifications}, nil
}

// Issue generates a code binding the account to the candidate email and
// persists its hash, superseding any prior pending verification for the
// account. Returns the plaintext code for delivery; mailing is the caller's
// job so that a failed send leaves the committed row available for retry.
func (s *VerificationService) Issue(ctx context.Context, accountID ulid.ULID, candidateEmail string) (string, error) {
	code, hash, err := GenerateVerificationCode()
	if err != nil {
		return "", oops.Code("VERIFICATION_ISSUE_FAILED").
			With("operation", "GenerateVerificationCode").
			Wrap(err)
	}

	pv, err := NewPendingVerification(accountID, candidateEmail, hash, time.Now().Add(VerificationCodeExpiry))
	if err != nil {
		return "", oops.Code("VERIFICATION_ISSUE_FAILED").
			With("operation", "NewPendingVerification").
			Wrap(err)
	}

	if err := s.verifications.Upsert(ctx, pv); err != nil {
		return "", oops.Code("VERIFICATION_ISSUE_FAILED").
			With("operation", "Upsert").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	return code, nil
}

// Consume redeems a code, deleting its row so it can never be redeemed
// twice. Absent, expired, and superseded codes all fail with ErrCodeInvalid.
func (s *VerificationService) Consume(ctx context.Context, code string) (*PendingVerification, error) {
	if code == "" {
		return nil, oops.Code("VERIFICATION_CODE_INVALID").Wrap(ErrCodeInvalid)
	}

	hash := HashVerificationCode(code)

	pv, err := s.verifications.Consume(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("VERIFICATION_CODE_INVALID").Wrap(ErrCodeInvalid)
		}
		return nil, oops.Code("VERIFICATION_CONSUME_FAILED").
			With("operation", "Consume").
			Wrap(err)
	}

	return pv, nil
}
