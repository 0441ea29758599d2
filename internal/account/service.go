// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quillboard/quillboard/internal/mail"
	"github.com/quillboard/quillboard/internal/observability"
)

var tracer = otel.Tracer("quillboard/account")

// Mailer delivers outbound email. Implemented by internal/mail.
type Mailer interface {
	// Send delivers an HTML message and returns the provider message ID.
	Send(ctx context.Context, to, subject, htmlBody string) (string, error)
}

// ChangeEmailStatus is the caller-visible outcome of a ChangeEmail request.
type ChangeEmailStatus string

// ChangeEmail outcomes. Delivery failure is a success-with-caveat: the
// pending verification is committed, so the caller may simply re-request.
const (
	StatusEmailUnchanged      ChangeEmailStatus = "Email unchanged"
	StatusVerificationSent    ChangeEmailStatus = "Email verification sent"
	StatusVerificationPending ChangeEmailStatus = "Email verification pending, delivery failed"
)

// Service orchestrates account use cases: creation, admin edits, email
// change with verification, and password change. It exclusively owns the
// write path to accounts and pending verifications.
type Service struct {
	accounts Repository
	verifier *VerificationService
	hasher   PasswordHasher
	mailer   Mailer
	logger   *slog.Logger
}

// NewService creates a new account Service.
func NewService(accounts Repository, verifier *VerificationService, hasher PasswordHasher, mailer Mailer) (*Service, error) {
	return NewServiceWithLogger(accounts, verifier, hasher, mailer, slog.Default())
}

// NewServiceWithLogger creates a new account Service with an explicit logger.
func NewServiceWithLogger(accounts Repository, verifier *VerificationService, hasher PasswordHasher, mailer Mailer, logger *slog.Logger) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("account repository is required")
	}
	if verifier == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("verification service is required")
	}
	if hasher == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if mailer == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("mailer is required")
	}
	if logger == nil {
		return nil, oops.Code("ACCOUNT_SERVICE_INVALID").Errorf("logger is required")
	}
	return &Service{
		accounts: accounts,
		verifier: verifier,
		hasher:   hasher,
		mailer:   mailer,
		logger:   logger,
	}, nil
}

// CreateParams are the inputs for creating an account.
type CreateParams struct {
	Email         string
	Password      string
	Avatar        *string
	EmailVerified bool
	Role          Role
}

// Create creates a new account. Admin only: the verification flag and role
// are caller-supplied. The existence pre-check is an optimization; the
// storage unique index is the correctness mechanism, and a concurrent
// duplicate insert surfaces as ErrAlreadyExists all the same.
func (s *Service) Create(ctx context.Context, identity Identity, p CreateParams) (*Account, error) {
	if err := identity.Require(RoleAdmin); err != nil {
		return nil, err
	}
	if err := ValidateEmail(p.Email); err != nil {
		return nil, err
	}
	if err := ValidateNewPassword(p.Password); err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetByEmail(ctx, p.Email); err == nil {
		return nil, oops.Code("ACCOUNT_ALREADY_EXISTS").
			With("email", p.Email).
			Wrap(ErrAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "GetByEmail").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "Hash").
			Wrap(err)
	}

	acct, err := NewAccount(p.Email, hash, p.EmailVerified, p.Avatar, p.Role)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, oops.Code("ACCOUNT_ALREADY_EXISTS").
				With("email", p.Email).
				Wrap(ErrAlreadyExists)
		}
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "Create").
			Wrap(err)
	}

	observability.RecordAccountCreated(string(acct.Role))
	s.logger.Info("account created", "account_id", acct.ID.String(), "role", string(acct.Role))

	return acct, nil
}

// Get returns an account. Non-admin identities always receive their own
// record, regardless of the requested target.
func (s *Service) Get(ctx context.Context, identity Identity, target ulid.ULID) (*Account, error) {
	id := identity.ResolveTarget(target)
	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").
				With("account_id", id.String()).
				Wrap(ErrNotFound)
		}
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "GetByID").
			Wrap(err)
	}
	return acct, nil
}

// List returns accounts ordered by creation time ascending. Admin only.
func (s *Service) List(ctx context.Context, identity Identity, skip, limit int) ([]*Account, error) {
	if err := identity.Require(RoleAdmin); err != nil {
		return nil, err
	}
	accts, err := s.accounts.List(ctx, skip, limit)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "List").
			Wrap(err)
	}
	return accts, nil
}

// Count returns the number of accounts. Admin only.
func (s *Service) Count(ctx context.Context, identity Identity) (int64, error) {
	if err := identity.Require(RoleAdmin); err != nil {
		return 0, err
	}
	n, err := s.accounts.Count(ctx)
	if err != nil {
		return 0, oops.Code("ACCOUNT_COUNT_FAILED").
			With("operation", "Count").
			Wrap(err)
	}
	return n, nil
}

// EditParams are the inputs for the admin edit path. Nil pointer fields mean
// "leave untouched", distinct from present-and-empty.
type EditParams struct {
	Email         string
	Password      *string
	Avatar        *string
	EmailVerified *bool
	Role          *Role
}

// Edit replaces the mutable fields of the target account. Admin only.
// An absent password leaves the stored hash untouched.
func (s *Service) Edit(ctx context.Context, identity Identity, target ulid.ULID, p EditParams) (*Account, error) {
	if err := identity.Require(RoleAdmin); err != nil {
		return nil, err
	}
	if err := ValidateEmail(p.Email); err != nil {
		return nil, err
	}

	acct, err := s.accounts.GetByID(ctx, target)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").
				With("account_id", target.String()).
				Wrap(ErrNotFound)
		}
		return nil, oops.Code("ACCOUNT_EDIT_FAILED").
			With("operation", "GetByID").
			Wrap(err)
	}

	acct.Email = p.Email
	acct.Avatar = p.Avatar
	if p.EmailVerified != nil {
		acct.EmailVerified = *p.EmailVerified
	}
	if p.Role != nil {
		if !p.Role.Valid() {
			return nil, oops.Code("ACCOUNT_INVALID_ROLE").Errorf("role must be ADMIN or USER")
		}
		acct.Role = *p.Role
	}
	if p.Password != nil {
		if err := ValidateChangedPassword(*p.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*p.Password)
		if err != nil {
			return nil, oops.Code("ACCOUNT_EDIT_FAILED").
				With("operation", "Hash").
				Wrap(err)
		}
		acct.PasswordHash = hash
	}
	acct.UpdatedAt = time.Now()

	if err := s.accounts.Update(ctx, acct); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, oops.Code("ACCOUNT_ALREADY_EXISTS").
				With("email", p.Email).
				Wrap(ErrAlreadyExists)
		}
		return nil, oops.Code("ACCOUNT_EDIT_FAILED").
			With("operation", "Update").
			Wrap(err)
	}

	return acct, nil
}

// ChangeEmail starts the email change flow for the calling identity.
//
// The pending verification commits before the send so a failed delivery can
// be retried by re-requesting. The stored address is updated eagerly with
// the verification flag cleared; confirmation re-commits the address and
// sets the flag. (The eager write mirrors the reference behavior; see
// DESIGN.md.)
func (s *Service) ChangeEmail(ctx context.Context, identity Identity, newEmail string) (status ChangeEmailStatus, err error) {
	ctx, span := tracer.Start(ctx, "account.change_email",
		trace.WithAttributes(
			attribute.String("account.id", identity.AccountID.String()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	acct, err := s.accounts.GetByID(ctx, identity.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("ACCOUNT_NOT_FOUND").
				With("account_id", identity.AccountID.String()).
				Wrap(ErrNotFound)
		}
		return "", oops.Code("EMAIL_CHANGE_FAILED").
			With("operation", "GetByID").
			Wrap(err)
	}

	if strings.EqualFold(acct.Email, newEmail) {
		return StatusEmailUnchanged, nil
	}

	if err := ValidateEmail(newEmail); err != nil {
		return "", err
	}

	code, err := s.verifier.Issue(ctx, acct.ID, newEmail)
	if err != nil {
		return "", oops.Code("EMAIL_CHANGE_FAILED").
			With("operation", "Issue").
			Wrap(err)
	}

	if err := s.accounts.UpdateEmail(ctx, acct.ID, newEmail, false); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return "", oops.Code("ACCOUNT_ALREADY_EXISTS").
				With("email", newEmail).
				Wrap(ErrAlreadyExists)
		}
		return "", oops.Code("EMAIL_CHANGE_FAILED").
			With("operation", "UpdateEmail").
			Wrap(err)
	}

	subject, body := mail.VerificationMessage(code)
	if _, err := s.mailer.Send(ctx, newEmail, subject, body); err != nil {
		observability.RecordVerificationEmail("failed")
		s.logger.Warn("verification email delivery failed",
			"account_id", acct.ID.String(),
			"error", err.Error(),
		)
		return StatusVerificationPending, nil
	}

	observability.RecordVerificationEmail("sent")
	s.logger.Info("verification email sent", "account_id", acct.ID.String())

	return StatusVerificationSent, nil
}

// ConfirmEmailChange redeems a verification code and commits the candidate
// address. The consume-once contract of the verification store resolves
// concurrent confirms: only the first succeeds.
func (s *Service) ConfirmEmailChange(ctx context.Context, code string) (acct *Account, err error) {
	ctx, span := tracer.Start(ctx, "account.confirm_email_change")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	pv, err := s.verifier.Consume(ctx, code)
	if err != nil {
		return nil, err // Already carries VERIFICATION_CODE_INVALID or a storage code
	}

	if err := s.accounts.UpdateEmail(ctx, pv.AccountID, pv.Email, true); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, oops.Code("ACCOUNT_ALREADY_EXISTS").
				With("email", pv.Email).
				Wrap(ErrAlreadyExists)
		}
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").
				With("account_id", pv.AccountID.String()).
				Wrap(ErrNotFound)
		}
		return nil, oops.Code("EMAIL_CONFIRM_FAILED").
			With("operation", "UpdateEmail").
			Wrap(err)
	}

	acct, err = s.accounts.GetByID(ctx, pv.AccountID)
	if err != nil {
		return nil, oops.Code("EMAIL_CONFIRM_FAILED").
			With("operation", "GetByID").
			Wrap(err)
	}

	s.logger.Info("email change confirmed", "account_id", acct.ID.String())

	return acct, nil
}

// ChangePassword replaces the calling identity's password after verifying
// the current one. The single UPDATE of the hash makes the swap atomic:
// there is no window where both old and new passwords validate.
func (s *Service) ChangePassword(ctx context.Context, identity Identity, current, newPassword, confirm string) error {
	if newPassword != confirm {
		return oops.Code("PASSWORD_MISMATCH").Wrap(ErrPasswordMismatch)
	}
	if err := ValidateChangedPassword(newPassword); err != nil {
		return err
	}

	acct, err := s.accounts.GetByID(ctx, identity.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("ACCOUNT_NOT_FOUND").
				With("account_id", identity.AccountID.String()).
				Wrap(ErrNotFound)
		}
		return oops.Code("PASSWORD_CHANGE_FAILED").
			With("operation", "GetByID").
			Wrap(err)
	}

	// Malformed stored hashes verify as "no match" rather than erroring out;
	// hash material never reaches the caller.
	ok, verifyErr := s.hasher.Verify(current, acct.PasswordHash)
	if verifyErr != nil || !ok {
		return oops.Code("PASSWORD_INVALID_CREDENTIAL").Wrap(ErrInvalidCredential)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("PASSWORD_CHANGE_FAILED").
			With("operation", "Hash").
			Wrap(err)
	}

	if err := s.accounts.UpdatePassword(ctx, acct.ID, hash); err != nil {
		return oops.Code("PASSWORD_CHANGE_FAILED").
			With("operation", "UpdatePassword").
			Wrap(err)
	}

	s.logger.Info("password changed", "account_id", acct.ID.String())

	return nil
}

// DeleteMany removes the accounts with the given IDs. A non-admin identity
// may only target itself; any foreign ID in the set is rejected.
func (s *Service) DeleteMany(ctx context.Context, identity Identity, ids []ulid.ULID) error {
	if identity.Role != RoleAdmin {
		for _, id := range ids {
			if id.Compare(identity.AccountID) != 0 {
				return oops.Code("AUTH_FORBIDDEN").
					With("account_id", id.String()).
					Wrap(ErrForbidden)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	if err := s.accounts.DeleteMany(ctx, ids); err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "DeleteMany").
			Wrap(err)
	}

	s.logger.Info("accounts deleted", "count", len(ids))

	return nil
}
