// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package account

import "errors"

// Sentinel errors for the distinct failure conditions the account core
// reports. Callers match them with errors.Is; the oops codes attached at
// each call site carry the structured context.
var (
	// ErrNotFound is returned when a requested account or code does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a write would violate email uniqueness.
	ErrAlreadyExists = errors.New("account already exists")

	// ErrInvalidCredential is returned when the current password does not verify.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrPasswordMismatch is returned when a new password and its confirmation differ.
	ErrPasswordMismatch = errors.New("password confirmation mismatch")

	// ErrCodeInvalid is returned when a verification code is absent, expired,
	// superseded, or already consumed.
	ErrCodeInvalid = errors.New("verification code invalid or expired")

	// ErrUnauthenticated is returned when no valid session backs a request.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the resolved identity may not perform
	// the operation on the targeted account.
	ErrForbidden = errors.New("forbidden")
)
