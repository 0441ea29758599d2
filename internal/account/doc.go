// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

// Package account implements the identity and credential core of Quillboard.
//
// # Domain Types
//
// Domain types (Account, PendingVerification, Session) should be created
// using their respective constructors:
//   - NewAccount - creates an Account with a validated email and password hash
//   - NewPendingVerification - binds an account to a candidate email and code hash
//   - NewSession - creates a Session with validated account and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - create/edit accounts, email change flow, password change, deletion
//   - VerificationService - issue and consume single-use email change codes
//   - Authorizer - resolve session tokens into request identities
//
// Every Service entry point takes an explicit Identity produced by the
// Authorizer; nothing reads ambient session state.
package account
