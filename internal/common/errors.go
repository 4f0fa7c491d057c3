// Package common defines shared constants and sentinel errors used across
// store, auth and service layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrUniqueViolation = errors.New("uniqueness violation")

	// Token errors. Every parse, signature and expiry failure collapses into
	// ErrInvalidToken.
	ErrInvalidToken = errors.New("invalid token")

	// Service-level taxonomy returned by the auth service.
	ErrAlreadyExists         = errors.New("already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrInvalidAssertion      = errors.New("invalid identity assertion")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrStoreUnavailable      = errors.New("account store unavailable")
	ErrVerifierMisconfigured = errors.New("identity verifier is not configured")
	ErrIdentityConflict      = errors.New("email is linked to a different identity")
	ErrValidation            = errors.New("validation error")
	ErrorInternal            = errors.New("internal error")
)
