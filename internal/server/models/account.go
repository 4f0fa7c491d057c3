// Package models holds the server-side domain records.
package models

import (
	"strings"
	"time"
)

// Account is one registered identity. Password-only, federated-only and
// linked accounts share this record; the optional fields tell them apart.
//
// After creation an account always has at least one usable authentication
// method: a PasswordHash or an ExternalID.
type Account struct {
	ID           string
	Email        string
	Phone        *string
	PasswordHash *string
	Name         *string
	ExternalID   *string
	CreatedAt    time.Time
}

// HasPassword reports whether the account can log in with a password.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// IsFederated reports whether an external identity is linked.
func (a *Account) IsFederated() bool {
	return a.ExternalID != nil && *a.ExternalID != ""
}

// CanAuthenticate reports whether the account satisfies the
// at-least-one-method invariant.
func (a *Account) CanAuthenticate() bool {
	return a.HasPassword() || a.IsFederated()
}

// Identity is a verified third-party identity assertion reduced to the
// facts the resolver needs. It is never persisted as such.
type Identity struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

// NormalizeEmail returns the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StringPtr returns nil for the empty string, otherwise a pointer to s.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
