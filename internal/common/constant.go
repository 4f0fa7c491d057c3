// Package common contains shared constants and sentinel errors used across
// boostauth components.
package common

const (
	// AuthorizationHeaderName is the HTTP header and gRPC metadata key that
	// carries the bearer session token.
	AuthorizationHeaderName = "authorization"

	// BearerScheme is the token type returned to clients and expected in the
	// Authorization header.
	BearerScheme = "bearer"
)
