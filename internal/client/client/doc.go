// Package client talks to a boostauth server on behalf of the CLI.
//
// # Overview
//
//  1. HTTPClient calls the session API: register, password login, Google
//     login and the current-account lookup.
//  2. GRPCClient calls the gRPC endpoint: the standard health check and the
//     Session/WhoAmI method, sending the session token as bearer metadata.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrConflict, ErrInvalidInput.
// The server's "detail" message is kept in the wrapped error text.
package client
