// Package cli provides the interactive boostauth command-line client.
//
// It wires configuration, the HTTP and gRPC API clients, and an interactive
// REPL. A background watcher polls the gRPC health service and shows the
// server state in the prompt.
//
// Commands:
//   - register / login / google (exchange a Google ID token)
//   - me (HTTP) and whoami (gRPC) for the current session
//   - health, logout, exit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
