package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/boostauth/internal/flagx"
)

// serverFlags lists every flag handled here; anything else in os.Args is
// left for other flag sets.
var serverFlags = []string{
	"-a", "-g", "-d", "-s", "-i", "-t",
	"-google-client-id", "-verifier-timeout", "-hash", "-bcrypt-cost", "-link-policy", "-log-level",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string                 HTTP bind address (e.g. ":8000")
//	-g string                 gRPC bind address (e.g. ":50051")
//	-d string                 database DSN (postgres://, sqlite://, memory://)
//	-s string                 token signing secret
//	-i string                 token issuer
//	-t duration               token ttl (e.g. "24h")
//	-google-client-id string  Google OAuth client id
//	-verifier-timeout duration
//	-hash string              bcrypt or argon2id
//	-bcrypt-cost int
//	-link-policy string       any or federated-only
//	-log-level string
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	fs.StringVar(&config.TokenIssuer, "i", config.TokenIssuer, "token issuer")
	fs.DurationVar(&config.TokenTTL, "t", config.TokenTTL, "token ttl")
	fs.StringVar(&config.GoogleClientID, "google-client-id", config.GoogleClientID, "Google OAuth client id")
	fs.DurationVar(&config.VerifierTimeout, "verifier-timeout", config.VerifierTimeout, "identity verification timeout")
	fs.StringVar(&config.PasswordHash, "hash", config.PasswordHash, "password hash algorithm")
	fs.IntVar(&config.BcryptCost, "bcrypt-cost", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.LinkPolicy, "link-policy", config.LinkPolicy, "federated link policy")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
