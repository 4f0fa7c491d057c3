// Package config handles configuration for the server component:
// defaults, JSON file overlay, environment overlay and command-line flags,
// applied in that order.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/boostauth/internal/logging"
)

// Password hashing algorithms understood by the server.
const (
	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

// Link policies applied when a federated login matches an existing account
// by email.
const (
	// LinkAny links the external identity into any account that has no
	// external identity yet, including password-protected accounts.
	LinkAny = "any"
	// LinkFederatedOnly links only into accounts without a password hash.
	LinkFederatedOnly = "federated-only"
)

const (
	defaultSecretKey = "change-me-in-production-use-a-long-random-string"
	minBcryptCost    = 4
	maxBcryptCost    = 31
)

// Config holds runtime settings for the boostauth server. It is built once at
// startup and then passed by value or pointer into constructors; nothing
// reads it from global state afterwards.
//
// Fields:
//   - HTTPAddr / GRPCAddr: bind addresses for the session API and gRPC health/auth surface.
//   - DatabaseDSN: postgres://, sqlite:// or memory:// account store.
//   - SecretKey: HMAC secret for signing session tokens (HS256).
//   - TokenIssuer: optional "iss" claim; validated when set.
//   - TokenTTL: session token lifetime.
//   - GoogleClientID: expected audience of Google ID tokens; empty disables federated login.
//   - VerifierTimeout: upper bound for one identity-assertion verification.
//   - PasswordHash / BcryptCost: hashing algorithm for new password hashes.
//   - LinkPolicy: LinkAny or LinkFederatedOnly.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR"`
	GRPCAddr        string        `env:"GRPC_ADDR"`
	DatabaseDSN     string        `env:"DATABASE_DSN"`
	SecretKey       string        `env:"SECRET_KEY"`
	TokenIssuer     string        `env:"TOKEN_ISSUER"`
	TokenTTL        time.Duration `env:"TOKEN_TTL"`
	GoogleClientID  string        `env:"GOOGLE_CLIENT_ID"`
	VerifierTimeout time.Duration `env:"VERIFIER_TIMEOUT"`
	PasswordHash    string        `env:"PASSWORD_HASH"`
	BcryptCost      int           `env:"BCRYPT_COST"`
	LinkPolicy      string        `env:"LINK_POLICY"`
	LogLevel        string        `env:"LOG_LEVEL"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key default is insecure and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8000"
	c.GRPCAddr = ":50051"
	c.DatabaseDSN = "sqlite://boostauth.db"
	c.SecretKey = defaultSecretKey
	c.TokenIssuer = ""
	c.TokenTTL = 24 * time.Hour
	c.GoogleClientID = ""
	c.VerifierTimeout = 5 * time.Second
	c.PasswordHash = HashBcrypt
	c.BcryptCost = 12
	c.LinkPolicy = LinkAny
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line
// flags. The result is validated before it is returned.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run safely with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return fmt.Errorf("secret key is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	}
	if c.VerifierTimeout <= 0 {
		return fmt.Errorf("verifier timeout must be positive, got %s", c.VerifierTimeout)
	}
	switch c.PasswordHash {
	case HashBcrypt:
		if c.BcryptCost < minBcryptCost || c.BcryptCost > maxBcryptCost {
			return fmt.Errorf("bcrypt cost %d out of range [%d, %d]", c.BcryptCost, minBcryptCost, maxBcryptCost)
		}
	case HashArgon2id:
	default:
		return fmt.Errorf("unsupported password hash %q", c.PasswordHash)
	}
	switch c.LinkPolicy {
	case LinkAny, LinkFederatedOnly:
	default:
		return fmt.Errorf("unsupported link policy %q", c.LinkPolicy)
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// UsesDefaultSecret reports whether the signing secret is still the
// development default.
func (c *Config) UsesDefaultSecret() bool {
	return c.SecretKey == defaultSecretKey
}
