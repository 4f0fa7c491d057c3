package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/boostauth/internal/flagx"
	"github.com/dmitrijs2005/boostauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "24h" and integer nanoseconds are accepted.
//
// Only fields present (non-zero) in the file override the current values.
type JsonConfig struct {
	HTTPAddr        string         `json:"http_addr"`
	GRPCAddr        string         `json:"grpc_addr"`
	DatabaseDSN     string         `json:"database_dsn"`
	SecretKey       string         `json:"secret_key"`
	TokenIssuer     string         `json:"token_issuer"`
	TokenTTL        timex.Duration `json:"token_ttl"`
	GoogleClientID  string         `json:"google_client_id"`
	VerifierTimeout timex.Duration `json:"verifier_timeout"`
	PasswordHash    string         `json:"password_hash"`
	BcryptCost      int            `json:"bcrypt_cost"`
	LinkPolicy      string         `json:"link_policy"`
	LogLevel        string         `json:"log_level"`
}

// parseJSON loads the file named by -c/-config (or BOOSTAUTH_CONFIG) into
// config. No file configured is not an error.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TokenIssuer, c.TokenIssuer)
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.PasswordHash, c.PasswordHash)
	setString(&config.LinkPolicy, c.LinkPolicy)
	setString(&config.LogLevel, c.LogLevel)
	if c.TokenTTL.Duration != 0 {
		config.TokenTTL = c.TokenTTL.Duration
	}
	if c.VerifierTimeout.Duration != 0 {
		config.VerifierTimeout = c.VerifierTimeout.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
