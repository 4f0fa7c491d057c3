package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJSON(t *testing.T) {
	t.Setenv("BOOSTAUTH_CONFIG", "")

	path := writeTempJSON(t, map[string]any{
		"http_addr":        "www.example:9000",
		"grpc_addr":        ":7000",
		"database_dsn":     "postgres://u:p@db:5432/auth",
		"secret_key":       "my_secret_key",
		"token_issuer":     "boostauth",
		"token_ttl":        "12h",
		"google_client_id": "cid",
		"verifier_timeout": 3000000000,
		"password_hash":    "argon2id",
		"bcrypt_cost":      11,
		"link_policy":      "federated-only",
		"log_level":        "warn",
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, parseJSON(cfg, []string{"-config", path}))

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, ":7000", cfg.GRPCAddr)
		assert.Equal(t, "postgres://u:p@db:5432/auth", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, "boostauth", cfg.TokenIssuer)
		assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
		assert.Equal(t, "cid", cfg.GoogleClientID)
		assert.Equal(t, 3*time.Second, cfg.VerifierTimeout)
		assert.Equal(t, "argon2id", cfg.PasswordHash)
		assert.Equal(t, 11, cfg.BcryptCost)
		assert.Equal(t, "federated-only", cfg.LinkPolicy)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, map[string]any{"secret_key": "only"})
		cfg := defaults()
		require.NoError(t, parseJSON(&cfg, []string{"-c", partial}))

		assert.Equal(t, "only", cfg.SecretKey)
		assert.Equal(t, ":8000", cfg.HTTPAddr)
		assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		cfg := defaults()
		require.NoError(t, parseJSON(&cfg, nil))
		assert.Equal(t, defaults(), cfg)
	})

	t.Run("invalid JSON is an error", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		err := parseJSON(&Config{}, []string{"-c", bad})
		require.Error(t, err)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		err := parseJSON(&Config{}, []string{"-c", filepath.Join(t.TempDir(), "nope.json")})
		require.Error(t, err)
	})
}
