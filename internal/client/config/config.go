package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the boostauth CLI.
//
// Fields:
//   - ServerURL: base URL of the HTTP session API.
//   - GRPCAddr: host:port of the gRPC endpoint (health and WhoAmI).
//   - OnlineCheckInterval: how often the client probes server health.
//   - RequestTimeout: upper bound for a single API call.
type Config struct {
	ServerURL           string
	GRPCAddr            string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.GRPCAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
