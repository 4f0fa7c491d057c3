package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/boostauth/internal/flagx"
	"github.com/dmitrijs2005/boostauth/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Only non-zero
// fields override the current values.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	GRPCAddr            string         `json:"grpc_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
}

// parseJSON overlays cfg with the file named by -c/-config. No file
// configured is not an error.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.GRPCAddr != "" {
		cfg.GRPCAddr = jc.GRPCAddr
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
