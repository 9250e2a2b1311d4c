package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// parseEnv overlays cfg with values from JONLINE_* environment variables.
// Unset variables leave the current value untouched.
func parseEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("JONLINE_SERVER"); ok {
		cfg.DefaultServer = v
	}
	if v, ok := os.LookupEnv("JONLINE_SECURE"); ok {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("JONLINE_SECURE: %w", err)
		}
		cfg.Secure = secure
	}
	if v, ok := os.LookupEnv("JONLINE_PAGE_SIZE"); ok {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JONLINE_PAGE_SIZE: %w", err)
		}
		cfg.PageSize = size
	}
	if v, ok := os.LookupEnv("JONLINE_HANDSHAKE_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JONLINE_HANDSHAKE_TIMEOUT: %w", err)
		}
		cfg.HandshakeTimeout = timeout
	}
	if v, ok := os.LookupEnv("JONLINE_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	return nil
}
