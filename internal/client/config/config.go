package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the Jonline client.
//
// Fields:
//   - DefaultServer: host added to the registry on first run.
//   - Secure: whether servers are dialed over TLS by default.
//   - PageSize: expected full-page length for listings.
//   - HandshakeTimeout: bound for each client handshake call.
//   - DataDir: directory for the persistent store.
type Config struct {
	DefaultServer    string
	Secure           bool
	PageSize         int
	HandshakeTimeout time.Duration
	DataDir          string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DefaultServer = "jonline.io"
	c.Secure = true
	c.PageSize = 10
	c.HandshakeTimeout = 5 * time.Second
	c.DataDir = defaultDataDir()
}

// Load constructs a Config, applies defaults, then overlays values from YAML
// (if a file is given, or JONLINE_CONFIG points at one) and environment
// variables. Later sources take precedence over earlier ones.
func Load(yamlPath string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseYaml(cfg, yamlPath); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "jonline-data"
	}
	return filepath.Join(base, "jonline")
}
