package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// duration lets YAML specify intervals as strings like "5s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// yamlConfig is a DTO used exclusively for YAML unmarshalling. Pointer fields
// distinguish "absent" from zero so the overlay only touches keys actually
// present in the file.
type yamlConfig struct {
	DefaultServer    *string   `yaml:"default_server"`
	Secure           *bool     `yaml:"secure"`
	PageSize         *int      `yaml:"page_size"`
	HandshakeTimeout *duration `yaml:"handshake_timeout"`
	DataDir          *string   `yaml:"data_dir"`
}

// parseYaml overlays cfg with values loaded from a YAML file. An empty path
// falls back to JONLINE_CONFIG; if that is empty too, nothing is loaded.
func parseYaml(cfg *Config, path string) error {
	if path == "" {
		path = os.Getenv("JONLINE_CONFIG")
	}
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if yc.DefaultServer != nil {
		cfg.DefaultServer = *yc.DefaultServer
	}
	if yc.Secure != nil {
		cfg.Secure = *yc.Secure
	}
	if yc.PageSize != nil {
		cfg.PageSize = *yc.PageSize
	}
	if yc.HandshakeTimeout != nil {
		cfg.HandshakeTimeout = yc.HandshakeTimeout.Duration
	}
	if yc.DataDir != nil {
		cfg.DataDir = *yc.DataDir
	}
	return nil
}
