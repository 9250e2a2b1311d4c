// Package config loads runtime configuration for the Jonline client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional YAML file, path given by the caller or JONLINE_CONFIG.
//  3. Environment variables (JONLINE_*), which override earlier values.
//
// # YAML schema
//
// Durations accept strings like "5s":
//
//	default_server: jonline.io
//	secure: true
//	page_size: 10
//	handshake_timeout: 5s
//	data_dir: /var/lib/jonline
//
// Environment variables
//
//	JONLINE_SERVER              default server host
//	JONLINE_SECURE              "true" / "false"
//	JONLINE_PAGE_SIZE           integer
//	JONLINE_HANDSHAKE_TIMEOUT   duration, e.g. "5s"
//	JONLINE_DATA_DIR            store directory
package config
