package config

import "fmt"

// APIConfig tunes the HTTP surface.
type APIConfig struct {
	Addr                   string `json:"addr"`
	ReadTimeoutSeconds     int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `json:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds"`
	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64 `json:"max_body_bytes"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeoutSeconds == 0 {
		c.ReadTimeoutSeconds = 10
	}
	if c.WriteTimeoutSeconds == 0 {
		c.WriteTimeoutSeconds = 30
	}
	if c.ShutdownTimeoutSeconds == 0 {
		c.ShutdownTimeoutSeconds = 10
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 1 << 20
	}
}

// Validate checks mandatory fields.
func (c APIConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("max_body_bytes must be at least 1024")
	}
	return nil
}
