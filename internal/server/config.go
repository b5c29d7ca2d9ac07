package server

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds the server settings. Every field can be set through a
// CHATWIRE_-prefixed environment variable and falls back to a sane default.
type Config struct {
	Addr            string        `split_words:"true" default:":8080"`
	AllowedOrigins  []string      `split_words:"true" default:"http://localhost:8080"`
	MaxMessageSize  int64         `split_words:"true" default:"4096"`
	SendBuffer      int           `split_words:"true" default:"256"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	LogLevel        string        `split_words:"true" default:"info"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("chatwire", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	return cfg.sanitized(), nil
}

// DefaultConfig returns the configuration with every field at its default,
// ignoring the environment.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"http://localhost:8080"},
	}.sanitized()
}

// sanitized replaces out-of-range values with their defaults, in the same
// spirit as rejecting them: a misconfigured relay should still come up.
func (c Config) sanitized() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}
