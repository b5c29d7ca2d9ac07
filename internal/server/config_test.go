package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)

	cfg, err := LoadConfig()
	req.NoError(err)

	req.Equal(":8080", cfg.Addr)
	req.Equal([]string{"http://localhost:8080"}, cfg.AllowedOrigins)
	req.Equal(int64(4096), cfg.MaxMessageSize)
	req.Equal(256, cfg.SendBuffer)
	req.Equal(10*time.Second, cfg.ShutdownTimeout)
	req.Equal("info", cfg.LogLevel)
}

func TestLoadConfig_Environment(t *testing.T) {
	req := require.New(t)
	t.Setenv("CHATWIRE_ADDR", ":9090")
	t.Setenv("CHATWIRE_ALLOWED_ORIGINS", "https://chat.example.com,https://staging.example.com")
	t.Setenv("CHATWIRE_MAX_MESSAGE_SIZE", "1024")
	t.Setenv("CHATWIRE_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("CHATWIRE_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	req.NoError(err)

	req.Equal(":9090", cfg.Addr)
	req.Equal([]string{"https://chat.example.com", "https://staging.example.com"}, cfg.AllowedOrigins)
	req.Equal(int64(1024), cfg.MaxMessageSize)
	req.Equal(3*time.Second, cfg.ShutdownTimeout)
	req.Equal("debug", cfg.LogLevel)
}

func TestConfig_SanitizesOutOfRangeValues(t *testing.T) {
	req := require.New(t)

	cfg := Config{
		MaxMessageSize:  -1,
		SendBuffer:      0,
		ShutdownTimeout: -time.Second,
	}.sanitized()

	req.Equal(":8080", cfg.Addr)
	req.Equal(int64(4096), cfg.MaxMessageSize)
	req.Equal(256, cfg.SendBuffer)
	req.Equal(10*time.Second, cfg.ShutdownTimeout)
	req.Equal("info", cfg.LogLevel)
}
