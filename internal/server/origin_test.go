package server

import (
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestOriginPolicy_AllowsConfiguredOrigin(t *testing.T) {
	req := require.New(t)
	policy := newOriginPolicy([]string{"http://localhost:8080"}, zerolog.Nop())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "http://localhost:8080")
	req.True(policy.check(r))

	// Scheme and host matching is case-insensitive.
	r.Header.Set("Origin", "HTTP://LOCALHOST:8080")
	req.True(policy.check(r))
}

func TestOriginPolicy_BlocksUnknownOrigin(t *testing.T) {
	req := require.New(t)
	policy := newOriginPolicy([]string{"http://localhost:8080"}, zerolog.Nop())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "http://evil.example.com")
	req.False(policy.check(r))
}

func TestOriginPolicy_BlocksMissingOrigin(t *testing.T) {
	req := require.New(t)
	policy := newOriginPolicy([]string{"http://localhost:8080"}, zerolog.Nop())

	r := httptest.NewRequest("GET", "/ws", nil)
	req.False(policy.check(r))
}

func TestOriginPolicy_Wildcard(t *testing.T) {
	req := require.New(t)
	policy := newOriginPolicy([]string{"*"}, zerolog.Nop())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "http://anything.example.com")
	req.True(policy.check(r))
}

func TestOriginPolicy_IgnoresInvalidConfigEntries(t *testing.T) {
	req := require.New(t)
	policy := newOriginPolicy([]string{"", "not a url", "http://localhost:8080"}, zerolog.Nop())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "http://localhost:8080")
	req.True(policy.check(r))
}
