package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cli", cfg.Mode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 10, cfg.GarageCapacity)
	assert.Equal(t, 1000, cfg.GarageMaxCapacity)
	assert.Equal(t, 100, cfg.MaxSessions)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "parking-garage-service", cfg.OTelServiceName)
	assert.Equal(t, "http://localhost:4318", cfg.OTelEndpoint)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GARAGE_MODE", "server")
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("GARAGE_CAPACITY", "4")
	t.Setenv("GARAGE_MAX_CAPACITY", "50")
	t.Setenv("GARAGE_MAX_SESSIONS", "7")
	t.Setenv("GARAGE_SESSION_TTL", "90s")
	t.Setenv("OTEL_SERVICE_NAME", "garage-ci")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 4, cfg.GarageCapacity)
	assert.Equal(t, 50, cfg.GarageMaxCapacity)
	assert.Equal(t, 7, cfg.MaxSessions)
	assert.Equal(t, 90*time.Second, cfg.SessionTTL)
	assert.Equal(t, "garage-ci", cfg.OTelServiceName)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"capacity not a number", "GARAGE_CAPACITY", "ten"},
		{"capacity zero", "GARAGE_CAPACITY", "0"},
		{"capacity above maximum", "GARAGE_CAPACITY", "1001"},
		{"max capacity zero", "GARAGE_MAX_CAPACITY", "0"},
		{"sessions negative", "GARAGE_MAX_SESSIONS", "-1"},
		{"ttl malformed", "GARAGE_SESSION_TTL", "soon"},
		{"ttl zero", "GARAGE_SESSION_TTL", "0s"},
		{"unknown mode", "GARAGE_MODE", "daemon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
