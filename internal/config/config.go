package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Mode        string
	Port        string
	Environment string

	GarageCapacity    int
	GarageMaxCapacity int
	MaxSessions       int
	SessionTTL        time.Duration

	OTelServiceName string
	OTelEndpoint    string
}

func Load() (*Config, error) {
	cfg := &Config{
		Mode:            getEnv("GARAGE_MODE", "cli"),
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "parking-garage-service"),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
	}

	var err error
	if cfg.GarageCapacity, err = getEnvInt("GARAGE_CAPACITY", 10); err != nil {
		return nil, err
	}
	if cfg.GarageMaxCapacity, err = getEnvInt("GARAGE_MAX_CAPACITY", 1000); err != nil {
		return nil, err
	}
	if cfg.MaxSessions, err = getEnvInt("GARAGE_MAX_SESSIONS", 100); err != nil {
		return nil, err
	}

	ttl := getEnv("GARAGE_SESSION_TTL", "30m")
	cfg.SessionTTL, err = time.ParseDuration(ttl)
	if err != nil {
		return nil, fmt.Errorf("invalid GARAGE_SESSION_TTL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate is exported so flag overrides applied after Load can be rechecked.
func (c *Config) Validate() error {
	switch c.Mode {
	case "cli", "server", "both":
	default:
		return fmt.Errorf("invalid mode %q: must be cli, server, or both", c.Mode)
	}
	if c.GarageCapacity <= 0 {
		return fmt.Errorf("GARAGE_CAPACITY must be greater than 0")
	}
	if c.GarageMaxCapacity <= 0 {
		return fmt.Errorf("GARAGE_MAX_CAPACITY must be greater than 0")
	}
	if c.GarageCapacity > c.GarageMaxCapacity {
		return fmt.Errorf("GARAGE_CAPACITY must not exceed GARAGE_MAX_CAPACITY (%d)", c.GarageMaxCapacity)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("GARAGE_MAX_SESSIONS must be greater than 0")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("GARAGE_SESSION_TTL must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
