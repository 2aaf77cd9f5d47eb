package config

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Values come from environment
// variables, optionally overlaid by a YAML file pointed to by CONFIG_FILE.
type Config struct {
	Env       string `yaml:"env"`
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`

	// Base64-encoded 32-byte secrets. The three keyspaces are independent:
	// compromise of one must not expose material protected by another.
	MasterSecret  string `yaml:"master_secret"`
	TransitSecret string `yaml:"transit_secret"`
	SigningSecret string `yaml:"signing_secret"`

	// Collaborator endpoints.
	PingBaseURL     string `yaml:"ping_base_url"`
	PingStubMode    bool   `yaml:"ping_stub_mode"`
	IdentityBaseURL string `yaml:"identity_base_url"`

	// DefaultTimezone is applied when a schedule update carries no zone.
	DefaultTimezone string `yaml:"default_timezone"`
}

// Load reads configuration from the environment, then overlays the YAML file
// named by CONFIG_FILE if set. File values only fill fields the environment
// left empty.
func Load() (*Config, error) {
	cfg := &Config{
		Env:             getEnvWithDefault("ENV", "development"),
		Port:            getEnvWithDefault("PORT", "8080"),
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:       getEnvWithDefault("LOG_FORMAT", "text"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		MasterSecret:    os.Getenv("MASTER_SECRET"),
		TransitSecret:   os.Getenv("TRANSIT_SECRET"),
		SigningSecret:   os.Getenv("SIGNING_SECRET"),
		PingBaseURL:     os.Getenv("PING_BASE_URL"),
		PingStubMode:    os.Getenv("PING_STUB_MODE") == "true",
		IdentityBaseURL: os.Getenv("IDENTITY_BASE_URL"),
		DefaultTimezone: getEnvWithDefault("DEFAULT_TIMEZONE", "UTC"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.MasterSecret == "" || cfg.TransitSecret == "" || cfg.SigningSecret == "" {
		log.Println("WARNING: One or more crypto secrets are unset. Generate each with: openssl rand -base64 32")
	}

	return cfg, nil
}

// overlayFile fills empty fields from a YAML config file. Unknown keys are
// rejected to catch typos.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	merge := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	merge(&c.DatabaseURL, file.DatabaseURL)
	merge(&c.MasterSecret, file.MasterSecret)
	merge(&c.TransitSecret, file.TransitSecret)
	merge(&c.SigningSecret, file.SigningSecret)
	merge(&c.PingBaseURL, file.PingBaseURL)
	merge(&c.IdentityBaseURL, file.IdentityBaseURL)
	if file.RedisURL != "" {
		c.RedisURL = file.RedisURL
	}
	if file.DefaultTimezone != "" {
		c.DefaultTimezone = file.DefaultTimezone
	}
	if file.PingStubMode {
		c.PingStubMode = true
	}

	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
