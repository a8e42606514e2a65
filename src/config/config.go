package config

import (
	"fmt"
	"os"

	"pe-tracker/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Defaults applied by Validate when the YAML leaves a field unset.
const (
	DefaultStalenessMinutes      = 60
	DefaultRateLimitIntervalMs   = 500
	DefaultUpdateIntervalSeconds = 3600
	DefaultRequestTimeoutSeconds = 10
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation and fills defaults
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = DefaultRequestTimeoutSeconds
	}
	if c.Network.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Tracker configuration
	if len(c.Tracker.Tickers) == 0 {
		return fmt.Errorf("at least one tracked ticker must be configured")
	}
	for i, ticker := range c.Tracker.Tickers {
		if !IsValidTicker(ticker) {
			return fmt.Errorf("tracked ticker %d (%q) must be alphanumeric and at most 10 characters", i, ticker)
		}
	}
	if c.Tracker.PEThreshold <= 0 || c.Tracker.PEThreshold > 1000 {
		return fmt.Errorf("pe_threshold must be between 0 and 1000, got %v", c.Tracker.PEThreshold)
	}
	if c.Tracker.StalenessMinutes == 0 {
		c.Tracker.StalenessMinutes = DefaultStalenessMinutes
	}
	if c.Tracker.StalenessMinutes < 0 {
		return fmt.Errorf("staleness_minutes cannot be negative")
	}
	if c.Tracker.RateLimitIntervalMs == 0 {
		c.Tracker.RateLimitIntervalMs = DefaultRateLimitIntervalMs
	}
	if c.Tracker.RateLimitIntervalMs < 0 {
		return fmt.Errorf("rate_limit_interval_ms cannot be negative")
	}
	if c.Tracker.UpdateIntervalSeconds == 0 {
		c.Tracker.UpdateIntervalSeconds = DefaultUpdateIntervalSeconds
	}
	if c.Tracker.UpdateIntervalSeconds < 0 {
		return fmt.Errorf("update interval cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

// IsValidTicker reports whether a ticker is alphanumeric and at most 10
// characters. Route handlers apply this before any core operation runs.
func IsValidTicker(ticker string) bool {
	if len(ticker) == 0 || len(ticker) > 10 {
		return false
	}
	for _, r := range ticker {
		isDigit := r >= '0' && r <= '9'
		isUpper := r >= 'A' && r <= 'Z'
		isLower := r >= 'a' && r <= 'z'
		if !isDigit && !isUpper && !isLower {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
