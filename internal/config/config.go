// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Governance
	OwnerAddress    string // Single owner identity, required
	TreasuryAddress string // Destination account for settled funds and collected fees

	// Order policy defaults (admin-tunable at runtime via /v1/policy)
	RefundWindow   time.Duration // Earliest unwind boundary for a fresh order
	ExpiryGrace    time.Duration // Added on top of RefundWindow for permissionless expiry
	DailyFiatLimit int64         // Per-account daily fiat cap in minor units; 0 = unlimited
	MaxMetadata    int           // Size cap for order metadata in bytes

	// Security
	RateLimitRPS int
}

// Defaults
const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultRefundWindow   = 2 * time.Hour
	DefaultExpiryGrace    = 24 * time.Hour
	DefaultDailyFiatLimit = 0 // unlimited unless configured
	DefaultMaxMetadata    = 4096
	DefaultRateLimit      = 100
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:     os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		OwnerAddress:    os.Getenv("OWNER_ADDRESS"),
		TreasuryAddress: os.Getenv("TREASURY_ADDRESS"),
		RefundWindow:    getEnvDuration("REFUND_WINDOW", DefaultRefundWindow),
		ExpiryGrace:     getEnvDuration("EXPIRY_GRACE", DefaultExpiryGrace),
		DailyFiatLimit:  getEnvInt64("DAILY_FIAT_LIMIT", DefaultDailyFiatLimit),
		MaxMetadata:     int(getEnvInt64("MAX_METADATA_BYTES", DefaultMaxMetadata)),
		RateLimitRPS:    int(getEnvInt64("RATE_LIMIT_RPS", int64(DefaultRateLimit))),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.OwnerAddress == "" {
		return fmt.Errorf("OWNER_ADDRESS is required")
	}
	if c.TreasuryAddress == "" {
		c.TreasuryAddress = c.OwnerAddress
	}
	if c.RefundWindow <= 0 {
		return fmt.Errorf("REFUND_WINDOW must be positive")
	}
	if c.ExpiryGrace <= 0 {
		return fmt.Errorf("EXPIRY_GRACE must be positive")
	}
	if c.DailyFiatLimit < 0 {
		return fmt.Errorf("DAILY_FIAT_LIMIT cannot be negative")
	}
	if c.MaxMetadata <= 0 {
		return fmt.Errorf("MAX_METADATA_BYTES must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
