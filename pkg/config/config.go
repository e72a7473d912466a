package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Protocol bootstrap
	AdminAccount      string
	EscrowAccount     string
	CreatorFeePercent uint64 // 0-100, split of the total fee paid to market creators

	// Oracle
	OracleBaseURL       string
	OracleTimeout       time.Duration
	OracleCacheTTL      time.Duration
	OracleMaxAge        time.Duration
	OracleMaxConfidence uint64

	// Keeper (permissionless settlement crank)
	KeeperEnabled  bool
	KeeperInterval time.Duration

	// Circuit breaker
	BreakerFailureThreshold int
	BreakerSuccessThreshold int

	// HTTP rate limiting
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Protocol defaults
		AdminAccount:      getEnvOrDefault("RAVEN_ADMIN_ACCOUNT", "admin"),
		EscrowAccount:     getEnvOrDefault("RAVEN_ESCROW_ACCOUNT", "escrow-vault"),
		CreatorFeePercent: getUint64OrDefault("RAVEN_CREATOR_FEE_PERCENT", 40),

		// Oracle defaults
		OracleBaseURL:       getEnvOrDefault("ORACLE_BASE_URL", "https://hermes.pyth.network"),
		OracleTimeout:       getDurationOrDefault("ORACLE_TIMEOUT", 10*time.Second),
		OracleCacheTTL:      getDurationOrDefault("ORACLE_CACHE_TTL", 2*time.Second),
		OracleMaxAge:        getDurationOrDefault("ORACLE_MAX_AGE", 60*time.Second),
		OracleMaxConfidence: getUint64OrDefault("ORACLE_MAX_CONFIDENCE", 1_000_000),

		// Keeper defaults
		KeeperEnabled:  getBoolOrDefault("KEEPER_ENABLED", true),
		KeeperInterval: getDurationOrDefault("KEEPER_INTERVAL", 5*time.Second),

		// Circuit breaker defaults
		BreakerFailureThreshold: getIntOrDefault("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerSuccessThreshold: getIntOrDefault("BREAKER_SUCCESS_THRESHOLD", 2),

		// Rate limit defaults
		RateLimitPerSecond: getFloat64OrDefault("RATE_LIMIT_PER_SECOND", 25.0),
		RateLimitBurst:     getIntOrDefault("RATE_LIMIT_BURST", 50),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "raven"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "raven123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "raven_engine"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.AdminAccount == "" {
		return fmt.Errorf("RAVEN_ADMIN_ACCOUNT cannot be empty")
	}

	if c.EscrowAccount == "" {
		return fmt.Errorf("RAVEN_ESCROW_ACCOUNT cannot be empty")
	}

	if c.AdminAccount == c.EscrowAccount {
		return fmt.Errorf("admin and escrow accounts must differ")
	}

	if c.CreatorFeePercent > 100 {
		return fmt.Errorf("RAVEN_CREATOR_FEE_PERCENT must be 0-100, got %d", c.CreatorFeePercent)
	}

	if c.OracleBaseURL == "" {
		return fmt.Errorf("ORACLE_BASE_URL cannot be empty")
	}

	if c.KeeperInterval <= 0 {
		return fmt.Errorf("KEEPER_INTERVAL must be positive, got %s", c.KeeperInterval)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getUint64OrDefault(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	uintVal, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return uintVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
