package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/database"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Lottery configuration
	DrawCost     int64 // Points debited per draw
	StockRetries int   // Pool re-evaluations after a prize sells out mid-draw

	// Store conflict handling
	ConflictRetries int // Attempts for a transaction that hits a serialization failure

	// NATS configuration
	NATSEnabled            bool
	NATSServers            string // NATS server addresses (comma-separated)
	LevelCompletionSubject string // Subject carrying level completions from the level checker

	// Background jobs
	AuditInterval           time.Duration
	FillerReconcileInterval time.Duration

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelServiceName          string
	OTelExportIntervalMillis int

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// ConfigureLogging applies the log level and format to the global logger
func (c *Config) ConfigureLogging() {
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("logLevel", c.LogLevel).Warn("Unknown log level, falling back to info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// A .env file is optional; the process environment always wins
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to parse .env file, reading environment variables directly")
	}

	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Lottery
		DrawCost:     getEnvInt64("DRAW_COST", 1),
		StockRetries: int(getEnvInt64("STOCK_RETRIES", 3)),

		ConflictRetries: int(getEnvInt64("CONFLICT_RETRIES", 3)),

		// NATS
		NATSEnabled:            getEnvWithDefault("NATS_ENABLED", "true") == "true",
		NATSServers:            getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),
		LevelCompletionSubject: getEnvWithDefault("LEVEL_COMPLETION_SUBJECT", "levels.completed"),

		// Jobs
		AuditInterval:           getEnvDuration("AUDIT_INTERVAL", 15*time.Minute),
		FillerReconcileInterval: getEnvDuration("FILLER_RECONCILE_INTERVAL", 5*time.Minute),

		// OpenTelemetry
		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "welcome-system"),
		OTelExportIntervalMillis: int(getEnvInt64("OTEL_EXPORT_INTERVAL_MS", 30000)),

		// Logging
		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks required settings and value ranges
func (c *Config) validate() error {
	if c.DrawCost < 0 {
		return fmt.Errorf("DRAW_COST must not be negative, got %d", c.DrawCost)
	}
	if c.ConflictRetries < 1 {
		return fmt.Errorf("CONFLICT_RETRIES must be at least 1, got %d", c.ConflictRetries)
	}
	if c.StockRetries < 0 {
		return fmt.Errorf("STOCK_RETRIES must not be negative, got %d", c.StockRetries)
	}

	if c.Environment == "test" {
		return nil
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	// If DatabaseName is provided, ensure it's not empty
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.WithFields(log.Fields{
			"key":   key,
			"value": value,
		}).Warn("Invalid integer in environment, using default")
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.WithFields(log.Fields{
			"key":   key,
			"value": value,
		}).Warn("Invalid duration in environment, using default")
		return defaultValue
	}
	return parsed
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:              "test",
		DrawCost:                 1,
		StockRetries:             3,
		ConflictRetries:          3,
		NATSEnabled:              false,
		LevelCompletionSubject:   "levels.completed",
		AuditInterval:            15 * time.Minute,
		FillerReconcileInterval:  5 * time.Minute,
		OTelExporterType:         "none",
		OTelServiceName:          "welcome-system-test",
		OTelExportIntervalMillis: 30000,
		LogLevel:                 "debug",
		LogFormat:                "text",
	}
}
