// Package config provides configuration management for the conductor standalone server.
// It loads settings from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config holds all configuration for the conductor server.
type Config struct {
	Broker   BrokerConfig
	Journal  JournalConfig
	Database DatabaseConfig
	LogLevel string // debug, info, warn, error
}

// BrokerConfig holds listener and queue configuration.
type BrokerConfig struct {
	FrontAddr           string // Publisher ingest address
	BackAddr            string // Subscriber address
	QueueSize           int
	ReadBufferSize      int
	RegistrationTimeout int  // Topic-list read deadline in seconds (0 = none)
	EnableNotifications bool // Log registrations and pruned subscribers
}

// JournalConfig holds delivery journal configuration.
type JournalConfig struct {
	Enabled  bool
	Interval int // Flush interval in seconds
}

// DatabaseConfig holds journal database connection configuration.
type DatabaseConfig struct {
	Driver   string // mysql, postgres, sqlite3
	DSN      string // Overrides the fields below when set
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Prefix   string // Table prefix (default: "conductor_")
}

// Load loads configuration from environment variables.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	cfg := &Config{
		Broker: BrokerConfig{
			FrontAddr:           getEnv("CONDUCTOR_FRONT_ADDR", "0.0.0.0:5555"),
			BackAddr:            getEnv("CONDUCTOR_BACK_ADDR", "0.0.0.0:5556"),
			QueueSize:           getEnvInt("CONDUCTOR_QUEUE_SIZE", 1024),
			ReadBufferSize:      getEnvInt("CONDUCTOR_READ_BUFFER", 1024),
			RegistrationTimeout: getEnvInt("CONDUCTOR_REGISTRATION_TIMEOUT", 0),
			EnableNotifications: getEnvBool("CONDUCTOR_ENABLE_NOTIFICATIONS", true),
		},
		Journal: JournalConfig{
			Enabled:  getEnvBool("CONDUCTOR_JOURNAL", false),
			Interval: getEnvInt("CONDUCTOR_JOURNAL_INTERVAL", 5),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("CONDUCTOR_DB_DRIVER", "sqlite3"),
			DSN:      getEnv("CONDUCTOR_DB_DSN", ""),
			Host:     getEnv("CONDUCTOR_DB_HOST", "localhost"),
			Port:     getEnvInt("CONDUCTOR_DB_PORT", 3306),
			User:     getEnv("CONDUCTOR_DB_USER", "conductor"),
			Password: getEnv("CONDUCTOR_DB_PASSWORD", ""),
			Database: getEnv("CONDUCTOR_DB_NAME", "conductor.db"),
			Prefix:   getEnv("CONDUCTOR_DB_PREFIX", "conductor_"),
		},
		LogLevel: strings.ToLower(getEnv("CONDUCTOR_LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration. Database settings are only checked when
// the journal is enabled.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Broker),
		validation.Field(&c.Journal),
		validation.Field(&c.Database, validation.Skip.When(!c.Journal.Enabled)),
		validation.Field(&c.LogLevel, validation.Required, validation.In("debug", "info", "warn", "error")),
	)
}

// Validate checks the broker settings.
func (b BrokerConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.FrontAddr, validation.Required),
		validation.Field(&b.BackAddr, validation.Required),
		validation.Field(&b.QueueSize, validation.Required, validation.Min(1)),
		validation.Field(&b.ReadBufferSize, validation.Required, validation.Min(1)),
		validation.Field(&b.RegistrationTimeout, validation.Min(0)),
	)
}

// Validate checks the journal settings.
func (j JournalConfig) Validate() error {
	return validation.ValidateStruct(&j,
		validation.Field(&j.Interval, validation.When(j.Enabled, validation.Required, validation.Min(1))),
	)
}

// Validate checks the database settings.
func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In("mysql", "postgres", "sqlite3")),
		validation.Field(&d.Database, validation.When(d.DSN == "", validation.Required)),
	)
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch strings.ToLower(c.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}

// getEnv retrieves environment variable or returns default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves environment variable as boolean or returns default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
