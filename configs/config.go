package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	SMTP          SMTPConfig
	Notifications NotificationConfig
	Admin         AdminConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port    string
	OpsPort string
	Env     string
}

// IsDevelopment reports whether the server runs with GO_ENV=development
func (s ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string
	URL      string
	MaxConns int
	MinConns int
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// SMTPConfig holds outbound email configuration. Email is disabled when Host is empty.
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	Platform      string
	TemplatesFile string
}

// NotificationConfig holds the retention job configuration
type NotificationConfig struct {
	Retention     time.Duration
	PurgeSchedule string
}

// AdminConfig holds the bootstrap admin account
type AdminConfig struct {
	Email    string
	Password string
}

// devJWTSecret is used outside production when JWT_SECRET is unset
const devJWTSecret = "brokerdesk-dev-secret"

// Load loads configuration from environment variables
func Load() (*Config, error) {
	tokenTTL, err := getEnvDuration("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	retention, err := getEnvDuration("NOTIFICATION_RETENTION", 720*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			OpsPort: getEnv("OPS_PORT", "9090"),
			Env:     getEnv("GO_ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("STORAGE_DRIVER", DriverPostgres)),
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 2),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  tokenTTL,
		},
		SMTP: SMTPConfig{
			Host:          getEnv("SMTP_HOST", ""),
			Port:          getEnvInt("SMTP_PORT", 587),
			Username:      getEnv("SMTP_USERNAME", ""),
			Password:      getEnv("SMTP_PASSWORD", ""),
			From:          getEnv("SMTP_FROM", "no-reply@brokerdesk.local"),
			Platform:      getEnv("PLATFORM_NAME", "BrokerDesk"),
			TemplatesFile: getEnv("EMAIL_TEMPLATES", ""),
		},
		Notifications: NotificationConfig{
			Retention:     retention,
			PurgeSchedule: getEnv("NOTIFICATION_PURGE_SCHEDULE", "0 3 * * *"),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=%s", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		if c.Server.Env == "production" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.Auth.JWTSecret = devJWTSecret
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.Notifications.Retention <= 0 {
		return fmt.Errorf("NOTIFICATION_RETENTION must be positive")
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}
