package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	EventStore EventStoreConfig
	Auth       AuthConfig
	Reminder   ReminderConfig
	Heliant    HeliantConfig
	Notifier   NotifierConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// EventStoreConfig holds configuration for EventStoreDB, which carries the
// platform event streams and the background execution command channel.
type EventStoreConfig struct {
	// Host is the EventStoreDB server hostname
	Host string
	// Port is the gRPC port (default 2113)
	Port int
	// Insecure disables TLS (for development)
	Insecure bool
	// Username for authentication (optional)
	Username string
	// Password for authentication (optional)
	Password string
}

type AuthConfig struct {
	JWTSecret string
}

// ReminderConfig holds the reminder engine timings. Defaults match the
// clinical workflow: a 30s dispatch tick, a 5m schedule rebuild over a
// 2-day lookahead, and a 24h retention window for completed entries.
type ReminderConfig struct {
	// TickInterval is how often the dispatcher pulls due entries
	TickInterval time.Duration
	// RebuildInterval is how often schedules are re-derived from source data
	RebuildInterval time.Duration
	// DueSlack is the forward-looking window that absorbs tick jitter
	DueSlack time.Duration
	// Lookahead bounds the rebuild window for upcoming clinical events
	Lookahead time.Duration
	// Retention is how long sent/failed entries are kept for auditing
	Retention time.Duration
	// VoiceDefault is the initial state of the voice alert toggle
	VoiceDefault bool
}

// HeliantConfig configures the optional sync from a legacy Heliant HIS
// running on SQL Server.
type HeliantConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	// PollInterval is how often the legacy system is polled
	PollInterval time.Duration
	// InstitutionCode identifies the source hospital
	InstitutionCode string
	InstitutionName string
}

type NotifierConfig struct {
	// Provider selects the delivery backend: "console" or "noop"
	Provider string
}

func Load() (*Config, error) {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "platform"),
			Password: getEnv("DB_PASSWORD", "platform"),
			Database: getEnv("DB_NAME", "platform"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		EventStore: EventStoreConfig{
			Host:     getEnv("EVENTSTORE_HOST", "localhost"),
			Port:     getEnvInt("EVENTSTORE_PORT", 2113),
			Insecure: getEnvBool("EVENTSTORE_INSECURE", true),
			Username: getEnv("EVENTSTORE_USERNAME", ""),
			Password: getEnv("EVENTSTORE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
		},
		Reminder: ReminderConfig{
			TickInterval:    getEnvDuration("REMINDER_TICK_INTERVAL", 30*time.Second),
			RebuildInterval: getEnvDuration("REMINDER_REBUILD_INTERVAL", 5*time.Minute),
			DueSlack:        getEnvDuration("REMINDER_DUE_SLACK", 60*time.Second),
			Lookahead:       getEnvDuration("REMINDER_LOOKAHEAD", 48*time.Hour),
			Retention:       getEnvDuration("REMINDER_RETENTION", 24*time.Hour),
			VoiceDefault:    getEnvBool("REMINDER_VOICE_DEFAULT", true),
		},
		Heliant: HeliantConfig{
			Enabled:         getEnvBool("HELIANT_ENABLED", false),
			Host:            getEnv("HELIANT_HOST", "localhost"),
			Port:            getEnvInt("HELIANT_PORT", 1433),
			Database:        getEnv("HELIANT_DB", "heliant"),
			User:            getEnv("HELIANT_USER", "platform"),
			Password:        getEnv("HELIANT_PASSWORD", ""),
			SSLMode:         getEnv("HELIANT_SSLMODE", "disable"),
			PollInterval:    getEnvDuration("HELIANT_POLL_INTERVAL", time.Minute),
			InstitutionCode: getEnv("HELIANT_INSTITUTION_CODE", "MH-001"),
			InstitutionName: getEnv("HELIANT_INSTITUTION_NAME", "Meridian General Hospital"),
		},
		Notifier: NotifierConfig{
			Provider: getEnv("NOTIFIER_PROVIDER", "console"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
