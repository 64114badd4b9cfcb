package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	DatabasePath string
	LogLevel     string
	Production   bool

	SessionSecret        string
	SessionIdleTimeout   time.Duration
	SessionSweepSchedule string

	BcryptCost        int
	SignupAllowRole   bool
	BootstrapAdmin    AdminSeed
	CORSAllowedOrigin []string

	Mail       MailConfig
	Enrichment EnrichmentConfig
	Feeds      FeedsConfig
}

// AdminSeed describes the admin account created on startup, if any.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// Enabled reports whether enough data is present to seed an admin.
func (a AdminSeed) Enabled() bool {
	return a.Email != "" && a.Password != ""
}

// MailConfig configures the outbound welcome email.
type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Attachment string // Path to an image embedded in the welcome email
	Timeout    time.Duration
	MaxRetries uint64
}

// EnrichmentConfig configures the third-party catalog lookup.
type EnrichmentConfig struct {
	BaseURL string
	Query   string
	Timeout time.Duration
}

// FeedsConfig configures the joke and picture-of-the-day pages.
type FeedsConfig struct {
	JokeURL    string
	PictureURL string
	PictureKey string
	Timeout    time.Duration
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "3000"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	idle, err := time.ParseDuration(getEnv("SESSION_IDLE_TIMEOUT", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT: %w", err)
	}
	cost, err := strconv.Atoi(getEnv("BCRYPT_COST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	allowRole, err := strconv.ParseBool(getEnv("SIGNUP_ALLOW_ROLE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SIGNUP_ALLOW_ROLE: %w", err)
	}
	mailPort, err := strconv.Atoi(getEnv("MAIL_PORT", "465"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAIL_PORT: %w", err)
	}
	mailTimeout, err := time.ParseDuration(getEnv("NOTIFY_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_TIMEOUT: %w", err)
	}
	mailRetries, err := strconv.ParseUint(getEnv("NOTIFY_MAX_RETRIES", "3"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_MAX_RETRIES: %w", err)
	}
	enrichTimeout, err := time.ParseDuration(getEnv("ENRICHMENT_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENRICHMENT_TIMEOUT: %w", err)
	}

	feedTimeout, err := time.ParseDuration(getEnv("FEEDS_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEEDS_TIMEOUT: %w", err)
	}

	mailUser := getEnv("MAIL_USERNAME", "")
	return &Config{
		ServerPort:           port,
		DatabasePath:         getEnv("DATABASE_PATH", "./carshelf.db"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		Production:           getEnv("APP_ENV", "") == "production",
		SessionSecret:        getEnv("SESSION_SECRET", ""),
		SessionIdleTimeout:   idle,
		SessionSweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", "@every 15m"),
		BcryptCost:           cost,
		SignupAllowRole:      allowRole,
		BootstrapAdmin: AdminSeed{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		CORSAllowedOrigin: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		Mail: MailConfig{
			Host:       getEnv("MAIL_HOST", ""),
			Port:       mailPort,
			Username:   mailUser,
			Password:   getEnv("MAIL_PASSWORD", ""),
			From:       getEnv("MAIL_FROM", mailUser),
			Attachment: getEnv("MAIL_ATTACHMENT", ""),
			Timeout:    mailTimeout,
			MaxRetries: mailRetries,
		},
		Enrichment: EnrichmentConfig{
			BaseURL: getEnv("ENRICHMENT_BASE_URL", "https://www.googleapis.com/books/v1"),
			Query:   getEnv("ENRICHMENT_QUERY", "cars"),
			Timeout: enrichTimeout,
		},
		Feeds: FeedsConfig{
			JokeURL:    getEnv("JOKE_URL", "https://api.chucknorris.io/jokes/random"),
			PictureURL: getEnv("APOD_URL", "https://api.nasa.gov/planetary/apod"),
			PictureKey: getEnv("APOD_API_KEY", "DEMO_KEY"),
			Timeout:    feedTimeout,
		},
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
