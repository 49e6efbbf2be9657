package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port        string
	Debug       bool
	CORSOrigins []string

	// Database configuration
	DatabasePath string

	// Inference configuration
	InferenceBaseURL string
	PrimaryModel     string
	PrimaryAPIKey    string
	FallbackModel    string
	FallbackAPIKey   string
	InferenceTimeout time.Duration
	AppReferer       string
	AppTitle         string

	// Community content policy
	RedactionTermsFile string

	// Digest configuration
	DigestSchedule string // "", "daily" or "weekly"
	ArchiveDir     string

	// Azure Storage configuration
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		Debug:       getBoolEnv("DEBUG", false),
		CORSOrigins: getSliceEnv("CORS_ORIGINS", []string{"*"}),

		DatabasePath: getEnv("DATABASE_PATH", "journal_history.db"),

		InferenceBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		PrimaryModel:     getEnv("PRIMARY_MODEL", "openai/gpt-oss-20b:free"),
		PrimaryAPIKey:    getEnv("PRIMARY_API_KEY", ""),
		FallbackModel:    getEnv("FALLBACK_MODEL", "mistralai/mistral-7b-instruct:free"),
		FallbackAPIKey:   getEnv("FALLBACK_API_KEY", ""),
		InferenceTimeout: time.Duration(getIntEnv("INFERENCE_TIMEOUT_SECONDS", 60)) * time.Second,
		AppReferer:       getEnv("APP_REFERER", "http://localhost:5000"),
		AppTitle:         getEnv("APP_TITLE", "Advanced Emotion Analyzer"),

		RedactionTermsFile: getEnv("REDACTION_TERMS_FILE", ""),

		DigestSchedule: getEnv("DIGEST_SCHEDULE", ""),
		ArchiveDir:     getEnv("ARCHIVE_DIR", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "digests"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// The fallback model shares the primary credential unless given its own
	if cfg.FallbackAPIKey == "" {
		cfg.FallbackAPIKey = cfg.PrimaryAPIKey
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.PrimaryAPIKey == "" {
		return fmt.Errorf("PRIMARY_API_KEY is required")
	}

	if c.PrimaryModel == "" || c.FallbackModel == "" {
		return fmt.Errorf("PRIMARY_MODEL and FALLBACK_MODEL must not be empty")
	}

	if c.InferenceTimeout <= 0 {
		return fmt.Errorf("INFERENCE_TIMEOUT_SECONDS must be positive")
	}

	if c.DigestSchedule != "" && c.DigestSchedule != "daily" && c.DigestSchedule != "weekly" {
		return fmt.Errorf("DIGEST_SCHEDULE must be empty, 'daily' or 'weekly'")
	}

	if c.DigestSchedule != "" && c.TeamsWebhookURL == "" && c.NotificationEmail == "" {
		return fmt.Errorf("a scheduled digest needs at least one notification method (TEAMS_WEBHOOK_URL or NOTIFICATION_EMAIL)")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
