package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mentha-ai/mentha-cli/internal/providers"
)

// Config holds all configuration for the application
type Config struct {
	// Backend API
	APIBaseURL     string
	APIToken       string
	RequestTimeout time.Duration // zero means no client-side timeout

	// Brand scope
	BrandID     string
	BrandName   string
	Competitors []string

	// Providers selected by default for chat queries
	Providers []providers.ID

	// Watcher daemon
	Port                     string
	Debug                    bool
	WatchSchedule            string
	WatchConcurrency         int
	VisibilityAlertThreshold int

	// Report archive
	StorageBackend   string // "none", "azure" or "sqlite"
	StorageAccount   string
	StorageContainer string
	SQLitePath       string
	ReportRetention  int // reports kept in the archive, zero keeps all

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
	providerIDs, err := providers.ParseList(getSliceEnv("MENTHA_PROVIDERS", nil))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: MENTHA_PROVIDERS: %w", err)
	}
	if len(providerIDs) == 0 {
		providerIDs = providers.IDs()
	}

	cfg := &Config{
		APIBaseURL:     strings.TrimRight(getEnv("MENTHA_API_URL", "http://localhost:8000"), "/"),
		APIToken:       getEnv("MENTHA_API_TOKEN", ""),
		RequestTimeout: time.Duration(getIntEnv("MENTHA_REQUEST_TIMEOUT", 0)) * time.Second,

		BrandID:     getEnv("MENTHA_BRAND_ID", ""),
		BrandName:   getEnv("MENTHA_BRAND_NAME", ""),
		Competitors: getSliceEnv("MENTHA_COMPETITORS", nil),

		Providers: providerIDs,

		Port:                     getEnv("PORT", "8080"),
		Debug:                    getBoolEnv("DEBUG", false),
		WatchSchedule:            getEnv("WATCH_SCHEDULE", "0 0 * * * *"),
		WatchConcurrency:         getIntEnv("WATCH_CONCURRENCY", 4),
		VisibilityAlertThreshold: getIntEnv("VISIBILITY_ALERT_THRESHOLD", 40),

		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", "none")),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "mentha-checks"),
		SQLitePath:       getEnv("SQLITE_PATH", "mentha.db"),
		ReportRetention:  getIntEnv("REPORT_RETENTION", 0),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("MENTHA_API_URL must be an absolute http(s) URL")
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("MENTHA_REQUEST_TIMEOUT must not be negative")
	}

	if c.WatchConcurrency < 1 {
		return fmt.Errorf("WATCH_CONCURRENCY must be at least 1")
	}

	if c.VisibilityAlertThreshold < 0 || c.VisibilityAlertThreshold > 100 {
		return fmt.Errorf("VISIBILITY_ALERT_THRESHOLD must be between 0 and 100")
	}

	if c.ReportRetention < 0 {
		return fmt.Errorf("REPORT_RETENTION must not be negative")
	}

	switch c.StorageBackend {
	case "none", "sqlite":
	case "azure":
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when STORAGE_BACKEND is 'azure'")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be 'none', 'azure' or 'sqlite'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// RequireBrand reports an error when no brand is configured
func (c *Config) RequireBrand() error {
	if c.BrandID == "" {
		return fmt.Errorf("MENTHA_BRAND_ID is required")
	}
	return nil
}

// DisplayBrand returns the brand name, falling back to its id
func (c *Config) DisplayBrand() string {
	if c.BrandName != "" {
		return c.BrandName
	}
	return c.BrandID
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
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
