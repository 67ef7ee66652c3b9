package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

type Config struct {
	// APIKey may be empty; generation then fails with a visible
	// missing-credentials error instead of stopping the process.
	APIKey           string
	ImageModel       string
	GeminiBaseURL    string
	GeminiAPIVersion string

	TelegramToken string

	LogLevel  string
	LogFormat string
	Debug     bool

	PreferIPv4  bool
	HTTPTimeout time.Duration

	WebAddr       string
	SecureCookie  bool
	SessionIdle   time.Duration
	MaxConcurrent int

	DefaultLocale language.Tag
}

func Load() (Config, error) {
	cfg := Config{
		ImageModel:       getEnv("IMAGE_MODEL", "imagen-4.0-generate-001"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/"),
		GeminiAPIVersion: getEnv("GEMINI_API_VERSION", "v1beta"),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "json")),
		Debug:            getEnvBool("DEBUG", false),
		PreferIPv4:       getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		WebAddr:          getEnv("WEB_ADDR", ":8080"),
		SecureCookie:     getEnvBool("SECURE_COOKIE", false),
		SessionIdle:      time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 60)) * time.Minute,
		MaxConcurrent:    getEnvInt("MAX_CONCURRENT", 4),
	}

	cfg.APIKey = strings.TrimSpace(os.Getenv("API_KEY"))
	if cfg.APIKey == "" {
		cfg.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	locale, err := language.Parse(getEnv("DEFAULT_LOCALE", "ja"))
	if err != nil {
		return Config{}, fmt.Errorf("DEFAULT_LOCALE: %w", err)
	}
	cfg.DefaultLocale = locale

	switch cfg.LogFormat {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = 60 * time.Minute
	}

	return cfg, nil
}

func (c Config) HasCredentials() bool {
	return c.APIKey != ""
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
