package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string

	// Tenant API auth
	JWTSecret string

	// Reply generation (Gemini)
	GeminiAPIKey  string
	GeminiModelID string

	// Google Calendar OAuth application credentials. Per-tenant tokens live
	// on the owner record; these identify the OAuth client itself.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Where the browser lands after a successful calendar connect,
	// typically a dashboard page. Empty keeps the callback as plain JSON.
	GoogleAuthSuccessURL string

	// Email
	EmailProvider     string // "sendgrid" or "ses"
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
	AWSRegion         string

	// Telegram
	TelegramWebhookSecret string
	TelegramPollInterval  time.Duration

	// Booking pipeline
	DefaultTimezone        string
	DefaultDurationMinutes int
	BookingBufferMinutes   int
	ExternalCallTimeout    time.Duration

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-1.5-pro"),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:    getEnv("GOOGLE_REDIRECT_URL", ""),
		GoogleAuthSuccessURL: getEnv("GOOGLE_AUTH_SUCCESS_URL", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "no-reply@talobot.app"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Talobot"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Talobot"),
		AWSRegion:         getEnv("AWS_REGION", "eu-west-1"),

		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		TelegramPollInterval:  getEnvAsDuration("TELEGRAM_POLL_INTERVAL", 30*time.Second),

		DefaultTimezone:        getEnv("DEFAULT_TIMEZONE", "Europe/Madrid"),
		DefaultDurationMinutes: getEnvAsInt("DEFAULT_DURATION_MINUTES", 30),
		BookingBufferMinutes:   getEnvAsInt("BOOKING_BUFFER_MINUTES", 10),
		ExternalCallTimeout:    getEnvAsDuration("EXTERNAL_CALL_TIMEOUT", 15*time.Second),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
