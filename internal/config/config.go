package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// Twilio WhatsApp
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	TwilioWebhookURL     string

	// OpenAI
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIMaxTokens      int
	OpenAIRequestTimeout time.Duration

	// Stripe
	StripeSecretKey        string
	StripeWebhookSecret    string
	StripePriceBasic       string
	StripePricePro         string
	CheckoutSuccessURL     string
	CheckoutCancelURL      string
	BillingPortalReturnURL string

	// Redis
	RedisAddr     string
	RedisPassword string

	// Webhook rate limiting
	WebhookRateLimit  int
	WebhookRateWindow time.Duration

	// Dashboard rate limiting (requests/sec per professional)
	DashboardRateLimit float64
	DashboardRateBurst int

	// Reminders
	ReminderDefaultLeadHours int
	ReminderSweepInterval    time.Duration

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		TwilioAccountSID:     getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:      getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsAppNumber: getEnv("TWILIO_WHATSAPP_NUMBER", ""),
		TwilioWebhookURL:     getEnv("TWILIO_WEBHOOK_URL", ""),

		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxTokens:      getEnvAsInt("OPENAI_MAX_TOKENS", 512),
		OpenAIRequestTimeout: getEnvAsDuration("OPENAI_REQUEST_TIMEOUT", 30*time.Second),

		StripeSecretKey:        getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:    getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceBasic:       getEnv("STRIPE_PRICE_BASIC", ""),
		StripePricePro:         getEnv("STRIPE_PRICE_PRO", ""),
		CheckoutSuccessURL:     getEnv("CHECKOUT_SUCCESS_URL", ""),
		CheckoutCancelURL:      getEnv("CHECKOUT_CANCEL_URL", ""),
		BillingPortalReturnURL: getEnv("BILLING_PORTAL_RETURN_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		WebhookRateLimit:  getEnvAsInt("WEBHOOK_RATE_LIMIT", 20),
		WebhookRateWindow: getEnvAsDuration("WEBHOOK_RATE_WINDOW", time.Minute),

		DashboardRateLimit: getEnvAsFloat("DASHBOARD_RATE_LIMIT", 10),
		DashboardRateBurst: getEnvAsInt("DASHBOARD_RATE_BURST", 30),

		ReminderDefaultLeadHours: getEnvAsInt("REMINDER_DEFAULT_LEAD_HOURS", 24),
		ReminderSweepInterval:    getEnvAsDuration("REMINDER_SWEEP_INTERVAL", time.Hour),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
