package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Storage
	StorageDriver string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	// Availability cache
	RedisAddr            string
	RedisPassword        string
	RedisTLS             bool
	AvailabilityCacheTTL time.Duration

	// Auth
	JWTSecret            string
	TokenTTL             time.Duration
	DefaultAdminUsername string
	DefaultAdminEmail    string
	DefaultAdminPassword string

	CORSAllowedOrigins []string

	// Calendar and slot policies
	ReportingTimezone string
	CalendarTimezone  string
	WidgetSlotPolicy  string
	AdminSlotPolicy   string
	PhonePolicy       string
	RequireWebsite    bool
	ThirtyMinuteRule  bool
	BookingRateLimit  float64
	BookingRateBurst  int

	// Lead events
	AMQPURL      string
	AMQPExchange string

	// Booking notifications
	EmailProvider   string
	SendGridAPIKey  string
	NotifyFromEmail string
	NotifyFromName  string
	NotifyToEmail   string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Client side (crmctl)
	APIBaseURL      string
	FetchRetries    int
	FetchRetryDelay time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "5000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StorageDriver: strings.ToLower(strings.TrimSpace(getEnv("STORAGE_DRIVER", "memory"))),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "crm"),

		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisTLS:             getEnvAsBool("REDIS_TLS", false),
		AvailabilityCacheTTL: getEnvAsDuration("AVAILABILITY_CACHE_TTL", 5*time.Minute),

		JWTSecret:            getEnv("JWT_SECRET", ""),
		TokenTTL:             getEnvAsDuration("TOKEN_TTL", time.Hour),
		DefaultAdminUsername: getEnv("DEFAULT_ADMIN_USERNAME", "admin"),
		DefaultAdminEmail:    getEnv("DEFAULT_ADMIN_EMAIL", "admin@example.com"),
		DefaultAdminPassword: getEnv("DEFAULT_ADMIN_PASSWORD", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		ReportingTimezone: getEnv("REPORTING_TIMEZONE", "Asia/Dhaka"),
		CalendarTimezone:  getEnv("CALENDAR_TIMEZONE", "UTC"),
		WidgetSlotPolicy:  getEnv("WIDGET_SLOT_POLICY", "widget"),
		AdminSlotPolicy:   getEnv("ADMIN_SLOT_POLICY", "admin"),
		PhonePolicy:       getEnv("PHONE_POLICY", "eleven-digits"),
		RequireWebsite:    getEnvAsBool("REQUIRE_WEBSITE", false),
		ThirtyMinuteRule:  getEnvAsBool("THIRTY_MINUTE_RULE", true),
		BookingRateLimit:  getEnvAsFloat("BOOKING_RATE_LIMIT", 0.2),
		BookingRateBurst:  getEnvAsInt("BOOKING_RATE_BURST", 5),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "crm.leads"),

		EmailProvider:   strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", ""))),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		NotifyFromEmail: getEnv("NOTIFY_FROM_EMAIL", ""),
		NotifyFromName:  getEnv("NOTIFY_FROM_NAME", "Muvance CRM"),
		NotifyToEmail:   getEnv("NOTIFY_TO_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		APIBaseURL:      getEnv("CRM_API_BASE_URL", "http://localhost:5000"),
		FetchRetries:    getEnvAsInt("FETCH_RETRIES", 3),
		FetchRetryDelay: getEnvAsDuration("FETCH_RETRY_DELAY", time.Second),
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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

// getEnvAsList splits a comma-separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
