package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	LogFormat          string
	APIBaseURL         string
	HTTPTimeout        time.Duration
	Timezone           string
	CORSAllowedOrigins []string

	// Per-IP limit on /wizard/sessions; zero disables it.
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Draft storage: "memory" or "redis".
	DraftStore    string
	DraftTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	// Fallback payment account shown when the account-details endpoint fails.
	FallbackAccountName   string
	FallbackAccountNumber string
	FallbackPaybillNumber string
}

// Load reads configuration from environment variables. A .env file in the
// working directory (or the path in ENV_FILE) is applied first when present;
// variables already set in the environment win.
func Load() *Config {
	loadDotEnv()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", "json"))),
		APIBaseURL:         strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:5000"), "/"),
		HTTPTimeout:        getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		Timezone:           getEnv("APP_TIMEZONE", "Africa/Nairobi"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		DraftStore:    strings.ToLower(strings.TrimSpace(getEnv("DRAFT_STORE", "memory"))),
		DraftTTL:      getEnvAsDuration("DRAFT_TTL", 7*24*time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		FallbackAccountName:   getEnv("FALLBACK_ACCOUNT_NAME", "Counseling Centre"),
		FallbackAccountNumber: getEnv("FALLBACK_ACCOUNT_NUMBER", "0000000000"),
		FallbackPaybillNumber: getEnv("FALLBACK_PAYBILL_NUMBER", "000000"),
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || strings.TrimSpace(c.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Env, "production")
}

func loadDotEnv() {
	path := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	// godotenv.Load never overrides variables that are already set.
	_ = godotenv.Load(path)
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
