package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// CouchbaseConfig holds the storage connection settings
type CouchbaseConfig struct {
	URL      string
	Username string
	Password string
	Bucket   string
	Scope    string
}

// Config holds the settings shared by the api and ingest services
type Config struct {
	APIPort          string
	LogLevel         string
	ElasticsearchURL string
	Couchbase        CouchbaseConfig

	// CaseSourceURL is the base URL of the case management REST API
	CaseSourceURL string
	IngestTimeout time.Duration

	// ScheduleTimezone is the reference timezone for calendar-day comparison
	ScheduleTimezone string
	RefreshInterval  time.Duration
	JWTSecret        string

	BusinessMetrics bool
	SystemMetrics   bool
}

// LoadDotEnv loads a .env file from the parent directory or the current one
func LoadDotEnv() {
	err := godotenv.Load("../.env")
	if err != nil {
		log.Info().Msg("Not found .env file in parent directory, trying current directory")
		err = godotenv.Load(".env")
		if err != nil {
			log.Info().Msg("Not found .env file in current directory, assuming environment variables are set")
		}
	}
}

// Load reads the configuration from the environment
func Load() *Config {
	return &Config{
		APIPort:          getEnvOrDefault("API_PORT", "8080"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		ElasticsearchURL: os.Getenv("ELASTICSEARCH_URL"),
		Couchbase: CouchbaseConfig{
			URL:      getEnvOrDefault("COUCHBASE_URL", "couchbase://bitecare-db"),
			Username: getEnvOrDefault("COUCHBASE_USERNAME", "bitecare_user"),
			Password: getEnvOrDefault("COUCHBASE_PASSWORD", "password"),
			Bucket:   getEnvOrDefault("COUCHBASE_BUCKET", "bitecare"),
			Scope:    getEnvOrDefault("COUCHBASE_SCOPE", "_default"),
		},
		CaseSourceURL:    getEnvOrDefault("CASE_SOURCE_URL", "http://case-management:3000/api"),
		IngestTimeout:    getDurationOrDefault("INGEST_TIMEOUT", 30*time.Second),
		ScheduleTimezone: getEnvOrDefault("SCHEDULE_TIMEZONE", "UTC"),
		RefreshInterval:  getDurationOrDefault("REFRESH_INTERVAL", time.Minute),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		BusinessMetrics:  getBoolOrDefault("ENABLE_BUSINESS_METRICS", false),
		SystemMetrics:    getBoolOrDefault("ENABLE_SYSTEM_METRICS", false),
	}
}

// getEnvOrDefault returns the environment variable or the default when unset
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration, using default")
		return defaultValue
	}
	return d
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid boolean, using default")
		return defaultValue
	}
	return b
}
