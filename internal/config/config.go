// Package config provides configuration management for Predicted Press.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration.
type Config struct {
	// MongoDB settings
	MongoURI string
	MongoDB  string

	// Redis (optional, serializes sync runs across processes)
	RedisAddr string

	// LLM settings (optional, draft generation disabled without a key)
	LLMAPIKey   string
	LLMEndpoint string
	LLMModel    string

	// Sync settings
	FeedBatchSize    int
	MinVolume        float64
	MinChange        int
	Retention        time.Duration
	PricePointBucket time.Duration
	LeaseTTL         time.Duration
	SyncInterval     time.Duration

	// Draft generation
	DraftInterval  time.Duration
	DraftBatchSize int

	// Server settings
	HTTPAddr string
	Debug    bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "predictedpress"),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		LLMAPIKey:   getEnv("LLM_API_KEY", ""),
		LLMEndpoint: getEnv("LLM_ENDPOINT", ""),
		LLMModel:    getEnv("LLM_MODEL", ""),

		FeedBatchSize:    getEnvInt("FEED_BATCH_SIZE", 100),
		MinVolume:        getEnvFloat("MIN_VOLUME_THRESHOLD", 100_000),
		MinChange:        getEnvInt("MIN_CHANGE_THRESHOLD", 5),
		Retention:        getEnvDuration("PRICE_POINT_RETENTION", 30*24*time.Hour),
		PricePointBucket: getEnvDuration("PRICE_POINT_BUCKET", 0),
		LeaseTTL:         getEnvDuration("SYNC_LEASE_TTL", 5*time.Minute),
		SyncInterval:     getEnvDuration("SYNC_INTERVAL", 5*time.Minute),

		DraftInterval:  getEnvDuration("DRAFT_INTERVAL", 30*time.Minute),
		DraftBatchSize: getEnvInt("DRAFT_BATCH_SIZE", 5),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Debug:    getEnvBool("DEBUG", false),
	}

	return cfg, nil
}

// Validate checks the configuration and warns about disabled features.
func (c *Config) Validate() error {
	if c.LLMAPIKey == "" {
		log.Warn().Msg("LLM_API_KEY not set, draft generation will be disabled")
	}
	if c.RedisAddr == "" {
		log.Debug().Msg("REDIS_ADDR not set, sync runs are not serialized across processes")
	}
	return nil
}

// Helper functions

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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
