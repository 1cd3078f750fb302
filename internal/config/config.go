package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Save modes accepted for the raw (bronze) layer.
const (
	ModeAppend    = "append"
	ModeOverwrite = "overwrite"
)

// Config holds all configuration for the pipeline
type Config struct {
	// News API
	APIBaseURL  string        `json:"api_base_url"`
	APIToken    string        `json:"api_token"`
	HTTPTimeout time.Duration `json:"http_timeout"`
	HTTPRetries int           `json:"http_retries"`

	// Default extraction parameters
	DefaultCountry  string `json:"default_country"`
	DefaultLanguage string `json:"default_language"`
	DefaultLimit    int    `json:"default_limit"`

	// Data lake
	DataLakeBase string `json:"data_lake_base"`
	RawSaveMode  string `json:"raw_save_mode"`

	// Redis (optional, cross-run dedup of raw stories)
	RedisURL    string `json:"redis_url"`
	RedisPrefix string `json:"redis_prefix"`

	// S3/R2 mirror (optional)
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"r2_access_key"`
	R2SecretKey string `json:"r2_secret_key"`
	R2Bucket    string `json:"r2_bucket"`

	// HTTP server (cmd/serve)
	Port            string        `json:"port"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// Load loads configuration from environment variables
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		APIBaseURL:  getEnv("API_BASE_URL", "https://api.thenewsapi.com/v1"),
		APIToken:    getEnv("API_TOKEN", ""),
		HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		HTTPRetries: getEnvAsInt("HTTP_RETRIES", 3),

		DefaultCountry:  getEnv("DEFAULT_COUNTRY", "us"),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		DefaultLimit:    getEnvAsInt("DEFAULT_LIMIT", 3),

		DataLakeBase: getEnv("DATA_LAKE_BASE", "delta_lake"),
		RawSaveMode:  getEnv("RAW_SAVE_MODE", ModeAppend),

		RedisURL:    getEnv("REDIS_URL", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "noticias:"),

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "newsapi"),

		Port:            getEnv("PORT", "8080"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	if cfg.RawSaveMode != ModeAppend && cfg.RawSaveMode != ModeOverwrite {
		log.Printf("Invalid RAW_SAVE_MODE %q, using default: %s", cfg.RawSaveMode, ModeAppend)
		cfg.RawSaveMode = ModeAppend
	}

	return cfg
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
