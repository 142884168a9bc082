package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	LogLevel           string
	LogFormat          string
	Port               string
	StorageDir         string
	JWTSecret          string
	AccessTokenTTL     time.Duration
	LoginRateLimit     int
	DatasetCacheTTL    time.Duration
	DatasetCacheSweep  string
	MaxUploadBytes     int64
	PipelineConfigPath string
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	environment := getEnv("ENVIRONMENT", "development")
	config := &Config{
		Environment:        environment,
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		Port:               getEnv("PORT", "8000"),
		StorageDir:         getEnv("STORAGE_DIR", environment+"-data"),
		JWTSecret:          getEnv("JWT_SECRET", "supersecretkey"),
		AccessTokenTTL:     time.Duration(getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
		LoginRateLimit:     getEnvAsInt("LOGIN_RATE_LIMIT", 20),
		DatasetCacheTTL:    time.Duration(getEnvAsInt("DATASET_CACHE_TTL_MINUTES", 120)) * time.Minute,
		DatasetCacheSweep:  getEnv("DATASET_CACHE_SWEEP", "@every 10m"),
		MaxUploadBytes:     int64(getEnvAsInt("MAX_UPLOAD_MB", 50)) << 20,
		PipelineConfigPath: getEnv("PIPELINE_CONFIG", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	// Validate configuration
	switch config.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be 'text' or 'json', got '%s'", config.LogFormat)
	}
	if config.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if config.DatasetCacheTTL <= 0 {
		return nil, fmt.Errorf("DATASET_CACHE_TTL_MINUTES must be positive")
	}
	if config.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	return config, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped. With no arguments it reads .env.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated environment variable
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
