package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	StorageEmbedded = "embedded"
	StoragePostgres = "postgres"
)

type Config struct {
	StorageDriver string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	BadgerPath string // "" keeps the embedded store in memory
	Theme      string

	RedisURL string // "" disables the feed cache, events and the worker

	ServerPort string
	LogLevel   string

	CorsAllowedOrigins []string

	JWTSecret string

	AccessTokenMaxAge  int
	RefreshTokenMaxAge int

	// SimulatedLatency delays post saves and comment submits.
	SimulatedLatency time.Duration

	AuthRateLimit  int
	AuthRateWindow time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found or error loading it, relying on environment variables")
	}

	cfg := &Config{
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageEmbedded)),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", ""),
		DBSSLMode:  getEnv("DB_SSLMODE", "require"),

		BadgerPath: getEnv("BADGER_PATH", ""),
		Theme:      strings.ToLower(getEnv("THEME", "tech")),

		RedisURL: getEnv("REDIS_URL", ""),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		CorsAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AccessTokenMaxAge:  getInt("ACCESS_TOKEN_MAX_AGE", 900),
		RefreshTokenMaxAge: getInt("REFRESH_TOKEN_MAX_AGE", 2592000),

		SimulatedLatency: time.Duration(getInt("SIMULATED_LATENCY_MS", 0)) * time.Millisecond,

		AuthRateLimit:  getInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindow: time.Duration(getInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no sensible default.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.StorageDriver {
	case StorageEmbedded:
	case StoragePostgres:
		if c.DBUser == "" || c.DBName == "" {
			return fmt.Errorf("DB_USER and DB_NAME are required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}

// ObjectStorageEnabled reports whether cover uploads go to R2.
func (c *Config) ObjectStorageEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
