package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string
	BaseURL    string

	MySQLDSN  string
	RedisAddr string
	RedisDB   int
	RedisPass string

	SessionSecret string
	LockoutWindow time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string

	ModerationBaseURL string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	SwaggerHost string
}

// Load builds Config from environment. Optional values fall back to defaults;
// values the service cannot run without return an error so startup fails fast.
func Load() (*Config, error) {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	cfg := &Config{
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPass:     os.Getenv("REDIS_PASSWORD"),
		LockoutWindow: getEnvDuration("LOCKOUT_WINDOW", time.Minute),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "images"),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",

		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}

	var err error
	if cfg.MySQLDSN, err = requireEnv("MYSQL_DSN"); err != nil {
		return nil, err
	}
	if cfg.SessionSecret, err = requireEnv("SESSION_SECRET"); err != nil {
		return nil, err
	}
	if cfg.GoogleClientID, err = requireEnv("GOOGLE_CLIENT_ID"); err != nil {
		return nil, err
	}
	if cfg.GoogleClientSecret, err = requireEnv("GOOGLE_CLIENT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.GitHubClientID, err = requireEnv("GITHUB_CLIENT_ID"); err != nil {
		return nil, err
	}
	if cfg.GitHubClientSecret, err = requireEnv("GITHUB_CLIENT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.ModerationBaseURL, err = requireEnv("MODERATION_BASE_URL"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("'%s' configuration value is not provided", key)
	}
	return v, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
