package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Paystack PaystackConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Services ServicesConfig
}

// ServicesConfig points at the collaborating services this one consumes.
type ServicesConfig struct {
	IdentityBaseURL string
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PaystackConfig struct {
	BaseURL         string
	SecretKey       string
	WebhookSecret   string
	CallbackBaseURL string
	Timeout         time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

type StorageConfig struct {
	ProductFileDir string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8040"),
			Env:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "settlement"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Paystack: PaystackConfig{
			BaseURL:         getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			SecretKey:       getEnv("PAYSTACK_SECRET_KEY", ""),
			WebhookSecret:   getEnv("PAYSTACK_WEBHOOK_SECRET", getEnv("PAYSTACK_SECRET_KEY", "")),
			CallbackBaseURL: getEnv("CALLBACK_BASE_URL", "http://localhost:8040"),
			Timeout:         time.Duration(getEnvInt("PAYSTACK_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Storage: StorageConfig{
			ProductFileDir: getEnv("PRODUCT_FILE_DIR", "./data/products"),
		},
		Services: ServicesConfig{
			IdentityBaseURL: getEnv("IDENTITY_SERVICE_URL", "http://localhost:8001"),
		},
	}

	if cfg.Paystack.SecretKey == "" && cfg.Server.Env != "development" {
		return nil, fmt.Errorf("PAYSTACK_SECRET_KEY is required outside development")
	}
	if cfg.Auth.JWTSecret == "" && cfg.Server.Env != "development" {
		return nil, fmt.Errorf("JWT_SECRET is required outside development")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
