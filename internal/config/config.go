package config

import (
	"fmt"
	"os"
)

// Config carries everything the process reads from the environment.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	ServerPort string

	// GatewaySecretKey authenticates outbound gateway calls and keys the
	// webhook signature HMAC. A missing key is a startup error, not a
	// per-request one.
	GatewaySecretKey string
	GatewayBaseURL   string
}

func Load() (*Config, error) {
	cfg := &Config{
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "password"),
		DBName:           getEnv("DB_NAME", "reward_payments"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		GatewaySecretKey: os.Getenv("GATEWAY_SECRET_KEY"),
		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", "https://api.paystack.co"),
	}

	if cfg.GatewaySecretKey == "" {
		return nil, fmt.Errorf("GATEWAY_SECRET_KEY must be set")
	}

	return cfg, nil
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
