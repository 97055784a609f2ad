package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	BaseURL        string
	AllowedOrigins string

	DatabaseURL string

	JWTSecret    string
	JWTAlgorithm string

	RedisAddr     string
	RedisPassword string

	MailHost     string
	MailPort     int
	MailUsername string
	MailPassword string
	MailFrom     string

	MeiliSearchHost string
	MeiliMasterKey  string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTAlgorithm: getEnv("JWT_ALGORITHM", "HS256"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MailHost:     os.Getenv("MAIL_HOST"),
		MailUsername: os.Getenv("MAIL_USERNAME"),
		MailPassword: os.Getenv("MAIL_PASSWORD"),
		MailFrom:     getEnv("MAIL_FROM", "noreply@contactkeeper.local"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	// Only HMAC variants are supported; anything else is a deployment mistake
	// and must fail at startup, not at first token issuance.
	if cfg.JWTAlgorithm != "HS256" && cfg.JWTAlgorithm != "HS512" {
		return nil, fmt.Errorf("invalid JWT_ALGORITHM %q: must be HS256 or HS512", cfg.JWTAlgorithm)
	}

	mailPort := getEnv("MAIL_PORT", "587")
	port, err := strconv.Atoi(mailPort)
	if err != nil {
		return nil, fmt.Errorf("invalid MAIL_PORT %q: %w", mailPort, err)
	}
	cfg.MailPort = port

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
