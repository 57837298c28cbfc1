package cfg

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, loaded from the environment.
type Config struct {
	AppEnv        string
	HTTPAddr      string
	Postgres      PostgresConfig
	Redis         RedisConfig
	OAuth2        OAuth2Config
	Observability ObservabilityConfig
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host string
	Port string
}

type OAuth2Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

type ObservabilityConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	config := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   getEnv("POSTGRES_DB", "partymatch"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", "localhost"),
			Port: getEnv("REDIS_PORT", "6379"),
		},
		OAuth2: OAuth2Config{
			GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/callback/google"),
		},
		Observability: ObservabilityConfig{
			Enabled:      getEnv("OTEL_ENABLED", "false") == "true",
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "partymatch"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
	}

	if config.Postgres.Password == "" && config.AppEnv != "development" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD is required in %s", config.AppEnv)
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
