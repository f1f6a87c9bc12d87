package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DatabaseURL     string `yaml:"database_url"`
	ServerPort      string `yaml:"server_port"`
	BaseURL         string `yaml:"base_url"`
	FrontendURL     string `yaml:"frontend_url"`
	OpenAIKey       string `yaml:"openai_api_key"`
	AIProvider      string `yaml:"ai_provider"`
	AIModel         string `yaml:"ai_model"`
	AIBaseURL       string `yaml:"ai_base_url"`
	EnableHSTS      bool   `yaml:"enable_hsts"`
	OIDCIssuer      string `yaml:"oidc_issuer"`
	OIDCJWKSURL     string `yaml:"oidc_jwks_url"`
	OIDCClientID     string `yaml:"oidc_client_id"`
	OIDCClientSecret string `yaml:"oidc_client_secret"`
	OIDCRedirectURI  string `yaml:"oidc_redirect_uri"`
	RedisURL        string `yaml:"redis_url"`
	RateLimit       string `yaml:"rate_limit"`
	RabbitMQURL     string `yaml:"rabbitmq_url"`
	WorkerPrefetch  int    `yaml:"worker_prefetch"`
	WorkerDebugMode bool   `yaml:"worker_debug_mode"`
	ServerDebugMode bool   `yaml:"server_debug_mode"`
	OTELEnabled     bool   `yaml:"otel_enabled"`
	OTELEndpoint    string `yaml:"otel_endpoint"`
}

// Load loads configuration from environment variables. If CONFIG_FILE points
// at a YAML file, its values are loaded first and the environment overrides
// them field by field.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ServerPort = getEnv("SERVER_PORT", defaulted(cfg.ServerPort, "8080"))
	cfg.BaseURL = getEnv("BASE_URL", defaulted(cfg.BaseURL, "http://localhost:8080"))
	cfg.FrontendURL = getEnv("FRONTEND_URL", defaulted(cfg.FrontendURL, "http://localhost:3000"))
	cfg.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.AIProvider = getEnv("AI_PROVIDER", defaulted(cfg.AIProvider, "openai"))
	cfg.AIModel = getEnv("AI_MODEL", cfg.AIModel)
	cfg.AIBaseURL = getEnv("AI_BASE_URL", cfg.AIBaseURL)
	cfg.EnableHSTS = getEnvBool("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.OIDCIssuer = getEnv("OIDC_ISSUER", cfg.OIDCIssuer)
	cfg.OIDCJWKSURL = getEnv("OIDC_JWKS_URL", cfg.OIDCJWKSURL)
	cfg.OIDCClientID = getEnv("OIDC_CLIENT_ID", cfg.OIDCClientID)
	cfg.OIDCClientSecret = getEnv("OIDC_CLIENT_SECRET", cfg.OIDCClientSecret)
	cfg.OIDCRedirectURI = getEnv("OIDC_REDIRECT_URI", cfg.OIDCRedirectURI)
	cfg.RedisURL = getEnv("REDIS_URL", defaulted(cfg.RedisURL, "redis://localhost:6379/0"))
	cfg.RateLimit = getEnv("RATE_LIMIT", defaulted(cfg.RateLimit, "5-S"))
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.WorkerPrefetch = getEnvInt("WORKER_PREFETCH", intDefaulted(cfg.WorkerPrefetch, 1))
	cfg.WorkerDebugMode = getEnvBool("WORKER_DEBUG_MODE", cfg.WorkerDebugMode)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func defaulted(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func intDefaulted(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
