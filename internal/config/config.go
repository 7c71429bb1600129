package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DefaultTenant string

	// Flow engine
	FlowMode        string // "stateful" or "legacy"
	ConversationTTL time.Duration

	// Conversation persistence service
	ConversationServiceURL string

	// Scheduling (auth-service) integration
	AuthServiceURL       string
	InternalServiceToken string

	// RAG integration
	RAGEnabled  bool
	RAGBaseURL  string
	RAGEndpoint string
	RAGTimeout  time.Duration

	// State store backend; Redis is used when RedisAddr is non-empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSAllowedOrigins []string

	// Per-IP rate limit for the orchestrator endpoint; 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3021"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DefaultTenant: getEnv("DEFAULT_TENANT_ID", "consultorio-juridico"),

		FlowMode:        strings.ToLower(strings.TrimSpace(getEnv("ORCH_FLOW_MODE", "stateful"))),
		ConversationTTL: time.Duration(getEnvAsInt("ORCH_CONV_TTL_MIN", 30)) * time.Minute,

		ConversationServiceURL: getEnv("CONVERSATION_SERVICE_URL", "http://localhost:3010"),

		AuthServiceURL:       getEnv("AUTH_SERVICE_URL", "http://localhost:3001"),
		InternalServiceToken: getEnv("INTERNAL_SERVICE_TOKEN", ""),

		RAGEnabled:  getEnvAsBool("ORCH_RAG_ENABLED", false),
		RAGBaseURL:  getEnv("ORCH_RAG_BASE_URL", "http://127.0.0.1:3040"),
		RAGEndpoint: getEnv("ORCH_RAG_ENDPOINT", "/v1/ai/rag-answer"),
		RAGTimeout:  getEnvAsDuration("ORCH_RAG_TIMEOUT", 12*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),

		RateLimitRPS:   getEnvAsFloat("ORCH_RATE_LIMIT_RPS", 0),
		RateLimitBurst: getEnvAsInt("ORCH_RATE_LIMIT_BURST", 20),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable.
func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
