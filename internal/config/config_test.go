package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ORCH_FLOW_MODE", "")
	t.Setenv("ORCH_RAG_ENABLED", "")
	cfg := Load()
	if cfg.Port != "3021" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.FlowMode != "stateful" {
		t.Fatalf("expected default flow mode, got %s", cfg.FlowMode)
	}
	if cfg.ConversationTTL != 30*time.Minute {
		t.Fatalf("expected default conversation TTL, got %s", cfg.ConversationTTL)
	}
	if cfg.RAGEnabled {
		t.Fatalf("expected rag disabled by default")
	}
	if cfg.RAGEndpoint != "/v1/ai/rag-answer" {
		t.Fatalf("expected default rag endpoint, got %s", cfg.RAGEndpoint)
	}
	if cfg.RAGTimeout != 12*time.Second {
		t.Fatalf("expected default rag timeout, got %s", cfg.RAGTimeout)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected memory store by default, got redis addr %s", cfg.RedisAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ORCH_FLOW_MODE", "Legacy")
	t.Setenv("ORCH_CONV_TTL_MIN", "45")
	t.Setenv("ORCH_RAG_ENABLED", "true")
	t.Setenv("ORCH_RAG_BASE_URL", "http://rag:3040")
	t.Setenv("ORCH_RAG_TIMEOUT", "5s")
	t.Setenv("CONVERSATION_SERVICE_URL", "http://conv:3010")
	t.Setenv("AUTH_SERVICE_URL", "http://auth:3001")
	t.Setenv("INTERNAL_SERVICE_TOKEN", "secret")
	t.Setenv("REDIS_ADDR", "redis:6379")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.FlowMode != "legacy" {
		t.Fatalf("expected flow mode lowered, got %s", cfg.FlowMode)
	}
	if cfg.ConversationTTL != 45*time.Minute {
		t.Fatalf("expected ttl override, got %s", cfg.ConversationTTL)
	}
	if !cfg.RAGEnabled {
		t.Fatalf("expected rag enabled")
	}
	if cfg.RAGBaseURL != "http://rag:3040" {
		t.Fatalf("expected rag base url override, got %s", cfg.RAGBaseURL)
	}
	if cfg.RAGTimeout != 5*time.Second {
		t.Fatalf("expected rag timeout override, got %s", cfg.RAGTimeout)
	}
	if cfg.ConversationServiceURL != "http://conv:3010" {
		t.Fatalf("expected conversation service override, got %s", cfg.ConversationServiceURL)
	}
	if cfg.AuthServiceURL != "http://auth:3001" {
		t.Fatalf("expected auth service override, got %s", cfg.AuthServiceURL)
	}
	if cfg.InternalServiceToken != "secret" {
		t.Fatalf("expected internal token override")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected redis addr override, got %s", cfg.RedisAddr)
	}
}
