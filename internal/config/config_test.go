package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/amajai/contentloop-ai/internal/llm"
	"github.com/amajai/contentloop-ai/internal/store"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "mock")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Expected port 8000, got %s", cfg.Port)
	}
	if cfg.SessionTimeout != 5*time.Minute {
		t.Errorf("Expected 5m timeout, got %v", cfg.SessionTimeout)
	}
	if cfg.SweepInterval != 10*time.Minute {
		t.Errorf("Expected 10m sweep interval, got %v", cfg.SweepInterval)
	}
	if cfg.Store.Backend != store.BackendMemory {
		t.Errorf("Expected memory backend, got %s", cfg.Store.Backend)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("Expected 2 default origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.LLM.Model != "mock" {
		t.Errorf("Expected mock default model, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.1 {
		t.Errorf("Expected temperature 0.1, got %v", cfg.LLM.Temperature)
	}
	if cfg.MaxRequestBodyBytes != 1<<20 {
		t.Errorf("Expected 1MiB body limit, got %d", cfg.MaxRequestBodyBytes)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("Expected info level, got %v", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_MODEL", "gpt-4.1")
	t.Setenv("SESSION_TIMEOUT", "300")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPENAI_BASE_URL", "https://gateway.example.com/v1")
	t.Setenv("ANTHROPIC_BASE_URL", "https://anthropic-proxy.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != llm.ProviderOpenAI || cfg.LLM.APIKey != "sk-test" || cfg.LLM.Model != "gpt-4.1" {
		t.Errorf("Unexpected LLM config: %+v", cfg.LLM)
	}
	if cfg.SessionTimeout != 5*time.Minute {
		t.Errorf("Expected bare seconds to parse, got %v", cfg.SessionTimeout)
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Errorf("Expected 30s, got %v", cfg.SweepInterval)
	}
	if got := cfg.AllowedOrigins; len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("Unexpected origins: %v", got)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("Expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.LLM.BaseURL != "https://gateway.example.com/v1" {
		t.Errorf("Expected OpenAI base URL, got %q", cfg.LLM.BaseURL)
	}
}

func TestLoadBaseURLFollowsProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_BASE_URL", "https://gateway.example.com/v1")
	t.Setenv("ANTHROPIC_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.BaseURL != "" {
		t.Errorf("Anthropic client must not inherit OPENAI_BASE_URL, got %q", cfg.LLM.BaseURL)
	}

	t.Setenv("ANTHROPIC_BASE_URL", "https://anthropic-proxy.example.com")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.BaseURL != "https://anthropic-proxy.example.com" {
		t.Errorf("Expected ANTHROPIC_BASE_URL, got %q", cfg.LLM.BaseURL)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error when API key is missing")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:                "8000",
			Store:               store.Options{Backend: store.BackendMemory},
			SessionTimeout:      time.Minute,
			SweepInterval:       time.Minute,
			LLM:                 llm.Config{Provider: llm.ProviderMock, MaxTokens: 10},
			MaxRequestBodyBytes: 1024,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }},
		{"sqlite without path", func(c *Config) { c.Store = store.Options{Backend: store.BackendSQLite} }},
		{"zero timeout", func(c *Config) { c.SessionTimeout = 0 }},
		{"fast sweep", func(c *Config) { c.SweepInterval = 10 * time.Millisecond }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "gemini" }},
		{"hot temperature", func(c *Config) { c.LLM.Temperature = 3 }},
		{"zero body", func(c *Config) { c.MaxRequestBodyBytes = 0 }},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}
}
