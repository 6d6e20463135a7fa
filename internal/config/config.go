// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/amajai/contentloop-ai/internal/llm"
	"github.com/amajai/contentloop-ai/internal/store"
	"github.com/amajai/contentloop-ai/internal/transcript"
)

// Config holds all application configuration.
type Config struct {
	Port                string
	AllowedOrigins      []string
	Store               store.Options
	SessionTimeout      time.Duration
	SweepInterval       time.Duration
	LLM                 llm.Config
	MaxRequestBodyBytes int64
	Transcript          transcript.Config
	LogLevel            slog.Level
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	provider := llm.Provider(strings.ToLower(getEnv("LLM_PROVIDER", string(llm.ProviderAnthropic))))

	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		Store: store.Options{
			Backend:  strings.ToLower(getEnv("STORE_BACKEND", store.BackendMemory)),
			DBPath:   getEnv("DB_PATH", "./data/contentloop.db"),
			RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		SessionTimeout: getEnvDuration("SESSION_TIMEOUT", 5*time.Minute),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
		LLM: llm.Config{
			Provider:    provider,
			Model:       getEnv("LLM_MODEL", ""),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.1),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 2048),
			APIKey:      apiKeyFor(provider),
			BaseURL:     baseURLFor(provider),
			Timeout:     getEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
		},
		MaxRequestBodyBytes: int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 1<<20)),
		Transcript: transcript.Config{
			Enabled:   getEnvBool("TRANSCRIPT_ENABLED", true),
			Dir:       getEnv("TRANSCRIPT_DIR", "./data/transcripts"),
			QueueSize: getEnvInt("TRANSCRIPT_QUEUE_SIZE", 1000),
		},
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = llm.DefaultModel(provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.Store.Backend {
	case store.BackendMemory:
	case store.BackendSQLite:
		if c.Store.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty when STORE_BACKEND=sqlite")
		}
	case store.BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("REDIS_URL cannot be empty when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, sqlite, redis (got %q)", c.Store.Backend)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be > 0")
	}
	if c.SweepInterval < time.Second {
		return fmt.Errorf("SWEEP_INTERVAL must be at least 1s")
	}
	switch c.LLM.Provider {
	case llm.ProviderAnthropic, llm.ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("API key is required for LLM_PROVIDER=%s", c.LLM.Provider)
		}
	case llm.ProviderMock:
	default:
		return fmt.Errorf("LLM_PROVIDER must be one of anthropic, openai, mock (got %q)", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be > 0")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if c.Transcript.Enabled && c.Transcript.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_DIR cannot be empty")
	}
	if c.Transcript.QueueSize <= 0 {
		return fmt.Errorf("TRANSCRIPT_QUEUE_SIZE must be > 0")
	}
	return nil
}

// SessionTimeoutMinutes reports the timeout the way the stats endpoint does.
func (c *Config) SessionTimeoutMinutes() float64 {
	return c.SessionTimeout.Minutes()
}

func apiKeyFor(p llm.Provider) string {
	switch p {
	case llm.ProviderAnthropic:
		return getEnv("ANTHROPIC_API_KEY", "")
	case llm.ProviderOpenAI:
		return getEnv("OPENAI_API_KEY", "")
	default:
		return ""
	}
}

// baseURLFor keeps one provider's gateway from receiving another's key.
func baseURLFor(p llm.Provider) string {
	switch p {
	case llm.ProviderAnthropic:
		return getEnv("ANTHROPIC_BASE_URL", "")
	case llm.ProviderOpenAI:
		return getEnv("OPENAI_BASE_URL", "")
	default:
		return ""
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go durations ("90s") or bare integers as seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
