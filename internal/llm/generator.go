// Package llm wraps the text-generation providers behind a single call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Generator maps a system persona and a user prompt to generated text.
// Implementations are safe for concurrent use.
type Generator interface {
	Invoke(ctx context.Context, system, prompt string) (string, error)
}

// Provider identifies a text-generation backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	// ProviderMock selects Echo for local runs without credentials.
	ProviderMock      Provider = "mock"
)

// Config holds provider settings.
type Config struct {
	Provider    Provider
	Model       string
	Temperature float64
	MaxTokens   int
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderAnthropic:
		return "claude-sonnet-4-5"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	default:
		return "mock"
	}
}

// New builds the generator selected by cfg.Provider. A positive cfg.Timeout
// bounds every call.
func New(cfg Config) (Generator, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}

	var gen Generator
	switch Provider(strings.ToLower(string(cfg.Provider))) {
	case ProviderAnthropic:
		gen = NewAnthropic(cfg)
	case ProviderOpenAI:
		c, err := NewOpenAI(cfg)
		if err != nil {
			return nil, err
		}
		gen = c
	case ProviderMock:
		gen = NewEcho()
	default:
		return nil, fmt.Errorf("llm provider %q not supported", cfg.Provider)
	}

	if cfg.Timeout > 0 {
		gen = WithTimeout(gen, cfg.Timeout)
	}
	return gen, nil
}

// ErrEmptyResponse is returned when a provider replies without any text.
var ErrEmptyResponse = errors.New("empty response from model")

type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

// WithTimeout bounds each Invoke on next by d.
func WithTimeout(next Generator, d time.Duration) Generator {
	return &timeoutGenerator{next: next, timeout: d}
}

func (g *timeoutGenerator) Invoke(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.next.Invoke(ctx, system, prompt)
}
