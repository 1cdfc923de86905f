// Package providers contains concrete implementations of LLM providers
// and helpers for wiring them into a registry from the environment.
package providers

import (
	"os"
	"strconv"

	"github.com/agenticwork/maestro/pkg/errors"
	"github.com/agenticwork/maestro/pkg/llm"
)

// NewRegistryFromEnv builds a provider registry from environment variables:
//
//	ANTHROPIC_API_KEY      registers the Anthropic provider
//	OPENAI_API_KEY         registers the OpenAI provider
//	OLLAMA_HOST            registers the Ollama provider at the given URL
//	MAESTRO_PROVIDER_RPS   optional requests-per-second cap per provider
//	MAESTRO_PROVIDER_BURST optional burst size for the cap (default 1)
//
// The first provider registered becomes the default. Returns a ConfigError
// when no provider is configured.
func NewRegistryFromEnv() (*llm.Registry, error) {
	limit, err := rateLimitFromEnv()
	if err != nil {
		return nil, err
	}

	registry := llm.NewRegistry()
	register := func(provider llm.Provider) error {
		if limit != nil {
			provider = llm.NewRateLimitedProvider(provider, limit.rps, limit.burst)
		}
		return registry.Register(provider)
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		provider, err := NewAnthropicProvider(key)
		if err != nil {
			return nil, err
		}
		if err := register(provider); err != nil {
			return nil, err
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		provider, err := NewOpenAIProvider(key)
		if err != nil {
			return nil, err
		}
		if err := register(provider); err != nil {
			return nil, err
		}
	}

	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		provider, err := NewOllamaProvider(host)
		if err != nil {
			return nil, err
		}
		if err := register(provider); err != nil {
			return nil, err
		}
	}

	if len(registry.List()) == 0 {
		return nil, &errors.ConfigError{
			Key:    "providers",
			Reason: "no LLM provider configured; set ANTHROPIC_API_KEY, OPENAI_API_KEY, or OLLAMA_HOST",
		}
	}

	return registry, nil
}

type rateLimit struct {
	rps   float64
	burst int
}

// rateLimitFromEnv reads the optional per-provider rate cap. Each registered
// provider gets its own token bucket.
func rateLimitFromEnv() (*rateLimit, error) {
	raw := os.Getenv("MAESTRO_PROVIDER_RPS")
	if raw == "" {
		return nil, nil
	}

	rps, err := strconv.ParseFloat(raw, 64)
	if err != nil || rps <= 0 {
		return nil, &errors.ConfigError{
			Key:    "MAESTRO_PROVIDER_RPS",
			Reason: "must be a positive number of requests per second, got " + strconv.Quote(raw),
		}
	}

	burst := 1
	if rawBurst := os.Getenv("MAESTRO_PROVIDER_BURST"); rawBurst != "" {
		burst, err = strconv.Atoi(rawBurst)
		if err != nil || burst < 1 {
			return nil, &errors.ConfigError{
				Key:    "MAESTRO_PROVIDER_BURST",
				Reason: "must be a positive integer, got " + strconv.Quote(rawBurst),
			}
		}
	}

	return &rateLimit{rps: rps, burst: burst}, nil
}
