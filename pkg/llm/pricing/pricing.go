// Package pricing maintains the per-model token rate table used for cost
// attribution. Rates are static and illustrative: they are looked up by
// exact model identifier with a conservative default pair for unknown
// models, and can be overridden from a user config file. Billing-accurate
// live pricing is explicitly out of scope.
package pricing

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ModelPricing contains pricing information for a specific model.
type ModelPricing struct {
	// Provider is the LLM provider name (e.g., "anthropic", "openai").
	Provider string `yaml:"provider" json:"provider"`

	// Model is the model identifier (e.g., "claude-sonnet-4-20250514").
	Model string `yaml:"model" json:"model"`

	// InputPricePerMillion is the cost per million input tokens in USD.
	InputPricePerMillion float64 `yaml:"input_price_per_million" json:"input_price_per_million"`

	// OutputPricePerMillion is the cost per million output tokens in USD.
	// Thinking tokens are billed at this rate.
	OutputPricePerMillion float64 `yaml:"output_price_per_million" json:"output_price_per_million"`

	// EffectiveDate is when this pricing became effective.
	EffectiveDate time.Time `yaml:"effective_date" json:"effective_date"`

	// IsSubscription indicates if this is a subscription-based model (no per-token cost).
	IsSubscription bool `yaml:"is_subscription,omitempty" json:"is_subscription,omitempty"`
}

// Config contains all pricing information.
type Config struct {
	// Version is the pricing configuration version.
	Version string `yaml:"version" json:"version"`

	// UpdatedAt is when this configuration was last updated.
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`

	// Models contains pricing for all models.
	Models []ModelPricing `yaml:"models" json:"models"`
}

// Manager manages pricing lookups with user-config overrides.
// It is safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	config *Config

	// configPath is the path to user pricing configuration.
	configPath string
}

// NewManager creates a new pricing manager with built-in defaults.
func NewManager() *Manager {
	return &Manager{
		config: getBuiltInPricing(),
	}
}

// NewManagerWithConfig creates a pricing manager and loads user config if available.
func NewManagerWithConfig(configPath string) (*Manager, error) {
	m := NewManager()
	m.configPath = configPath

	// A missing user config is not an error; defaults apply.
	if err := m.LoadUserConfig(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load pricing config: %w", err)
	}

	return m, nil
}

// LoadUserConfig loads pricing configuration from the configured file path.
// If the file doesn't exist, built-in defaults are used.
func (m *Manager) LoadUserConfig() error {
	if m.configPath == "" {
		return nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read pricing config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse pricing config: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = mergePricing(m.config, &config)

	return nil
}

// mergePricing merges user pricing with built-in defaults.
// User pricing takes precedence for matching model identifiers.
func mergePricing(builtIn, user *Config) *Config {
	merged := &Config{
		Version:   user.Version,
		UpdatedAt: user.UpdatedAt,
		Models:    make([]ModelPricing, 0, len(builtIn.Models)),
	}

	userPricing := make(map[string]ModelPricing)
	for _, mp := range user.Models {
		userPricing[mp.Model] = mp
	}

	for _, mp := range builtIn.Models {
		if userMP, exists := userPricing[mp.Model]; exists {
			merged.Models = append(merged.Models, userMP)
			delete(userPricing, mp.Model)
		} else {
			merged.Models = append(merged.Models, mp)
		}
	}

	// Any user pricing not present in the built-in table.
	for _, mp := range userPricing {
		merged.Models = append(merged.Models, mp)
	}

	return merged
}

// GetPricing returns pricing for an exact model identifier.
// Returns nil if the model is unknown.
func (m *Manager) GetPricing(model string) *ModelPricing {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.config.Models {
		if m.config.Models[i].Model == model {
			return &m.config.Models[i]
		}
	}

	return nil
}

// ListModels returns all models with pricing data, optionally filtered by provider.
func (m *Manager) ListModels(provider string) []ModelPricing {
	m.mu.RLock()
	defer m.mu.RUnlock()

	models := make([]ModelPricing, 0, len(m.config.Models))
	for _, mp := range m.config.Models {
		if provider == "" || mp.Provider == provider {
			models = append(models, mp)
		}
	}

	return models
}

// GetConfig returns a copy of the current pricing configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	config := *m.config
	config.Models = make([]ModelPricing, len(m.config.Models))
	copy(config.Models, m.config.Models)

	return config
}
