package orchestration

import (
	"fmt"
	"time"

	"github.com/agenticwork/maestro/pkg/errors"
)

// ConfigSource records where a MultiModelConfig came from. A config sourced
// from "runtime" is treated as an admin override and force-enables routing.
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceFeatureFlag ConfigSource = "feature_flag"
	SourceRuntime     ConfigSource = "runtime"
	SourceAdmin       ConfigSource = "admin"
)

// ModelRoleConfig configures one role. Owned by the configuration
// collaborator; the engine treats it as read-only.
type ModelRoleConfig struct {
	// Enabled gates whether this role may execute at all.
	Enabled bool `yaml:"enabled"`

	// Model is the primary model identifier for this role.
	Model string `yaml:"model"`

	// FallbackModel, when set and different from Model, is substituted for
	// exactly one retry after a primary failure.
	FallbackModel string `yaml:"fallback_model,omitempty"`

	// Provider is a hint for provider selection; empty uses the default.
	Provider string `yaml:"provider,omitempty"`

	// Temperature overrides the provider default when set.
	Temperature *float64 `yaml:"temperature,omitempty"`

	// MaxTokens caps the response length when set.
	MaxTokens *int `yaml:"max_tokens,omitempty"`

	// ThinkingBudget enables extended reasoning with the given token budget.
	// Only applied for the reasoning role.
	ThinkingBudget *int `yaml:"thinking_budget,omitempty"`

	// MaxCostUSD and MaxDuration are advisory per-role limits.
	MaxCostUSD  float64       `yaml:"max_cost_usd,omitempty"`
	MaxDuration time.Duration `yaml:"max_duration,omitempty"`

	// PreserveToolChain keeps the tool-call-ID chain in handoff messages.
	PreserveToolChain bool `yaml:"preserve_tool_chain,omitempty"`
}

// RoutingThresholds holds the knobs the routing analyzer consults.
type RoutingThresholds struct {
	// ComplexityThreshold is the minimum slider position (0.0-1.0) at which
	// a complex query triggers multi-model routing.
	ComplexityThreshold float64 `yaml:"complexity_threshold"`

	// AlwaysTriggerPhrases force multi-model routing when the query
	// contains any of them.
	AlwaysTriggerPhrases []string `yaml:"always_trigger_phrases,omitempty"`

	// TriggerRules are optional boolean expressions evaluated against the
	// task analysis (e.g. `complexity == "complex" && toolCount > 2`).
	TriggerRules []string `yaml:"trigger_rules,omitempty"`

	// PreferCheapToolModel selects the economy-tier model for the tool
	// execution role when planning.
	PreferCheapToolModel bool `yaml:"prefer_cheap_tool_model,omitempty"`

	// MaxHandoffs bounds the number of role-to-role transitions in one
	// orchestration.
	MaxHandoffs int `yaml:"max_handoffs"`
}

// MultiModelConfig is the full routing configuration for one orchestration.
// It is immutable for the duration of a run.
type MultiModelConfig struct {
	// Enabled is the master switch. Disabled always routes single-model.
	Enabled bool `yaml:"enabled"`

	// ForceEnabled bypasses complexity analysis: routing is always on.
	ForceEnabled bool `yaml:"force_enabled,omitempty"`

	// Source records the config's provenance.
	Source ConfigSource `yaml:"source,omitempty"`

	// Roles maps each role to its configuration.
	Roles map[ModelRole]ModelRoleConfig `yaml:"roles"`

	// Routing holds the analyzer thresholds.
	Routing RoutingThresholds `yaml:"routing"`
}

// DefaultMaxHandoffs applies when MaxHandoffs is unset.
const DefaultMaxHandoffs = 3

// DefaultConfig returns a config with routing enabled and sensible role
// assignments. Callers normally load a real config instead.
func DefaultConfig() *MultiModelConfig {
	temp := 0.7
	thinkingBudget := 8192
	return &MultiModelConfig{
		Enabled: true,
		Source:  SourceDefault,
		Roles: map[ModelRole]ModelRoleConfig{
			RoleReasoning: {
				Enabled:        true,
				Model:          "claude-opus-4-20250514",
				FallbackModel:  "claude-sonnet-4-20250514",
				ThinkingBudget: &thinkingBudget,
			},
			RoleToolExecution: {
				Enabled:           true,
				Model:             "claude-sonnet-4-20250514",
				FallbackModel:     "claude-3-5-haiku-20241022",
				PreserveToolChain: true,
			},
			RoleSynthesis: {
				Enabled:     true,
				Model:       "claude-sonnet-4-20250514",
				Temperature: &temp,
			},
			RoleFallback: {
				Enabled: true,
				Model:   "claude-3-5-haiku-20241022",
			},
		},
		Routing: RoutingThresholds{
			ComplexityThreshold: 0.67,
			MaxHandoffs:         DefaultMaxHandoffs,
		},
	}
}

// RoleConfig looks up one role's configuration.
func (c *MultiModelConfig) RoleConfig(role ModelRole) (ModelRoleConfig, bool) {
	cfg, ok := c.Roles[role]
	return cfg, ok
}

// EffectiveRoleConfig applies routing preferences on top of the role's own
// configuration. With PreferCheapToolModel set, the tool execution role
// borrows the fallback role's economy model while keeping its own options.
func (c *MultiModelConfig) EffectiveRoleConfig(role ModelRole) (ModelRoleConfig, bool) {
	cfg, ok := c.Roles[role]
	if !ok {
		return cfg, false
	}
	if role == RoleToolExecution && c.Routing.PreferCheapToolModel {
		if fb, hasFallback := c.Roles[RoleFallback]; hasFallback && fb.Model != "" {
			cfg.Model = fb.Model
		}
	}
	return cfg, ok
}

// MaxHandoffs returns the configured handoff bound, defaulting when unset.
func (c *MultiModelConfig) MaxHandoffs() int {
	if c.Routing.MaxHandoffs <= 0 {
		return DefaultMaxHandoffs
	}
	return c.Routing.MaxHandoffs
}

// Validate checks that every enabled role has a model assigned and that the
// thresholds are in range. Called before any role executes so configuration
// problems fail fast.
func (c *MultiModelConfig) Validate() error {
	for role, roleCfg := range c.Roles {
		if !role.Valid() {
			return &errors.ConfigError{
				Key:    fmt.Sprintf("roles.%s", role),
				Reason: "unknown role",
			}
		}
		if roleCfg.Enabled && roleCfg.Model == "" {
			return &errors.ConfigError{
				Key:    fmt.Sprintf("roles.%s.model", role),
				Reason: "enabled role has no model assigned",
			}
		}
	}
	if c.Routing.ComplexityThreshold < 0 || c.Routing.ComplexityThreshold > 1 {
		return &errors.ConfigError{
			Key:    "routing.complexity_threshold",
			Reason: fmt.Sprintf("must be between 0.0 and 1.0, got %v", c.Routing.ComplexityThreshold),
		}
	}
	if c.Routing.MaxHandoffs < 0 {
		return &errors.ConfigError{
			Key:    "routing.max_handoffs",
			Reason: fmt.Sprintf("must be >= 0, got %d", c.Routing.MaxHandoffs),
		}
	}
	return nil
}
