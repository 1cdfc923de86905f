package llm

// ModelTier represents performance/cost trade-offs for model selection.
// Applications can request a tier without knowing provider-specific model IDs.
type ModelTier string

const (
	// ModelTierEconomy prioritizes speed and cost-efficiency.
	// Best for simple tasks, high-volume requests, or quick responses.
	ModelTierEconomy ModelTier = "economy"

	// ModelTierBalanced offers a balance between capability and cost.
	// Best for most general-purpose tasks requiring reasoning.
	ModelTierBalanced ModelTier = "balanced"

	// ModelTierPremium provides maximum capability for complex reasoning.
	// Best for difficult tasks requiring deep analysis or expert knowledge.
	ModelTierPremium ModelTier = "premium"
)

// TierForSlider maps a normalized slider position (0.0-1.0) to a model tier.
// Positions below 0.34 map to economy, below 0.67 to balanced, and the rest
// to premium.
func TierForSlider(position float64) ModelTier {
	switch {
	case position < 0.34:
		return ModelTierEconomy
	case position < 0.67:
		return ModelTierBalanced
	default:
		return ModelTierPremium
	}
}

// ModelInfo describes a specific model's capabilities and pricing.
type ModelInfo struct {
	// ID is the provider-specific model identifier (e.g., "claude-sonnet-4-20250514").
	ID string

	// Name is the human-readable model name.
	Name string

	// Tier indicates the performance/cost category.
	Tier ModelTier

	// MaxTokens is the maximum context window size in tokens.
	MaxTokens int

	// MaxOutputTokens is the maximum tokens the model can generate in one response.
	// If 0, uses provider default or MaxTokens.
	MaxOutputTokens int

	// SupportsTools indicates whether this model can use function calling.
	SupportsTools bool

	// SupportsThinking indicates whether this model has an extended-reasoning mode.
	SupportsThinking bool

	// Description provides additional context about the model's strengths.
	Description string
}

// GetModelByTier returns the first model matching the specified tier.
// Returns nil if no model matches the tier.
func GetModelByTier(models []ModelInfo, tier ModelTier) *ModelInfo {
	for i := range models {
		if models[i].Tier == tier {
			return &models[i]
		}
	}
	return nil
}

// GetModelByID returns the model with the specified ID.
// Returns nil if no model matches the ID.
func GetModelByID(models []ModelInfo, id string) *ModelInfo {
	for i := range models {
		if models[i].ID == id {
			return &models[i]
		}
	}
	return nil
}
