package pricing

import "time"

// Conservative default rates applied when a model identifier has no entry
// in the pricing table. Deliberately on the high side so unknown models
// never under-report cost.
const (
	DefaultInputPricePerMillion  = 15.00
	DefaultOutputPricePerMillion = 75.00
)

// getBuiltInPricing returns the default pricing configuration.
// This includes pricing for major providers as of the effective date.
func getBuiltInPricing() *Config {
	effectiveDate := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	return &Config{
		Version:   "1.0",
		UpdatedAt: effectiveDate,
		Models: []ModelPricing{
			// Anthropic Claude 4 models
			{
				Provider:              "anthropic",
				Model:                 "claude-opus-4-20250514",
				InputPricePerMillion:  15.00,
				OutputPricePerMillion: 75.00,
				EffectiveDate:         effectiveDate,
			},
			{
				Provider:              "anthropic",
				Model:                 "claude-sonnet-4-20250514",
				InputPricePerMillion:  3.00,
				OutputPricePerMillion: 15.00,
				EffectiveDate:         effectiveDate,
			},
			{
				Provider:              "anthropic",
				Model:                 "claude-3-5-haiku-20241022",
				InputPricePerMillion:  1.00,
				OutputPricePerMillion: 5.00,
				EffectiveDate:         effectiveDate,
			},

			// OpenAI GPT-4o models
			{
				Provider:              "openai",
				Model:                 "gpt-4o",
				InputPricePerMillion:  2.50,
				OutputPricePerMillion: 10.00,
				EffectiveDate:         effectiveDate,
			},
			{
				Provider:              "openai",
				Model:                 "gpt-4o-mini",
				InputPricePerMillion:  0.15,
				OutputPricePerMillion: 0.60,
				EffectiveDate:         effectiveDate,
			},

			// OpenAI o-series (reasoning models)
			{
				Provider:              "openai",
				Model:                 "o1",
				InputPricePerMillion:  15.00,
				OutputPricePerMillion: 60.00,
				EffectiveDate:         effectiveDate,
			},
			{
				Provider:              "openai",
				Model:                 "o3-mini",
				InputPricePerMillion:  1.10,
				OutputPricePerMillion: 4.40,
				EffectiveDate:         effectiveDate,
			},

			// Ollama (local models - no cost)
			{
				Provider:       "ollama",
				Model:          "llama3",
				IsSubscription: true,
				EffectiveDate:  effectiveDate,
			},
			{
				Provider:       "ollama",
				Model:          "mistral",
				IsSubscription: true,
				EffectiveDate:  effectiveDate,
			},
		},
	}
}
