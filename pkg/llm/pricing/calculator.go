package pricing

import (
	"fmt"
	"strings"
)

// TokenUsage tracks token consumption for cost calculation.
// This is a copy of llm.TokenUsage to avoid a circular import.
type TokenUsage struct {
	InputTokens    int
	OutputTokens   int
	ThinkingTokens int
	TotalTokens    int
}

// CostAccuracy indicates reliability of a cost value.
type CostAccuracy string

const (
	CostMeasured    CostAccuracy = "measured"
	CostEstimated   CostAccuracy = "estimated"
	CostUnavailable CostAccuracy = "unavailable"
)

// CostInfo contains cost details with accuracy tracking.
type CostInfo struct {
	Amount   float64
	Currency string
	Accuracy CostAccuracy
}

// CalculateCost computes the cost for a request using the given pricing.
// When pricing is nil (unknown model), the conservative default rate pair
// applies and the result is flagged as estimated. Thinking tokens are
// billed at the output rate.
func CalculateCost(pricing *ModelPricing, usage TokenUsage) *CostInfo {
	inputRate := DefaultInputPricePerMillion
	outputRate := DefaultOutputPricePerMillion
	accuracy := determineAccuracy(usage)

	if pricing != nil {
		// Subscription models have no per-token cost.
		if pricing.IsSubscription {
			return &CostInfo{
				Amount:   0,
				Currency: "USD",
				Accuracy: CostMeasured,
			}
		}
		inputRate = pricing.InputPricePerMillion
		outputRate = pricing.OutputPricePerMillion
	} else if accuracy == CostMeasured {
		// Measured tokens but unknown rates: the figure is still an estimate.
		accuracy = CostEstimated
	}

	inputCost := float64(usage.InputTokens) / 1_000_000.0 * inputRate
	outputCost := float64(usage.OutputTokens+usage.ThinkingTokens) / 1_000_000.0 * outputRate

	return &CostInfo{
		Amount:   inputCost + outputCost,
		Currency: "USD",
		Accuracy: accuracy,
	}
}

// determineAccuracy determines cost accuracy based on token usage data.
func determineAccuracy(usage TokenUsage) CostAccuracy {
	// Provider-reported tokens make the cost measured.
	if usage.InputTokens > 0 || usage.OutputTokens > 0 {
		return CostMeasured
	}

	// Only a total (estimated from characters) makes it an estimate.
	if usage.TotalTokens > 0 {
		return CostEstimated
	}

	return CostUnavailable
}

// EstimateTokensFromText estimates token count from text using
// character-based approximation: ~4 characters per token for English text.
// This is a fallback when the provider doesn't report token counts.
func EstimateTokensFromText(text string) int {
	charCount := len(text)

	estimatedTokens := charCount / 4

	// Minimum 1 token for non-empty text.
	if estimatedTokens == 0 && charCount > 0 {
		estimatedTokens = 1
	}

	return estimatedTokens
}

// Message represents a chat message for token estimation.
type Message struct {
	Role    string
	Content string
}

// EstimateTokensFromMessages estimates tokens from a list of messages,
// adding overhead for role markers and message formatting.
func EstimateTokensFromMessages(messages []Message) int {
	totalTokens := 0

	// Providers add tokens for role markers and separators.
	messageOverhead := 3

	for _, msg := range messages {
		contentTokens := EstimateTokensFromText(msg.Content)
		roleTokens := EstimateTokensFromText(msg.Role)
		totalTokens += contentTokens + roleTokens + messageOverhead
	}

	// Base overhead for the conversation.
	totalTokens += 3

	return totalTokens
}

// FormatCost formats a cost value with accuracy indicator for display.
// Returns strings like "$0.0045", "~$0.0045", or "--" for unavailable.
func FormatCost(cost *CostInfo) string {
	if cost == nil || cost.Accuracy == CostUnavailable {
		return "--"
	}

	formatted := fmt.Sprintf("$%.4f", cost.Amount)

	if cost.Accuracy == CostEstimated {
		formatted = "~" + formatted
	}

	return formatted
}

// FormatTokens formats token count for display with units.
func FormatTokens(tokens int) string {
	if tokens >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(tokens)/1_000_000.0)
	}
	if tokens >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(tokens)/1_000.0)
	}
	return fmt.Sprintf("%d", tokens)
}

// ParseModel extracts provider and model from a model string.
// Supports formats like "anthropic:claude-sonnet-4" or just "claude-sonnet-4".
func ParseModel(modelStr string) (provider, model string) {
	parts := strings.SplitN(modelStr, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}

	// Try to infer provider from model name.
	if strings.HasPrefix(modelStr, "claude-") {
		return "anthropic", modelStr
	}
	if strings.HasPrefix(modelStr, "gpt-") || strings.HasPrefix(modelStr, "o1") || strings.HasPrefix(modelStr, "o3") {
		return "openai", modelStr
	}

	return "unknown", modelStr
}
