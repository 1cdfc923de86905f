// Package cost provides optional persistence for per-role usage records.
// The orchestrator writes one record per executed role when a store is
// configured; dashboards and retention policies live outside the engine.
package cost

import (
	"context"
	"time"

	"github.com/agenticwork/maestro/pkg/llm"
)

// UsageRecord captures the usage of one role execution within an orchestration.
type UsageRecord struct {
	// ID is a unique record identifier.
	ID string

	// OrchestrationID identifies the orchestration this record belongs to.
	OrchestrationID string

	// Role is the model role that produced this usage (reasoning, synthesis, ...).
	Role string

	// Provider is the name of the provider that handled the request.
	Provider string

	// Model is the model ID actually invoked (post-fallback if one occurred).
	Model string

	// Timestamp is when the role execution started.
	Timestamp time.Time

	// Duration is the wall-clock time of the role execution,
	// including any fallback retry.
	Duration time.Duration

	// Usage contains token consumption information.
	Usage llm.TokenUsage

	// CostUSD is the attributed cost in US dollars.
	CostUSD float64
}

// Aggregate contains summed usage statistics.
type Aggregate struct {
	// Records is the number of usage records aggregated.
	Records int

	// TotalTokens is the sum of all token counts.
	TotalTokens int

	// TotalCostUSD is the sum of attributed cost.
	TotalCostUSD float64

	// TotalDuration is the sum of role execution durations.
	TotalDuration time.Duration
}

// Store defines the interface for usage record storage.
type Store interface {
	// Record saves a usage record.
	Record(ctx context.Context, record UsageRecord) error

	// ByOrchestration retrieves all records for one orchestration,
	// in insertion order.
	ByOrchestration(ctx context.Context, orchestrationID string) ([]UsageRecord, error)

	// AggregateByOrchestration sums usage for one orchestration.
	AggregateByOrchestration(ctx context.Context, orchestrationID string) (*Aggregate, error)

	// DeleteOlderThan removes records older than the specified age.
	// Used for retention policy enforcement. Returns the number removed.
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)

	// Close closes the store and releases resources.
	Close() error
}
