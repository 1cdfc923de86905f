package cost

import (
	"context"
	"testing"
	"time"

	"github.com/agenticwork/maestro/pkg/llm"
)

func sampleRecord(orchestrationID, role string, tokens int, costUSD float64) UsageRecord {
	return UsageRecord{
		OrchestrationID: orchestrationID,
		Role:            role,
		Provider:        "anthropic",
		Model:           "claude-sonnet-4-20250514",
		Duration:        250 * time.Millisecond,
		Usage: llm.TokenUsage{
			InputTokens:  tokens / 2,
			OutputTokens: tokens / 2,
			TotalTokens:  tokens,
		},
		CostUSD: costUSD,
	}
}

// storeUnderTest runs the shared Store contract tests against an implementation.
func storeUnderTest(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	records := []UsageRecord{
		sampleRecord("orc-1", "reasoning", 1000, 0.01),
		sampleRecord("orc-1", "synthesis", 500, 0.005),
		sampleRecord("orc-2", "synthesis", 200, 0.002),
	}
	for _, record := range records {
		if err := store.Record(ctx, record); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := store.ByOrchestration(ctx, "orc-1")
	if err != nil {
		t.Fatalf("ByOrchestration failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for orc-1, got %d", len(got))
	}
	if got[0].Role != "reasoning" || got[1].Role != "synthesis" {
		t.Errorf("records out of insertion order: %s, %s", got[0].Role, got[1].Role)
	}
	if got[0].ID == "" {
		t.Error("expected a generated record ID")
	}

	agg, err := store.AggregateByOrchestration(ctx, "orc-1")
	if err != nil {
		t.Fatalf("AggregateByOrchestration failed: %v", err)
	}
	if agg.Records != 2 {
		t.Errorf("expected 2 aggregated records, got %d", agg.Records)
	}
	if agg.TotalTokens != 1500 {
		t.Errorf("expected 1500 total tokens, got %d", agg.TotalTokens)
	}
	if agg.TotalCostUSD < 0.0149 || agg.TotalCostUSD > 0.0151 {
		t.Errorf("expected ~0.015 total cost, got %v", agg.TotalCostUSD)
	}

	empty, err := store.AggregateByOrchestration(ctx, "missing")
	if err != nil {
		t.Fatalf("AggregateByOrchestration on missing ID failed: %v", err)
	}
	if empty.Records != 0 || empty.TotalTokens != 0 {
		t.Errorf("expected empty aggregate, got %+v", empty)
	}

	// Nothing is old enough to be deleted yet.
	removed, err := store.DeleteOlderThan(ctx, time.Hour)
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected 0 removed, got %d", removed)
	}

	// Everything is older than a negative age.
	removed, err = store.DeleteOlderThan(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}
}
