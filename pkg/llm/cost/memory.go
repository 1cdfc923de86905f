package cost

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of Store.
// It does not persist data between runs but needs no setup, which makes it
// the default for embedded use and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []UsageRecord
}

// NewMemoryStore creates a new in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make([]UsageRecord, 0),
	}
}

// Record saves a usage record in memory.
func (s *MemoryStore) Record(ctx context.Context, record UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	s.records = append(s.records, record)

	return nil
}

// ByOrchestration retrieves all records for one orchestration.
func (s *MemoryStore) ByOrchestration(ctx context.Context, orchestrationID string) ([]UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []UsageRecord
	for _, record := range s.records {
		if record.OrchestrationID == orchestrationID {
			matches = append(matches, record)
		}
	}

	return matches, nil
}

// AggregateByOrchestration sums usage for one orchestration.
func (s *MemoryStore) AggregateByOrchestration(ctx context.Context, orchestrationID string) (*Aggregate, error) {
	records, err := s.ByOrchestration(ctx, orchestrationID)
	if err != nil {
		return nil, err
	}

	agg := &Aggregate{}
	for _, record := range records {
		agg.Records++
		agg.TotalTokens += record.Usage.TotalTokens
		agg.TotalCostUSD += record.CostUSD
		agg.TotalDuration += record.Duration
	}

	return agg, nil
}

// DeleteOlderThan removes records older than the specified age.
func (s *MemoryStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-age)
	kept := s.records[:0]
	var removed int64

	for _, record := range s.records {
		if record.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, record)
	}

	s.records = kept
	return removed, nil
}

// Close releases resources. No-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
