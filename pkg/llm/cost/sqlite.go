package cost

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists usage records to a local SQLite database.
// WAL mode is enabled so concurrent orchestrations can record usage while
// readers aggregate.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the usage database at path and runs
// migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	connStr := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id               TEXT PRIMARY KEY,
	orchestration_id TEXT NOT NULL,
	role             TEXT NOT NULL,
	provider         TEXT NOT NULL,
	model            TEXT NOT NULL,
	timestamp        INTEGER NOT NULL,
	duration_ms      INTEGER NOT NULL,
	input_tokens     INTEGER NOT NULL,
	output_tokens    INTEGER NOT NULL,
	thinking_tokens  INTEGER NOT NULL,
	total_tokens     INTEGER NOT NULL,
	cost_usd         REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_orchestration ON usage_records(orchestration_id);
CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records(timestamp);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Record saves a usage record.
func (s *SQLiteStore) Record(ctx context.Context, record UsageRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	const query = `
INSERT INTO usage_records (
	id, orchestration_id, role, provider, model,
	timestamp, duration_ms,
	input_tokens, output_tokens, thinking_tokens, total_tokens, cost_usd
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.OrchestrationID,
		record.Role,
		record.Provider,
		record.Model,
		record.Timestamp.UnixMilli(),
		record.Duration.Milliseconds(),
		record.Usage.InputTokens,
		record.Usage.OutputTokens,
		record.Usage.ThinkingTokens,
		record.Usage.TotalTokens,
		record.CostUSD,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}

	return nil
}

// ByOrchestration retrieves all records for one orchestration in insertion order.
func (s *SQLiteStore) ByOrchestration(ctx context.Context, orchestrationID string) ([]UsageRecord, error) {
	const query = `
SELECT id, orchestration_id, role, provider, model,
	timestamp, duration_ms,
	input_tokens, output_tokens, thinking_tokens, total_tokens, cost_usd
FROM usage_records
WHERE orchestration_id = ?
ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, orchestrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var record UsageRecord
		var timestampMs, durationMs int64

		if err := rows.Scan(
			&record.ID,
			&record.OrchestrationID,
			&record.Role,
			&record.Provider,
			&record.Model,
			&timestampMs,
			&durationMs,
			&record.Usage.InputTokens,
			&record.Usage.OutputTokens,
			&record.Usage.ThinkingTokens,
			&record.Usage.TotalTokens,
			&record.CostUSD,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}

		record.Timestamp = time.UnixMilli(timestampMs)
		record.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, record)
	}

	return records, rows.Err()
}

// AggregateByOrchestration sums usage for one orchestration.
func (s *SQLiteStore) AggregateByOrchestration(ctx context.Context, orchestrationID string) (*Aggregate, error) {
	const query = `
SELECT COUNT(*),
	COALESCE(SUM(total_tokens), 0),
	COALESCE(SUM(cost_usd), 0),
	COALESCE(SUM(duration_ms), 0)
FROM usage_records
WHERE orchestration_id = ?`

	var agg Aggregate
	var durationMs int64

	err := s.db.QueryRowContext(ctx, query, orchestrationID).Scan(
		&agg.Records,
		&agg.TotalTokens,
		&agg.TotalCostUSD,
		&durationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage records: %w", err)
	}

	agg.TotalDuration = time.Duration(durationMs) * time.Millisecond
	return &agg, nil
}

// DeleteOlderThan removes records older than the specified age.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).UnixMilli()

	result, err := s.db.ExecContext(ctx, `DELETE FROM usage_records WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete usage records: %w", err)
	}

	return result.RowsAffected()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// interface guards
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
