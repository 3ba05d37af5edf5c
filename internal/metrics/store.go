package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SelectionMetric records the outcome of a single selection run.
type SelectionMetric struct {
	CustomerID         string
	Period             string
	DietType           string
	LibraryCount       int
	NewCount           int
	GenerationFailures int
	LibraryShortfall   bool
	LatencyMS          int64
	Timestamp          time.Time
}

// Store handles persistence of selection metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m SelectionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	shortfall := 0
	if m.LibraryShortfall {
		shortfall = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO selection_metrics
		   (customer_id, period, diet_type, library_count, new_count, generation_failures, library_shortfall, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.CustomerID, m.Period, m.DietType, m.LibraryCount, m.NewCount,
		m.GenerationFailures, shortfall, m.LatencyMS, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to record selection metric: %w", err)
	}
	return nil
}

// Summary aggregates selection outcomes over a window.
type Summary struct {
	Selections         int   `json:"selections"`
	GenerationFailures int   `json:"generation_failures"`
	LibraryShortfalls  int   `json:"library_shortfalls"`
	AvgLatencyMS       int64 `json:"avg_latency_ms"`
}

// Summarize returns aggregate counters for selections since the given time.
func (s *Store) Summarize(ctx context.Context, since time.Time) (Summary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(generation_failures), 0),
		        COALESCE(SUM(library_shortfall), 0),
		        COALESCE(AVG(latency_ms), 0)
		 FROM selection_metrics
		 WHERE created_at >= ?`,
		since,
	)

	var sum Summary
	var avg float64
	if err := row.Scan(&sum.Selections, &sum.GenerationFailures, &sum.LibraryShortfalls, &avg); err != nil {
		return Summary{}, fmt.Errorf("failed to summarize selection metrics: %w", err)
	}
	sum.AvgLatencyMS = int64(avg)
	return sum, nil
}
