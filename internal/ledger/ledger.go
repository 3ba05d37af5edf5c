// Package ledger persists which recipes each customer has received per
// period. It is the source of truth the selection engine reads to avoid
// repeats and writes after every successful selection.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Period is a year-month key identifying one selection cycle, e.g. "2025-11".
type Period string

const periodLayout = "2006-01"

// PeriodOf returns the period containing the given instant, in UTC.
func PeriodOf(t time.Time) Period {
	return Period(t.UTC().Format(periodLayout))
}

// ParsePeriod validates a year-month key.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid period %q: %w", s, err)
	}
	return PeriodOf(t), nil
}

// Time returns the first instant of the period.
func (p Period) Time() time.Time {
	t, _ := time.Parse(periodLayout, string(p))
	return t
}

// AssignmentRecord ties a customer to the recipes they received for a period.
// Records are immutable once written.
type AssignmentRecord struct {
	CustomerID string    `json:"customer_id"`
	Period     Period    `json:"period"`
	RecipeIDs  []string  `json:"recipe_ids"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ledger is a database-backed store of assignment records.
type Ledger struct {
	db *sql.DB
}

// New creates a Ledger on an existing database connection.
func New(d *sql.DB) *Ledger {
	return &Ledger{db: d}
}

// Track records the recipes shown to a customer for a period. Writing the
// same (customer, period) again replaces the previous record, which keeps
// exactly-once semantics per period under at-least-once webhook delivery.
func (l *Ledger) Track(ctx context.Context, customerID string, recipeIDs []string, period Period) error {
	if customerID == "" {
		return fmt.Errorf("customer id is required")
	}
	if len(recipeIDs) == 0 {
		return fmt.Errorf("no recipe ids to track for customer %s", customerID)
	}

	ids, err := json.Marshal(recipeIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe ids: %w", err)
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO customer_recipes (customer_id, period, recipe_ids, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (customer_id, period) DO UPDATE SET
		   recipe_ids = excluded.recipe_ids,
		   created_at = excluded.created_at`,
		customerID, string(period), string(ids), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to track recipes for customer %s period %s: %w", customerID, period, err)
	}
	return nil
}

// Records returns all assignment records for a customer, oldest period first.
func (l *Ledger) Records(ctx context.Context, customerID string) ([]AssignmentRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT customer_id, period, recipe_ids, created_at
		 FROM customer_recipes
		 WHERE customer_id = ?
		 ORDER BY period ASC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment records for %s: %w", customerID, err)
	}
	defer rows.Close()

	var records []AssignmentRecord
	for rows.Next() {
		var rec AssignmentRecord
		var idsJSON string
		if err := rows.Scan(&rec.CustomerID, &rec.Period, &idsJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment record: %w", err)
		}
		if err := json.Unmarshal([]byte(idsJSON), &rec.RecipeIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipe ids for %s/%s: %w", rec.CustomerID, rec.Period, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignment records: %w", err)
	}
	return records, nil
}

// Record returns the assignment record for one (customer, period), or nil.
func (l *Ledger) Record(ctx context.Context, customerID string, period Period) (*AssignmentRecord, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT customer_id, period, recipe_ids, created_at
		 FROM customer_recipes
		 WHERE customer_id = ? AND period = ?`,
		customerID, string(period),
	)

	var rec AssignmentRecord
	var idsJSON string
	if err := row.Scan(&rec.CustomerID, &rec.Period, &idsJSON, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load assignment record %s/%s: %w", customerID, period, err)
	}
	if err := json.Unmarshal([]byte(idsJSON), &rec.RecipeIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe ids for %s/%s: %w", customerID, period, err)
	}
	return &rec, nil
}

// SeenRecipeIDs returns every recipe id assigned to the customer across all
// periods, oldest assignment first. The union spans the customer's whole
// history, not just the prior month.
func (l *Ledger) SeenRecipeIDs(ctx context.Context, customerID string) ([]string, error) {
	records, err := l.Records(ctx, customerID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var ordered []string
	for _, rec := range records {
		for _, id := range rec.RecipeIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ordered = append(ordered, id)
		}
	}
	return ordered, nil
}
