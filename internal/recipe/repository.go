package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Repository is a database-backed catalog of recipes. The full recipe is kept
// as a JSON document; the columns exist for filtering and ordering only.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Insert stores a new recipe and its diet plan tags. Recipes are append-only;
// inserting an existing id is an error.
func (r *Repository) Insert(ctx context.Context, rec Recipe) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid recipe: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO recipes (id, name, data, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Name, string(data), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recipe %q: %w", rec.Name, err)
	}

	for _, diet := range rec.DietPlans {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO recipe_diet_plans (recipe_id, diet_plan) VALUES (?, ?)`,
			rec.ID, strings.ToLower(diet),
		)
		if err != nil {
			return fmt.Errorf("failed to tag recipe %q with diet %q: %w", rec.Name, diet, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recipe insert: %w", err)
	}
	return nil
}

// GetByID retrieves a recipe by its ID. Returns nil when not found.
func (r *Repository) GetByID(ctx context.Context, id string) (*Recipe, error) {
	row := r.db.QueryRowContext(ctx, `SELECT data FROM recipes WHERE id = ?`, id)

	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}

	var rec Recipe
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}
	return &rec, nil
}

// GetByIDs retrieves multiple recipes by id. Missing ids are skipped; the
// result preserves the order of the requested ids.
func (r *Repository) GetByIDs(ctx context.Context, ids []string) ([]Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT data FROM recipes WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipes by IDs: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]Recipe, len(ids))
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		var rec Recipe
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
		}
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipe rows: %w", err)
	}

	recipes := make([]Recipe, 0, len(byID))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			recipes = append(recipes, rec)
		}
	}
	return recipes, nil
}

// ListByDiet retrieves all recipes tagged with the given diet plan,
// oldest-first. Ordering is part of the contract: library sampling is
// deterministic and relies on it.
func (r *Repository) ListByDiet(ctx context.Context, dietType string) ([]Recipe, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.data
		 FROM recipes r
		 JOIN recipe_diet_plans d ON d.recipe_id = r.id
		 WHERE d.diet_plan = ?
		 ORDER BY r.created_at ASC, r.id ASC`,
		strings.ToLower(dietType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes for diet %q: %w", dietType, err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		var rec Recipe
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipe rows: %w", err)
	}
	return recipes, nil
}

// Count returns the number of recipes in the catalog.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return count, nil
}
