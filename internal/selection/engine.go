// Package selection implements the hybrid recipe selection engine: for each
// purchase it assembles a month's worth of recipes for a customer, mixing
// library recipes with freshly generated ones while avoiding recipes the
// customer has already received.
package selection

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"meal-menu-service/internal/generator"
	"meal-menu-service/internal/ledger"
	"meal-menu-service/internal/recipe"
)

var (
	// ErrStoreUnavailable means the recipe catalog or the assignment ledger
	// could not be reached. Selection cannot proceed; the caller owns the
	// retry (webhook redelivery) and any non-personalized fallback.
	ErrStoreUnavailable = errors.New("recipe store unavailable")

	// ErrInvalidRequest means the request parameters violate their bounds.
	ErrInvalidRequest = errors.New("invalid selection request")
)

// Store is the slice of the recipe catalog the engine needs.
type Store interface {
	ListByDiet(ctx context.Context, dietType string) ([]recipe.Recipe, error)
	Insert(ctx context.Context, rec recipe.Recipe) error
}

// SeenLedger reads a customer's assignment history.
type SeenLedger interface {
	SeenRecipeIDs(ctx context.Context, customerID string) ([]string, error)
}

// Request is the input to a selection.
type Request struct {
	CustomerID           string
	DietType             string
	Period               ledger.Period
	TotalRecipes         int
	NewRecipesPercentage int
	Servings             int
}

// Validate checks the request bounds.
func (r Request) Validate() error {
	if r.CustomerID == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidRequest)
	}
	if r.DietType == "" {
		return fmt.Errorf("%w: diet type is required", ErrInvalidRequest)
	}
	if r.TotalRecipes <= 0 {
		return fmt.Errorf("%w: total recipes must be positive, got %d", ErrInvalidRequest, r.TotalRecipes)
	}
	if r.NewRecipesPercentage < 0 || r.NewRecipesPercentage > 100 {
		return fmt.Errorf("%w: new recipes percentage must be in [0,100], got %d", ErrInvalidRequest, r.NewRecipesPercentage)
	}
	return nil
}

// Result carries the selected recipes plus the observability counters the
// caller records.
type Result struct {
	Recipes            []recipe.SelectedRecipe
	NewCount           int
	LibraryCount       int
	GenerationFailures int
	LibraryShortfall   bool
}

// SplitCounts divides a total between generated and library picks. Rounding
// is biased toward generating slightly more new recipes so small totals
// still get fresh content.
func SplitCounts(total, newPercentage int) (newCount, libraryCount int) {
	newCount = (total*newPercentage + 99) / 100
	if newCount > total {
		newCount = total
	}
	return newCount, total - newCount
}

// Engine selects recipes for customers.
type Engine struct {
	store     Store
	ledger    SeenLedger
	generator generator.Generator
	logger    *zap.Logger

	// generationDelay spaces sequential provider calls to stay under the
	// upstream API's rate limits.
	generationDelay time.Duration
}

// NewEngine creates a selection engine.
func NewEngine(store Store, seen SeenLedger, gen generator.Generator, logger *zap.Logger, generationDelay time.Duration) *Engine {
	return &Engine{
		store:           store,
		ledger:          seen,
		generator:       gen,
		logger:          logger,
		generationDelay: generationDelay,
	}
}

// SelectForCustomer produces the recipe list for one customer and period.
// Library picks are deterministic (oldest recipes first); generated picks
// are persisted to the store immediately so future customers can draw them
// from the library. Generation failures degrade to extra library picks
// rather than failing the purchase.
func (e *Engine) SelectForCustomer(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	newCount, libraryCount := SplitCounts(req.TotalRecipes, req.NewRecipesPercentage)

	pool, err := e.store.ListByDiet(ctx, req.DietType)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s library: %v", ErrStoreUnavailable, req.DietType, err)
	}

	seenIDs, err := e.ledger.SeenRecipeIDs(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading seen set for %s: %v", ErrStoreUnavailable, req.CustomerID, err)
	}

	seen := make(map[string]struct{}, len(seenIDs))
	for _, id := range seenIDs {
		seen[id] = struct{}{}
	}

	// The pool comes back oldest-first; splitting it preserves that order
	// for both the unseen queue and the reuse queue.
	poolByID := make(map[string]recipe.Recipe, len(pool))
	var unseen []recipe.Recipe
	for _, rec := range pool {
		poolByID[rec.ID] = rec
		if _, ok := seen[rec.ID]; !ok {
			unseen = append(unseen, rec)
		}
	}

	// Reuse candidates keep oldest-assignment-first order: the recipes a
	// customer saw longest ago come back first when the library runs dry.
	var reusable []recipe.Recipe
	for _, id := range seenIDs {
		if rec, ok := poolByID[id]; ok {
			reusable = append(reusable, rec)
		}
	}

	result := &Result{NewCount: newCount, LibraryCount: libraryCount}

	takeLibrary := func() (recipe.Recipe, bool) {
		if len(unseen) > 0 {
			rec := unseen[0]
			unseen = unseen[1:]
			return rec, true
		}
		if len(reusable) > 0 {
			result.LibraryShortfall = true
			rec := reusable[0]
			reusable = reusable[1:]
			return rec, true
		}
		return recipe.Recipe{}, false
	}

	var selected []recipe.SelectedRecipe
	for i := 0; i < libraryCount; i++ {
		rec, ok := takeLibrary()
		if !ok {
			break
		}
		selected = append(selected, recipe.SelectedRecipe{Recipe: rec})
	}

	if result.LibraryShortfall {
		e.logger.Warn("library too small for fully unseen selection, reusing seen recipes",
			zap.String("customer", req.CustomerID),
			zap.String("diet", req.DietType),
			zap.Int("library_count", libraryCount),
		)
	}

	generated, failures := e.generateBatch(ctx, req, newCount)
	result.GenerationFailures = failures
	selected = append(selected, generated...)

	// Each failed generation is backfilled with one extra library pick so
	// the total target is still met.
	for i := 0; i < failures; i++ {
		rec, ok := takeLibrary()
		if !ok {
			break
		}
		selected = append(selected, recipe.SelectedRecipe{Recipe: rec})
	}

	shuffle(selected, req.CustomerID, req.Period)
	result.Recipes = selected

	if len(selected) < req.TotalRecipes {
		e.logger.Warn("selection fell short of target",
			zap.String("customer", req.CustomerID),
			zap.Int("target", req.TotalRecipes),
			zap.Int("selected", len(selected)),
		)
	}
	return result, nil
}

// generateBatch calls the provider sequentially with an inter-call delay,
// rotating difficulty for variety. Each failed slot is retried once; a slot
// that fails twice is counted and skipped. Successful recipes are persisted
// to the store immediately so they join the library.
func (e *Engine) generateBatch(ctx context.Context, req Request, count int) ([]recipe.SelectedRecipe, int) {
	var rotation generator.DifficultyRotation
	var out []recipe.SelectedRecipe
	failures := 0

	for i := 0; i < count; i++ {
		if i > 0 && e.generationDelay > 0 {
			select {
			case <-time.After(e.generationDelay):
			case <-ctx.Done():
				failures += count - i
				return out, failures
			}
		}

		genReq := generator.Request{
			DietType:   req.DietType,
			MealType:   recipe.MealDinner,
			Difficulty: rotation.Next(),
			Servings:   req.Servings,
		}

		rec, err := e.generator.Generate(ctx, genReq)
		if err != nil {
			rec, err = e.generator.Generate(ctx, genReq)
		}
		if err != nil {
			failures++
			e.logger.Warn("recipe generation failed, will backfill from library",
				zap.String("diet", req.DietType),
				zap.Error(err),
			)
			continue
		}

		if err := e.store.Insert(ctx, *rec); err != nil {
			failures++
			e.logger.Error("failed to persist generated recipe",
				zap.String("recipe", rec.Name),
				zap.Error(err),
			)
			continue
		}

		e.logger.Info("generated new recipe",
			zap.String("recipe", rec.Name),
			zap.String("diet", req.DietType),
			zap.String("difficulty", string(genReq.Difficulty)),
		)
		out = append(out, recipe.SelectedRecipe{Recipe: *rec, IsNew: true})
	}
	return out, failures
}

// shuffle reorders the combined selection so generated recipes are not
// clustered at the end. The PRNG is seeded from (customer, period), which
// keeps the order stable across webhook redeliveries for the same purchase.
func shuffle(recipes []recipe.SelectedRecipe, customerID string, period ledger.Period) {
	h := fnv.New64a()
	h.Write([]byte(customerID))
	h.Write([]byte("|"))
	h.Write([]byte(period))

	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	rng.Shuffle(len(recipes), func(i, j int) {
		recipes[i], recipes[j] = recipes[j], recipes[i]
	})
}
