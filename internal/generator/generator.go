// Package generator synthesizes brand-new recipes for a diet via an LLM
// provider. Providers are treated as black boxes that either return a valid
// recipe or fail; callers own retry and backfill policy.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"meal-menu-service/internal/recipe"
)

// Request describes the recipe to generate.
type Request struct {
	DietType   string
	MealType   recipe.MealType
	Difficulty recipe.Difficulty
	Servings   int
}

// Generator produces a new recipe for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (*recipe.Recipe, error)
}

// TextGenerator exposes raw prompt completion. The importer uses it to
// extract structured recipes from scraped web pages.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ParseRecipeJSON turns a provider response carrying the standard recipe
// JSON shape into a validated Recipe tagged with the given diet.
func ParseRecipeJSON(raw, dietType string, mealType recipe.MealType) (*recipe.Recipe, error) {
	return parseResponse(raw, Request{DietType: dietType, MealType: mealType})
}

// dietConstraint guides the model toward a diet's actual rules.
type dietConstraint struct {
	Focus  string
	Avoid  string
	Macros string
}

var dietConstraints = map[string]dietConstraint{
	"mediterranean": {
		Focus:  "olive oil, fish, vegetables, whole grains, legumes",
		Avoid:  "processed foods, refined sugars",
		Macros: "45% carbs, 20% protein, 35% fat",
	},
	"keto": {
		Focus:  "high fat, moderate protein, very low carb",
		Avoid:  "grains, sugar, most fruits, starchy vegetables",
		Macros: "5% carbs, 20% protein, 75% fat",
	},
	"vegan": {
		Focus:  "plant-based proteins, vegetables, grains, nuts, seeds",
		Avoid:  "all animal products including meat, dairy, eggs, honey",
		Macros: "55% carbs, 15% protein, 30% fat",
	},
	"paleo": {
		Focus:  "lean meats, fish, vegetables, fruits, nuts, seeds",
		Avoid:  "grains, legumes, dairy, processed foods",
		Macros: "35% carbs, 30% protein, 35% fat",
	},
	"vegetarian": {
		Focus:  "vegetables, fruits, grains, dairy, eggs",
		Avoid:  "meat, fish, poultry",
		Macros: "50% carbs, 20% protein, 30% fat",
	},
}

// buildPrompt renders the generation prompt for a request.
func buildPrompt(req Request) string {
	constraint, ok := dietConstraints[strings.ToLower(req.DietType)]
	if !ok {
		constraint = dietConstraint{
			Focus:  "balanced whole foods",
			Avoid:  "heavily processed foods",
			Macros: "balanced macros",
		}
	}

	servings := req.Servings
	if servings <= 0 {
		servings = 4
	}

	return fmt.Sprintf(`You are a professional chef and nutritionist. Generate a %s diet %s recipe with the following requirements:

Diet Focus: %s
Must Avoid: %s
Target Macros: %s
Meal Type: %s
Servings: %d
Difficulty: %s

Return ONLY a JSON object with this exact structure (no other text):
{
  "name": "Recipe Name",
  "description": "Brief appealing description",
  "prep_time": 15,
  "cook_time": 30,
  "servings": %d,
  "difficulty": "easy|medium|hard",
  "ingredients": [
    {"item": "ingredient name", "amount": "2", "unit": "cups", "notes": "optional notes"}
  ],
  "instructions": ["Step 1", "Step 2", "Step 3"],
  "nutrition": {
    "calories": 350,
    "protein": 25,
    "carbs": 30,
    "fat": 15,
    "fiber": 8
  },
  "tags": ["gluten-free", "dairy-free"]
}

Ensure the output is valid JSON. Do not wrap the response in markdown code blocks.`,
		req.DietType, req.MealType, constraint.Focus, constraint.Avoid, constraint.Macros,
		req.MealType, servings, req.Difficulty, servings)
}

// generatedRecipe is the JSON shape providers are asked to return.
type generatedRecipe struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	PrepTime     int                 `json:"prep_time"`
	CookTime     int                 `json:"cook_time"`
	Servings     int                 `json:"servings"`
	Difficulty   string              `json:"difficulty"`
	Ingredients  []recipe.Ingredient `json:"ingredients"`
	Instructions []string            `json:"instructions"`
	Nutrition    recipe.Nutrition    `json:"nutrition"`
	Tags         []string            `json:"tags"`
}

// parseResponse turns a raw LLM response into a validated Recipe.
func parseResponse(raw string, req Request) (*recipe.Recipe, error) {
	jsonStr := stripCodeFences(raw)

	var gen generatedRecipe
	if err := json.Unmarshal([]byte(jsonStr), &gen); err != nil {
		return nil, fmt.Errorf("failed to parse generated recipe JSON: %w. Response: %s", err, truncate(raw, 300))
	}

	rec := recipe.Recipe{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(gen.Name),
		Description:     gen.Description,
		DietPlans:       []string{strings.ToLower(req.DietType)},
		MealType:        req.MealType,
		PrepTimeMinutes: gen.PrepTime,
		CookTimeMinutes: gen.CookTime,
		Servings:        gen.Servings,
		Difficulty:      recipe.ParseDifficulty(gen.Difficulty),
		Ingredients:     gen.Ingredients,
		Instructions:    gen.Instructions,
		Nutrition:       gen.Nutrition,
		Tags:            gen.Tags,
		CreatedAt:       time.Now().UTC(),
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("generated recipe failed validation: %w", err)
	}
	return &rec, nil
}

// stripCodeFences extracts the JSON payload when the model wraps it in
// markdown fences despite instructions.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// DifficultyRotation cycles easy, medium, hard so sequentially generated
// recipes vary.
type DifficultyRotation struct {
	next int
}

var rotationOrder = []recipe.Difficulty{
	recipe.DifficultyEasy,
	recipe.DifficultyMedium,
	recipe.DifficultyHard,
}

// Next returns the next difficulty in the cycle.
func (r *DifficultyRotation) Next() recipe.Difficulty {
	d := rotationOrder[r.next%len(rotationOrder)]
	r.next++
	return d
}
