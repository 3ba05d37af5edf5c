package recipe

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty classifies how demanding a recipe is to cook.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty maps free-form text onto a known difficulty, defaulting to medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy
	case DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// MealType identifies the calendar slot a recipe is intended for.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// Ingredient is a single line of a recipe's ingredient list.
type Ingredient struct {
	Item   string `json:"item"`
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
	Notes  string `json:"notes,omitempty"`
}

// Nutrition holds per-serving macro estimates.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
}

// Recipe is a named dish belonging to one or more diet plans. Recipes are
// immutable once stored; new ones enter the library either by import or by
// AI generation during a selection.
type Recipe struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`
	DietPlans       []string     `json:"diet_plans"`
	MealType        MealType     `json:"meal_type,omitempty"`
	PrepTimeMinutes int          `json:"prep_time"`
	CookTimeMinutes int          `json:"cook_time"`
	Servings        int          `json:"servings"`
	Difficulty      Difficulty   `json:"difficulty"`
	Ingredients     []Ingredient `json:"ingredients"`
	Instructions    []string     `json:"instructions"`
	Nutrition       Nutrition    `json:"nutrition"`
	Tags            []string     `json:"tags,omitempty"`
	ImageURL        string       `json:"image_url,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// HasDietPlan reports whether the recipe is tagged with the given diet.
func (r *Recipe) HasDietPlan(dietType string) bool {
	for _, d := range r.DietPlans {
		if strings.EqualFold(d, dietType) {
			return true
		}
	}
	return false
}

// Validate checks the invariants a recipe must satisfy before it is stored.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("recipe name is required")
	}
	if len(r.DietPlans) == 0 {
		return fmt.Errorf("recipe %q must belong to at least one diet plan", r.Name)
	}
	if r.PrepTimeMinutes <= 0 {
		return fmt.Errorf("recipe %q has invalid prep time %d", r.Name, r.PrepTimeMinutes)
	}
	if r.CookTimeMinutes <= 0 {
		return fmt.Errorf("recipe %q has invalid cook time %d", r.Name, r.CookTimeMinutes)
	}
	if r.Servings <= 0 {
		return fmt.Errorf("recipe %q has invalid servings %d", r.Name, r.Servings)
	}
	if r.Nutrition.Calories <= 0 {
		return fmt.Errorf("recipe %q has invalid calories %.1f", r.Name, r.Nutrition.Calories)
	}
	if r.Nutrition.Protein < 0 || r.Nutrition.Carbs < 0 || r.Nutrition.Fat < 0 || r.Nutrition.Fiber < 0 {
		return fmt.Errorf("recipe %q has negative nutrition values", r.Name)
	}
	switch r.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return fmt.Errorf("recipe %q has unknown difficulty %q", r.Name, r.Difficulty)
	}
	return nil
}

// SelectedRecipe is a recipe chosen for a customer, flagged with whether it
// was freshly generated for this selection or drawn from the library.
type SelectedRecipe struct {
	Recipe
	IsNew bool `json:"is_new"`
}
