// Package calendar maps a selected recipe list onto the day/meal slots of a
// month. Distribution is pure and deterministic so rendering, print and PDF
// consumers all see the same layout for the same inputs.
package calendar

import (
	"fmt"
	"time"

	"meal-menu-service/internal/recipe"
)

// Slot is one (day, mealType) cell in a month's calendar.
type Slot struct {
	Day      int             `json:"day"`
	MealType recipe.MealType `json:"meal_type"`
}

// Plan is a filled month: every day has exactly one entry per configured
// meal type.
type Plan struct {
	DaysInMonth int                        `json:"days_in_month"`
	MealTypes   []recipe.MealType          `json:"meal_types"`
	Slots       map[Slot]string            `json:"-"`
	Days        []map[recipe.MealType]string `json:"days"`
}

// Distribute walks days in order and fills each configured meal type by
// taking the next recipe round-robin. When the list runs out before the
// slots do, it wraps around and reuses recipes from the start: every day
// always shows a meal, even when the pool is smaller than the slot count.
func Distribute(recipeIDs []string, daysInMonth int, mealTypes []recipe.MealType) (Plan, error) {
	if daysInMonth < 1 {
		return Plan{}, fmt.Errorf("invalid days in month: %d", daysInMonth)
	}
	if len(mealTypes) == 0 {
		return Plan{}, fmt.Errorf("at least one meal type is required")
	}
	if len(recipeIDs) == 0 {
		return Plan{}, fmt.Errorf("no recipes to distribute")
	}

	plan := Plan{
		DaysInMonth: daysInMonth,
		MealTypes:   mealTypes,
		Slots:       make(map[Slot]string, daysInMonth*len(mealTypes)),
		Days:        make([]map[recipe.MealType]string, daysInMonth),
	}

	next := 0
	for day := 1; day <= daysInMonth; day++ {
		dayMeals := make(map[recipe.MealType]string, len(mealTypes))
		for _, mt := range mealTypes {
			id := recipeIDs[next%len(recipeIDs)]
			next++
			plan.Slots[Slot{Day: day, MealType: mt}] = id
			dayMeals[mt] = id
		}
		plan.Days[day-1] = dayMeals
	}
	return plan, nil
}

// RecipeFor returns the recipe id assigned to a slot.
func (p Plan) RecipeFor(day int, mealType recipe.MealType) (string, bool) {
	id, ok := p.Slots[Slot{Day: day, MealType: mealType}]
	return id, ok
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
