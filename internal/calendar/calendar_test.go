package calendar

import (
	"fmt"
	"testing"
	"time"

	"meal-menu-service/internal/recipe"
)

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("recipe-%02d", i)
	}
	return out
}

func TestDistributeFillsEverySlot(t *testing.T) {
	mealTypes := []recipe.MealType{recipe.MealLunch, recipe.MealDinner}
	plan, err := Distribute(ids(30), 31, mealTypes)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	if plan.DaysInMonth != 31 {
		t.Errorf("expected 31 days, got %d", plan.DaysInMonth)
	}
	if len(plan.Slots) != 62 {
		t.Errorf("expected 62 filled slots, got %d", len(plan.Slots))
	}
	for day := 1; day <= 31; day++ {
		for _, mt := range mealTypes {
			if _, ok := plan.RecipeFor(day, mt); !ok {
				t.Errorf("day %d %s has no recipe", day, mt)
			}
		}
	}
}

func TestDistributeIsDeterministic(t *testing.T) {
	pool := ids(30)
	first, err := Distribute(pool, 30, []recipe.MealType{recipe.MealDinner})
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	second, err := Distribute(pool, 30, []recipe.MealType{recipe.MealDinner})
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	for slot, id := range first.Slots {
		if second.Slots[slot] != id {
			t.Errorf("slot %+v differs between runs: %s vs %s", slot, id, second.Slots[slot])
		}
	}
}

func TestDistributeWrapsAroundSmallPool(t *testing.T) {
	// 5 recipes across 31 dinner slots: the pool wraps, and consecutive
	// slots still cycle in the original order.
	plan, err := Distribute(ids(5), 31, []recipe.MealType{recipe.MealDinner})
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	for day := 1; day <= 31; day++ {
		want := fmt.Sprintf("recipe-%02d", (day-1)%5)
		got, _ := plan.RecipeFor(day, recipe.MealDinner)
		if got != want {
			t.Errorf("day %d: expected %s, got %s", day, want, got)
		}
	}
}

func TestDistributeExactFit(t *testing.T) {
	// 30 recipes over 30 single-meal days: each recipe appears exactly once.
	plan, err := Distribute(ids(30), 30, []recipe.MealType{recipe.MealDinner})
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	seen := make(map[string]int)
	for day := 1; day <= 30; day++ {
		id, _ := plan.RecipeFor(day, recipe.MealDinner)
		seen[id]++
	}
	if len(seen) != 30 {
		t.Errorf("expected 30 distinct recipes, got %d", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("recipe %s assigned %d times, expected once", id, n)
		}
	}
}

func TestDistributeRejectsBadInput(t *testing.T) {
	if _, err := Distribute(ids(5), 0, []recipe.MealType{recipe.MealDinner}); err == nil {
		t.Error("expected error for zero days")
	}
	if _, err := Distribute(ids(5), 30, nil); err == nil {
		t.Error("expected error for empty meal types")
	}
	if _, err := Distribute(nil, 30, []recipe.MealType{recipe.MealDinner}); err == nil {
		t.Error("expected error for empty recipe list")
	}
}

func TestDaysIn(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.November, 30},
		{2025, time.December, 31},
		{2024, time.February, 29},
		{2025, time.February, 28},
	}
	for _, c := range cases {
		if got := DaysIn(c.year, c.month); got != c.want {
			t.Errorf("DaysIn(%d, %s) = %d, want %d", c.year, c.month, got, c.want)
		}
	}
}
