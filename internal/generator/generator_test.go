package generator

import (
	"strings"
	"testing"

	"meal-menu-service/internal/recipe"
)

const validResponse = `{
  "name": "Keto Garlic Butter Salmon",
  "description": "Pan-seared salmon with a rich garlic butter sauce.",
  "prep_time": 10,
  "cook_time": 15,
  "servings": 4,
  "difficulty": "easy",
  "ingredients": [
    {"item": "salmon fillet", "amount": "600", "unit": "g"},
    {"item": "butter", "amount": "3", "unit": "tbsp"}
  ],
  "instructions": ["Season the salmon.", "Sear skin-side down.", "Baste with garlic butter."],
  "nutrition": {"calories": 480, "protein": 40, "carbs": 2, "fat": 34, "fiber": 0},
  "tags": ["gluten-free"]
}`

func TestParseResponseValid(t *testing.T) {
	rec, err := parseResponse(validResponse, Request{DietType: "Keto", MealType: recipe.MealDinner})
	if err != nil {
		t.Fatalf("parseResponse failed: %v", err)
	}

	if rec.Name != "Keto Garlic Butter Salmon" {
		t.Errorf("unexpected name %q", rec.Name)
	}
	if rec.ID == "" {
		t.Error("generated recipe must get a fresh id")
	}
	if len(rec.DietPlans) != 1 || rec.DietPlans[0] != "keto" {
		t.Errorf("expected lowercased diet tag, got %v", rec.DietPlans)
	}
	if rec.MealType != recipe.MealDinner {
		t.Errorf("expected dinner meal type, got %s", rec.MealType)
	}
	if rec.Difficulty != recipe.DifficultyEasy {
		t.Errorf("expected easy difficulty, got %s", rec.Difficulty)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("created_at must be set")
	}
}

func TestParseResponseStripsMarkdownFences(t *testing.T) {
	fenced := "```json\n" + validResponse + "\n```"
	rec, err := parseResponse(fenced, Request{DietType: "keto", MealType: recipe.MealDinner})
	if err != nil {
		t.Fatalf("parseResponse failed on fenced payload: %v", err)
	}
	if rec.Name != "Keto Garlic Butter Salmon" {
		t.Errorf("unexpected name %q", rec.Name)
	}
}

func TestParseResponseRejectsGarbage(t *testing.T) {
	if _, err := parseResponse("Sorry, I cannot do that.", Request{DietType: "keto"}); err == nil {
		t.Error("expected error for non-JSON response")
	}
}

func TestParseResponseRejectsInvalidRecipe(t *testing.T) {
	// Valid JSON but zero servings fails recipe validation.
	broken := strings.Replace(validResponse, `"servings": 4`, `"servings": 0`, 1)
	if _, err := parseResponse(broken, Request{DietType: "keto"}); err == nil {
		t.Error("expected validation error for zero servings")
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, c := range cases {
		if got := stripCodeFences(c.in); got != c.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBuildPromptIncludesDietConstraints(t *testing.T) {
	prompt := buildPrompt(Request{
		DietType:   "keto",
		MealType:   recipe.MealDinner,
		Difficulty: recipe.DifficultyMedium,
		Servings:   2,
	})

	for _, want := range []string{"keto", "grains, sugar", "dinner", "Servings: 2", "medium"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptUnknownDietFallsBack(t *testing.T) {
	prompt := buildPrompt(Request{DietType: "carnivore", MealType: recipe.MealDinner})
	if !strings.Contains(prompt, "balanced whole foods") {
		t.Error("unknown diet should use the generic constraint")
	}
	if !strings.Contains(prompt, "Servings: 4") {
		t.Error("zero servings should default to 4")
	}
}

func TestDifficultyRotationCycles(t *testing.T) {
	var r DifficultyRotation
	want := []recipe.Difficulty{
		recipe.DifficultyEasy, recipe.DifficultyMedium, recipe.DifficultyHard,
		recipe.DifficultyEasy, recipe.DifficultyMedium, recipe.DifficultyHard,
	}
	for i, w := range want {
		if got := r.Next(); got != w {
			t.Errorf("rotation step %d: got %s, want %s", i, got, w)
		}
	}
}
