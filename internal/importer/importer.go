// Package importer grows the recipe library out-of-band: it fetches a
// public recipe page, strips the markup down to text, and asks an LLM to
// extract a structured recipe for a target diet.
package importer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"meal-menu-service/internal/generator"
	"meal-menu-service/internal/recipe"
)

// Store is where imported recipes land.
type Store interface {
	Insert(ctx context.Context, rec recipe.Recipe) error
}

// Importer handles fetching and extracting recipes from URLs.
type Importer struct {
	store      Store
	textGen    generator.TextGenerator
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates an Importer.
func New(store Store, textGen generator.TextGenerator, logger *zap.Logger) *Importer {
	return &Importer{
		store:      store,
		textGen:    textGen,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// ImportURL fetches the URL, extracts a recipe for the given diet, and
// inserts it into the library.
func (i *Importer) ImportURL(ctx context.Context, url, dietType string, mealType recipe.MealType) (*recipe.Recipe, error) {
	content, err := i.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	prompt := fmt.Sprintf(`You are a recipe extraction expert. Extract the recipe details from the following page content and adapt it as a %s diet %s recipe.

Return ONLY a JSON object with this exact structure (no other text):
{
  "name": "Recipe Name",
  "description": "Brief appealing description",
  "prep_time": 15,
  "cook_time": 30,
  "servings": 4,
  "difficulty": "easy|medium|hard",
  "ingredients": [
    {"item": "ingredient name", "amount": "2", "unit": "cups"}
  ],
  "instructions": ["Step 1", "Step 2"],
  "nutrition": {
    "calories": 350,
    "protein": 25,
    "carbs": 30,
    "fat": 15,
    "fiber": 8
  },
  "tags": ["tag1", "tag2"]
}

Estimate any value the page does not state. Do not wrap the response in markdown code blocks.

Page Content:
%s
`, dietType, mealType, content)

	raw, err := i.textGen.GenerateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("ai extraction failed: %w", err)
	}

	rec, err := generator.ParseRecipeJSON(raw, dietType, mealType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extracted recipe: %w", err)
	}

	if err := i.store.Insert(ctx, *rec); err != nil {
		return nil, fmt.Errorf("failed to save imported recipe: %w", err)
	}

	i.logger.Info("imported recipe",
		zap.String("recipe", rec.Name),
		zap.String("diet", dietType),
		zap.String("source", url),
	)
	return rec, nil
}

func (i *Importer) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	// Remove noise to save LLM tokens.
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	return doc.Find("body").Text(), nil
}
