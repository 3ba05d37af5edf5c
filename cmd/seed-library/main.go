// seed-library imports recipes from public web pages into the library, one
// URL per line on stdin or a single -url flag. It is the out-of-band path
// for growing a diet's catalog before customers buy into it.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"meal-menu-service/internal/config"
	"meal-menu-service/internal/database"
	"meal-menu-service/internal/generator"
	"meal-menu-service/internal/importer"
	"meal-menu-service/internal/logging"
	"meal-menu-service/internal/recipe"
)

func main() {
	url := flag.String("url", "", "single recipe URL to import (otherwise URLs are read from stdin)")
	diet := flag.String("diet", "", "diet plan to tag imported recipes with (required)")
	meal := flag.String("meal", "dinner", "meal type hint: breakfast|lunch|dinner|snack")
	flag.Parse()

	if *diet == "" {
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.New(cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	var textGen generator.TextGenerator
	if cfg.Gemini.APIKey != "" {
		gemini, err := generator.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			logger.Fatal("failed to initialize Gemini client", zap.Error(err))
		}
		defer gemini.Close()
		textGen = gemini
	} else {
		textGen = generator.NewOpenRouterGenerator(cfg.OpenRouter.APIKey, cfg.OpenRouter.Model, cfg.OpenRouter.Timeout)
	}

	imp := importer.New(recipe.NewRepository(db.SQL), textGen, logger)
	mealType := recipe.MealType(*meal)

	urls := make(chan string)
	go func() {
		defer close(urls)
		if *url != "" {
			urls <- *url
			return
		}
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" && !strings.HasPrefix(line, "#") {
				urls <- line
			}
		}
	}()

	imported, failed := 0, 0
	for u := range urls {
		if _, err := imp.ImportURL(ctx, u, *diet, mealType); err != nil {
			logger.Error("import failed", zap.String("url", u), zap.Error(err))
			failed++
			continue
		}
		imported++
	}

	logger.Info("seeding complete", zap.Int("imported", imported), zap.Int("failed", failed))
	if failed > 0 && imported == 0 {
		os.Exit(1)
	}
}
