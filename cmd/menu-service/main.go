package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"meal-menu-service/internal/auth"
	"meal-menu-service/internal/config"
	"meal-menu-service/internal/database"
	"meal-menu-service/internal/generator"
	"meal-menu-service/internal/importer"
	"meal-menu-service/internal/ledger"
	"meal-menu-service/internal/logging"
	"meal-menu-service/internal/match"
	"meal-menu-service/internal/metrics"
	"meal-menu-service/internal/ratelimit"
	"meal-menu-service/internal/recipe"
	"meal-menu-service/internal/selection"
	"meal-menu-service/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	recipeRepo := recipe.NewRepository(db.SQL)
	assignmentLedger := ledger.New(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	var providers []generator.Generator
	var textGen generator.TextGenerator

	if cfg.Gemini.APIKey != "" {
		gemini, err := generator.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			logger.Fatal("failed to initialize Gemini client", zap.Error(err))
		}
		defer gemini.Close()
		providers = append(providers, gemini)
		textGen = gemini
	}
	if cfg.OpenRouter.APIKey != "" {
		openRouter := generator.NewOpenRouterGenerator(cfg.OpenRouter.APIKey, cfg.OpenRouter.Model, cfg.OpenRouter.Timeout)
		providers = append(providers, openRouter)
		if textGen == nil {
			textGen = openRouter
		}
	}
	gen := generator.NewChain(logger, providers...)

	engine := selection.NewEngine(recipeRepo, assignmentLedger, gen, logger, cfg.Selection.GenerationDelay)
	resolver := match.NewResolver(nil, cfg.Matcher.Threshold)
	recipeImporter := importer.New(recipeRepo, textGen, logger)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	idem := server.NewIdempotencyStore(redisClient, cfg.Webhook.IdempotencyTTL, logger)

	var issuer *auth.TokenIssuer
	if cfg.Admin.JWTSecret != "" {
		issuer, err = auth.NewTokenIssuer(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
		if err != nil {
			logger.Fatal("failed to initialize admin token issuer", zap.Error(err))
		}
	} else {
		logger.Warn("admin jwt secret not configured, admin routes disabled")
	}

	srv := server.New(engine, assignmentLedger, recipeRepo, resolver, recipeImporter,
		metricsStore, issuer, limiter, idem, cfg, logger)

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
	logger.Info("server exited")
}
