package generator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"meal-menu-service/internal/recipe"
)

// Chain tries each provider in order and returns the first success. The
// production setup runs Gemini first with OpenRouter as fallback.
type Chain struct {
	providers []Generator
	logger    *zap.Logger
}

// NewChain creates a fallback chain over the given providers.
func NewChain(logger *zap.Logger, providers ...Generator) *Chain {
	return &Chain{providers: providers, logger: logger}
}

// Generate implements Generator.
func (c *Chain) Generate(ctx context.Context, req Request) (*recipe.Recipe, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("no generation providers configured")
	}

	var lastErr error
	for i, p := range c.providers {
		rec, err := p.Generate(ctx, req)
		if err == nil {
			return rec, nil
		}
		lastErr = err
		c.logger.Warn("generation provider failed, trying next",
			zap.Int("provider", i),
			zap.String("diet", req.DietType),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("all generation providers failed: %w", lastErr)
}
