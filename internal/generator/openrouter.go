package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"meal-menu-service/internal/recipe"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterGenerator produces recipes via an OpenAI-compatible chat
// completion API. It serves as the fallback provider when Gemini is down or
// rate limited.
type OpenRouterGenerator struct {
	client *resty.Client
	apiKey string
	model  string
}

// NewOpenRouterGenerator creates an OpenRouter-backed generator.
func NewOpenRouterGenerator(apiKey, model string, timeout time.Duration) *OpenRouterGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenRouterGenerator{
		client: resty.New().SetTimeout(timeout),
		apiKey: apiKey,
		model:  model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate implements Generator.
func (g *OpenRouterGenerator) Generate(ctx context.Context, req Request) (*recipe.Recipe, error) {
	raw, err := g.GenerateText(ctx, buildPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseResponse(raw, req)
}

// GenerateText implements TextGenerator.
func (g *OpenRouterGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	body := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    0.8,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	var parsed chatResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(g.apiKey).
		SetBody(body).
		SetResult(&parsed).
		Post(openRouterURL)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("openrouter api error: status %d, body: %s", resp.StatusCode(), truncate(resp.String(), 300))
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no content generated")
	}
	return parsed.Choices[0].Message.Content, nil
}
