package generator

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"meal-menu-service/internal/recipe"
)

type stubProvider struct {
	rec   *recipe.Recipe
	err   error
	calls int
}

func (s *stubProvider) Generate(_ context.Context, _ Request) (*recipe.Recipe, error) {
	s.calls++
	return s.rec, s.err
}

func TestChainReturnsFirstSuccess(t *testing.T) {
	want := &recipe.Recipe{ID: "r1", Name: "First"}
	first := &stubProvider{rec: want}
	second := &stubProvider{rec: &recipe.Recipe{ID: "r2"}}

	chain := NewChain(zap.NewNop(), first, second)
	got, err := chain.Generate(context.Background(), Request{DietType: "keto"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got.ID != "r1" {
		t.Errorf("expected recipe from first provider, got %s", got.ID)
	}
	if second.calls != 0 {
		t.Errorf("second provider should not be called, got %d calls", second.calls)
	}
}

func TestChainFallsBackOnFailure(t *testing.T) {
	first := &stubProvider{err: errors.New("rate limited")}
	second := &stubProvider{rec: &recipe.Recipe{ID: "r2", Name: "Fallback"}}

	chain := NewChain(zap.NewNop(), first, second)
	got, err := chain.Generate(context.Background(), Request{DietType: "keto"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got.ID != "r2" {
		t.Errorf("expected fallback provider's recipe, got %s", got.ID)
	}
}

func TestChainFailsWhenAllProvidersFail(t *testing.T) {
	lastErr := errors.New("quota exceeded")
	chain := NewChain(zap.NewNop(),
		&stubProvider{err: errors.New("timeout")},
		&stubProvider{err: lastErr},
	)

	_, err := chain.Generate(context.Background(), Request{DietType: "keto"})
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("expected the last provider error to be wrapped, got %v", err)
	}
}

func TestChainWithoutProviders(t *testing.T) {
	chain := NewChain(zap.NewNop())
	if _, err := chain.Generate(context.Background(), Request{DietType: "keto"}); err == nil {
		t.Error("expected error with no providers configured")
	}
}
