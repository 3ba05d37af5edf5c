// Package match resolves free-text recipe names back to canonical recipe
// records. Historical meal-plan data stores denormalized names rather than
// ids, so rendering paths need a best-effort reconciliation step; the match
// quality field is what keeps that degradation observable.
package match

import (
	"strings"

	"meal-menu-service/internal/recipe"
)

// Quality describes how a query was resolved.
type Quality string

const (
	QualityExact Quality = "exact"
	QualityFuzzy Quality = "fuzzy"
	QualityNone  Quality = "none"
)

// Result is the outcome of resolving a free-text recipe name.
type Result struct {
	Query   string         `json:"query"`
	Matched *recipe.Recipe `json:"matched,omitempty"`
	Quality Quality        `json:"quality"`
	Score   float64        `json:"score"`
}

// Scorer computes a normalized similarity in [0,1] between two already
// normalized names. The heuristic is a policy choice, so it is pluggable.
type Scorer interface {
	Score(query, candidate string) float64
}

// DefaultThreshold is the minimum similarity a fuzzy candidate must clear.
const DefaultThreshold = 0.6

// Resolver matches names against a candidate pool: exact first, then the
// highest-scoring fuzzy candidate above the threshold.
type Resolver struct {
	scorer    Scorer
	threshold float64
}

// NewResolver creates a Resolver. A nil scorer falls back to token overlap
// and a non-positive threshold falls back to DefaultThreshold.
func NewResolver(scorer Scorer, threshold float64) *Resolver {
	if scorer == nil {
		scorer = TokenOverlapScorer{}
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Resolver{scorer: scorer, threshold: threshold}
}

// Resolve matches queryName against the pool.
func (r *Resolver) Resolve(queryName string, pool []recipe.Recipe) Result {
	query := normalize(queryName)
	result := Result{Query: queryName, Quality: QualityNone}
	if query == "" || len(pool) == 0 {
		return result
	}

	for i := range pool {
		if normalize(pool[i].Name) == query {
			result.Matched = &pool[i]
			result.Quality = QualityExact
			result.Score = 1
			return result
		}
	}

	best := -1
	bestScore := 0.0
	for i := range pool {
		score := r.scorer.Score(query, normalize(pool[i].Name))
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best >= 0 && bestScore >= r.threshold {
		result.Matched = &pool[best]
		result.Quality = QualityFuzzy
		result.Score = bestScore
	}
	return result
}

// normalize lowercases, trims, and collapses internal whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// TokenOverlapScorer scores by Dice coefficient over word sets: twice the
// shared token count over the total token count.
type TokenOverlapScorer struct{}

// Score implements Scorer.
func (TokenOverlapScorer) Score(query, candidate string) float64 {
	qTokens := strings.Fields(query)
	cTokens := strings.Fields(candidate)
	if len(qTokens) == 0 || len(cTokens) == 0 {
		return 0
	}

	qSet := make(map[string]struct{}, len(qTokens))
	for _, t := range qTokens {
		qSet[t] = struct{}{}
	}
	cSet := make(map[string]struct{}, len(cTokens))
	for _, t := range cTokens {
		cSet[t] = struct{}{}
	}

	shared := 0
	for t := range qSet {
		if _, ok := cSet[t]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(qSet)+len(cSet))
}

// LevenshteinScorer scores by edit-distance ratio: 1 - distance/maxLen.
type LevenshteinScorer struct{}

// Score implements Scorer.
func (LevenshteinScorer) Score(query, candidate string) float64 {
	if query == candidate {
		return 1
	}
	qr := []rune(query)
	cr := []rune(candidate)
	maxLen := len(qr)
	if len(cr) > maxLen {
		maxLen = len(cr)
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(levenshtein(qr, cr))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
