package service

import (
	"context"

	"github.com/mailsift/mailsift/internal/domain"
)

// Strategy names accepted in configuration and per-request overrides.
const (
	StrategyNameEmbedding = "embedding"
	StrategyNameLLM       = "llm"
)

// Strategy scores a message against a set of candidate categories and
// returns the matches that clear the threshold, best first. Implementations
// never mutate the message or the category list.
type Strategy interface {
	// Name returns the identifier the strategy is registered under.
	Name() string

	// Classify returns at most topN matches, each with score >= threshold,
	// sorted by score in non-increasing order. Every match carries a
	// non-empty explanation.
	Classify(ctx context.Context, message *domain.Message, categories []*domain.Category, topN int, threshold float64) ([]domain.ClassificationMatch, error)
}

// clampTopN applies the default result cap when the caller passes a
// non-positive value.
func clampTopN(topN int) int {
	if topN <= 0 {
		return DefaultTopN
	}
	return topN
}

// DefaultTopN is the result cap used when a classify call does not specify one.
const DefaultTopN = 3

// DefaultThreshold is the minimum score used when a classify call does not
// specify one.
const DefaultThreshold = 0.5
