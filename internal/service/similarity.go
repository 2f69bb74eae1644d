package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mailsift/mailsift/internal/domain"
)

// EmbeddingSimilarityStrategy ranks categories against a message by cosine
// similarity of their precomputed embedding vectors. Scoring is deterministic:
// repeated runs over unchanged inputs produce identical matches.
type EmbeddingSimilarityStrategy struct{}

// NewEmbeddingSimilarityStrategy creates a new EmbeddingSimilarityStrategy.
func NewEmbeddingSimilarityStrategy() *EmbeddingSimilarityStrategy {
	return &EmbeddingSimilarityStrategy{}
}

// Name returns the strategy identifier.
func (s *EmbeddingSimilarityStrategy) Name() string {
	return StrategyNameEmbedding
}

// Classify scores every category that carries a usable embedding against the
// message embedding. Categories without an embedding, with a zero-magnitude
// embedding, or with a dimensionality different from the message's are
// excluded from consideration. If no category survives exclusion the call
// fails rather than returning an empty result.
func (s *EmbeddingSimilarityStrategy) Classify(ctx context.Context, message *domain.Message, categories []*domain.Category, topN int, threshold float64) ([]domain.ClassificationMatch, error) {
	if message == nil || !message.HasEmbedding() {
		id := ""
		if message != nil {
			id = message.ID
		}
		return nil, domain.NewMissingEmbeddingError(id)
	}

	msgVec, ok := unitVector(message.Embedding)
	if !ok {
		return nil, domain.NewZeroMagnitudeEmbeddingError(message.ID)
	}

	type candidate struct {
		category *domain.Category
		vec      []float64
	}

	candidates := make([]candidate, 0, len(categories))
	for _, cat := range categories {
		if cat == nil || !cat.HasEmbedding() || len(cat.Embedding) != len(message.Embedding) {
			continue
		}
		vec, ok := unitVector(cat.Embedding)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{category: cat, vec: vec})
	}

	if len(candidates) == 0 {
		return nil, domain.ErrNoScoreableCategories
	}

	// Score all candidates in one pass over the normalized vectors.
	matches := make([]domain.ClassificationMatch, 0, len(candidates))
	for _, c := range candidates {
		score := dot(msgVec, c.vec)
		matches = append(matches, domain.ClassificationMatch{
			Category:    c.category,
			Score:       score,
			Explanation: similarityExplanation(message.ID, threshold, c.category.Name, score),
		})
	}

	// Stable sort keeps the original category order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	kept := matches[:0]
	for _, m := range matches {
		if m.Score >= threshold {
			kept = append(kept, m)
		}
	}

	topN = clampTopN(topN)
	if len(kept) > topN {
		kept = kept[:topN]
	}

	return kept, nil
}

// similarityExplanation renders the deterministic justification attached to
// every embedding-similarity match.
func similarityExplanation(messageID string, threshold float64, categoryName string, score float64) string {
	return fmt.Sprintf("Message %s embeddings exceed %.2f similarity threshold for category '%s' with score %.4f",
		messageID, threshold, categoryName, score)
}

// unitVector converts the embedding to float64 and scales it to unit length.
// Returns false for a zero-magnitude vector, which cannot be normalized.
func unitVector(embedding []float32) ([]float64, bool) {
	vec := make([]float64, len(embedding))
	var sumSquares float64
	for i, v := range embedding {
		f := float64(v)
		vec[i] = f
		sumSquares += f * f
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return nil, false
	}

	for i := range vec {
		vec[i] /= magnitude
	}
	return vec, true
}

// dot computes the dot product of two equal-length vectors. On unit vectors
// this is the cosine similarity, in [-1, 1].
func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
