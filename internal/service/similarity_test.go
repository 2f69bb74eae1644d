package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/internal/domain"
)

func msgWithEmbedding(id string, embedding []float32) *domain.Message {
	m := domain.NewMessage(id, "subject", "sender@example.com", []string{"to@example.com"})
	m.Embedding = embedding
	return m
}

func catWithEmbedding(id int64, name string, embedding []float32) *domain.Category {
	c := domain.NewCategory(id, name, name+" description")
	c.Embedding = embedding
	return c
}

func TestEmbeddingSimilarity_ExactMatch(t *testing.T) {
	strategy := NewEmbeddingSimilarityStrategy()
	message := msgWithEmbedding("msg-1", []float32{1, 0, 0})
	categories := []*domain.Category{
		catWithEmbedding(1, "X", []float32{1, 0, 0}),
		catWithEmbedding(2, "Y", []float32{0, 1, 0}),
	}

	matches, err := strategy.Classify(context.Background(), message, categories, 5, 0.5)

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "X", matches[0].Category.Name)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestEmbeddingSimilarity_ScoreRange(t *testing.T) {
	strategy := NewEmbeddingSimilarityStrategy()
	message := msgWithEmbedding("msg-1", []float32{3, 0, 0})
	categories := []*domain.Category{
		catWithEmbedding(1, "identical", []float32{7, 0, 0}),
		catWithEmbedding(2, "orthogonal", []float32{0, 2, 0}),
		catWithEmbedding(3, "opposite", []float32{-5, 0, 0}),
	}

	matches, err := strategy.Classify(context.Background(), message, categories, 5, -1)

	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.InDelta(t, 0.0, matches[1].Score, 1e-9)
	assert.InDelta(t, -1.0, matches[2].Score, 1e-9)
}

func TestEmbeddingSimilarity_ThresholdAndTopN(t *testing.T) {
	strategy := NewEmbeddingSimilarityStrategy()
	message := msgWithEmbedding("msg-1", []float32{1, 0, 0, 0})
	categories := []*domain.Category{
		catWithEmbedding(1, "a", []float32{1, 0, 0, 0}),      // 1.0
		catWithEmbedding(2, "b", []float32{1, 1, 0, 0}),      // ~0.707
		catWithEmbedding(3, "c", []float32{1, 2, 0, 0}),      // ~0.447
		catWithEmbedding(4, "d", []float32{0, 1, 0, 0}),      // 0
		catWithEmbedding(5, "e", []float32{1, 0.5, 0.5, 0}),  // ~0.816
	}

	matches, err := strategy.Classify(context.Background(), message, categories, 2, 0.5)

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Category.Name)
	assert.Equal(t, "e", matches[1].Category.Name)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Score, 0.5)
	}
}

func TestEmbeddingSimilarity_SortedNonIncreasing(t *testing.T) {
	strategy := NewEmbeddingSimilarityStrategy()
	message := msgWithEmbedding("msg-1", []float32{1, 1, 0})
	categories := []*domain.Category{
		catWithEmbedding(1, "low", []float32{0, 1, 5}),
		catWithEmbedding(2, "high", []float32{1, 1, 0}),
		catWithEmbedding(3, "mid", []float32{1, 0, 0}),
	}

	matches, err := strategy.Classify(context.Background(), message, categories, 5, -1)

	require.NoError(t, err)
	require.Len(t, matches, 3)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestEmbeddingSimilarity_StableTieBreak(t *testing.T) {
	strategy := NewEmbeddingSimilarityStrategy()
	message := msgWithEmbedding("msg-1", []float32{1, 0})

	// All candidates score identically; input order must be preserved.
	categories := []*domain.Category{
		catWithEmbedding(10, "first", []float32{1, 0}),
		catWithEmbedding(20, "second", []float32{2, 0}),
		catWithEmbedding(30, "third", []float32{3, 0}),
	}

	matches, err := strategy.Classify(context.Background(), message, categories, 5, 0.5)

	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "first", matches[0].Category.Name)
	assert.Equal(t, "second", matches[1].Category.Name)
	assert.Equal(t, "third", matches[2].Category.Name)
}

func TestEmbeddingSimilarity_MissingMessageEmbedding(t *testing.T) {
	strategy := NewEmbeddingSimilarityStrategy()
	message := domain.NewMessage("msg-1", "subject", "sender@example.com", []string{"to@example.com"})
	categories := []*domain.Category{catWithEmbedding(1, "X", []float32{1, 0})}

	_, err := strategy.Classify(context.Background(), message, categories, 5, 0.5)

	require.Error(t, err)
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodePreconditionFailed, derr.Code)
	assert.Contains(t, err.Error(), "msg-1")
}

func TestEmbeddingSimilarity_ZeroMagnitudeMessageEmbedding(t *testing.T) {
	strategy := NewEmbeddingSimilarityStrategy()
	message := msgWithEmbedding("msg-1", []float32{0, 0, 0})
	categories := []*domain.Category{catWithEmbedding(1, "X", []float32{1, 0, 0})}

	_, err := strategy.Classify(context.Background(), message, categories, 5, 0.5)

	require.Error(t, err)
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodePreconditionFailed, derr.Code)
	assert.Contains(t, err.Error(), "zero-magnitude")
}

func TestEmbeddingSimilarity_NoScoreableCategories(t *testing.T) {
	strategy := NewEmbeddingSimilarityStrategy()
	message := msgWithEmbedding("msg-1", []float32{1, 0})

	// No category carries a usable embedding: one missing, one zero, one of
	// the wrong dimensionality.
	categories := []*domain.Category{
		domain.NewCategory(1, "bare", "no embedding"),
		catWithEmbedding(2, "zero", []float32{0, 0}),
		catWithEmbedding(3, "mismatched", []float32{1, 0, 0}),
	}

	_, err := strategy.Classify(context.Background(), message, categories, 5, 0.5)

	require.ErrorIs(t, err, domain.ErrNoScoreableCategories)
}

func TestEmbeddingSimilarity_SkipsUnscoreableCategories(t *testing.T) {
	strategy := NewEmbeddingSimilarityStrategy()
	message := msgWithEmbedding("msg-1", []float32{1, 0})
	categories := []*domain.Category{
		domain.NewCategory(1, "bare", "no embedding"),
		catWithEmbedding(2, "scored", []float32{1, 0}),
	}

	matches, err := strategy.Classify(context.Background(), message, categories, 5, 0.5)

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "scored", matches[0].Category.Name)
}

func TestEmbeddingSimilarity_DeterministicExplanation(t *testing.T) {
	strategy := NewEmbeddingSimilarityStrategy()
	message := msgWithEmbedding("msg-42", []float32{1, 0, 0})
	categories := []*domain.Category{catWithEmbedding(1, "Work", []float32{1, 0, 0})}

	matches, err := strategy.Classify(context.Background(), message, categories, 5, 0.5)

	require.NoError(t, err)
	require.Len(t, matches, 1)
	expected := fmt.Sprintf(
		"Message msg-42 embeddings exceed 0.50 similarity threshold for category 'Work' with score %.4f",
		matches[0].Score,
	)
	assert.Equal(t, expected, matches[0].Explanation)
}

func TestEmbeddingSimilarity_Idempotent(t *testing.T) {
	strategy := NewEmbeddingSimilarityStrategy()
	message := msgWithEmbedding("msg-1", []float32{0.3, 0.7, 0.2})
	categories := []*domain.Category{
		catWithEmbedding(1, "a", []float32{0.1, 0.9, 0.1}),
		catWithEmbedding(2, "b", []float32{0.5, 0.5, 0.5}),
	}

	first, err := strategy.Classify(context.Background(), message, categories, 3, 0.1)
	require.NoError(t, err)
	second, err := strategy.Classify(context.Background(), message, categories, 3, 0.1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEmbeddingSimilarity_DoesNotMutateInputs(t *testing.T) {
	strategy := NewEmbeddingSimilarityStrategy()
	message := msgWithEmbedding("msg-1", []float32{2, 0})
	categories := []*domain.Category{catWithEmbedding(1, "X", []float32{0, 3})}

	_, err := strategy.Classify(context.Background(), message, categories, 5, -1)

	require.NoError(t, err)
	assert.Equal(t, []float32{2, 0}, message.Embedding)
	assert.Equal(t, []float32{0, 3}, categories[0].Embedding)
}
