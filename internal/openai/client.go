// Package openai wraps the OpenAI API for embedding generation and batched
// category decisions.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the model used when none is configured.
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions matches ada-002 output.
	DefaultEmbeddingDimensions = 1536
	// maxEmbeddingChars keeps long message bodies under the provider's
	// token limit.
	maxEmbeddingChars = 8000
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has unexpected dimensions")
)

// EmbeddingAPI is the provider call behind Client, split out for tests.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// Config selects the embedding model and expected vector size.
type Config struct {
	APIKey              string
	EmbeddingModel      string
	EmbeddingDimensions int
}

// Client validates inputs and outputs around the embedding endpoint.
type Client struct {
	api        EmbeddingAPI
	dimensions int
}

// NewClient builds a client with default model and dimensions.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig builds a client, filling in defaults for unset fields.
func NewClientWithConfig(cfg Config) *Client {
	dims := cfg.EmbeddingDimensions
	if dims <= 0 {
		dims = DefaultEmbeddingDimensions
	}
	model := openai.EmbeddingModel(cfg.EmbeddingModel)
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Client{
		api:        &embeddingAdapter{client: openai.NewClient(cfg.APIKey), model: model},
		dimensions: dims,
	}
}

// GenerateEmbedding embeds text, truncating it to the provider budget first.
// The returned vector is checked against the configured dimensions so a
// model mismatch surfaces here instead of at the database.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	text = truncate(text, maxEmbeddingChars)

	vec, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}
	if len(vec) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWrongDimensions, len(vec), c.dimensions)
	}
	return vec, nil
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

type embeddingAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func (a *embeddingAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          a.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}
	return resp.Data[0].Embedding, nil
}
