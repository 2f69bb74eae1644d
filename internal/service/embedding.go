package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mailsift/mailsift/internal/domain"
)

// EmbeddingClient turns text into a vector
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingMessageRepository defines the repository interface for message embedding updates
type EmbeddingMessageRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingCategoryRepository defines the repository interface for category embedding updates
type EmbeddingCategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// EmbeddingService generates and stores embeddings for messages and categories
type EmbeddingService struct {
	client       EmbeddingClient
	messageRepo  EmbeddingMessageRepository
	categoryRepo EmbeddingCategoryRepository
}

// NewEmbeddingService wraps an EmbeddingClient with the text-building rules
func NewEmbeddingService(client EmbeddingClient, messageRepo EmbeddingMessageRepository, categoryRepo EmbeddingCategoryRepository) *EmbeddingService {
	return &EmbeddingService{
		client:       client,
		messageRepo:  messageRepo,
		categoryRepo: categoryRepo,
	}
}

// EmbedText generates an embedding for arbitrary text. Provider failures are
// surfaced as provider errors.
func (s *EmbeddingService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embedding, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, domain.NewProviderError("embedding generation failed", err)
	}
	return embedding, nil
}

// EmbedMessage generates and stores an embedding for the given message ID.
func (s *EmbeddingService) EmbedMessage(ctx context.Context, messageID string) error {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}

	embedding, err := s.EmbedText(ctx, BuildMessageEmbeddingText(message))
	if err != nil {
		return err
	}

	return s.messageRepo.UpdateEmbedding(ctx, messageID, embedding)
}

// EmbedCategory generates and stores an embedding for the given category ID.
func (s *EmbeddingService) EmbedCategory(ctx context.Context, categoryID int64) error {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return err
	}

	embedding, err := s.EmbedText(ctx, BuildCategoryEmbeddingText(category))
	if err != nil {
		return err
	}

	return s.categoryRepo.UpdateEmbedding(ctx, categoryID, embedding)
}

// BuildMessageEmbeddingText builds the text a message embedding is computed
// from: subject, sender, snippet and body, each on its own line.
func BuildMessageEmbeddingText(message *domain.Message) string {
	parts := []string{
		"Subject: " + message.Subject,
		"From: " + message.Sender,
	}
	if message.Snippet != "" {
		parts = append(parts, "Snippet: "+message.Snippet)
	}
	if message.Body != "" {
		parts = append(parts, "Body: "+message.Body)
	}
	return strings.Join(parts, "\n")
}

// BuildCategoryEmbeddingText builds the text a category embedding is
// computed from.
func BuildCategoryEmbeddingText(category *domain.Category) string {
	return fmt.Sprintf("Category: %s\nDescription: %s", category.Name, category.Description)
}
