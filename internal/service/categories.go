package service

import (
	"context"
	"strconv"

	"github.com/mailsift/mailsift/internal/domain"
	"github.com/mailsift/mailsift/internal/telemetry"
)

// CategoryRepositoryInterface defines the repository interface for category persistence
type CategoryRepositoryInterface interface {
	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	ListAll(ctx context.Context) ([]*domain.Category, error)
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id int64) error
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// CreateCategoryInput represents the input for creating a category
type CreateCategoryInput struct {
	Name        string
	Description string
}

// UpdateCategoryInput replaces a category's name and description.
type UpdateCategoryInput struct {
	Name        string
	Description string
}

// CategoriesService handles category CRUD. New categories get their
// embedding generated at creation time so they are immediately scoreable,
// and edits that change the name or description regenerate it.
type CategoriesService struct {
	repo       CategoryRepositoryInterface
	embeddings *EmbeddingService
}

// NewCategoriesService creates a new CategoriesService instance. embeddings
// may be nil, in which case categories are stored without vectors.
func NewCategoriesService(repo CategoryRepositoryInterface, embeddings *EmbeddingService) *CategoriesService {
	return &CategoriesService{
		repo:       repo,
		embeddings: embeddings,
	}
}

// Create validates and stores a new category with its embedding.
func (s *CategoriesService) Create(ctx context.Context, input CreateCategoryInput) (*domain.Category, error) {
	ctx, span := telemetry.StartSpan(ctx, "CategoriesService.Create", telemetry.SpanAttributes{
		Operation: "create",
	})
	defer span.End()

	category := domain.NewCategory(0, input.Name, input.Description)
	if err := domain.ValidateCategory(category); err != nil {
		return nil, domain.NewValidationError("invalid category", err)
	}

	if s.embeddings != nil {
		embedding, err := s.embeddings.EmbedText(ctx, BuildCategoryEmbeddingText(category))
		if err != nil {
			return nil, err
		}
		category.Embedding = embedding
	}

	if err := s.repo.Create(ctx, category); err != nil {
		span.SetError(err)
		return nil, err
	}

	return category, nil
}

// Update replaces the category's name and description. When either field
// actually changes the embedding is regenerated from the new text, so the
// stored vector never describes a stale name or description.
func (s *CategoriesService) Update(ctx context.Context, id int64, input UpdateCategoryInput) (*domain.Category, error) {
	ctx, span := telemetry.StartSpan(ctx, "CategoriesService.Update", telemetry.SpanAttributes{
		CategoryID: strconv.FormatInt(id, 10),
		Operation:  "update",
	})
	defer span.End()

	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := category.Name != input.Name || category.Description != input.Description
	category.Name = input.Name
	category.Description = input.Description

	if err := domain.ValidateCategory(category); err != nil {
		return nil, domain.NewValidationError("invalid category", err)
	}

	if changed && s.embeddings != nil {
		embedding, err := s.embeddings.EmbedText(ctx, BuildCategoryEmbeddingText(category))
		if err != nil {
			return nil, err
		}
		category.Embedding = embedding
	}

	if err := s.repo.Update(ctx, category); err != nil {
		span.SetError(err)
		return nil, err
	}

	return category, nil
}

// GetByID returns the category with the given ID.
func (s *CategoriesService) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByName returns the category with the given name.
func (s *CategoriesService) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	return s.repo.GetByName(ctx, name)
}

// List returns all categories ordered by name.
func (s *CategoriesService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.repo.ListAll(ctx)
}

// Delete removes the category with the given ID along with its assignments.
func (s *CategoriesService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
