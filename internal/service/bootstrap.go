package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mailsift/mailsift/internal/domain"
	"github.com/mailsift/mailsift/internal/jsonl"
)

// BootstrapResult summarizes a bootstrap run.
type BootstrapResult struct {
	CategoriesCreated int          `json:"categories_created"`
	CategoriesSkipped int          `json:"categories_skipped"`
	MessagesImported  int          `json:"messages_imported"`
	Classification    *BatchResult `json:"classification,omitempty"`
}

// BootstrapService seeds a fresh installation from sample JSONL files:
// categories first, then messages, then an optional classification pass over
// everything imported.
type BootstrapService struct {
	messages   *MessagesService
	categories *CategoriesService
	classifier *ClassificationService
}

// NewBootstrapService creates a new BootstrapService instance
func NewBootstrapService(messages *MessagesService, categories *CategoriesService, classifier *ClassificationService) *BootstrapService {
	return &BootstrapService{
		messages:   messages,
		categories: categories,
		classifier: classifier,
	}
}

// Run loads categories and messages from the given JSONL files. Categories
// that already exist are skipped, so re-running bootstrap is safe. When
// autoClassify is set every message is classified after the import.
func (s *BootstrapService) Run(ctx context.Context, categoriesPath, messagesPath string, autoClassify bool) (*BootstrapResult, error) {
	result := &BootstrapResult{}

	if err := s.loadCategories(ctx, categoriesPath, result); err != nil {
		return nil, err
	}

	if err := s.loadMessages(ctx, messagesPath, result); err != nil {
		return nil, err
	}

	if autoClassify {
		classification, err := s.classifier.ClassifyAll(ctx, ClassifyParams{Assign: true})
		if err != nil {
			return nil, err
		}
		result.Classification = classification
	}

	return result, nil
}

func (s *BootstrapService) loadCategories(ctx context.Context, path string, result *BootstrapResult) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open categories file: %w", err)
	}
	defer f.Close()

	records, err := jsonl.ParseCategories(f)
	if err != nil {
		return fmt.Errorf("parse categories file: %w", err)
	}

	for _, rec := range records {
		_, err := s.categories.Create(ctx, CreateCategoryInput{
			Name:        rec.Name,
			Description: rec.Description,
		})
		if err != nil {
			if errors.Is(err, domain.ErrCategoryAlreadyExists) {
				result.CategoriesSkipped++
				log.Printf("bootstrap: category %q already exists, skipping", rec.Name)
				continue
			}
			return err
		}
		result.CategoriesCreated++
	}

	return nil
}

func (s *BootstrapService) loadMessages(ctx context.Context, path string, result *BootstrapResult) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open messages file: %w", err)
	}
	defer f.Close()

	imported, err := s.messages.ImportFromJSONL(ctx, f, ImportOptions{})
	if err != nil {
		return err
	}

	result.MessagesImported = imported.Imported
	return nil
}
