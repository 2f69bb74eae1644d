package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mailsift/mailsift/internal/domain"
	"github.com/mailsift/mailsift/internal/jsonl"
	"github.com/mailsift/mailsift/internal/pagination"
	"github.com/mailsift/mailsift/internal/telemetry"
)

// MessageRepositoryInterface defines the repository interface for message persistence
type MessageRepositoryInterface interface {
	Create(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*MessagePageResult, error)
	GetFirstN(ctx context.Context, n int) ([]*domain.Message, error)
	ListIDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	Count(ctx context.Context) (int64, error)
}

// MessagePageResult is one page of messages plus the cursor for the next.
type MessagePageResult struct {
	Items      []*domain.Message
	NextCursor string
	HasMore    bool
}

// ClassifyJobRepositoryInterface defines the repository interface for classify job persistence
type ClassifyJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.ClassifyJob) error
}

// ImportArchiver stores the raw payload of an import for later audit.
type ImportArchiver interface {
	ArchiveImport(ctx context.Context, key string, payload []byte) error
}

// UUIDGenerator produces job ids; swapped out in tests
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator delegates to google/uuid
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// CreateMessageInput represents the input for creating a message
type CreateMessageInput struct {
	ID            string
	Subject       string
	Sender        string
	To            []string
	Snippet       string
	Body          string
	Date          *time.Time
	BodyIsBase64  bool
	SkipEmbedding bool
}

// ImportOptions configures a JSONL import run.
type ImportOptions struct {
	// AutoClassify queues a classification job for every imported message.
	AutoClassify bool
	// ArchiveKey names the stored raw payload; empty disables archiving.
	ArchiveKey string
}

// ImportResult summarizes a JSONL import run.
type ImportResult struct {
	Imported int               `json:"imported"`
	Failed   int               `json:"failed"`
	Failures []BatchFailure    `json:"failures,omitempty"`
	Preview  []*domain.Message `json:"preview,omitempty"`
}

// MessagesService handles message CRUD and JSONL import.
type MessagesService struct {
	repo     MessageRepositoryInterface
	jobRepo  ClassifyJobRepositoryInterface
	embedder EmbeddingClient
	archiver ImportArchiver
	uuidGen  UUIDGenerator
}

// NewMessagesService creates a new MessagesService instance. The archiver is
// optional; pass nil to skip raw-payload archiving.
func NewMessagesService(
	repo MessageRepositoryInterface,
	jobRepo ClassifyJobRepositoryInterface,
	embedder EmbeddingClient,
	archiver ImportArchiver,
) *MessagesService {
	return &MessagesService{
		repo:     repo,
		jobRepo:  jobRepo,
		embedder: embedder,
		archiver: archiver,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// Create validates, normalizes and stores a new message, generating its
// embedding inline unless skipped.
func (s *MessagesService) Create(ctx context.Context, input CreateMessageInput) (*domain.Message, error) {
	ctx, span := telemetry.StartSpan(ctx, "MessagesService.Create", telemetry.SpanAttributes{
		MessageID: input.ID,
		Operation: "create",
	})
	defer span.End()

	body, err := jsonl.NormalizeBody(input.Body, input.BodyIsBase64)
	if err != nil {
		return nil, domain.NewValidationError("invalid message body", err)
	}

	message := domain.NewMessage(input.ID, input.Subject, input.Sender, input.To)
	message.Snippet = input.Snippet
	message.Body = body
	message.Date = input.Date

	if err := domain.ValidateMessage(message); err != nil {
		return nil, domain.NewValidationError("invalid message", err)
	}

	if s.embedder != nil && !input.SkipEmbedding {
		embedding, err := s.embedder.GenerateEmbedding(ctx, BuildMessageEmbeddingText(message))
		if err != nil {
			return nil, domain.NewProviderError("embedding generation failed", err)
		}
		message.Embedding = embedding
	}

	if err := s.repo.Create(ctx, message); err != nil {
		span.SetError(err)
		return nil, err
	}

	return message, nil
}

// GetByID returns the message with the given ID.
func (s *MessagesService) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	return s.repo.GetByID(ctx, id)
}

// ListInput carries cursor pagination parameters for message listing.
type ListInput struct {
	Cursor string
	Limit  int
}

// List returns one page of messages ordered by creation time, newest first.
func (s *MessagesService) List(ctx context.Context, input ListInput) (*MessagePageResult, error) {
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewValidationError("invalid cursor", err)
	}

	return s.repo.ListWithCursor(ctx, cursor, limit)
}

// Delete removes the message with the given ID along with its assignments.
func (s *MessagesService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Count returns the number of stored messages.
func (s *MessagesService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// ImportFromJSONL parses message records from r and stores each one. A bad
// record is recorded as a failure and skipped; the import continues. When
// configured, the raw payload is archived before parsing and a classify job
// is queued per imported message.
func (s *MessagesService) ImportFromJSONL(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "MessagesService.ImportFromJSONL", telemetry.SpanAttributes{
		Operation: "import",
	})
	defer span.End()

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import payload: %w", err)
	}

	if s.archiver != nil && opts.ArchiveKey != "" {
		if err := s.archiver.ArchiveImport(ctx, opts.ArchiveKey, payload); err != nil {
			// Archiving is best-effort; the import itself proceeds.
			log.Printf("import: failed to archive payload %s: %v", opts.ArchiveKey, err)
		}
	}

	records, err := jsonl.ParseMessages(bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewValidationError("invalid import file", err)
	}

	result := &ImportResult{}
	for _, rec := range records {
		message, err := s.importRecord(ctx, rec)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{
				MessageID: rec.ID,
				Error:     err.Error(),
			})
			log.Printf("import: message %s failed: %v", rec.ID, err)
			continue
		}
		result.Imported++

		if opts.AutoClassify && s.jobRepo != nil {
			job := domain.NewClassifyJob(s.uuidGen.NewString(), message.ID, time.Now().UTC())
			if err := s.jobRepo.Create(ctx, job); err != nil {
				log.Printf("import: failed to queue classify job for %s: %v", message.ID, err)
			}
		}
	}

	preview, err := s.repo.GetFirstN(ctx, 5)
	if err == nil {
		result.Preview = preview
	}

	return result, nil
}

func (s *MessagesService) importRecord(ctx context.Context, rec jsonl.MessageRecord) (*domain.Message, error) {
	input := CreateMessageInput{
		ID:           rec.ID,
		Subject:      rec.Subject,
		Sender:       rec.From,
		To:           rec.To,
		Snippet:      rec.Snippet,
		Body:         rec.Body,
		BodyIsBase64: rec.Body != "",
	}

	if rec.Date != "" {
		date, err := jsonl.ParseISODate(rec.Date)
		if err != nil {
			return nil, domain.NewValidationError("invalid message date", err)
		}
		input.Date = &date
	}

	return s.Create(ctx, input)
}
