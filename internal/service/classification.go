package service

import (
	"context"
	"log"
	"time"

	"github.com/mailsift/mailsift/internal/domain"
	"github.com/mailsift/mailsift/internal/telemetry"
)

// ClassificationMessageRepository defines the message reads the orchestrator needs
type ClassificationMessageRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// ClassificationCategoryRepository defines the category reads the orchestrator needs
type ClassificationCategoryRepository interface {
	ListAll(ctx context.Context) ([]*domain.Category, error)
}

// AssignmentRepositoryInterface defines the repository interface for assignment persistence
type AssignmentRepositoryInterface interface {
	ReplaceForMessage(ctx context.Context, messageID string, assignments []*domain.Assignment) error
	ListForMessage(ctx context.Context, messageID string) ([]*domain.Assignment, error)
}

// ClassificationResult is what a single classification run returns to the
// caller: the message, the ranked matches, and whether they were persisted.
type ClassificationResult struct {
	Message  *domain.Message
	Matches  []domain.ClassificationMatch
	Strategy string
	Assigned bool
}

// ClassifyParams carries per-call overrides for a classification run. Zero
// values fall back to the service defaults.
type ClassifyParams struct {
	// Assign persists the matches, replacing the message's prior
	// assignments. When false the run is a preview and nothing is written.
	Assign bool
	// Strategy selects a registered strategy by name. Empty uses the default.
	Strategy string
	// TopN caps the result count. Non-positive uses the default.
	TopN int
	// Threshold is the minimum score. Nil uses the default.
	Threshold *float64
}

// BatchFailure records one message the batch driver could not classify.
type BatchFailure struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// BatchResult summarizes a batch classification run.
type BatchResult struct {
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

// ClassificationService orchestrates classification runs: it resolves the
// message and candidate categories, invokes the configured strategy, and
// replaces the message's assignments in one transaction.
type ClassificationService struct {
	messageRepo  ClassificationMessageRepository
	categoryRepo ClassificationCategoryRepository
	txRunner     TxRunner
	strategies   map[string]Strategy
	defaultName  string
	topN         int
	threshold    float64
}

// NewClassificationService creates a new ClassificationService. The default
// strategy must be one of the provided strategies.
func NewClassificationService(
	messageRepo ClassificationMessageRepository,
	categoryRepo ClassificationCategoryRepository,
	txRunner TxRunner,
	defaultStrategy Strategy,
	topN int,
	threshold float64,
	extra ...Strategy,
) *ClassificationService {
	strategies := map[string]Strategy{
		defaultStrategy.Name(): defaultStrategy,
	}
	for _, s := range extra {
		if s != nil {
			strategies[s.Name()] = s
		}
	}

	return &ClassificationService{
		messageRepo:  messageRepo,
		categoryRepo: categoryRepo,
		txRunner:     txRunner,
		strategies:   strategies,
		defaultName:  defaultStrategy.Name(),
		topN:         clampTopN(topN),
		threshold:    threshold,
	}
}

// Classify scores a message against the given categories without touching
// storage. Callers that already hold the records use this directly.
func (s *ClassificationService) Classify(ctx context.Context, message *domain.Message, categories []*domain.Category, topN int, threshold float64) ([]domain.ClassificationMatch, error) {
	strategy := s.strategies[s.defaultName]
	return strategy.Classify(ctx, message, categories, topN, threshold)
}

// ClassifyByID fetches the message and the full category set, runs the
// selected strategy, and (unless previewing) replaces the message's
// assignment set inside a single transaction. Strategy and repository errors
// propagate to the caller unmodified.
func (s *ClassificationService) ClassifyByID(ctx context.Context, messageID string, params ClassifyParams) (*ClassificationResult, error) {
	strategy, err := s.resolveStrategy(params.Strategy)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "ClassificationService.ClassifyByID", telemetry.SpanAttributes{
		MessageID: messageID,
		Strategy:  strategy.Name(),
		Operation: "classify",
	})
	defer span.End()

	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	categories, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	topN := params.TopN
	if topN <= 0 {
		topN = s.topN
	}
	threshold := s.threshold
	if params.Threshold != nil {
		threshold = *params.Threshold
	}

	matches, err := strategy.Classify(ctx, message, categories, topN, threshold)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if params.Assign {
		classifiedAt := time.Now().UTC()
		assignments := make([]*domain.Assignment, 0, len(matches))
		for _, m := range matches {
			assignments = append(assignments, domain.NewAssignment(
				message.ID, m.Category.ID, m.Score, m.Explanation, classifiedAt,
			))
		}

		err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			return repos.Assignments().ReplaceForMessage(ctx, message.ID, assignments)
		})
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	return &ClassificationResult{
		Message:  message,
		Matches:  matches,
		Strategy: strategy.Name(),
		Assigned: params.Assign,
	}, nil
}

// ClassifyAll runs ClassifyByID over every stored message, sequentially. A
// per-message failure is recorded and the loop continues; one bad message
// never aborts the batch. Messages classified before a failure stay
// committed.
func (s *ClassificationService) ClassifyAll(ctx context.Context, params ClassifyParams) (*BatchResult, error) {
	ids, err := s.messageRepo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, id := range ids {
		result.Processed++
		if _, err := s.ClassifyByID(ctx, id, params); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{
				MessageID: id,
				Error:     err.Error(),
			})
			log.Printf("classify: message %s failed: %v", id, err)
			continue
		}
		result.Succeeded++
	}

	return result, nil
}

// resolveStrategy returns the named strategy, or the default for "".
func (s *ClassificationService) resolveStrategy(name string) (Strategy, error) {
	if name == "" {
		name = s.defaultName
	}
	strategy, ok := s.strategies[name]
	if !ok {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "unknown classification strategy: "+name)
	}
	return strategy, nil
}
