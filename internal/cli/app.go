package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/database"
	"github.com/mailsift/mailsift/internal/openai"
	"github.com/mailsift/mailsift/internal/repository"
	"github.com/mailsift/mailsift/internal/service"
	"github.com/mailsift/mailsift/internal/storage"
)

// App bundles the wired services every command works with.
type App struct {
	Config *config.Config
	Pool   *pgxpool.Pool

	MessageRepo     *repository.MessageRepository
	CategoryRepo    *repository.CategoryRepository
	AssignmentRepo  *repository.AssignmentRepository
	ClassifyJobRepo *repository.ClassifyJobRepository

	Messages       *service.MessagesService
	Categories     *service.CategoriesService
	Classification *service.ClassificationService
	Bootstrap      *service.BootstrapService

	// Nil unless an OpenAI key is configured.
	EmbeddingClient service.EmbeddingClient
	Embeddings      *service.EmbeddingService
}

// NewApp connects to the database and wires repositories and services from
// the given configuration.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	app, err := newAppWithPool(ctx, cfg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return app, nil
}

func newAppWithPool(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*App, error) {
	messageRepo := repository.NewMessageRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	classifyJobRepo := repository.NewClassifyJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var embeddingClient service.EmbeddingClient
	var embeddings *service.EmbeddingService
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
		embeddings = service.NewEmbeddingService(embeddingClient, messageRepo, categoryRepo)
	}

	var archiver service.ImportArchiver
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archiver = s3Client
	}

	embeddingStrategy := service.NewEmbeddingSimilarityStrategy()
	var llmStrategy service.Strategy
	if cfg.HasOpenAI() {
		llmStrategy = service.NewLLMBatchStrategy(openai.NewBatchClassifier(cfg.OpenAIAPIKey, cfg.ChatModel))
	}

	var defaultStrategy service.Strategy = embeddingStrategy
	var extra []service.Strategy
	if cfg.ClassifyStrategy == config.StrategyLLM {
		if llmStrategy == nil {
			return nil, fmt.Errorf("llm strategy requires MAILSIFT_OPENAI_API_KEY")
		}
		defaultStrategy = llmStrategy
		extra = append(extra, embeddingStrategy)
	} else if llmStrategy != nil {
		extra = append(extra, llmStrategy)
	}

	classification := service.NewClassificationService(
		messageRepo,
		categoryRepo,
		txRunner,
		defaultStrategy,
		cfg.ClassifyTopN,
		cfg.ClassifyThreshold,
		extra...,
	)

	messages := service.NewMessagesService(messageRepo, classifyJobRepo, embeddingClient, archiver)
	categories := service.NewCategoriesService(categoryRepo, embeddings)
	bootstrap := service.NewBootstrapService(messages, categories, classification)

	return &App{
		Config:          cfg,
		Pool:            pool,
		MessageRepo:     messageRepo,
		CategoryRepo:    categoryRepo,
		AssignmentRepo:  assignmentRepo,
		ClassifyJobRepo: classifyJobRepo,
		Messages:        messages,
		Categories:      categories,
		Classification:  classification,
		Bootstrap:       bootstrap,
		EmbeddingClient: embeddingClient,
		Embeddings:      embeddings,
	}, nil
}

// Close releases the database pool.
func (a *App) Close() {
	a.Pool.Close()
}
