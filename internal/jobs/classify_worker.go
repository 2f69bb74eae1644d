package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mailsift/mailsift/internal/domain"
	"github.com/mailsift/mailsift/internal/service"
)

const (
	// MaxRetries caps how many times a failed job is retried before it is
	// marked failed for good
	MaxRetries = 3

	// StaleJobCutoff is how long a job may sit in processing before a crashed
	// worker is assumed and the job is requeued.
	StaleJobCutoff = 10 * time.Minute
)

// ClassifyJobRepository defines the interface for classify job persistence
type ClassifyJobRepository interface {
	// ClaimPending retrieves and claims pending classify jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.ClassifyJob, error)

	// UpdateStatus updates the status of a classify job
	UpdateStatus(ctx context.Context, jobID string, status domain.ClassifyJobStatus, errMsg string) error

	// IncrementRetries bumps the retry count and requeues the job
	IncrementRetries(ctx context.Context, jobID string) error

	// RequeueStale moves processing jobs older than the cutoff back to pending
	RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Classifier runs a classification for a single message
type Classifier interface {
	ClassifyByID(ctx context.Context, messageID string, params service.ClassifyParams) (*service.ClassificationResult, error)
}

// ClassifyWorker processes queued classification jobs
type ClassifyWorker struct {
	repo       ClassifyJobRepository
	classifier Classifier
	batchSize  int
}

// NewClassifyWorker creates a new ClassifyWorker instance
func NewClassifyWorker(repo ClassifyJobRepository, classifier Classifier) *ClassifyWorker {
	return &ClassifyWorker{
		repo:       repo,
		classifier: classifier,
		batchSize:  100,
	}
}

// ProcessJobs requeues stale claims, then drains the pending queue
func (w *ClassifyWorker) ProcessJobs(ctx context.Context) error {
	if requeued, err := w.repo.RequeueStale(ctx, StaleJobCutoff); err != nil {
		log.Printf("Failed to requeue stale jobs: %v", err)
	} else if requeued > 0 {
		log.Printf("Requeued %d stale classify jobs", requeued)
	}

	jobs, err := w.repo.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending classify jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *ClassifyWorker) processJob(ctx context.Context, job *domain.ClassifyJob) error {
	log.Printf("Processing job %s for message %s", job.ID, job.MessageID)

	_, err := w.classifier.ClassifyByID(ctx, job.MessageID, service.ClassifyParams{Assign: true})
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.ClassifyJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

// handleJobFailure retries the job or, past MaxRetries, fails it terminally
func (w *ClassifyWorker) handleJobFailure(ctx context.Context, job *domain.ClassifyJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.ClassifyJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.ClassifyJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
