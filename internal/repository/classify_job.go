package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailsift/mailsift/internal/domain"
)

var ErrClassifyJobNotFound = errors.New("classify job not found")

type ClassifyJobRepository struct {
	db dbtx
}

func NewClassifyJobRepository(pool *pgxpool.Pool) *ClassifyJobRepository {
	return &ClassifyJobRepository{db: pool}
}

func NewClassifyJobRepositoryWithTx(tx pgx.Tx) *ClassifyJobRepository {
	return &ClassifyJobRepository{db: tx}
}

func (r *ClassifyJobRepository) Create(ctx context.Context, job *domain.ClassifyJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO classify_jobs (id, message_id, status, retries, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.MessageID, job.Status, job.Retries, nullableString(job.Error), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *ClassifyJobRepository) GetByID(ctx context.Context, id string) (*domain.ClassifyJob, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, message_id, status, retries, error, created_at, processed_at
		 FROM classify_jobs WHERE id = $1`,
		id,
	)

	job, err := scanClassifyJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClassifyJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimPending atomically moves up to limit pending jobs to processing and
// returns them. SKIP LOCKED keeps concurrent workers from claiming the same
// job twice.
func (r *ClassifyJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.ClassifyJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM classify_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE classify_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE classify_jobs.id = cte.id
		 RETURNING classify_jobs.id, classify_jobs.message_id, classify_jobs.status,
		           classify_jobs.retries, classify_jobs.error, classify_jobs.created_at, classify_jobs.processed_at`,
		domain.ClassifyJobStatusPending, limit, domain.ClassifyJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.ClassifyJob
	for rows.Next() {
		job, err := scanClassifyJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func (r *ClassifyJobRepository) UpdateStatus(ctx context.Context, id string, status domain.ClassifyJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.ClassifyJobStatusCompleted || status == domain.ClassifyJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE classify_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrClassifyJobNotFound
	}
	return nil
}

func (r *ClassifyJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE classify_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrClassifyJobNotFound
	}
	return nil
}

// RequeueStale moves processing jobs older than the cutoff back to pending so
// a crashed worker's claims are retried.
func (r *ClassifyJobRepository) RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE classify_jobs SET status = $1 WHERE status = $2 AND created_at < $3`,
		domain.ClassifyJobStatusPending, domain.ClassifyJobStatusProcessing, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func scanClassifyJob(row pgx.Row) (*domain.ClassifyJob, error) {
	var job domain.ClassifyJob
	var errMsg pgtype.Text
	if err := row.Scan(&job.ID, &job.MessageID, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}
