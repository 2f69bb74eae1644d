package domain

import (
	"fmt"
	"time"
)

// ClassifyJobStatus represents the status of a classification job
type ClassifyJobStatus string

const (
	ClassifyJobStatusPending    ClassifyJobStatus = "pending"
	ClassifyJobStatusProcessing ClassifyJobStatus = "processing"
	ClassifyJobStatusCompleted  ClassifyJobStatus = "completed"
	ClassifyJobStatusFailed     ClassifyJobStatus = "failed"
)

// ClassifyJob represents an async classification job queued after a message
// is imported or its embedding is regenerated.
type ClassifyJob struct {
	ID          string
	MessageID   string
	Status      ClassifyJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewClassifyJob creates a new pending ClassifyJob instance
func NewClassifyJob(id, messageID string, createdAt time.Time) *ClassifyJob {
	return &ClassifyJob{
		ID:        id,
		MessageID: messageID,
		Status:    ClassifyJobStatusPending,
		CreatedAt: createdAt,
	}
}

// ValidateClassifyJob validates a ClassifyJob instance
func ValidateClassifyJob(j *ClassifyJob) error {
	if j == nil {
		return fmt.Errorf("classify job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("classify job ID is required")
	}

	if j.MessageID == "" {
		return fmt.Errorf("classify job MessageID is required")
	}

	if !isValidClassifyJobStatus(j.Status) {
		return fmt.Errorf("classify job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("classify job Retries cannot be negative")
	}

	return nil
}

// isValidClassifyJobStatus checks if a ClassifyJobStatus is valid
func isValidClassifyJobStatus(s ClassifyJobStatus) bool {
	switch s {
	case ClassifyJobStatusPending, ClassifyJobStatusProcessing,
		ClassifyJobStatusCompleted, ClassifyJobStatusFailed:
		return true
	}
	return false
}
