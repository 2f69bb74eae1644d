package domain

import (
	"fmt"
	"time"
)

// Assignment is the persisted message-category link produced by a
// classification run. The full set for a message is replaced atomically on
// each run; assignments are never patched field by field.
type Assignment struct {
	MessageID    string
	CategoryID   int64
	Score        float64
	Explanation  string
	ClassifiedAt time.Time
}

// NewAssignment creates a new Assignment instance
func NewAssignment(messageID string, categoryID int64, score float64, explanation string, classifiedAt time.Time) *Assignment {
	return &Assignment{
		MessageID:    messageID,
		CategoryID:   categoryID,
		Score:        score,
		Explanation:  explanation,
		ClassifiedAt: classifiedAt,
	}
}

// ValidateAssignment validates an Assignment instance
func ValidateAssignment(a *Assignment) error {
	if a == nil {
		return fmt.Errorf("assignment cannot be nil")
	}

	if a.MessageID == "" {
		return fmt.Errorf("assignment MessageID is required")
	}

	if a.CategoryID == 0 {
		return fmt.Errorf("assignment CategoryID is required")
	}

	if a.Explanation == "" {
		return fmt.Errorf("assignment Explanation is required")
	}

	if a.ClassifiedAt.IsZero() {
		return fmt.Errorf("assignment ClassifiedAt is required")
	}

	return nil
}
