package domain

import (
	"fmt"
	"time"
)

// Message represents a Gmail-style message record.
// The embedding is nil until one has been generated for the message.
type Message struct {
	ID        string
	Subject   string
	Sender    string
	To        []string
	Snippet   string
	Body      string
	Date      *time.Time
	Embedding []float32
	CreatedAt time.Time
}

// NewMessage builds a message from its required fields. Optional fields
// (snippet, body, date, embedding) are set on the returned value.
func NewMessage(id, subject, sender string, to []string) *Message {
	return &Message{
		ID:        id,
		Subject:   subject,
		Sender:    sender,
		To:        to,
		CreatedAt: time.Now().UTC(),
	}
}

// HasEmbedding reports whether the message carries an embedding vector.
func (m *Message) HasEmbedding() bool {
	return len(m.Embedding) > 0
}

// ValidateMessage validates a Message instance
func ValidateMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("message ID is required")
	}

	if m.Subject == "" {
		return fmt.Errorf("message Subject is required")
	}

	if m.Sender == "" {
		return fmt.Errorf("message Sender is required")
	}

	if len(m.To) == 0 {
		return fmt.Errorf("message must have at least one recipient")
	}

	return nil
}
