package domain

import "fmt"

// Category represents a user-defined message category. Names are unique.
// The embedding is nil until one has been generated for the category.
type Category struct {
	ID          int64
	Name        string
	Description string
	Embedding   []float32
}

// NewCategory creates a new Category instance
func NewCategory(id int64, name, description string) *Category {
	return &Category{
		ID:          id,
		Name:        name,
		Description: description,
	}
}

// HasEmbedding reports whether the category carries an embedding vector.
func (c *Category) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ValidateCategory validates a Category instance
func ValidateCategory(c *Category) error {
	if c == nil {
		return fmt.Errorf("category cannot be nil")
	}

	if c.Name == "" {
		return fmt.Errorf("category Name is required")
	}

	if c.Description == "" {
		return fmt.Errorf("category Description is required")
	}

	return nil
}
