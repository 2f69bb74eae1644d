package domain

import "fmt"

// DomainError carries a stable machine-readable code alongside a human
// message. The HTTP layer maps codes to status codes.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError builds an error with no underlying cause.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause wraps err under a code; errors.Is/As see through
// to the cause.
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Error codes understood by the HTTP layer.
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeAlreadyExists      = "ALREADY_EXISTS"
	ErrCodePreconditionFailed = "PRECONDITION_FAILED"
	ErrCodeProviderError      = "PROVIDER_ERROR"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

var (
	ErrMessageNotFound  = NewDomainError(ErrCodeNotFound, "message not found")
	ErrCategoryNotFound = NewDomainError(ErrCodeNotFound, "category not found")

	ErrMessageAlreadyExists  = NewDomainError(ErrCodeAlreadyExists, "message already exists")
	ErrCategoryAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "category already exists")
)

// Classification precondition errors
var (
	// ErrNoScoreableCategories is returned when no candidate category carries
	// a usable embedding.
	ErrNoScoreableCategories = NewDomainError(ErrCodePreconditionFailed, "no categories with embeddings found")
)

// NewMissingEmbeddingError reports that the named message has no embedding
// and therefore cannot be scored by the embedding-similarity strategy.
func NewMissingEmbeddingError(messageID string) *DomainError {
	return NewDomainError(ErrCodePreconditionFailed, fmt.Sprintf("message %s has no embedding", messageID))
}

// NewZeroMagnitudeEmbeddingError reports that the named message carries a
// zero-magnitude embedding, which cannot be normalized to unit length.
func NewZeroMagnitudeEmbeddingError(messageID string) *DomainError {
	return NewDomainError(ErrCodePreconditionFailed, fmt.Sprintf("message %s has a zero-magnitude embedding", messageID))
}

// NewProviderError wraps an embedding or LLM provider failure.
func NewProviderError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeProviderError, message, err)
}

// NewValidationError wraps a response that failed to parse into the
// expected structured schema.
func NewValidationError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeValidation, message, err)
}
