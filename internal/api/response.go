// Package api defines the JSON response envelope shared by all handlers.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/mailsift/mailsift/internal/domain"
)

// SuccessResponse is the envelope for successful responses.
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse is the envelope for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes data as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("api: encoding response: %v", err)
	}
}

// Success writes data inside the success envelope.
func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes a message inside the error envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps a domain error code to an HTTP status. Errors that
// are not DomainError map to 500.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var derr *domain.DomainError
	if !errors.As(err, &derr) {
		return http.StatusInternalServerError
	}

	switch derr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyExists:
		return http.StatusConflict
	case domain.ErrCodePreconditionFailed:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleError maps err to a status and writes the error envelope. Messages
// of non-domain errors are masked so internal detail never reaches clients.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)

	var derr *domain.DomainError
	if !errors.As(err, &derr) {
		log.Printf("api: internal error: %v", err)
		Error(w, status, "internal server error")
		return
	}

	Error(w, status, derr.Message)
}
