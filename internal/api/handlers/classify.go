package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mailsift/mailsift/internal/api"
	"github.com/mailsift/mailsift/internal/domain"
	"github.com/mailsift/mailsift/internal/service"
)

type ClassificationServiceInterface interface {
	ClassifyByID(ctx context.Context, messageID string, params service.ClassifyParams) (*service.ClassificationResult, error)
	ClassifyAll(ctx context.Context, params service.ClassifyParams) (*service.BatchResult, error)
}

// AssignmentReader lists the persisted assignments of a message.
type AssignmentReader interface {
	ListForMessage(ctx context.Context, messageID string) ([]*domain.Assignment, error)
}

type ClassifyHandler struct {
	svc         ClassificationServiceInterface
	assignments AssignmentReader
}

func NewClassifyHandler(svc ClassificationServiceInterface, assignments AssignmentReader) *ClassifyHandler {
	return &ClassifyHandler{svc: svc, assignments: assignments}
}

type ClassifyRequest struct {
	Assign    *bool    `json:"assign"`
	Strategy  string   `json:"strategy"`
	TopN      int      `json:"top_n"`
	Threshold *float64 `json:"threshold"`
}

type MatchResponse struct {
	CategoryID   int64   `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Score        float64 `json:"score"`
	Explanation  string  `json:"explanation"`
}

type ClassifyResponse struct {
	MessageID string           `json:"message_id"`
	Strategy  string           `json:"strategy"`
	Assigned  bool             `json:"assigned"`
	Matches   []*MatchResponse `json:"matches"`
}

func classificationToResponse(result *service.ClassificationResult) *ClassifyResponse {
	matches := make([]*MatchResponse, len(result.Matches))
	for i, m := range result.Matches {
		matches[i] = &MatchResponse{
			CategoryID:   m.Category.ID,
			CategoryName: m.Category.Name,
			Score:        m.Score,
			Explanation:  m.Explanation,
		}
	}

	return &ClassifyResponse{
		MessageID: result.Message.ID,
		Strategy:  result.Strategy,
		Assigned:  result.Assigned,
		Matches:   matches,
	}
}

func decodeClassifyParams(body io.Reader) (service.ClassifyParams, error) {
	// Assign defaults to true; a preview must opt out explicitly.
	params := service.ClassifyParams{Assign: true}

	var req ClassifyRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if err == io.EOF {
			return params, nil
		}
		return params, err
	}

	if req.Assign != nil {
		params.Assign = *req.Assign
	}
	params.Strategy = req.Strategy
	params.TopN = req.TopN
	params.Threshold = req.Threshold
	return params, nil
}

// Classify runs classification for one message. An empty body assigns with
// the configured defaults.
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	params, err := decodeClassifyParams(r.Body)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.ClassifyByID(r.Context(), id, params)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, classificationToResponse(result))
}

// ClassifyAll runs classification over every stored message.
func (h *ClassifyHandler) ClassifyAll(w http.ResponseWriter, r *http.Request) {
	params, err := decodeClassifyParams(r.Body)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.ClassifyAll(r.Context(), params)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

type AssignmentResponse struct {
	CategoryID   int64   `json:"category_id"`
	Score        float64 `json:"score"`
	Explanation  string  `json:"explanation"`
	ClassifiedAt string  `json:"classified_at"`
}

// Assignments returns the persisted category assignments of a message.
func (h *ClassifyHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	assignments, err := h.assignments.ListForMessage(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*AssignmentResponse, len(assignments))
	for i, a := range assignments {
		responses[i] = &AssignmentResponse{
			CategoryID:   a.CategoryID,
			Score:        a.Score,
			Explanation:  a.Explanation,
			ClassifiedAt: a.ClassifiedAt.UTC().Format(time.RFC3339),
		}
	}

	api.Success(w, http.StatusOK, responses)
}
