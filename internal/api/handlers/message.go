package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mailsift/mailsift/internal/api"
	"github.com/mailsift/mailsift/internal/domain"
	"github.com/mailsift/mailsift/internal/jsonl"
	"github.com/mailsift/mailsift/internal/service"
)

type MessagesServiceInterface interface {
	Create(ctx context.Context, input service.CreateMessageInput) (*domain.Message, error)
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	List(ctx context.Context, input service.ListInput) (*service.MessagePageResult, error)
	Delete(ctx context.Context, id string) error
	ImportFromJSONL(ctx context.Context, r io.Reader, opts service.ImportOptions) (*service.ImportResult, error)
}

type MessageHandler struct {
	svc MessagesServiceInterface
}

func NewMessageHandler(svc MessagesServiceInterface) *MessageHandler {
	return &MessageHandler{svc: svc}
}

type CreateMessageRequest struct {
	ID           string   `json:"id"`
	Subject      string   `json:"subject"`
	From         string   `json:"from"`
	To           []string `json:"to"`
	Snippet      string   `json:"snippet"`
	Body         string   `json:"body"`
	Date         string   `json:"date"`
	BodyIsBase64 bool     `json:"body_is_base64"`
}

type MessageResponse struct {
	ID           string   `json:"id"`
	Subject      string   `json:"subject"`
	From         string   `json:"from"`
	To           []string `json:"to"`
	Snippet      string   `json:"snippet"`
	Body         string   `json:"body"`
	Date         string   `json:"date,omitempty"`
	HasEmbedding bool     `json:"has_embedding"`
	CreatedAt    string   `json:"created_at"`
}

func messageToResponse(m *domain.Message) *MessageResponse {
	resp := &MessageResponse{
		ID:           m.ID,
		Subject:      m.Subject,
		From:         m.Sender,
		To:           m.To,
		Snippet:      m.Snippet,
		Body:         m.Body,
		HasEmbedding: m.HasEmbedding(),
		CreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.Date != nil {
		resp.Date = m.Date.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	input := service.CreateMessageInput{
		ID:           req.ID,
		Subject:      req.Subject,
		Sender:       req.From,
		To:           req.To,
		Snippet:      req.Snippet,
		Body:         req.Body,
		BodyIsBase64: req.BodyIsBase64,
	}

	if req.Date != "" {
		date, err := jsonl.ParseISODate(req.Date)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid date format")
			return
		}
		input.Date = &date
	}

	message, err := h.svc.Create(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, messageToResponse(message))
}

func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	message, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, messageToResponse(message))
}

type MessageListResponse struct {
	Items   []*MessageResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.svc.List(r.Context(), service.ListInput{Cursor: cursor, Limit: limit})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*MessageResponse, len(page.Items))
	for i, m := range page.Items {
		responses[i] = messageToResponse(m)
	}

	api.Success(w, http.StatusOK, MessageListResponse{
		Items:   responses,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

type ImportResponse struct {
	Imported int                    `json:"imported"`
	Failed   int                    `json:"failed"`
	Failures []service.BatchFailure `json:"failures,omitempty"`
	Preview  []*MessageResponse     `json:"preview,omitempty"`
}

// Import accepts a newline-delimited JSON payload of message records.
func (h *MessageHandler) Import(w http.ResponseWriter, r *http.Request) {
	autoClassify := r.URL.Query().Get("auto_classify") == "true"

	opts := service.ImportOptions{
		AutoClassify: autoClassify,
		ArchiveKey:   fmt.Sprintf("imports/%s-%s.jsonl", time.Now().UTC().Format("20060102T150405Z"), uuid.NewString()),
	}

	result, err := h.svc.ImportFromJSONL(r.Context(), r.Body, opts)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ImportResponse{
		Imported: result.Imported,
		Failed:   result.Failed,
		Failures: result.Failures,
	}
	for _, m := range result.Preview {
		resp.Preview = append(resp.Preview, messageToResponse(m))
	}

	api.Success(w, http.StatusOK, resp)
}
