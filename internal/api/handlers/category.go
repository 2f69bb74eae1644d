package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mailsift/mailsift/internal/api"
	"github.com/mailsift/mailsift/internal/domain"
	"github.com/mailsift/mailsift/internal/service"
)

type CategoriesServiceInterface interface {
	Create(ctx context.Context, input service.CreateCategoryInput) (*domain.Category, error)
	Update(ctx context.Context, id int64, input service.UpdateCategoryInput) (*domain.Category, error)
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
	Delete(ctx context.Context, id int64) error
}

type CategoryHandler struct {
	svc CategoriesServiceInterface
}

func NewCategoryHandler(svc CategoriesServiceInterface) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	HasEmbedding bool   `json:"has_embedding"`
}

func categoryToResponse(c *domain.Category) *CategoryResponse {
	return &CategoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Description:  c.Description,
		HasEmbedding: len(c.Embedding) > 0,
	}
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	category, err := h.svc.Create(r.Context(), service.CreateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, categoryToResponse(category))
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := categoryID(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid category id")
		return
	}

	category, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, categoryToResponse(category))
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := categoryID(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req UpdateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	category, err := h.svc.Update(r.Context(), id, service.UpdateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, categoryToResponse(category))
}

// List returns all categories, or a single-element list when the name query
// parameter is set.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		category, err := h.svc.GetByName(r.Context(), name)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusOK, []*CategoryResponse{categoryToResponse(category)})
		return
	}

	categories, err := h.svc.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*CategoryResponse, len(categories))
	for i, c := range categories {
		responses[i] = categoryToResponse(c)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := categoryID(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func categoryID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
