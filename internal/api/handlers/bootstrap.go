package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/mailsift/mailsift/internal/api"
	"github.com/mailsift/mailsift/internal/service"
)

type BootstrapServiceInterface interface {
	Run(ctx context.Context, categoriesPath, messagesPath string, autoClassify bool) (*service.BootstrapResult, error)
}

type BootstrapHandler struct {
	svc BootstrapServiceInterface

	// Default sample file locations, used when the request omits them.
	categoriesPath string
	messagesPath   string
}

func NewBootstrapHandler(svc BootstrapServiceInterface, categoriesPath, messagesPath string) *BootstrapHandler {
	return &BootstrapHandler{
		svc:            svc,
		categoriesPath: categoriesPath,
		messagesPath:   messagesPath,
	}
}

type BootstrapRequest struct {
	CategoriesPath string `json:"categories_path"`
	MessagesPath   string `json:"messages_path"`
	AutoClassify   bool   `json:"auto_classify"`
}

// Bootstrap seeds categories and messages from sample JSONL files.
func (h *BootstrapHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	req := BootstrapRequest{
		CategoriesPath: h.categoriesPath,
		MessagesPath:   h.messagesPath,
	}

	var body BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.CategoriesPath != "" {
		req.CategoriesPath = body.CategoriesPath
	}
	if body.MessagesPath != "" {
		req.MessagesPath = body.MessagesPath
	}
	req.AutoClassify = req.AutoClassify || body.AutoClassify

	if req.CategoriesPath == "" || req.MessagesPath == "" {
		api.Error(w, http.StatusBadRequest, "categories_path and messages_path are required")
		return
	}

	result, err := h.svc.Run(r.Context(), req.CategoriesPath, req.MessagesPath, req.AutoClassify)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
