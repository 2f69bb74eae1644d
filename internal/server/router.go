package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mailsift/mailsift/internal/api"
	"github.com/mailsift/mailsift/internal/api/handlers"
	"github.com/mailsift/mailsift/internal/api/middleware"
)

type RouterConfig struct {
	MessageHandler   *handlers.MessageHandler
	CategoryHandler  *handlers.CategoryHandler
	ClassifyHandler  *handlers.ClassifyHandler
	BootstrapHandler *handlers.BootstrapHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 25 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/messages", func(r chi.Router) {
		r.Post("/", cfg.MessageHandler.Create)
		r.Get("/", cfg.MessageHandler.List)
		r.Post("/import", cfg.MessageHandler.Import)
		r.Get("/{id}", cfg.MessageHandler.Get)
		r.Delete("/{id}", cfg.MessageHandler.Delete)
		r.Post("/{id}/classify", cfg.ClassifyHandler.Classify)
		r.Get("/{id}/categories", cfg.ClassifyHandler.Assignments)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Post("/", cfg.CategoryHandler.Create)
		r.Get("/", cfg.CategoryHandler.List)
		r.Get("/{id}", cfg.CategoryHandler.Get)
		r.Put("/{id}", cfg.CategoryHandler.Update)
		r.Delete("/{id}", cfg.CategoryHandler.Delete)
	})

	r.Post("/classify/all", cfg.ClassifyHandler.ClassifyAll)
	r.Post("/bootstrap", cfg.BootstrapHandler.Bootstrap)

	return r
}
