package middleware

import (
	"net/http"

	"github.com/mailsift/mailsift/internal/api"
)

// MaxBodyBytes rejects requests whose body exceeds limit. Declared sizes
// fail fast with 413; chunked bodies are capped by MaxBytesReader so a
// handler's read errors out at the limit instead.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
