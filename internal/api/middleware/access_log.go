package middleware

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

// statusWriter captures the status code and body size written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

// AccessLog logs one JSON line per completed request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		next.ServeHTTP(sw, r)

		logRequest(r, sw, start)
	})
}

func logRequest(r *http.Request, sw *statusWriter, start time.Time) {
	status := sw.status
	if status == 0 {
		status = http.StatusOK
	}

	entry := map[string]any{
		"time":       start.UTC().Format(time.RFC3339Nano),
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     status,
		"bytes_out":  sw.written,
		"elapsed_ms": time.Since(start).Milliseconds(),
		"client_ip":  clientIP(r),
	}
	if q := r.URL.RawQuery; q != "" {
		entry["query"] = q
	}
	if id := GetRequestID(r.Context()); id != "" {
		entry["request_id"] = id
	}
	if ua := r.UserAgent(); ua != "" {
		entry["user_agent"] = ua
	}

	line, err := json.Marshal(entry)
	if err != nil {
		log.Printf("access log: %v", err)
		return
	}
	log.Println(string(line))
}

// clientIP prefers proxy-set headers over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
