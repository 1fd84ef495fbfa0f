// Package httputil carries the response helpers and middleware shared by
// the API handler packages.
package httputil

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cleanbear/dispatch/core/logger"
)

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, log logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("encode response for %s %s: %v", r.Method, r.URL.Path, err)
	}
}

// WriteError writes the standard error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, log logger.Logger, status int, msg string) {
	WriteJSON(w, r, log, status, map[string]any{"success": false, "error": msg})
}

// statusWriter captures the final status code and the number of bytes
// written, so the access log reflects what the client actually received.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Write records implicit 200 responses from handlers that never call
// WriteHeader.
func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// AccessLog logs one line per request with status, size and duration.
func AccessLog(log logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		log.Debugw("http request", map[string]any{
			"method": r.Method,
			"path":   r.URL.RequestURI(),
			"status": sw.status,
			"bytes":  sw.bytes,
			"ms":     time.Since(start).Milliseconds(),
		})
	})
}

// Recover turns handler panics into 500 responses instead of dropped
// connections.
func Recover(log logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				WriteError(w, r, log, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// MaxBody caps request body size. Oversized bodies surface as decode
// errors in the handlers, which map them to 413 responses.
func MaxBody(limit int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}
