// Package roster exposes roster management over HTTP.
package roster

import (
	"context"
	"net/http"

	"github.com/cleanbear/dispatch/api/httputil"
	"github.com/cleanbear/dispatch/core/logger"
	coreroster "github.com/cleanbear/dispatch/core/roster"
)

// Store is the slice of the roster store the handler uses.
type Store interface {
	Refresh(ctx context.Context) (int, error)
	Stats() coreroster.Stats
}

// NewRefreshHandler returns the POST /roster/refresh handler. A failed
// refresh keeps the previous snapshot live and reports 502.
func NewRefreshHandler(store Store, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			httputil.WriteError(w, r, log, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		count, err := store.Refresh(r.Context())
		if err != nil {
			log.Errorf("roster refresh: %v", err)
			httputil.WriteError(w, r, log, http.StatusBadGateway, "roster source unavailable")
			return
		}
		httputil.WriteJSON(w, r, log, http.StatusOK, map[string]any{
			"success":     true,
			"technicians": count,
			"skipped":     store.Stats().Skipped,
		})
	})
}
