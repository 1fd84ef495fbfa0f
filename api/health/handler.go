// Package health exposes the service liveness endpoint.
package health

import (
	"net/http"
	"time"

	"github.com/cleanbear/dispatch/api/httputil"
	"github.com/cleanbear/dispatch/core/logger"
	"github.com/cleanbear/dispatch/core/roster"
)

// RosterStats reports the state of the roster snapshot.
type RosterStats interface {
	Stats() roster.Stats
}

type response struct {
	Status             string `json:"status"`
	RosterLoaded       bool   `json:"roster_loaded"`
	Technicians        int    `json:"technicians"`
	SkippedTechnicians int    `json:"skipped_technicians"`
	LoadedAt           string `json:"loaded_at,omitempty"`
}

// NewHandler returns the GET /health handler. The service reports degraded
// until the first roster load lands.
func NewHandler(stats RosterStats, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			httputil.WriteError(w, r, log, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s := stats.Stats()
		res := response{
			Status:             "ok",
			RosterLoaded:       s.Loaded,
			Technicians:        s.Count,
			SkippedTechnicians: s.Skipped,
		}
		status := http.StatusOK
		if s.Loaded {
			res.LoadedAt = s.LoadedAt.UTC().Format(time.RFC3339)
		} else {
			res.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, r, log, status, res)
	})
}
