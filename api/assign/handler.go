// Package assign exposes the assignment engine over HTTP: a batch run
// endpoint and a read-only single-job selector.
package assign

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cleanbear/dispatch/api/httputil"
	coreassign "github.com/cleanbear/dispatch/core/assign"
	"github.com/cleanbear/dispatch/core/distance"
	"github.com/cleanbear/dispatch/core/logger"
	"github.com/cleanbear/dispatch/core/model"
	"github.com/cleanbear/dispatch/core/notify"
)

// Engine is the slice of the assignment engine the handlers use.
type Engine interface {
	Run(ctx context.Context, req coreassign.Request) coreassign.Result
	SelectOne(ctx context.Context, job model.Job, techs []model.Technician, rules *model.Rules) (coreassign.Selection, error)
}

// TechnicianSource supplies the roster snapshot for requests that do not
// carry their own technicians.
type TechnicianSource interface {
	Technicians() []model.Technician
}

// NewRunHandler returns the POST /assign handler. Technicians omitted from
// the request come from the roster source; running against zero valid
// technicians is fine, the jobs fail individually.
func NewRunHandler(engine Engine, roster TechnicianSource, geo distance.Geocoder, pub notify.Publisher, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			httputil.WriteError(w, r, log, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req runRequest
		if !decodeBody(w, r, log, &req) {
			return
		}
		engReq, err := req.toEngineRequest()
		if err != nil {
			httputil.WriteError(w, r, log, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.Technicians) == 0 && roster != nil {
			engReq.Technicians = roster.Technicians()
		}

		distance.ResolveJobs(r.Context(), geo, engReq.Jobs, log)
		distance.ResolveTechnicians(r.Context(), geo, engReq.Technicians, log)

		res := engine.Run(r.Context(), engReq)

		publishSummary(pub, log, res)

		httputil.WriteJSON(w, r, log, http.StatusOK, newRunResponse(res))
	})
}

// NewSingleHandler returns the POST /assign/single handler, a stateless
// best-technician lookup for one job. A no-match outcome is a structured
// 200, not an error.
func NewSingleHandler(engine Engine, roster TechnicianSource, geo distance.Geocoder, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			httputil.WriteError(w, r, log, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req singleRequest
		if !decodeBody(w, r, log, &req) {
			return
		}

		techs, _ := decodeTechnicians(req.Technicians)
		if len(req.Technicians) == 0 && roster != nil {
			techs = roster.Technicians()
		}

		rules, err := req.Rules.toRules()
		if err != nil {
			httputil.WriteError(w, r, log, http.StatusBadRequest, err.Error())
			return
		}

		jobs := []model.Job{req.jobDTO.toJob()}
		distance.ResolveJobs(r.Context(), geo, jobs, log)
		distance.ResolveTechnicians(r.Context(), geo, techs, log)

		sel, err := engine.SelectOne(r.Context(), jobs[0], techs, rules)
		if err != nil {
			var noTech *coreassign.NoTechnicianError
			if errors.As(err, &noTech) {
				httputil.WriteJSON(w, r, log, http.StatusOK, singleResponse{
					Success: true,
					Matched: false,
					Reason:  string(noTech.Reason),
					Detail:  noTech.Detail,
				})
				return
			}
			log.Errorf("single selection: %v", err)
			httputil.WriteError(w, r, log, http.StatusInternalServerError, "selection failed")
			return
		}

		httputil.WriteJSON(w, r, log, http.StatusOK, singleResponse{
			Success:        true,
			Matched:        true,
			TechnicianID:   sel.TechnicianID,
			TechnicianName: sel.TechnicianName,
			Phone:          sel.Phone,
			Area:           sel.Area,
			TravelMinutes:  round1(sel.TravelMinutes),
			StartTime:      sel.Start,
			EndTime:        sel.End,
			TimeStatus:     string(sel.TimeStatus),
		})
	})
}

// decodeBody decodes a single JSON object from the request, mapping
// failures to client errors. It reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, log logger.Logger, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, r, log, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		httputil.WriteError(w, r, log, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		httputil.WriteError(w, r, log, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// publishSummary forwards the run outcome to the notifier. Failures are
// logged and never affect the HTTP response.
func publishSummary(pub notify.Publisher, log logger.Logger, res coreassign.Result) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sum := notify.RunSummary{
		RunID:      res.RunID,
		Total:      res.Summary.Total,
		Assigned:   res.Summary.Assigned,
		Failed:     res.Summary.Failed,
		Deferred:   res.Summary.Deferred,
		Skipped:    len(res.Skipped),
		Message:    res.Message(),
		FinishedAt: time.Now(),
	}
	if err := pub.PublishRunSummary(ctx, sum); err != nil {
		log.Warnf("publish run summary %s: %v", res.RunID, err)
	}
}
