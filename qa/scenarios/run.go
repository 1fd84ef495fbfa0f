package scenarios

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cleanbear/dispatch/core/assign"
	"github.com/cleanbear/dispatch/core/model"
	"github.com/cleanbear/dispatch/infra/distance"
	"github.com/cleanbear/dispatch/infra/logger"
	"github.com/cleanbear/dispatch/infra/metrics"
)

// BuildRequest converts the scenario definitions into an engine request.
func BuildRequest(sc *Scenario) (assign.Request, error) {
	var req assign.Request
	for _, j := range sc.Jobs {
		req.Jobs = append(req.Jobs, j.ToModel())
	}
	for _, t := range sc.Technicians {
		req.Technicians = append(req.Technicians, t.ToModel())
	}

	committed := make(map[string]map[string][]model.Interval)
	for _, c := range sc.Committed {
		iv, err := c.ToInterval()
		if err != nil {
			return assign.Request{}, fmt.Errorf("committed interval for %s: %w", c.TechnicianID, err)
		}
		if committed[c.TechnicianID] == nil {
			committed[c.TechnicianID] = make(map[string][]model.Interval)
		}
		committed[c.TechnicianID][c.Date] = append(committed[c.TechnicianID][c.Date], iv)
	}
	for id, days := range committed {
		req.States = append(req.States, model.TechnicianState{TechnicianID: id, Committed: days})
	}

	for _, o := range sc.OffDays {
		req.OffDays = append(req.OffDays, model.OffDay{TechnicianID: o.TechnicianID, Date: o.Date})
	}

	if sc.Rules != nil {
		rules, err := sc.Rules.ToModel()
		if err != nil {
			return assign.Request{}, err
		}
		req.Rules = rules
	}
	return req, nil
}

// RunScenario executes one scenario against a real engine backed by the
// deterministic haversine estimator and checks the expected outcomes.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()

	sink, err := metrics.NewPromSinkWithRegistry(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	eng, err := assign.New(distance.Estimator{}, model.Rules{}, logger.NopLogger{}, sink)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	req, err := BuildRequest(sc)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}

	res := eng.Run(context.Background(), req)

	if res.Summary.Assigned != sc.Expected.Assigned ||
		res.Summary.Failed != sc.Expected.Failed ||
		res.Summary.Deferred != sc.Expected.Deferred {
		t.Errorf("scenario %s: got %d/%d/%d assigned/failed/deferred, want %d/%d/%d",
			sc.Name, res.Summary.Assigned, res.Summary.Failed, res.Summary.Deferred,
			sc.Expected.Assigned, sc.Expected.Failed, sc.Expected.Deferred)
	}

	for jobID, want := range sc.Expected.Jobs {
		a, ok := findAssignment(res, jobID)
		if !ok {
			t.Errorf("scenario %s: job %s missing from result", sc.Name, jobID)
			continue
		}
		if want.Status != "" && string(a.Status) != want.Status {
			t.Errorf("scenario %s: job %s status = %s, want %s", sc.Name, jobID, a.Status, want.Status)
		}
		if want.TechnicianID != "" && a.TechnicianID != want.TechnicianID {
			t.Errorf("scenario %s: job %s went to %q, want %q", sc.Name, jobID, a.TechnicianID, want.TechnicianID)
		}
		if want.Reason != "" && string(a.Reason) != want.Reason {
			t.Errorf("scenario %s: job %s reason = %s, want %s", sc.Name, jobID, a.Reason, want.Reason)
		}
		if want.Start != "" && a.Start != want.Start {
			t.Errorf("scenario %s: job %s start = %q, want %q", sc.Name, jobID, a.Start, want.Start)
		}
		if want.TimeStatus != "" && string(a.TimeStatus) != want.TimeStatus {
			t.Errorf("scenario %s: job %s time status = %s, want %s", sc.Name, jobID, a.TimeStatus, want.TimeStatus)
		}
	}
}

// findAssignment locates a job's outcome across the three result buckets.
func findAssignment(res assign.Result, jobID string) (model.Assignment, bool) {
	for _, bucket := range [][]model.Assignment{res.Assigned, res.Failed, res.Deferred} {
		for _, a := range bucket {
			if a.JobID == jobID {
				return a, true
			}
		}
	}
	return model.Assignment{}, false
}
