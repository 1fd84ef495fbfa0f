package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/cleanbear/dispatch/core/metrics"
	"github.com/cleanbear/dispatch/core/model"
)

func TestInfluxSinkRecordRun(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	rec := coremetrics.RunRecord{
		RunID:    "r1",
		Total:    5,
		Assigned: 3,
		Failed:   1,
		Deferred: 1,
		Skipped:  2,
		Elapsed:  1500 * time.Millisecond,
		Time:     now,
	}
	if err := sink.RecordRun(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}

	p := write.NewPointWithMeasurement("dispatch_run").
		AddTag("run_id", "r1").
		AddTag("component", "assign_engine").
		AddField("total", 5).
		AddField("assigned", 3).
		AddField("failed", 1).
		AddField("deferred", 1).
		AddField("skipped_technicians", 2).
		AddField("elapsed_ms", 1500.0).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body:\n got %s\nwant %s", body, expected)
	}
}

func TestInfluxSinkRecordJobs(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies = append(bodies, strings.TrimSpace(string(data)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	recs := []coremetrics.JobRecord{
		{
			RunID:         "r1",
			JobID:         "J1",
			Date:          "2025-07-01",
			ServiceType:   "입주청소",
			TechnicianID:  "T1",
			Status:        model.StatusAssigned,
			TravelMinutes: 21.5,
			Time:          now,
		},
		{
			RunID:       "r1",
			JobID:       "J2",
			Date:        "2025-07-01",
			ServiceType: "이사청소",
			Status:      model.StatusFailed,
			Reason:      model.ReasonTimeConflict,
			Time:        now,
		},
	}
	if err := sink.RecordJobs(recs); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(bodies))
	}

	assigned := write.NewPointWithMeasurement("dispatch_job").
		AddTag("run_id", "r1").
		AddTag("status", "assigned").
		AddTag("component", "assign_engine").
		AddTag("job_id", "J1").
		AddTag("date", "2025-07-01").
		AddTag("service_type", "입주청소").
		AddTag("technician_id", "T1").
		AddField("travel_minutes", 21.5).
		SetTime(now)
	if want := strings.TrimSpace(write.PointToLineProtocol(assigned, time.Nanosecond)); bodies[0] != want {
		t.Errorf("assigned body:\n got %s\nwant %s", bodies[0], want)
	}

	// Failed job carries no technician tag.
	failed := write.NewPointWithMeasurement("dispatch_job").
		AddTag("run_id", "r1").
		AddTag("status", "failed").
		AddTag("component", "assign_engine").
		AddTag("job_id", "J2").
		AddTag("date", "2025-07-01").
		AddTag("service_type", "이사청소").
		AddTag("reason", "TIME_CONFLICT").
		AddField("travel_minutes", 0.0).
		SetTime(now)
	if want := strings.TrimSpace(write.PointToLineProtocol(failed, time.Nanosecond)); bodies[1] != want {
		t.Errorf("failed body:\n got %s\nwant %s", bodies[1], want)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}

func TestNewInfluxSinkWithFallbackHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Header().Set("Content-Type", "application/json")
			if _, err := w.Write([]byte(`{"name":"influxdb","status":"pass"}`)); err != nil {
				t.Errorf("write health response: %v", err)
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL, "tok", "org", "bucket")
	influx, ok := sink.(*InfluxSink)
	if !ok {
		t.Fatalf("expected InfluxSink on passing health check")
	}
	influx.Close()
}
