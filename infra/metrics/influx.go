package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/cleanbear/dispatch/core/metrics"
	"github.com/cleanbear/dispatch/infra/logger"
)

// InfluxSink writes run and job records to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails, so a down metrics store never blocks
// startup.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun implements metrics.Sink.
func (s *InfluxSink) RecordRun(rec coremetrics.RunRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_run").
		AddTag("run_id", rec.RunID).
		AddTag("component", "assign_engine").
		AddField("total", rec.Total).
		AddField("assigned", rec.Assigned).
		AddField("failed", rec.Failed).
		AddField("deferred", rec.Deferred).
		AddField("skipped_technicians", rec.Skipped).
		AddField("elapsed_ms", round3(float64(rec.Elapsed.Nanoseconds())/1e6)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordJobs implements metrics.Sink. Each job becomes one point.
func (s *InfluxSink) RecordJobs(recs []coremetrics.JobRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("dispatch_job").
			AddTag("run_id", r.RunID).
			AddTag("status", string(r.Status)).
			AddTag("component", "assign_engine")
		// Tags that may be empty are skipped: empty tag values are not
		// valid line protocol.
		if r.JobID != "" {
			p = p.AddTag("job_id", r.JobID)
		}
		if r.Date != "" {
			p = p.AddTag("date", r.Date)
		}
		if r.ServiceType != "" {
			p = p.AddTag("service_type", r.ServiceType)
		}
		if r.Reason != "" {
			p = p.AddTag("reason", string(r.Reason))
		}
		if r.TechnicianID != "" {
			p = p.AddTag("technician_id", r.TechnicianID)
		}
		p = p.AddField("travel_minutes", round3(r.TravelMinutes)).
			SetTime(r.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordDegradation implements metrics.DegradationRecorder.
func (s *InfluxSink) RecordDegradation(ev coremetrics.DegradationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("provider_degradation").
		AddTag("stage", ev.Stage).
		AddTag("component", "distance").
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRoster implements metrics.RosterRecorder.
func (s *InfluxSink) RecordRoster(ev coremetrics.RosterEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("roster_snapshot").
		AddTag("component", "roster").
		AddField("technicians", ev.Technicians).
		AddField("skipped", ev.Skipped).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying HTTP resources.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
