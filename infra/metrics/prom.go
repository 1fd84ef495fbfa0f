// Package metrics provides the Prometheus and InfluxDB sinks for run and
// job records, plus a fan-out for running several sinks at once.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coredistance "github.com/cleanbear/dispatch/core/distance"
	coremetrics "github.com/cleanbear/dispatch/core/metrics"
	"github.com/cleanbear/dispatch/core/model"
)

// PromSink records assignment outcomes as Prometheus metrics.
type PromSink struct {
	runs         prometheus.Counter
	runDuration  prometheus.Histogram
	jobs         *prometheus.CounterVec
	travel       prometheus.Histogram
	degradations *prometheus.CounterVec
	rosterSize   prometheus.Gauge
	rosterSkips  prometheus.Gauge
}

// NewPromSink registers the dispatch metrics on the default Prometheus
// registerer. The scrape server is started separately via StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	runs, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_runs_total",
		Help: "Total number of assignment runs",
	}))
	if err != nil {
		return nil, err
	}
	runDuration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_run_duration_seconds",
		Help:    "Wall time of one assignment run",
		Buckets: prometheus.DefBuckets,
	}))
	if err != nil {
		return nil, err
	}
	jobs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_jobs_total",
		Help: "Job outcomes by status and reason",
	}, []string{"status", "reason"}))
	if err != nil {
		return nil, err
	}
	travel, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_travel_minutes",
		Help:    "Travel minutes of assigned jobs",
		Buckets: []float64{5, 10, 15, 20, 30, 45, 60, 90, 120, 240},
	}))
	if err != nil {
		return nil, err
	}
	degradations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_provider_degradations_total",
		Help: "Travel-time lookups that fell back to the sentinel cost",
	}, []string{"stage"}))
	if err != nil {
		return nil, err
	}
	rosterSize, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_roster_technicians",
		Help: "Technicians in the current roster snapshot",
	}))
	if err != nil {
		return nil, err
	}
	rosterSkips, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_roster_skipped_rows",
		Help: "Roster rows skipped during the last load",
	}))
	if err != nil {
		return nil, err
	}

	return &PromSink{
		runs:         runs,
		runDuration:  runDuration,
		jobs:         jobs,
		travel:       travel,
		degradations: degradations,
		rosterSize:   rosterSize,
		rosterSkips:  rosterSkips,
	}, nil
}

// register adds the collector, reusing an existing registration when a sink
// is constructed twice against the same registerer.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	var zero C
	return zero, err
}

// RecordRun implements metrics.Sink.
func (s *PromSink) RecordRun(rec coremetrics.RunRecord) error {
	s.runs.Inc()
	s.runDuration.Observe(rec.Elapsed.Seconds())
	return nil
}

// RecordJobs implements metrics.Sink. Sentinel travel values stay out of
// the histogram; they are visible through the degradation counter instead.
func (s *PromSink) RecordJobs(recs []coremetrics.JobRecord) error {
	for _, r := range recs {
		s.jobs.WithLabelValues(string(r.Status), string(r.Reason)).Inc()
		if r.Status == model.StatusAssigned && r.TravelMinutes < coredistance.SentinelMinutes {
			s.travel.Observe(r.TravelMinutes)
		}
	}
	return nil
}

// RecordDegradation implements metrics.DegradationRecorder.
func (s *PromSink) RecordDegradation(ev coremetrics.DegradationEvent) error {
	s.degradations.WithLabelValues(ev.Stage).Inc()
	return nil
}

// RecordRoster implements metrics.RosterRecorder.
func (s *PromSink) RecordRoster(ev coremetrics.RosterEvent) error {
	s.rosterSize.Set(float64(ev.Technicians))
	s.rosterSkips.Set(float64(ev.Skipped))
	return nil
}
