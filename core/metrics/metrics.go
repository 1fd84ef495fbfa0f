package metrics

import (
	"time"

	"github.com/cleanbear/dispatch/core/model"
)

// RunRecord summarizes one assignment run.
type RunRecord struct {
	RunID    string
	Total    int
	Assigned int
	Failed   int
	Deferred int
	Skipped  int
	Elapsed  time.Duration
	Time     time.Time
}

// JobRecord is the outcome of a single job inside a run.
type JobRecord struct {
	RunID         string
	JobID         string
	Date          string
	ServiceType   string
	TechnicianID  string
	Status        model.Status
	Reason        model.Reason
	TravelMinutes float64
	Time          time.Time
}

// Sink records run outcomes for observability purposes.
type Sink interface {
	RecordRun(rec RunRecord) error
	RecordJobs(recs []JobRecord) error
}

// DegradationEvent marks a travel-time lookup that fell back to the
// sentinel cost.
type DegradationEvent struct {
	Stage string // provider stage that degraded, e.g. "kakao"
	Time  time.Time
}

// DegradationRecorder records provider degradations.
type DegradationRecorder interface {
	RecordDegradation(ev DegradationEvent) error
}

// RosterEvent is a snapshot of the technician roster after a (re)load.
type RosterEvent struct {
	Technicians int
	Skipped     int
	Time        time.Time
}

// RosterRecorder records roster snapshots.
type RosterRecorder interface {
	RecordRoster(ev RosterEvent) error
}

// NopSink implements Sink and all optional capabilities with no-ops.
type NopSink struct{}

func (NopSink) RecordRun(RunRecord) error { return nil }

func (NopSink) RecordJobs([]JobRecord) error { return nil }

func (NopSink) RecordDegradation(DegradationEvent) error { return nil }

func (NopSink) RecordRoster(RosterEvent) error { return nil }

// Degrade forwards a degradation event when the sink supports it.
func Degrade(sink Sink, stage string) {
	if rec, ok := sink.(DegradationRecorder); ok {
		_ = rec.RecordDegradation(DegradationEvent{Stage: stage, Time: time.Now()})
	}
}

// Roster forwards a roster snapshot when the sink supports it.
func Roster(sink Sink, technicians, skipped int) {
	if rec, ok := sink.(RosterRecorder); ok {
		_ = rec.RecordRoster(RosterEvent{Technicians: technicians, Skipped: skipped, Time: time.Now()})
	}
}
