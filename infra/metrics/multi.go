package metrics

import coremetrics "github.com/cleanbear/dispatch/core/metrics"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the record to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordRun(rec coremetrics.RunRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordJobs forwards job records to all sinks.
func (m *MultiSink) RecordJobs(recs []coremetrics.JobRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordJobs(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordDegradation forwards degradation events when supported by the sink.
func (m *MultiSink) RecordDegradation(ev coremetrics.DegradationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.DegradationRecorder); ok {
			if err := rec.RecordDegradation(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRoster forwards roster snapshots when supported by the sink.
func (m *MultiSink) RecordRoster(ev coremetrics.RosterEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.RosterRecorder); ok {
			if err := rec.RecordRoster(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
