package roster

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cleanbear/dispatch/core/distance"
	"github.com/cleanbear/dispatch/core/logger"
	"github.com/cleanbear/dispatch/core/metrics"
	"github.com/cleanbear/dispatch/core/model"
)

// Source provides technician rows from an upstream system such as the
// operations spreadsheet.
type Source interface {
	FetchTechnicians(ctx context.Context) ([]model.Technician, error)
}

// StaticSource serves a fixed roster, for tests and file-based setups.
type StaticSource struct {
	Technicians []model.Technician
}

// FetchTechnicians implements Source.
func (s StaticSource) FetchTechnicians(context.Context) ([]model.Technician, error) {
	return append([]model.Technician(nil), s.Technicians...), nil
}

// snapshot is an immutable roster view. A refresh builds a complete new
// snapshot and swaps the pointer, so a run that captured the previous one
// keeps working on it undisturbed.
type snapshot struct {
	technicians []model.Technician
	skipped     []model.SkippedTechnician
	loadedAt    time.Time
}

// Stats summarizes the current snapshot for health reporting.
type Stats struct {
	Loaded   bool
	Count    int
	Skipped  int
	LoadedAt time.Time
}

// Store keeps the technician roster in memory. Load performs the initial
// synchronous fetch, Run refreshes it periodically, and Refresh forces a
// reload. Refresh failures keep the previous snapshot.
type Store struct {
	source   Source
	geo      distance.Geocoder // optional, resolves address-only homes
	interval time.Duration
	log      logger.Logger
	sink     metrics.Sink

	mu   sync.RWMutex
	snap *snapshot
}

// NewStore builds a Store around the given source. A nil geocoder skips
// address resolution; a non-positive interval disables background refresh.
func NewStore(source Source, geo distance.Geocoder, interval time.Duration, log logger.Logger, sink metrics.Sink) (*Store, error) {
	if source == nil {
		return nil, errors.New("roster: source is required")
	}
	if log == nil {
		return nil, errors.New("roster: logger is required")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Store{source: source, geo: geo, interval: interval, log: log, sink: sink}, nil
}

// Load performs the initial synchronous fetch. The service must not start
// serving until it succeeds.
func (s *Store) Load(ctx context.Context) error {
	_, err := s.Refresh(ctx)
	return err
}

// Run refreshes the roster every interval until ctx is cancelled. A failed
// refresh logs a warning and keeps serving the stale snapshot.
func (s *Store) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				st := s.Stats()
				s.log.Warnf("roster refresh failed, keeping %d technicians from %s: %v",
					st.Count, st.LoadedAt.Format(time.RFC3339), err)
			}
		}
	}
}

// Refresh fetches, screens and atomically publishes a new snapshot. It
// returns the technician count of the new snapshot.
func (s *Store) Refresh(ctx context.Context) (int, error) {
	snap, err := s.build(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	metrics.Roster(s.sink, len(snap.technicians), len(snap.skipped))
	s.log.Infof("roster loaded: %d technicians, %d skipped", len(snap.technicians), len(snap.skipped))
	return len(snap.technicians), nil
}

func (s *Store) build(ctx context.Context) (*snapshot, error) {
	rows, err := s.source.FetchTechnicians(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	distance.ResolveTechnicians(ctx, s.geo, rows, s.log)

	techs := make([]model.Technician, 0, len(rows))
	var skipped []model.SkippedTechnician
	for _, t := range rows {
		if skip := t.Validate(); skip != nil {
			skipped = append(skipped, *skip)
			s.log.Warnf("roster row skipped (%s): %s %s", t.ID, skip.Reason, skip.Detail)
			continue
		}
		if t.Inactive {
			continue
		}
		techs = append(techs, t)
	}
	sort.Slice(techs, func(i, j int) bool { return techs[i].ID < techs[j].ID })

	return &snapshot{technicians: techs, skipped: skipped, loadedAt: time.Now()}, nil
}

// Technicians returns the current snapshot's technician list, sorted by
// ID. Callers must treat it as read-only; a run keeps working on the
// slice it captured even when a refresh lands mid-run.
func (s *Store) Technicians() []model.Technician {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	return s.snap.technicians
}

// Skipped returns the skip entries of the current snapshot.
func (s *Store) Skipped() []model.SkippedTechnician {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	return s.snap.skipped
}

// Stats reports the current snapshot for health checks.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return Stats{}
	}
	return Stats{
		Loaded:   true,
		Count:    len(s.snap.technicians),
		Skipped:  len(s.snap.skipped),
		LoadedAt: s.snap.loadedAt,
	}
}
