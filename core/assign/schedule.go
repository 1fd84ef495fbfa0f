package assign

import (
	"sort"

	"github.com/cleanbear/dispatch/core/model"
)

// techState tracks one technician through a run: current position and the
// intervals already committed per date. Seeded states let callers carry
// schedules from earlier runs into a new one.
type techState struct {
	tech model.Technician
	loc  model.Coordinate
	days map[string][]model.Interval
}

func newTechState(t model.Technician, seed *model.TechnicianState) *techState {
	s := &techState{
		tech: t,
		loc:  *t.Home.Coord,
		days: make(map[string][]model.Interval),
	}
	if seed == nil {
		return s
	}
	if seed.LastLocation != nil {
		s.loc = *seed.LastLocation
	}
	for date, ivs := range seed.Committed {
		if len(ivs) == 0 {
			continue
		}
		sorted := append([]model.Interval(nil), ivs...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
		s.days[date] = sorted
	}
	return s
}

// dayBlocked reports whether taking a job on date would exceed the
// distinct-day limit. Dates already on the schedule stay open.
func (s *techState) dayBlocked(date string, maxDays int) bool {
	if _, ok := s.days[date]; ok {
		return false
	}
	return len(s.days) >= maxDays
}

// lastEnd returns the end of the latest committed interval on date.
func (s *techState) lastEnd(date string) (int, bool) {
	ivs := s.days[date]
	if len(ivs) == 0 {
		return 0, false
	}
	return ivs[len(ivs)-1].End, true
}

// conflicts reports whether iv collides with any committed interval on
// date once inflated by the buffer.
func (s *techState) conflicts(date string, iv model.Interval, bufferMin int) bool {
	for _, other := range s.days[date] {
		if iv.ConflictsWith(other, bufferMin) {
			return true
		}
	}
	return false
}

// commit books iv on date and moves the technician to the job site.
func (s *techState) commit(date string, iv model.Interval, at model.Coordinate) {
	ivs := append(s.days[date], iv)
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start < ivs[j].Start })
	s.days[date] = ivs
	s.loc = at
}

// screenTechnicians validates the roster for a run. Structurally
// incomplete records become skipped entries, inactive records are dropped,
// and the remaining states are seeded and ordered by ascending ID.
func screenTechnicians(techs []model.Technician, seeds []model.TechnicianState, warnf func(format string, args ...any)) ([]*techState, []model.SkippedTechnician) {
	seedByID := make(map[string]*model.TechnicianState, len(seeds))
	for i := range seeds {
		id := seeds[i].TechnicianID
		if id == "" {
			continue
		}
		if _, dup := seedByID[id]; dup {
			warnf("duplicate state seed for technician %s, keeping the first", id)
			continue
		}
		seedByID[id] = &seeds[i]
	}

	var (
		states  []*techState
		skipped []model.SkippedTechnician
		seen    = make(map[string]bool, len(techs))
	)
	for _, t := range techs {
		if skip := t.Validate(); skip != nil {
			skipped = append(skipped, *skip)
			continue
		}
		if seen[t.ID] {
			warnf("duplicate technician %s, keeping the first", t.ID)
			continue
		}
		seen[t.ID] = true
		seed := seedByID[t.ID]
		delete(seedByID, t.ID)
		if t.Inactive {
			continue
		}
		states = append(states, newTechState(t, seed))
	}
	for id := range seedByID {
		warnf("state seed for unknown technician %s ignored", id)
	}

	sort.Slice(states, func(i, j int) bool { return states[i].tech.ID < states[j].tech.ID })
	return states, skipped
}

// offIndex builds a technician -> date lookup from off-day entries.
func offIndex(offs []model.OffDay) map[string]map[string]bool {
	if len(offs) == 0 {
		return nil
	}
	idx := make(map[string]map[string]bool)
	for _, o := range offs {
		if o.TechnicianID == "" || o.Date == "" {
			continue
		}
		if idx[o.TechnicianID] == nil {
			idx[o.TechnicianID] = make(map[string]bool)
		}
		idx[o.TechnicianID][o.Date] = true
	}
	return idx
}
