package assign

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cleanbear/dispatch/core/distance"
	"github.com/cleanbear/dispatch/core/logger"
	"github.com/cleanbear/dispatch/core/metrics"
	"github.com/cleanbear/dispatch/core/model"
)

// Engine places jobs on technician schedules. It is stateless across runs;
// every Run builds its own technician states, so one Engine can serve
// concurrent requests.
type Engine struct {
	provider distance.Provider
	rules    model.Rules
	log      logger.Logger
	sink     metrics.Sink
}

// New builds an Engine with the given default rules. Zero-valued rule
// fields are filled with the standard defaults.
func New(provider distance.Provider, rules model.Rules, log logger.Logger, sink metrics.Sink) (*Engine, error) {
	if provider == nil {
		return nil, errors.New("assign: distance provider is required")
	}
	if log == nil {
		return nil, errors.New("assign: logger is required")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	rules.ApplyDefaults()
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("assign: invalid rules: %w", err)
	}
	return &Engine{provider: provider, rules: rules, log: log, sink: sink}, nil
}

// Request carries everything one run needs. Jobs and technicians arrive in
// caller order; ordering inside the run is handled by the engine.
type Request struct {
	Jobs        []model.Job
	Technicians []model.Technician

	// States seed technician schedules and positions, typically from an
	// earlier run on the same day range.
	States []model.TechnicianState

	// OffDays exclude technicians from specific dates.
	OffDays []model.OffDay

	// PreSkipped carries technician records rejected during request
	// decoding, so the run result stays the single source of truth.
	PreSkipped []model.SkippedTechnician

	// Rules overrides the engine defaults for this run when set.
	Rules *model.Rules
}

// Result is the complete outcome of a run. Every input job appears in
// exactly one of the three buckets.
type Result struct {
	RunID    string
	Assigned []model.Assignment
	Failed   []model.Assignment
	Deferred []model.Assignment
	Skipped  []model.SkippedTechnician
	Summary  model.Summary
	Elapsed  time.Duration
}

// Run executes one assignment run. It never returns an error: travel
// lookups degrade to the sentinel cost and per-job problems are reported
// through the Failed and Deferred buckets. Context cancellation degrades
// outstanding lookups; the run itself always completes.
func (e *Engine) Run(ctx context.Context, req Request) Result {
	started := time.Now()
	rules := e.runRules(req.Rules)

	res := Result{RunID: uuid.NewString()}

	states, skipped := screenTechnicians(req.Technicians, req.States, e.log.Warnf)
	res.Skipped = append(append([]model.SkippedTechnician(nil), req.PreSkipped...), skipped...)
	off := offIndex(req.OffDays)

	valid := make([]model.Job, 0, len(req.Jobs))
	for i := range req.Jobs {
		job := req.Jobs[i]
		if reason, detail := validateJob(&job, rules); reason != "" {
			a := baseAssignment(job)
			a.Status = model.StatusFailed
			a.Reason = reason
			a.Detail = detail
			res.Failed = append(res.Failed, a)
			continue
		}
		valid = append(valid, job)
	}

	sortJobs(valid)

	for _, job := range valid {
		a := e.place(ctx, job, states, off, rules)
		switch a.Status {
		case model.StatusAssigned:
			res.Assigned = append(res.Assigned, a)
		case model.StatusDeferred:
			res.Deferred = append(res.Deferred, a)
		default:
			res.Failed = append(res.Failed, a)
		}
	}

	res.Summary = model.Summary{
		Total:    len(req.Jobs),
		Assigned: len(res.Assigned),
		Failed:   len(res.Failed),
		Deferred: len(res.Deferred),
	}
	res.Elapsed = time.Since(started)
	e.record(res)
	return res
}

// runRules resolves the effective rules for one run.
func (e *Engine) runRules(override *model.Rules) model.Rules {
	if override == nil {
		return e.rules
	}
	rules := *override
	rules.ApplyDefaults()
	if err := rules.Validate(); err != nil {
		e.log.Warnf("per-run rules rejected, using defaults: %v", err)
		return e.rules
	}
	return rules
}

// validateJob checks required fields, applying duration and slot fallbacks
// first. It returns an empty reason when the job can be scheduled. The job
// is normalized in place.
func validateJob(job *model.Job, rules model.Rules) (model.Reason, string) {
	if job.ID == "" {
		return model.ReasonMissingRequiredField, "job_id"
	}
	if job.ServiceType == "" {
		return model.ReasonMissingRequiredField, "service_type"
	}
	if !model.ValidDate(job.Date) {
		return model.ReasonMissingRequiredField, "date"
	}
	if job.DurationMin <= 0 {
		def, ok := rules.DefaultDurations[job.ServiceType]
		if !ok {
			return model.ReasonMissingRequiredField, "duration_min"
		}
		job.DurationMin = def
		job.FallbackUsed = true
		job.FallbackDetails = append(job.FallbackDetails, fmt.Sprintf("duration_min: %d (default for %s)", def, job.ServiceType))
	}
	slot, err := model.ParseSlotType(string(job.SlotType))
	if err != nil {
		return model.ReasonMissingRequiredField, "slot_type"
	}
	if job.SlotType == "" {
		job.FallbackUsed = true
		job.FallbackDetails = append(job.FallbackDetails, "slot_type: ALLDAY")
	}
	job.SlotType = slot
	if !job.Location.HasCoord() {
		if job.Location.Address != "" {
			return model.ReasonLocationUnresolved, job.Location.Address
		}
		return model.ReasonMissingRequiredField, "location"
	}
	if job.TimeFixed {
		if _, err := model.ParseClock(job.FixedStart); err != nil {
			return model.ReasonFixedTimeMissing, "time_fixed is set but fixed_start_time is missing or malformed"
		}
	}
	return "", ""
}

// sortJobs orders jobs by date, then by fixed start time with unfixed jobs
// last, keeping input order on ties.
func sortJobs(jobs []model.Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Date != jobs[j].Date {
			return jobs[i].Date < jobs[j].Date
		}
		return startKey(jobs[i]) < startKey(jobs[j])
	})
}

// startKey returns the sort minute of a job within its date. Unfixed jobs
// sort after any fixed time of day.
func startKey(job model.Job) int {
	if job.TimeFixed {
		if m, err := model.ParseClock(job.FixedStart); err == nil {
			return m
		}
	}
	return 24 * 60
}

type rejection struct {
	reason model.Reason
	detail string
}

type candidate struct {
	state  *techState
	travel float64
	start  int
	end    int
}

// place runs one job through eligibility, travel scoring and schedule fit,
// committing the winner. The returned assignment is always classified.
func (e *Engine) place(ctx context.Context, job model.Job, states []*techState, off map[string]map[string]bool, rules model.Rules) model.Assignment {
	a := baseAssignment(job)

	eligible := make([]*techState, 0, len(states))
	for _, st := range states {
		if st.tech.HasService(job.ServiceType) {
			eligible = append(eligible, st)
		}
	}
	if len(eligible) == 0 {
		a.Status = model.StatusFailed
		a.Reason = model.ReasonServiceTypeMismatch
		a.Detail = fmt.Sprintf("no technician offers %s", job.ServiceType)
		return a
	}

	onDuty := eligible[:0:0]
	for _, st := range eligible {
		if off[st.tech.ID][job.Date] {
			continue
		}
		onDuty = append(onDuty, st)
	}
	if len(onDuty) == 0 {
		a.Status = model.StatusFailed
		a.Reason = model.ReasonNoTechnicianAvailable
		a.Detail = fmt.Sprintf("all eligible technicians are off duty on %s", job.Date)
		return a
	}

	open := onDuty[:0:0]
	for _, st := range onDuty {
		if st.dayBlocked(job.Date, rules.MaxPreassignDays) {
			continue
		}
		open = append(open, st)
	}
	if len(open) == 0 {
		a.Status = model.StatusDeferred
		a.Reason = model.ReasonMaxPreassignDays
		a.Detail = fmt.Sprintf("all eligible technicians already hold %d working days", rules.MaxPreassignDays)
		return a
	}

	travels := e.travelTimes(ctx, open, job)

	var (
		survivors []candidate
		firstRej  *rejection
	)
	for i, st := range open {
		start, end, rej := fitSchedule(st, job, travels[i], rules)
		if rej != nil {
			if firstRej == nil {
				firstRej = rej
			}
			continue
		}
		survivors = append(survivors, candidate{state: st, travel: travels[i], start: start, end: end})
	}
	if len(survivors) == 0 {
		a.Status = model.StatusFailed
		a.Reason = firstRej.reason
		a.Detail = firstRej.detail
		return a
	}

	// Lowest travel wins; the strict comparison keeps the lowest
	// technician ID on ties because survivors are ID-ordered.
	best := survivors[0]
	for _, c := range survivors[1:] {
		if c.travel < best.travel {
			best = c
		}
	}

	best.state.commit(job.Date, model.Interval{Start: best.start, End: best.end}, *job.Location.Coord)

	a.Status = model.StatusAssigned
	a.TechnicianID = best.state.tech.ID
	a.TechnicianName = best.state.tech.Name
	a.TravelMinutes = best.travel
	if job.TimeFixed {
		a.Start = model.FormatClock(best.start)
		a.End = model.FormatClock(best.end)
		a.TimeStatus = model.TimeFixed
	} else {
		a.TimeStatus = model.TimeToBeConfirmed
	}
	e.log.Debugw("job placed", map[string]any{
		"job":        job.ID,
		"technician": best.state.tech.ID,
		"date":       job.Date,
		"travel_min": best.travel,
	})
	return a
}

// fitSchedule computes the interval the job would occupy on this
// technician's date and checks it against conflicts and the overtime rule.
func fitSchedule(st *techState, job model.Job, travel float64, rules model.Rules) (int, int, *rejection) {
	var start int
	if job.TimeFixed {
		start, _ = model.ParseClock(job.FixedStart)
	} else {
		windowStart := rules.WindowStart(job.SlotType)
		if lastEnd, ok := st.lastEnd(job.Date); ok {
			start = lastEnd + rules.BufferMin + int(math.Ceil(travel))
		} else {
			start = rules.WorkStartMin
		}
		if start < windowStart {
			start = windowStart
		}
	}
	end := start + job.DurationMin

	iv := model.Interval{Start: start, End: end}
	if st.conflicts(job.Date, iv, rules.BufferMin) {
		return 0, 0, &rejection{
			reason: model.ReasonTimeConflict,
			detail: fmt.Sprintf("technician %s is busy around %s on %s", st.tech.ID, model.FormatClock(start), job.Date),
		}
	}
	if end > rules.WorkEndMin && !st.tech.OvertimeAllowed {
		return 0, 0, &rejection{
			reason: model.ReasonOvertimeNotAllowed,
			detail: fmt.Sprintf("job would end at %s, past work end %s", model.FormatClock(end), model.FormatClock(rules.WorkEndMin)),
		}
	}
	return start, end, nil
}

// travelTimes resolves travel minutes from each open candidate to the job
// site. Lookups run concurrently and land in candidate-indexed slots;
// failures degrade to the sentinel cost instead of erroring.
func (e *Engine) travelTimes(ctx context.Context, open []*techState, job model.Job) []float64 {
	dest := *job.Location.Coord
	out := make([]float64, len(open))
	var wg sync.WaitGroup
	for i, st := range open {
		wg.Add(1)
		go func(i int, from model.Coordinate) {
			defer wg.Done()
			m, err := e.provider.TravelMinutes(ctx, from, dest)
			if err != nil || m < 0 || math.IsNaN(m) {
				e.log.Warnf("travel lookup for job %s degraded to sentinel: %v", job.ID, err)
				metrics.Degrade(e.sink, "engine")
				m = distance.SentinelMinutes
			}
			out[i] = m
		}(i, st.loc)
	}
	wg.Wait()
	return out
}

func baseAssignment(job model.Job) model.Assignment {
	return model.Assignment{
		JobID:           job.ID,
		Date:            job.Date,
		ServiceType:     job.ServiceType,
		DurationMin:     job.DurationMin,
		Location:        job.Location,
		FallbackUsed:    job.FallbackUsed,
		FallbackDetails: job.FallbackDetails,
	}
}

// record emits metrics and the run log line.
func (e *Engine) record(res Result) {
	now := time.Now()
	if err := e.sink.RecordRun(metrics.RunRecord{
		RunID:    res.RunID,
		Total:    res.Summary.Total,
		Assigned: res.Summary.Assigned,
		Failed:   res.Summary.Failed,
		Deferred: res.Summary.Deferred,
		Skipped:  len(res.Skipped),
		Elapsed:  res.Elapsed,
		Time:     now,
	}); err != nil {
		e.log.Warnf("record run metrics: %v", err)
	}

	recs := make([]metrics.JobRecord, 0, res.Summary.Total)
	for _, bucket := range [][]model.Assignment{res.Assigned, res.Failed, res.Deferred} {
		for _, a := range bucket {
			recs = append(recs, metrics.JobRecord{
				RunID:         res.RunID,
				JobID:         a.JobID,
				Date:          a.Date,
				ServiceType:   a.ServiceType,
				TechnicianID:  a.TechnicianID,
				Status:        a.Status,
				Reason:        a.Reason,
				TravelMinutes: a.TravelMinutes,
				Time:          now,
			})
		}
	}
	if err := e.sink.RecordJobs(recs); err != nil {
		e.log.Warnf("record job metrics: %v", err)
	}

	e.log.Infof("run %s: %d jobs, %d assigned, %d failed, %d deferred, %d technicians skipped (%s)",
		res.RunID, res.Summary.Total, res.Summary.Assigned, res.Summary.Failed,
		res.Summary.Deferred, len(res.Skipped), res.Elapsed.Round(time.Millisecond))
}
