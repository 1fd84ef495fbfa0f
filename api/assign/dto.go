package assign

import (
	"errors"
	"fmt"
	"math"

	coreassign "github.com/cleanbear/dispatch/core/assign"
	"github.com/cleanbear/dispatch/core/model"
)

// Wire records keep the flat field names of the upstream automation that
// drives this service, so existing scenarios keep working unchanged.

type jobDTO struct {
	JobID          string   `json:"job_id"`
	ServiceType    string   `json:"service_type"`
	Lat            *float64 `json:"lat"`
	Lng            *float64 `json:"lng"`
	Address        string   `json:"address"`
	Date           string   `json:"date"`
	DurationMin    int      `json:"duration_min"`
	TimeFixed      bool     `json:"time_fixed"`
	FixedStartTime string   `json:"fixed_start_time"`
	SlotType       string   `json:"slot_type"`
}

func (d jobDTO) toJob() model.Job {
	job := model.Job{
		ID:          d.JobID,
		ServiceType: d.ServiceType,
		Date:        d.Date,
		DurationMin: d.DurationMin,
		TimeFixed:   d.TimeFixed,
		FixedStart:  d.FixedStartTime,
		SlotType:    model.SlotType(d.SlotType),
		Location:    model.Location{Address: d.Address},
	}
	if d.Lat != nil && d.Lng != nil {
		job.Location.Coord = &model.Coordinate{Lat: *d.Lat, Lng: *d.Lng}
	}
	return job
}

type technicianDTO struct {
	TechnicianID    string   `json:"technician_id"`
	Name            string   `json:"name"`
	Phone           string   `json:"phone"`
	HomeLat         *float64 `json:"home_lat"`
	HomeLng         *float64 `json:"home_lng"`
	HomeAddress     string   `json:"home_address"`
	ServiceTypes    []string `json:"service_types"`
	OvertimeAllowed *bool    `json:"overtime_allowed"`
}

// decodeTechnicians converts wire records to domain ones. Records without
// overtime_allowed become skip entries here: only the wire layer can tell
// a missing flag from an explicit false.
func decodeTechnicians(dtos []technicianDTO) ([]model.Technician, []model.SkippedTechnician) {
	techs := make([]model.Technician, 0, len(dtos))
	var skipped []model.SkippedTechnician
	for _, d := range dtos {
		if d.OvertimeAllowed == nil {
			skipped = append(skipped, model.SkippedTechnician{
				TechnicianID: d.TechnicianID,
				Reason:       model.ReasonMissingTechnicianField,
				Detail:       "overtime_allowed",
			})
			continue
		}
		t := model.Technician{
			ID:              d.TechnicianID,
			Name:            d.Name,
			Phone:           d.Phone,
			Home:            model.Location{Address: d.HomeAddress},
			ServiceTypes:    d.ServiceTypes,
			OvertimeAllowed: *d.OvertimeAllowed,
		}
		if d.HomeLat != nil && d.HomeLng != nil {
			t.Home.Coord = &model.Coordinate{Lat: *d.HomeLat, Lng: *d.HomeLng}
		}
		techs = append(techs, t)
	}
	return techs, skipped
}

type intervalDTO struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type stateDTO struct {
	TechnicianID string        `json:"technician_id"`
	LastLat      *float64      `json:"last_lat"`
	LastLng      *float64      `json:"last_lng"`
	Committed    []intervalDTO `json:"committed"`
}

func (d stateDTO) toState() (model.TechnicianState, error) {
	st := model.TechnicianState{TechnicianID: d.TechnicianID}
	if d.LastLat != nil && d.LastLng != nil {
		st.LastLocation = &model.Coordinate{Lat: *d.LastLat, Lng: *d.LastLng}
	}
	if len(d.Committed) > 0 {
		st.Committed = make(map[string][]model.Interval, len(d.Committed))
	}
	for _, iv := range d.Committed {
		if !model.ValidDate(iv.Date) {
			return st, fmt.Errorf("technician_state %s: bad date %q", d.TechnicianID, iv.Date)
		}
		start, err := model.ParseClock(iv.Start)
		if err != nil {
			return st, fmt.Errorf("technician_state %s: %w", d.TechnicianID, err)
		}
		end, err := model.ParseClock(iv.End)
		if err != nil {
			return st, fmt.Errorf("technician_state %s: %w", d.TechnicianID, err)
		}
		st.Committed[iv.Date] = append(st.Committed[iv.Date], model.Interval{Start: start, End: end})
	}
	return st, nil
}

type offDayDTO struct {
	TechnicianID string `json:"technician_id"`
	Date         string `json:"date"`
}

type rulesDTO struct {
	WorkStart        string         `json:"work_start"`
	WorkEnd          string         `json:"work_end"`
	MorningEnd       string         `json:"morning_end"`
	MaxPreassignDays int            `json:"max_preassign_days"`
	BufferMin        *int           `json:"buffer_min"`
	DefaultDurations map[string]int `json:"default_durations"`
}

// toRules merges the override onto the standard defaults. Each omitted
// field falls back independently, matching the original request contract.
func (d *rulesDTO) toRules() (*model.Rules, error) {
	if d == nil {
		return nil, nil
	}
	r := model.DefaultRules()
	if d.WorkStart != "" {
		m, err := model.ParseClock(d.WorkStart)
		if err != nil {
			return nil, fmt.Errorf("rules.work_start: %w", err)
		}
		r.WorkStartMin = m
	}
	if d.WorkEnd != "" {
		m, err := model.ParseClock(d.WorkEnd)
		if err != nil {
			return nil, fmt.Errorf("rules.work_end: %w", err)
		}
		r.WorkEndMin = m
	}
	if d.MorningEnd != "" {
		m, err := model.ParseClock(d.MorningEnd)
		if err != nil {
			return nil, fmt.Errorf("rules.morning_end: %w", err)
		}
		r.MorningEndMin = m
	}
	if d.MaxPreassignDays > 0 {
		r.MaxPreassignDays = d.MaxPreassignDays
	}
	if d.BufferMin != nil {
		r.BufferMin = *d.BufferMin
	}
	if len(d.DefaultDurations) > 0 {
		r.DefaultDurations = d.DefaultDurations
	}
	return &r, nil
}

type runRequest struct {
	Jobs              []jobDTO        `json:"jobs"`
	Technicians       []technicianDTO `json:"technicians"`
	TechnicianStates  []stateDTO      `json:"technician_states"`
	TechnicianOffDays []offDayDTO     `json:"technician_offdays"`
	Rules             *rulesDTO       `json:"rules"`
}

// toEngineRequest converts a decoded run request. The roster fallback and
// geocoding stay with the caller.
func (r runRequest) toEngineRequest() (coreassign.Request, error) {
	if len(r.Jobs) == 0 {
		return coreassign.Request{}, errors.New("jobs are required")
	}
	jobs := make([]model.Job, 0, len(r.Jobs))
	for _, d := range r.Jobs {
		jobs = append(jobs, d.toJob())
	}
	techs, preSkipped := decodeTechnicians(r.Technicians)
	states := make([]model.TechnicianState, 0, len(r.TechnicianStates))
	for _, d := range r.TechnicianStates {
		st, err := d.toState()
		if err != nil {
			return coreassign.Request{}, err
		}
		states = append(states, st)
	}
	offs := make([]model.OffDay, 0, len(r.TechnicianOffDays))
	for _, d := range r.TechnicianOffDays {
		offs = append(offs, model.OffDay{TechnicianID: d.TechnicianID, Date: d.Date})
	}
	rules, err := r.Rules.toRules()
	if err != nil {
		return coreassign.Request{}, err
	}
	return coreassign.Request{
		Jobs:        jobs,
		Technicians: techs,
		States:      states,
		OffDays:     offs,
		PreSkipped:  preSkipped,
		Rules:       rules,
	}, nil
}

type singleRequest struct {
	jobDTO
	Technicians []technicianDTO `json:"technicians"`
	Rules       *rulesDTO       `json:"rules"`
}

type assignmentDTO struct {
	JobID           string   `json:"job_id"`
	Date            string   `json:"date"`
	ServiceType     string   `json:"service_type"`
	Lat             *float64 `json:"lat,omitempty"`
	Lng             *float64 `json:"lng,omitempty"`
	DurationMin     int      `json:"duration_min"`
	TechnicianID    string   `json:"technician_id,omitempty"`
	TechnicianName  string   `json:"technician_name,omitempty"`
	TravelMinutes   float64  `json:"travel_minutes"`
	StartTime       *string  `json:"start_time"`
	EndTime         *string  `json:"end_time"`
	TimeStatus      string   `json:"time_status,omitempty"`
	Status          string   `json:"status"`
	Reason          string   `json:"reason,omitempty"`
	Detail          string   `json:"detail,omitempty"`
	FallbackUsed    bool     `json:"fallback_used,omitempty"`
	FallbackDetails []string `json:"fallback_details,omitempty"`
}

func assignmentToDTO(a model.Assignment) assignmentDTO {
	dto := assignmentDTO{
		JobID:           a.JobID,
		Date:            a.Date,
		ServiceType:     a.ServiceType,
		DurationMin:     a.DurationMin,
		TechnicianID:    a.TechnicianID,
		TechnicianName:  a.TechnicianName,
		TravelMinutes:   round1(a.TravelMinutes),
		TimeStatus:      string(a.TimeStatus),
		Status:          string(a.Status),
		Reason:          string(a.Reason),
		Detail:          a.Detail,
		FallbackUsed:    a.FallbackUsed,
		FallbackDetails: a.FallbackDetails,
	}
	if a.Location.Coord != nil {
		lat, lng := a.Location.Coord.Lat, a.Location.Coord.Lng
		dto.Lat, dto.Lng = &lat, &lng
	}
	if a.Start != "" {
		s := a.Start
		dto.StartTime = &s
	}
	if a.End != "" {
		e := a.End
		dto.EndTime = &e
	}
	return dto
}

func assignmentsToDTO(as []model.Assignment) []assignmentDTO {
	out := make([]assignmentDTO, 0, len(as))
	for _, a := range as {
		out = append(out, assignmentToDTO(a))
	}
	return out
}

type skippedDTO struct {
	TechnicianID string `json:"technician_id"`
	Reason       string `json:"reason"`
	Detail       string `json:"detail,omitempty"`
}

func skippedToDTO(sk []model.SkippedTechnician) []skippedDTO {
	out := make([]skippedDTO, 0, len(sk))
	for _, s := range sk {
		out = append(out, skippedDTO{
			TechnicianID: s.TechnicianID,
			Reason:       string(s.Reason),
			Detail:       s.Detail,
		})
	}
	return out
}

type summaryDTO struct {
	TotalJobs int `json:"total_jobs"`
	Assigned  int `json:"assigned"`
	Failed    int `json:"failed"`
	Deferred  int `json:"deferred"`
}

type runResponse struct {
	Success            bool            `json:"success"`
	RunID              string          `json:"run_id"`
	AssignedJobs       []assignmentDTO `json:"assigned_jobs"`
	FailedJobs         []assignmentDTO `json:"failed_jobs"`
	DeferredJobs       []assignmentDTO `json:"deferred_jobs"`
	SkippedTechnicians []skippedDTO    `json:"skipped_technicians"`
	Summary            summaryDTO      `json:"summary"`
	Message            string          `json:"message"`
}

func newRunResponse(res coreassign.Result) runResponse {
	return runResponse{
		Success:            true,
		RunID:              res.RunID,
		AssignedJobs:       assignmentsToDTO(res.Assigned),
		FailedJobs:         assignmentsToDTO(res.Failed),
		DeferredJobs:       assignmentsToDTO(res.Deferred),
		SkippedTechnicians: skippedToDTO(res.Skipped),
		Summary: summaryDTO{
			TotalJobs: res.Summary.Total,
			Assigned:  res.Summary.Assigned,
			Failed:    res.Summary.Failed,
			Deferred:  res.Summary.Deferred,
		},
		Message: res.Message(),
	}
}

type singleResponse struct {
	Success        bool    `json:"success"`
	Matched        bool    `json:"matched"`
	TechnicianID   string  `json:"technician_id,omitempty"`
	TechnicianName string  `json:"technician_name,omitempty"`
	Phone          string  `json:"phone,omitempty"`
	Area           string  `json:"area,omitempty"`
	TravelMinutes  float64 `json:"travel_minutes,omitempty"`
	StartTime      string  `json:"start_time,omitempty"`
	EndTime        string  `json:"end_time,omitempty"`
	TimeStatus     string  `json:"time_status,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	Detail         string  `json:"detail,omitempty"`
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
