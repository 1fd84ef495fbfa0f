package model

// Technician is a field worker eligible to receive jobs.
type Technician struct {
	ID              string
	Name            string // informational, echoed into assignments
	Phone           string
	Home            Location // start-of-day position, coordinate required
	ServiceTypes    []string // service labels this technician can perform
	OvertimeAllowed bool     // may a job run past the end of the workday
	Inactive        bool     // inactive technicians never receive jobs
}

// HasService reports whether the technician can perform the given service.
func (t Technician) HasService(service string) bool {
	for _, s := range t.ServiceTypes {
		if s == service {
			return true
		}
	}
	return false
}

// Validate reports whether the record is structurally complete enough to
// schedule. It returns a skip entry describing the first problem, or nil
// for a complete record.
func (t Technician) Validate() *SkippedTechnician {
	switch {
	case t.ID == "":
		return &SkippedTechnician{Reason: ReasonMissingTechnicianField, Detail: "technician_id"}
	case len(t.ServiceTypes) == 0:
		return &SkippedTechnician{TechnicianID: t.ID, Reason: ReasonMissingTechnicianField, Detail: "service_types"}
	case !t.Home.HasCoord() && t.Home.Address != "":
		return &SkippedTechnician{TechnicianID: t.ID, Reason: ReasonTechnicianLocationUnresolved, Detail: t.Home.Address}
	case !t.Home.HasCoord():
		return &SkippedTechnician{TechnicianID: t.ID, Reason: ReasonMissingTechnicianField, Detail: "home location"}
	}
	return nil
}

// TechnicianState seeds the per-run schedule of one technician. It exists
// only for the duration of a run and is never persisted.
type TechnicianState struct {
	TechnicianID string
	LastLocation *Coordinate           // defaults to the technician's home
	Committed    map[string][]Interval // date -> busy intervals, sorted by start
}

// OffDay marks a date on which a technician must not receive jobs.
type OffDay struct {
	TechnicianID string
	Date         string // YYYY-MM-DD
}

// SkippedTechnician reports a roster entry that could not participate in a
// run because its record is structurally incomplete.
type SkippedTechnician struct {
	TechnicianID string
	Reason       Reason
	Detail       string
}
