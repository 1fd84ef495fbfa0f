package model

// Status classifies the outcome of one job after a run.
type Status string

const (
	StatusAssigned Status = "assigned"
	StatusFailed   Status = "failed"
	StatusDeferred Status = "deferred"
)

// TimeStatus tells whether the assignment's clock times are binding.
// Unfixed jobs are packed with best-effort times internally, but their
// start is confirmed with the customer later, so the outward record
// carries the marker instead of a fabricated clock time.
type TimeStatus string

const (
	TimeFixed         TimeStatus = "fixed"
	TimeToBeConfirmed TimeStatus = "to_be_confirmed"
)

// Reason is a machine-readable code explaining why a job failed or was
// deferred, or why a technician was skipped.
type Reason string

const (
	// Job validation failures.
	ReasonFixedTimeMissing     Reason = "FIXED_TIME_MISSING"
	ReasonMissingRequiredField Reason = "MISSING_REQUIRED_FIELD"
	ReasonLocationUnresolved   Reason = "LOCATION_UNRESOLVED"

	// Placement failures.
	ReasonServiceTypeMismatch   Reason = "SERVICE_TYPE_MISMATCH"
	ReasonNoTechnicianAvailable Reason = "NO_TECHNICIAN_AVAILABLE"
	ReasonTimeConflict          Reason = "TIME_CONFLICT"
	ReasonOvertimeNotAllowed    Reason = "OVERTIME_NOT_ALLOWED"
	ReasonMaxPreassignDays      Reason = "MAX_PREASSIGN_DAYS_EXCEEDED"

	// Technician screening.
	ReasonMissingTechnicianField       Reason = "MISSING_TECHNICIAN_FIELD"
	ReasonTechnicianLocationUnresolved Reason = "TECHNICIAN_LOCATION_UNRESOLVED"
)

// Assignment is the outcome record for one job. Every input job produces
// exactly one, regardless of bucket.
type Assignment struct {
	JobID       string
	Date        string
	ServiceType string
	DurationMin int
	Location    Location

	TechnicianID   string
	TechnicianName string
	TravelMinutes  float64
	Start          string // HH:MM, empty when TimeStatus is to_be_confirmed
	End            string
	TimeStatus     TimeStatus

	Status Status
	Reason Reason
	Detail string

	FallbackUsed    bool
	FallbackDetails []string
}

// Summary holds the aggregate counts of one run.
type Summary struct {
	Total    int
	Assigned int
	Failed   int
	Deferred int
}
