package model

import "fmt"

// Default scheduling parameters, matching field operations practice.
const (
	DefaultWorkStartMin     = 9 * 60
	DefaultWorkEndMin       = 18 * 60
	DefaultMorningEndMin    = 12 * 60
	DefaultMaxPreassignDays = 3
	DefaultBufferMin        = 30
)

// Rules govern how the engine packs jobs into technician days.
type Rules struct {
	WorkStartMin     int // workday start, minutes from midnight
	WorkEndMin       int // workday end, minutes from midnight
	MorningEndMin    int // boundary between MORNING and AFTERNOON windows
	MaxPreassignDays int // distinct working days one technician may hold
	BufferMin        int // required gap between consecutive jobs, minutes

	// DefaultDurations supplies a per-service fallback when a job arrives
	// without a duration.
	DefaultDurations map[string]int
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		WorkStartMin:     DefaultWorkStartMin,
		WorkEndMin:       DefaultWorkEndMin,
		MorningEndMin:    DefaultMorningEndMin,
		MaxPreassignDays: DefaultMaxPreassignDays,
		BufferMin:        DefaultBufferMin,
		DefaultDurations: map[string]int{
			"입주청소":  180,
			"이사청소":  180,
			"에어컨청소": 120,
			"청소청소":  150,
		},
	}
}

// ApplyDefaults fills zero-valued fields from the standard rule set.
// BufferMin is left alone: zero is a legal buffer.
func (r *Rules) ApplyDefaults() {
	def := DefaultRules()
	if r.WorkStartMin == 0 && r.WorkEndMin == 0 {
		r.WorkStartMin = def.WorkStartMin
		r.WorkEndMin = def.WorkEndMin
	}
	if r.MorningEndMin == 0 {
		r.MorningEndMin = def.MorningEndMin
	}
	if r.MaxPreassignDays == 0 {
		r.MaxPreassignDays = def.MaxPreassignDays
	}
	if r.DefaultDurations == nil {
		r.DefaultDurations = def.DefaultDurations
	}
}

// Validate checks internal consistency.
func (r Rules) Validate() error {
	if r.WorkStartMin < 0 || r.WorkEndMin > 24*60 {
		return fmt.Errorf("work hours out of range: %d..%d", r.WorkStartMin, r.WorkEndMin)
	}
	if r.WorkStartMin >= r.WorkEndMin {
		return fmt.Errorf("work start %s not before work end %s",
			FormatClock(r.WorkStartMin), FormatClock(r.WorkEndMin))
	}
	if r.MorningEndMin < r.WorkStartMin || r.MorningEndMin > r.WorkEndMin {
		return fmt.Errorf("morning end %s outside work hours", FormatClock(r.MorningEndMin))
	}
	if r.MaxPreassignDays < 1 {
		return fmt.Errorf("max preassign days must be positive, got %d", r.MaxPreassignDays)
	}
	if r.BufferMin < 0 {
		return fmt.Errorf("buffer must not be negative, got %d", r.BufferMin)
	}
	return nil
}

// WindowStart returns the earliest start minute the slot hint allows.
// Window ends are advisory and not enforced.
func (r Rules) WindowStart(slot SlotType) int {
	if slot == SlotAfternoon {
		return r.MorningEndMin
	}
	return r.WorkStartMin
}
