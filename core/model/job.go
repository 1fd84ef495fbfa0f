package model

import (
	"fmt"
	"strings"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Key returns a stable string form rounded to five decimal places,
// roughly one meter of precision. Used as a cache key component.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lng)
}

// Location is where a job takes place or where a technician is based.
// Input may carry a street address, a coordinate pair, or both. Scheduling
// works on coordinates only, so address-only locations are geocoded before
// they reach the engine.
type Location struct {
	Address string
	Coord   *Coordinate
}

// HasCoord reports whether the location has been resolved to a coordinate.
func (l Location) HasCoord() bool { return l.Coord != nil }

// At builds a resolved location from raw coordinates.
func At(lat, lng float64) Location {
	return Location{Coord: &Coordinate{Lat: lat, Lng: lng}}
}

// SlotType is an operator hint for when an unfixed-time job should start.
type SlotType string

const (
	SlotMorning   SlotType = "MORNING"
	SlotAfternoon SlotType = "AFTERNOON"
	SlotAllDay    SlotType = "ALLDAY"
)

// ParseSlotType normalizes a raw slot label. Empty input means ALLDAY.
func ParseSlotType(raw string) (SlotType, error) {
	switch SlotType(strings.ToUpper(strings.TrimSpace(raw))) {
	case "":
		return SlotAllDay, nil
	case SlotMorning:
		return SlotMorning, nil
	case SlotAfternoon:
		return SlotAfternoon, nil
	case SlotAllDay:
		return SlotAllDay, nil
	default:
		return "", fmt.Errorf("unknown slot type %q", raw)
	}
}

// Job is one unit of field work to be placed on a technician's day.
type Job struct {
	ID          string
	ServiceType string
	Location    Location
	Date        string // YYYY-MM-DD
	DurationMin int
	TimeFixed   bool
	FixedStart  string   // HH:MM, meaningful only when TimeFixed
	SlotType    SlotType // start-of-day hint for unfixed jobs

	// Fallback bookkeeping, populated during validation when defaults
	// had to fill missing fields.
	FallbackUsed    bool
	FallbackDetails []string
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD date string.
// The engine relies on this shape so dates order chronologically under
// plain string comparison.
func ValidDate(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i, r := range s {
		if i == 4 || i == 7 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	month := (s[5]-'0')*10 + (s[6] - '0')
	day := (s[8]-'0')*10 + (s[9] - '0')
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}
