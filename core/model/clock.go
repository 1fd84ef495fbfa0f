package model

import "fmt"

// ParseClock converts a zero-padded 24-hour "HH:MM" string to minutes
// from midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid clock %q: out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes from midnight as "HH:MM". Values past
// midnight are clamped into the same day.
func FormatClock(min int) string {
	if min < 0 {
		min = 0
	}
	if min > 24*60 {
		min = 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// Interval is a half-open [Start, End) range in minutes from midnight.
type Interval struct {
	Start int
	End   int
}

// ConflictsWith reports whether two intervals on the same day collide once
// each is inflated by the buffer on both sides. The buffer models travel
// and setup slack between consecutive jobs.
func (iv Interval) ConflictsWith(other Interval, bufferMin int) bool {
	return iv.Start-bufferMin < other.End && other.Start < iv.End+bufferMin
}
