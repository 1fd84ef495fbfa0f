package model

import "testing"

func TestRulesApplyDefaults(t *testing.T) {
	var r Rules
	r.ApplyDefaults()

	if r.WorkStartMin != 540 || r.WorkEndMin != 1080 {
		t.Fatalf("expected 09:00..18:00 got %d..%d", r.WorkStartMin, r.WorkEndMin)
	}
	if r.MaxPreassignDays != 3 {
		t.Fatalf("expected 3 days got %d", r.MaxPreassignDays)
	}
	if r.DefaultDurations["에어컨청소"] != 120 {
		t.Fatalf("expected default duration map to be filled")
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestRulesApplyDefaultsKeepsExplicitValues(t *testing.T) {
	r := Rules{WorkStartMin: 480, WorkEndMin: 1200, BufferMin: 0}
	r.ApplyDefaults()
	if r.WorkStartMin != 480 || r.WorkEndMin != 1200 {
		t.Fatalf("explicit work hours overwritten: %d..%d", r.WorkStartMin, r.WorkEndMin)
	}
	if r.BufferMin != 0 {
		t.Fatalf("zero buffer must stay zero, got %d", r.BufferMin)
	}
}

func TestRulesValidate(t *testing.T) {
	checks := []struct {
		name  string
		rules Rules
	}{
		{"start after end", Rules{WorkStartMin: 1080, WorkEndMin: 540, MorningEndMin: 720, MaxPreassignDays: 3}},
		{"morning end outside hours", Rules{WorkStartMin: 540, WorkEndMin: 1080, MorningEndMin: 300, MaxPreassignDays: 3}},
		{"zero days", Rules{WorkStartMin: 540, WorkEndMin: 1080, MorningEndMin: 720}},
		{"negative buffer", Rules{WorkStartMin: 540, WorkEndMin: 1080, MorningEndMin: 720, MaxPreassignDays: 3, BufferMin: -1}},
	}
	for _, c := range checks {
		if err := c.rules.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", c.name)
		}
	}
}

func TestWindowStart(t *testing.T) {
	r := DefaultRules()
	if got := r.WindowStart(SlotMorning); got != r.WorkStartMin {
		t.Fatalf("morning window should start at work start, got %d", got)
	}
	if got := r.WindowStart(SlotAfternoon); got != r.MorningEndMin {
		t.Fatalf("afternoon window should start at morning end, got %d", got)
	}
	if got := r.WindowStart(SlotAllDay); got != r.WorkStartMin {
		t.Fatalf("allday window should start at work start, got %d", got)
	}
}

func TestParseSlotType(t *testing.T) {
	if s, err := ParseSlotType(""); err != nil || s != SlotAllDay {
		t.Fatalf("empty slot should default to ALLDAY, got %v %v", s, err)
	}
	if s, err := ParseSlotType("morning"); err != nil || s != SlotMorning {
		t.Fatalf("expected MORNING got %v %v", s, err)
	}
	if _, err := ParseSlotType("NIGHT"); err == nil {
		t.Fatalf("expected error for unknown slot")
	}
}
