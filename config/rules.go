package config

import (
	"fmt"

	"github.com/cleanbear/dispatch/core/model"
)

// RulesConfig defines the assignment rules in wire-friendly form. Work hours
// use HH:MM strings; Rules() resolves them to minutes of the day.
type RulesConfig struct {
	// WorkStart is the start of the working day, HH:MM.
	WorkStart string `json:"work_start"`
	// WorkEnd is the end of the regular working day, HH:MM.
	WorkEnd string `json:"work_end"`
	// MorningEnd is the boundary between morning and afternoon slots, HH:MM.
	MorningEnd string `json:"morning_end"`
	// MaxPreassignDays limits how many distinct working days a technician
	// may hold in one run.
	MaxPreassignDays int `json:"max_preassign_days"`
	// BufferMin is the travel/setup buffer applied around every job.
	BufferMin int `json:"buffer_min"`
	// DefaultDurations maps a service type to its fallback duration in
	// minutes, used when a job omits duration_min.
	DefaultDurations map[string]int `json:"default_durations"`
}

// SetDefaults applies sane defaults.
func (c *RulesConfig) SetDefaults() {
	def := model.DefaultRules()
	if c.WorkStart == "" {
		c.WorkStart = model.FormatClock(def.WorkStartMin)
	}
	if c.WorkEnd == "" {
		c.WorkEnd = model.FormatClock(def.WorkEndMin)
	}
	if c.MorningEnd == "" {
		c.MorningEnd = model.FormatClock(def.MorningEndMin)
	}
	if c.MaxPreassignDays == 0 {
		c.MaxPreassignDays = def.MaxPreassignDays
	}
	if c.BufferMin == 0 {
		c.BufferMin = def.BufferMin
	}
	if c.DefaultDurations == nil {
		c.DefaultDurations = def.DefaultDurations
	}
}

// Validate checks the section by resolving it.
func (c RulesConfig) Validate() error {
	_, err := c.Rules()
	return err
}

// Rules resolves the section into engine rules.
func (c RulesConfig) Rules() (model.Rules, error) {
	start, err := model.ParseClock(c.WorkStart)
	if err != nil {
		return model.Rules{}, fmt.Errorf("work_start: %w", err)
	}
	end, err := model.ParseClock(c.WorkEnd)
	if err != nil {
		return model.Rules{}, fmt.Errorf("work_end: %w", err)
	}
	morning, err := model.ParseClock(c.MorningEnd)
	if err != nil {
		return model.Rules{}, fmt.Errorf("morning_end: %w", err)
	}
	r := model.Rules{
		WorkStartMin:     start,
		WorkEndMin:       end,
		MorningEndMin:    morning,
		MaxPreassignDays: c.MaxPreassignDays,
		BufferMin:        c.BufferMin,
		DefaultDurations: c.DefaultDurations,
	}
	if err := r.Validate(); err != nil {
		return model.Rules{}, err
	}
	return r, nil
}
