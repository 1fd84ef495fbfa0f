// Package scenarios replays YAML-defined assignment cases against a real
// engine. Operators add regression cases as fixture files, no Go required.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cleanbear/dispatch/core/model"
)

type JobDef struct {
	ID          string  `yaml:"id"`
	ServiceType string  `yaml:"service_type"`
	Lat         float64 `yaml:"lat"`
	Lng         float64 `yaml:"lng"`
	Date        string  `yaml:"date"`
	DurationMin int     `yaml:"duration_min"`
	FixedStart  string  `yaml:"fixed_start,omitempty"`
	Slot        string  `yaml:"slot,omitempty"`
}

// ToModel converts the definition. A fixed_start value makes the job
// fixed-time.
func (j JobDef) ToModel() model.Job {
	return model.Job{
		ID:          j.ID,
		ServiceType: j.ServiceType,
		Location:    model.At(j.Lat, j.Lng),
		Date:        j.Date,
		DurationMin: j.DurationMin,
		TimeFixed:   j.FixedStart != "",
		FixedStart:  j.FixedStart,
		SlotType:    model.SlotType(j.Slot),
	}
}

type TechnicianDef struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name,omitempty"`
	Lat          float64  `yaml:"lat"`
	Lng          float64  `yaml:"lng"`
	ServiceTypes []string `yaml:"service_types"`
	Overtime     bool     `yaml:"overtime,omitempty"`
	Inactive     bool     `yaml:"inactive,omitempty"`
}

func (t TechnicianDef) ToModel() model.Technician {
	return model.Technician{
		ID:              t.ID,
		Name:            t.Name,
		Home:            model.At(t.Lat, t.Lng),
		ServiceTypes:    t.ServiceTypes,
		OvertimeAllowed: t.Overtime,
		Inactive:        t.Inactive,
	}
}

// CommittedDef books a busy interval on a technician's date before the run.
type CommittedDef struct {
	TechnicianID string `yaml:"technician_id"`
	Date         string `yaml:"date"`
	Start        string `yaml:"start"`
	End          string `yaml:"end"`
}

func (c CommittedDef) ToInterval() (model.Interval, error) {
	start, err := model.ParseClock(c.Start)
	if err != nil {
		return model.Interval{}, err
	}
	end, err := model.ParseClock(c.End)
	if err != nil {
		return model.Interval{}, err
	}
	return model.Interval{Start: start, End: end}, nil
}

type OffDayDef struct {
	TechnicianID string `yaml:"technician_id"`
	Date         string `yaml:"date"`
}

// RulesDef overrides the engine defaults for one scenario. Work hours left
// out keep the defaults; the buffer is taken as written, zero included.
type RulesDef struct {
	WorkStart        string `yaml:"work_start,omitempty"`
	WorkEnd          string `yaml:"work_end,omitempty"`
	BufferMin        int    `yaml:"buffer_min"`
	MaxPreassignDays int    `yaml:"max_preassign_days,omitempty"`
}

func (r RulesDef) ToModel() (*model.Rules, error) {
	rules := &model.Rules{
		BufferMin:        r.BufferMin,
		MaxPreassignDays: r.MaxPreassignDays,
	}
	if r.WorkStart != "" {
		m, err := model.ParseClock(r.WorkStart)
		if err != nil {
			return nil, fmt.Errorf("work_start: %w", err)
		}
		rules.WorkStartMin = m
	}
	if r.WorkEnd != "" {
		m, err := model.ParseClock(r.WorkEnd)
		if err != nil {
			return nil, fmt.Errorf("work_end: %w", err)
		}
		rules.WorkEndMin = m
	}
	return rules, nil
}

// JobExpect pins the outcome of one job. Empty fields are not checked.
type JobExpect struct {
	Status       string `yaml:"status,omitempty"`
	TechnicianID string `yaml:"technician_id,omitempty"`
	Reason       string `yaml:"reason,omitempty"`
	Start        string `yaml:"start,omitempty"`
	TimeStatus   string `yaml:"time_status,omitempty"`
}

type Expected struct {
	Assigned int                  `yaml:"assigned"`
	Failed   int                  `yaml:"failed"`
	Deferred int                  `yaml:"deferred"`
	Jobs     map[string]JobExpect `yaml:"jobs,omitempty"`
}

type Scenario struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Rules       *RulesDef       `yaml:"rules,omitempty"`
	Technicians []TechnicianDef `yaml:"technicians"`
	Jobs        []JobDef        `yaml:"jobs"`
	Committed   []CommittedDef  `yaml:"committed,omitempty"`
	OffDays     []OffDayDef     `yaml:"off_days,omitempty"`
	Expected    Expected        `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
