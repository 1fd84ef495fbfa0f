package assign

import (
	"context"
	"fmt"

	"github.com/cleanbear/dispatch/core/model"
)

// NoTechnicianError explains why a single-job selection found nobody.
type NoTechnicianError struct {
	Reason model.Reason
	Detail string
}

func (e *NoTechnicianError) Error() string {
	return fmt.Sprintf("no technician: %s (%s)", e.Reason, e.Detail)
}

// Selection is the answer to a single-job request.
type Selection struct {
	TechnicianID   string
	TechnicianName string
	Phone          string
	Area           string
	TravelMinutes  float64
	Start          string
	End            string
	TimeStatus     model.TimeStatus
}

// SelectOne projects one placement iteration onto a single job: same
// eligibility, travel scoring, schedule fit and tie-break rules as a run,
// but against empty schedules and without committing anything. Calls are
// independent; no state is carried between them.
func (e *Engine) SelectOne(ctx context.Context, job model.Job, techs []model.Technician, rulesOverride *model.Rules) (Selection, error) {
	rules := e.runRules(rulesOverride)

	if reason, detail := validateJob(&job, rules); reason != "" {
		return Selection{}, &NoTechnicianError{Reason: reason, Detail: detail}
	}

	states, _ := screenTechnicians(techs, nil, e.log.Warnf)
	a := e.place(ctx, job, states, nil, rules)
	if a.Status != model.StatusAssigned {
		return Selection{}, &NoTechnicianError{Reason: a.Reason, Detail: a.Detail}
	}

	var tech model.Technician
	for _, st := range states {
		if st.tech.ID == a.TechnicianID {
			tech = st.tech
			break
		}
	}
	return Selection{
		TechnicianID:   a.TechnicianID,
		TechnicianName: tech.Name,
		Phone:          tech.Phone,
		Area:           tech.Home.Address,
		TravelMinutes:  a.TravelMinutes,
		Start:          a.Start,
		End:            a.End,
		TimeStatus:     a.TimeStatus,
	}, nil
}
