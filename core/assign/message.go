package assign

import (
	"fmt"
	"strings"
)

// maxMessageDetails caps how many failed jobs the digest lists.
const maxMessageDetails = 5

// Message renders the operator-facing digest of a run: one summary line,
// then up to five failed jobs with their reasons, then deferred and
// skipped counts. The output is plain text suitable for chat channels.
func (r Result) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assigned %d of %d jobs", r.Summary.Assigned, r.Summary.Total)
	if r.Summary.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", r.Summary.Failed)
	}
	if r.Summary.Deferred > 0 {
		fmt.Fprintf(&b, ", %d deferred", r.Summary.Deferred)
	}
	b.WriteString(".")

	for i, a := range r.Failed {
		if i == maxMessageDetails {
			fmt.Fprintf(&b, "\nand %d more failed jobs", len(r.Failed)-maxMessageDetails)
			break
		}
		fmt.Fprintf(&b, "\njob %s (%s %s): %s", a.JobID, a.Date, a.ServiceType, a.Reason)
		if a.Detail != "" {
			fmt.Fprintf(&b, " - %s", a.Detail)
		}
	}
	if n := len(r.Deferred); n > 0 {
		ids := make([]string, 0, n)
		for _, a := range r.Deferred {
			ids = append(ids, a.JobID)
		}
		fmt.Fprintf(&b, "\nwaiting for a free day: %s", strings.Join(ids, ", "))
	}
	if n := len(r.Skipped); n > 0 {
		fmt.Fprintf(&b, "\n%d technician record(s) skipped", n)
	}
	return b.String()
}
