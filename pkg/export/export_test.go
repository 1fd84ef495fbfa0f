package export

import (
	"bytes"
	"strings"
	"testing"

	coreassign "github.com/cleanbear/dispatch/core/assign"
	"github.com/cleanbear/dispatch/core/model"
)

func TestWriteCSV(t *testing.T) {
	res := coreassign.Result{
		Assigned: []model.Assignment{{
			JobID: "J1", Date: "2026-03-02", ServiceType: "입주청소",
			Status: model.StatusAssigned, TechnicianID: "T1", TechnicianName: "기사 하나",
			TravelMinutes: 12.34, Start: "10:00", End: "12:00", TimeStatus: model.TimeFixed,
		}},
		Failed: []model.Assignment{{
			JobID: "J2", Date: "2026-03-02", ServiceType: "이사청소",
			Status: model.StatusFailed, Reason: model.ReasonTimeConflict,
		}},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, res); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), buf.String())
	}
	if got, want := lines[1], "J1,2026-03-02,입주청소,assigned,T1,기사 하나,12.3,10:00,12:00,fixed,"; got != want {
		t.Errorf("assigned row\n got %q\nwant %q", got, want)
	}
	if got, want := lines[2], "J2,2026-03-02,이사청소,failed,,,,,,,TIME_CONFLICT"; got != want {
		t.Errorf("failed row\n got %q\nwant %q", got, want)
	}
}

func TestWriteCSVEmptyRun(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, coreassign.Result{}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != strings.Join(csvHeader, ",") {
		t.Errorf("empty run output = %q", got)
	}
}
