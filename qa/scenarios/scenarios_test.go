package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cleanbear/dispatch/core/assign"
	"github.com/cleanbear/dispatch/core/model"
)

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files found")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	tmp := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(tmp, []byte(":"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmp); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestBuildRequestRejectsBadClock(t *testing.T) {
	sc := &Scenario{
		Committed: []CommittedDef{{TechnicianID: "T1", Date: "2026-03-02", Start: "25:00", End: "26:00"}},
	}
	if _, err := BuildRequest(sc); err == nil {
		t.Fatal("expected clock parse error")
	}
}

func TestFindAssignmentSearchesAllBuckets(t *testing.T) {
	res := assign.Result{
		Assigned: []model.Assignment{{JobID: "A"}},
		Failed:   []model.Assignment{{JobID: "B"}},
		Deferred: []model.Assignment{{JobID: "C"}},
	}
	for _, id := range []string{"A", "B", "C"} {
		if _, ok := findAssignment(res, id); !ok {
			t.Errorf("job %s not found", id)
		}
	}
	if _, ok := findAssignment(res, "missing"); ok {
		t.Error("found a job that does not exist")
	}
}
