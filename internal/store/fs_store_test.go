package store

import (
	"errors"
	"testing"
	"time"
)

func testResult(runID string) *RunResult {
	stability := 0.12
	return &RunResult{
		RunID:     runID,
		Solutions: [][]float64{{1, 2, 3}, {4, 5, 6}},
		Report: map[string]float64{
			"score/100th": -1.5,
			"score/50th":  -4.0,
		},
		BestScore:  -1.5,
		Stability:  &stability,
		StartedAt:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC),
		Config: RunConfig{
			TaskName:     "sphere",
			Dim:          3,
			Algorithm:    "ga",
			Generations:  100,
			PopSize:      30,
			NumSolutions: 2,
			Seed:         42,
		},
	}
}

func TestFSStoreRoundTrip(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	want := testResult("run-1")
	if err := fs.SaveResult("run-1", want); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	got, err := fs.LoadResult("run-1")
	if err != nil {
		t.Fatalf("LoadResult failed: %v", err)
	}
	if got.RunID != want.RunID {
		t.Errorf("RunID = %q, want %q", got.RunID, want.RunID)
	}
	if len(got.Solutions) != 2 || got.Solutions[1][2] != 6 {
		t.Errorf("Solutions = %v", got.Solutions)
	}
	if got.Report["score/100th"] != -1.5 {
		t.Errorf("Report = %v", got.Report)
	}
	if got.Stability == nil || *got.Stability != 0.12 {
		t.Errorf("Stability = %v, want 0.12", got.Stability)
	}
	if !got.FinishedAt.Equal(want.FinishedAt) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, want.FinishedAt)
	}
	if got.Config.TaskName != "sphere" || got.Config.Seed != 42 {
		t.Errorf("Config = %+v", got.Config)
	}
}

func TestFSStoreLoadMissing(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	_, err = fs.LoadResult("nope")
	if err == nil {
		t.Fatal("Expected error for missing run")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	var nfe *NotFoundError
	if !errors.As(err, &nfe) || nfe.RunID != "nope" {
		t.Errorf("err = %v, want NotFoundError with run ID", err)
	}
}

func TestFSStoreListAndDelete(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := fs.SaveResult(id, testResult(id)); err != nil {
			t.Fatalf("SaveResult(%q) failed: %v", id, err)
		}
	}

	infos, err := fs.ListResults()
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Got %d results, want 3", len(infos))
	}
	for _, info := range infos {
		if info.TaskName != "sphere" || info.Solutions != 2 {
			t.Errorf("Unexpected info %+v", info)
		}
	}

	if err := fs.DeleteResult("b"); err != nil {
		t.Fatalf("DeleteResult failed: %v", err)
	}
	if _, err := fs.LoadResult("b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Loading deleted run: err = %v, want ErrNotFound", err)
	}
	infos, err = fs.ListResults()
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(infos) != 2 {
		t.Errorf("Got %d results after delete, want 2", len(infos))
	}
}

func TestFSStoreRejectsInvalidResult(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	bad := testResult("run-1")
	bad.Solutions = nil
	if err := fs.SaveResult("run-1", bad); err == nil {
		t.Error("Expected validation error for empty solutions")
	}
}

func TestRunResultValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RunResult)
	}{
		{"empty run ID", func(r *RunResult) { r.RunID = "" }},
		{"no solutions", func(r *RunResult) { r.Solutions = nil }},
		{"ragged solutions", func(r *RunResult) { r.Solutions = [][]float64{{1, 2}, {3}} }},
		{"missing task name", func(r *RunResult) { r.Config.TaskName = "" }},
		{"missing algorithm", func(r *RunResult) { r.Config.Algorithm = "" }},
		{"zero finish time", func(r *RunResult) { r.FinishedAt = time.Time{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := testResult("run-1")
			tc.mutate(r)
			if err := r.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	if err := testResult("run-1").Validate(); err != nil {
		t.Errorf("Valid result rejected: %v", err)
	}
}
