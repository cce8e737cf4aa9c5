package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/trxcc/universal-offline-bbo/internal/score"
	"github.com/trxcc/universal-offline-bbo/internal/store"
)

func TestRunGA(t *testing.T) {
	cfg := store.RunConfig{
		TaskName:     "catmatch",
		Dim:          8,
		Algorithm:    "ga",
		Generations:  40,
		PopSize:      20,
		NumSolutions: 6,
		Seed:         7,
	}

	var generations int
	result, err := Run(context.Background(), cfg, "run-ga", func(gen int, best float64) {
		generations = gen
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.RunID != "run-ga" {
		t.Errorf("RunID = %q, want %q", result.RunID, "run-ga")
	}
	if len(result.Solutions) != 6 {
		t.Errorf("Got %d solutions, want 6", len(result.Solutions))
	}
	if generations != 40 {
		t.Errorf("Progress reported %d generations, want 40", generations)
	}

	for _, key := range []string{score.Key100th, score.Key75th, score.Key50th, score.Key25th} {
		if _, ok := result.Report[key]; !ok {
			t.Errorf("Report missing key %q", key)
		}
		if _, ok := result.Report[score.NormalizedPrefix+key]; !ok {
			t.Errorf("Report missing key %q", score.NormalizedPrefix+key)
		}
	}

	// The match-fraction objective is non-negative, and the searched
	// best can only improve on the dataset.
	if result.BestScore <= 0 {
		t.Errorf("BestScore = %g, want positive", result.BestScore)
	}
	if result.Stability == nil {
		t.Error("Stability not computed for a stability-enabled task")
	} else if *result.Stability < 0 {
		t.Errorf("Stability = %g, want non-negative", *result.Stability)
	}
	if result.FinishedAt.Before(result.StartedAt) {
		t.Error("FinishedAt precedes StartedAt")
	}
	if err := result.Validate(); err != nil {
		t.Errorf("Result fails validation: %v", err)
	}
}

func TestRunMayflyScoresSolutions(t *testing.T) {
	cfg := store.RunConfig{
		TaskName:     "sphere",
		Dim:          3,
		Algorithm:    "mayfly",
		Generations:  20,
		PopSize:      10,
		NumSolutions: 1,
		Seed:         9,
	}

	result, err := Run(context.Background(), cfg, "run-mf", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Solutions) != 1 {
		t.Fatalf("Got %d solutions, want 1", len(result.Solutions))
	}
	// Mayfly reports no per-generation progress; the best score comes
	// from scoring the final solution.
	if result.BestScore != result.Report[score.Key100th] {
		t.Errorf("BestScore = %g, want the evaluated best %g",
			result.BestScore, result.Report[score.Key100th])
	}
	if result.Stability != nil {
		t.Error("Stability set for a searcher without population history")
	}
}

func TestRunUnknownAlgorithm(t *testing.T) {
	cfg := store.RunConfig{
		TaskName:     "sphere",
		Dim:          2,
		Algorithm:    "simulated-annealing",
		Generations:  5,
		NumSolutions: 1,
		Seed:         1,
	}
	if _, err := Run(context.Background(), cfg, "run-x", nil); err == nil {
		t.Error("Expected error for unknown algorithm")
	}
}

func TestRunUnknownTask(t *testing.T) {
	cfg := store.RunConfig{
		TaskName:     "levy",
		Dim:          2,
		Algorithm:    "ga",
		Generations:  5,
		NumSolutions: 1,
		Seed:         1,
	}
	if _, err := Run(context.Background(), cfg, "run-x", nil); err == nil {
		t.Error("Expected error for unknown benchmark family")
	}
}

func TestBuildTaskFromDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	x := [][]float64{{0.5, 0.5}, {1, -1}, {-2, 2}}
	y := []float64{-3, -7, -12}
	if err := store.SaveDataset(path, x, y); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}
	if err := os.WriteFile(path+".metadata", []byte("custom sphere variant"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tk, err := BuildTask(store.RunConfig{
		TaskName:    "sphere",
		Dim:         2,
		DatasetPath: path,
		Seed:        3,
	})
	if err != nil {
		t.Fatalf("BuildTask failed: %v", err)
	}

	gotX, gotY := tk.Data()
	if len(gotX) != 3 || gotY[2] != -12 {
		t.Errorf("Task data = %v, %v", gotX, gotY)
	}
	if tk.Metadata() != "custom sphere variant" {
		t.Errorf("Metadata = %q, want the sidecar description", tk.Metadata())
	}
}

func TestBuildTaskMissingDataset(t *testing.T) {
	_, err := BuildTask(store.RunConfig{
		TaskName:    "sphere",
		Dim:         2,
		DatasetPath: filepath.Join(t.TempDir(), "absent.json"),
	})
	if err == nil {
		t.Error("Expected error for missing dataset file")
	}
}
