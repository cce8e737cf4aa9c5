package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDatasetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sphere.json")
	x := [][]float64{{1, 2}, {3, 4}, {-0.5, 0.25}}
	y := []float64{-5, -25, -0.3125}

	if err := SaveDataset(path, x, y); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}

	gotX, gotY, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if len(gotX) != 3 || len(gotY) != 3 {
		t.Fatalf("Got %d designs and %d scores, want 3 each", len(gotX), len(gotY))
	}
	for i := range x {
		for d := range x[i] {
			if gotX[i][d] != x[i][d] {
				t.Errorf("x[%d][%d] = %g, want %g", i, d, gotX[i][d], x[i][d])
			}
		}
		if gotY[i] != y[i] {
			t.Errorf("y[%d] = %g, want %g", i, gotY[i], y[i])
		}
	}
}

func TestSaveDatasetLengthMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := SaveDataset(path, [][]float64{{1}}, []float64{1, 2}); err == nil {
		t.Error("Expected error for mismatched lengths")
	}
}

func TestLoadDatasetErrors(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := LoadDataset(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte("[]"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, _, err := LoadDataset(empty); err == nil {
		t.Error("Expected error for empty dataset")
	}

	ragged := filepath.Join(dir, "ragged.json")
	body := `[{"x": [1, 2], "y": 0}, {"x": [1], "y": 0}]`
	if err := os.WriteFile(ragged, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, _, err := LoadDataset(ragged); err == nil {
		t.Error("Expected error for inconsistent dimensions")
	}
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.json")

	got, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if got != "" {
		t.Errorf("Missing metadata file: got %q, want empty", got)
	}

	if err := os.WriteFile(path+".metadata", []byte("  sphere in 2 dimensions\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err = LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if got != "sphere in 2 dimensions" {
		t.Errorf("Metadata = %q, want trimmed description", got)
	}
}
