package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DatasetRecord is one offline design/score pair as it appears on
// disk: a JSON array of these records makes up a dataset file.
type DatasetRecord struct {
	X []float64 `json:"x"`
	Y float64   `json:"y"`
}

// LoadDataset reads an offline dataset from a JSON file and returns
// the design matrix and score vector. Every record must share the
// dimensionality of the first.
func LoadDataset(path string) ([][]float64, []float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("dataset file not found: %s", path)
		}
		return nil, nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var records []DatasetRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, fmt.Errorf("failed to parse dataset file: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("dataset %s is empty", path)
	}

	dim := len(records[0].X)
	if dim == 0 {
		return nil, nil, fmt.Errorf("dataset %s: first record has no design values", path)
	}

	x := make([][]float64, len(records))
	y := make([]float64, len(records))
	for i, rec := range records {
		if len(rec.X) != dim {
			return nil, nil, fmt.Errorf("dataset %s: record %d has %d dims, want %d", path, i, len(rec.X), dim)
		}
		x[i] = rec.X
		y[i] = rec.Y
	}

	return x, y, nil
}

// SaveDataset writes a dataset as a JSON array of records, using the
// same temp file + rename pattern as run results.
func SaveDataset(path string, x [][]float64, y []float64) error {
	if len(x) != len(y) {
		return fmt.Errorf("dataset has %d designs but %d scores", len(x), len(y))
	}

	records := make([]DatasetRecord, len(x))
	for i := range x {
		records[i] = DatasetRecord{X: x[i], Y: y[i]}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize dataset: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp dataset file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename dataset file: %w", err)
	}
	return nil
}

// LoadMetadata reads the optional task description stored next to a
// dataset file as <path>.metadata. Returns "" when the sibling file
// does not exist.
func LoadMetadata(datasetPath string) (string, error) {
	data, err := os.ReadFile(datasetPath + ".metadata")
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read metadata file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
