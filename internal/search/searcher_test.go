package search

import (
	"testing"

	"github.com/trxcc/universal-offline-bbo/internal/task"
)

// sphereTask builds a small continuous fixture; its objective doubles
// as a sanity-mode score function in these tests.
func sphereTask(t *testing.T, dim int, seed int64) *task.Task {
	t.Helper()
	tk, err := task.NewSphere(dim, seed)
	if err != nil {
		t.Fatalf("NewSphere failed: %v", err)
	}
	return tk
}

func datasetBest(t *testing.T, tk *task.Task) float64 {
	t.Helper()
	_, y := tk.Data()
	best := y[0]
	for _, v := range y[1:] {
		if v > best {
			best = v
		}
	}
	return best
}

func bestOf(t *testing.T, tk *task.Task, pop [][]float64) float64 {
	t.Helper()
	ys, err := tk.Score(pop)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	return ys[argMax(ys)]
}

func checkInBounds(t *testing.T, tk *task.Task, pop [][]float64) {
	t.Helper()
	lower, upper := tk.Bounds()
	for i, row := range pop {
		if len(row) != tk.Dim() {
			t.Fatalf("Design %d has %d dims, want %d", i, len(row), tk.Dim())
		}
		for d, v := range row {
			if v < lower[d] || v > upper[d] {
				t.Fatalf("Design [%d][%d] = %g outside [%g, %g]", i, d, v, lower[d], upper[d])
			}
		}
	}
}

func TestTopKDesigns(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{0.5, 2.0, 1.0, 3.0}

	topX, topY, err := TopKDesigns(x, y, 2)
	if err != nil {
		t.Fatalf("TopKDesigns failed: %v", err)
	}

	// Ascending score order: 2.0 then 3.0.
	if topY[0] != 2.0 || topY[1] != 3.0 {
		t.Errorf("Scores = %v, want [2 3]", topY)
	}
	if topX[0][0] != 2 || topX[1][0] != 4 {
		t.Errorf("Designs = %v, want [[2] [4]]", topX)
	}
}

func TestTopKDesignsTieStability(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}}
	y := []float64{1.0, 1.0, 1.0}

	topX, _, err := TopKDesigns(x, y, 2)
	if err != nil {
		t.Fatalf("TopKDesigns failed: %v", err)
	}

	// Stable sort keeps array order among ties; the last two rows win.
	if topX[0][0] != 2 || topX[1][0] != 3 {
		t.Errorf("Tied designs = %v, want [[2] [3]]", topX)
	}
}

func TestTopKDesignsClonesRows(t *testing.T) {
	x := [][]float64{{1, 1}, {2, 2}}
	y := []float64{0, 1}

	topX, _, err := TopKDesigns(x, y, 1)
	if err != nil {
		t.Fatalf("TopKDesigns failed: %v", err)
	}

	topX[0][0] = 99
	if x[1][0] != 2 {
		t.Error("TopKDesigns returned aliased rows")
	}
}

func TestTopKDesignsRange(t *testing.T) {
	x := [][]float64{{1}}
	y := []float64{0}

	if _, _, err := TopKDesigns(x, y, 0); err == nil {
		t.Error("Expected error for k=0")
	}
	if _, _, err := TopKDesigns(x, y, 2); err == nil {
		t.Error("Expected error for k > len(x)")
	}
	if _, _, err := TopKDesigns(x, []float64{0, 1}, 1); err == nil {
		t.Error("Expected error for mismatched lengths")
	}
}

func TestBestPerGeneration(t *testing.T) {
	history := [][][]float64{
		{{1}, {2}},
		{{3}, {4}},
	}
	fn := func(x [][]float64) ([]float64, error) {
		out := make([]float64, len(x))
		for i, row := range x {
			out[i] = row[0]
		}
		return out, nil
	}

	bests, err := BestPerGeneration(history, fn)
	if err != nil {
		t.Fatalf("BestPerGeneration failed: %v", err)
	}
	if len(bests) != 2 || bests[0] != 2 || bests[1] != 4 {
		t.Errorf("bests = %v, want [2 4]", bests)
	}
}

func TestCallScoreLengthMismatch(t *testing.T) {
	fn := func(x [][]float64) ([]float64, error) {
		return []float64{1}, nil
	}

	if _, err := callScore(fn, [][]float64{{1}, {2}}); err == nil {
		t.Fatal("Expected length-mismatch error")
	}
}
