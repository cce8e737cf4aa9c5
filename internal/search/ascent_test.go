package search

import (
	"context"
	"testing"

	"github.com/trxcc/universal-offline-bbo/internal/task"
)

// quadModel is a differentiable surrogate with its maximum at center.
type quadModel struct {
	center []float64
}

func (m quadModel) Score(x [][]float64) ([]float64, error) {
	scores := make([]float64, len(x))
	for i, row := range x {
		var s float64
		for d, v := range row {
			diff := v - m.center[d]
			s -= diff * diff
		}
		scores[i] = s
	}
	return scores, nil
}

func (m quadModel) Gradient(x [][]float64) ([][]float64, error) {
	grads := make([][]float64, len(x))
	for i, row := range x {
		g := make([]float64, len(row))
		for d, v := range row {
			g[d] = -2 * (v - m.center[d])
		}
		grads[i] = g
	}
	return grads, nil
}

// badGradModel returns gradients with the wrong shape.
type badGradModel struct {
	quadModel
}

func (m badGradModel) Gradient(x [][]float64) ([][]float64, error) {
	return [][]float64{{0}}, nil
}

func TestAscentClimbsTowardOptimum(t *testing.T) {
	tk := sphereTask(t, 3, 51)
	model := quadModel{center: []float64{1, -1, 0.5}}

	x, y := tk.Data()
	before, _, err := TopKDesigns(x, y, 4)
	if err != nil {
		t.Fatalf("TopKDesigns failed: %v", err)
	}

	ascent, err := NewAscent(tk, model, AscentConfig{
		Steps:        200,
		NumSolutions: 4,
		StepSize:     0.05,
	})
	if err != nil {
		t.Fatalf("NewAscent failed: %v", err)
	}

	sols, err := ascent.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sols) != 4 {
		t.Fatalf("Got %d solutions, want 4", len(sols))
	}
	checkInBounds(t, tk, sols)

	startScores, err := model.Score(before)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	endScores, err := model.Score(sols)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if endScores[argMax(endScores)] <= startScores[argMax(startScores)] {
		t.Errorf("Ascent did not improve surrogate score: before %g, after %g",
			startScores[argMax(startScores)], endScores[argMax(endScores)])
	}
}

func TestAscentStaysInBoundsWithLargeSteps(t *testing.T) {
	tk := sphereTask(t, 2, 52)
	lower, upper := tk.Bounds()
	// Center far outside the box drags every coordinate toward a bound.
	model := quadModel{center: []float64{upper[0] * 100, lower[1] * 100}}

	ascent, err := NewAscent(tk, model, AscentConfig{
		Steps:        50,
		NumSolutions: 3,
		StepSize:     10,
	})
	if err != nil {
		t.Fatalf("NewAscent failed: %v", err)
	}

	sols, err := ascent.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	checkInBounds(t, tk, sols)
}

func TestAscentNormalizedStep(t *testing.T) {
	tk := sphereTask(t, 2, 53)
	model := quadModel{center: []float64{0, 0}}

	var steps int
	ascent, err := NewAscent(tk, model, AscentConfig{
		Steps:        10,
		NumSolutions: 2,
		Normalize:    true,
		Progress:     func(gen int, best float64) { steps = gen },
	})
	if err != nil {
		t.Fatalf("NewAscent failed: %v", err)
	}

	sols, err := ascent.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	checkInBounds(t, tk, sols)
	if steps != 10 {
		t.Errorf("Progress reported %d steps, want 10", steps)
	}
}

func TestAscentRejectsDiscreteDomains(t *testing.T) {
	tsp, err := task.NewTSP(6, 1)
	if err != nil {
		t.Fatalf("NewTSP failed: %v", err)
	}
	if _, err := NewAscent(tsp, quadModel{center: make([]float64, 6)}, AscentConfig{Steps: 1, NumSolutions: 1}); err == nil {
		t.Error("Expected error for permutation task")
	}
}

func TestAscentGradientShapeMismatch(t *testing.T) {
	tk := sphereTask(t, 3, 54)
	model := badGradModel{quadModel{center: []float64{0, 0, 0}}}

	ascent, err := NewAscent(tk, model, AscentConfig{Steps: 5, NumSolutions: 4})
	if err != nil {
		t.Fatalf("NewAscent failed: %v", err)
	}
	if _, err := ascent.Run(context.Background()); err == nil {
		t.Error("Expected error for mismatched gradient shape")
	}
}

func TestAscentCancellation(t *testing.T) {
	tk := sphereTask(t, 2, 55)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ascent, err := NewAscent(tk, quadModel{center: []float64{0, 0}}, AscentConfig{Steps: 100, NumSolutions: 2})
	if err != nil {
		t.Fatalf("NewAscent failed: %v", err)
	}
	// Cancellation stops the climb but keeps the best-so-far designs,
	// matching the population searchers.
	sols, err := ascent.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sols) != 2 {
		t.Errorf("Cancelled run returned %d designs, want the 2 initial ones", len(sols))
	}
}
