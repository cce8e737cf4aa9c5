package search

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"

	"github.com/trxcc/universal-offline-bbo/internal/task"
)

// MayflyConfig holds the mayfly-algorithm hyperparameters exposed by
// the external library that we surface.
type MayflyConfig struct {
	Iterations int
	PopSize    int
	Seed       int64
}

// Mayfly adapts the external mayfly library to the Searcher interface.
// The library minimizes cost, so the score is negated exactly once at
// the objective boundary. Continuous tasks only, and because the
// library takes scalar bounds, every dimension must share the same
// range.
type Mayfly struct {
	task    *task.Task
	scoreFn ScoreFunc
	cfg     MayflyConfig
}

// NewMayfly builds a mayfly searcher.
func NewMayfly(t *task.Task, scoreFn ScoreFunc, cfg MayflyConfig) (*Mayfly, error) {
	if t.Kind() != task.Continuous {
		return nil, fmt.Errorf("mayfly: %s domains are not supported", t.Kind())
	}
	if cfg.Iterations <= 0 {
		return nil, fmt.Errorf("mayfly: iterations must be positive, got %d", cfg.Iterations)
	}
	if cfg.PopSize <= 0 {
		cfg.PopSize = 20
	}
	lower, upper := t.Bounds()
	for d := 1; d < t.Dim(); d++ {
		if lower[d] != lower[0] || upper[d] != upper[0] {
			return nil, fmt.Errorf("mayfly: dimension %d bounds [%g, %g] differ from [%g, %g]; uniform bounds required",
				d, lower[d], upper[d], lower[0], upper[0])
		}
	}
	return &Mayfly{task: t, scoreFn: scoreFn, cfg: cfg}, nil
}

// Run executes the mayfly optimization and returns the single global
// best design.
func (m *Mayfly) Run(ctx context.Context) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lower, upper := m.task.Bounds()

	// The library has no error channel inside the objective, so the
	// first score failure is captured here and surfaced after the run.
	var scoreErr error

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(x []float64) float64 {
		if scoreErr != nil {
			return math.Inf(1)
		}
		scores, err := callScore(m.scoreFn, [][]float64{x})
		if err != nil {
			scoreErr = err
			return math.Inf(1)
		}
		return -scores[0]
	}
	config.ProblemSize = m.task.Dim()
	config.MaxIterations = m.cfg.Iterations
	config.NPop = m.cfg.PopSize
	config.LowerBound = lower[0]
	config.UpperBound = upper[0]
	config.Rand = rand.New(rand.NewSource(m.cfg.Seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly: optimize: %w", err)
	}
	if scoreErr != nil {
		return nil, fmt.Errorf("mayfly: scoring: %w", scoreErr)
	}

	return [][]float64{cloneRow(result.GlobalBest.Position)}, nil
}
