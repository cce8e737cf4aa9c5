package search

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/trxcc/universal-offline-bbo/internal/task"
)

// Differentiable is a score function that also exposes input
// gradients. Surrogates that cannot differentiate themselves do not
// satisfy this interface and cannot drive the ascent searcher.
type Differentiable interface {
	// Score evaluates a batch of designs, one score per row.
	Score(x [][]float64) ([]float64, error)
	// Gradient returns d(score)/d(x) for each row, same shape as x.
	Gradient(x [][]float64) ([][]float64, error)
}

// AscentConfig holds the gradient-ascent hyperparameters.
type AscentConfig struct {
	Steps        int
	NumSolutions int

	// StepSize is the learning rate applied to the (optionally
	// normalized) gradient each step.
	StepSize float64

	// Normalize scales each gradient coordinate by the per-dimension
	// standard deviation of the offline dataset, so the step size is
	// comparable across dimensions of different magnitudes.
	Normalize bool

	Progress Progress
}

// Ascent climbs the surrogate directly: starting from the best offline
// designs, it repeatedly moves each particle along the surrogate
// gradient and clamps back into bounds. Continuous tasks only; the
// update has no meaning on discrete domains.
type Ascent struct {
	task  *task.Task
	model Differentiable
	cfg   AscentConfig
	scale []float64
}

// NewAscent builds a gradient-ascent searcher.
func NewAscent(t *task.Task, model Differentiable, cfg AscentConfig) (*Ascent, error) {
	if t.Kind() != task.Continuous {
		return nil, fmt.Errorf("ascent: %s domains are not supported", t.Kind())
	}
	if cfg.Steps <= 0 {
		return nil, fmt.Errorf("ascent: steps must be positive, got %d", cfg.Steps)
	}
	if cfg.NumSolutions < 1 {
		return nil, fmt.Errorf("ascent: need at least 1 solution, got %d", cfg.NumSolutions)
	}
	if cfg.StepSize <= 0 {
		cfg.StepSize = 0.01
	}

	a := &Ascent{task: t, model: model, cfg: cfg}
	if cfg.Normalize {
		a.scale = datasetStddev(t)
	}
	return a, nil
}

// Run performs the ascent and returns the final particle positions.
func (a *Ascent) Run(ctx context.Context) ([][]float64, error) {
	x, y := a.task.Data()
	pop, _, err := TopKDesigns(x, y, a.cfg.NumSolutions)
	if err != nil {
		return nil, fmt.Errorf("ascent: initializing particles: %w", err)
	}

	lower, upper := a.task.Bounds()

	for step := 1; step <= a.cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			slog.Info("ascent stopped early", "task", a.task.Name(), "step", step)
			return pop, nil
		default:
		}

		grads, err := a.model.Gradient(pop)
		if err != nil {
			return nil, fmt.Errorf("ascent: step %d gradient: %w", step, err)
		}
		if len(grads) != len(pop) {
			return nil, fmt.Errorf("ascent: gradient returned %d rows for %d designs", len(grads), len(pop))
		}

		for i, row := range pop {
			g := grads[i]
			if len(g) != len(row) {
				return nil, fmt.Errorf("ascent: gradient row %d has %d dims, want %d", i, len(g), len(row))
			}
			for d := range row {
				delta := a.cfg.StepSize * g[d]
				if a.scale != nil {
					delta *= a.scale[d]
				}
				row[d] = clamp(row[d]+delta, lower[d], upper[d])
			}
		}

		if a.cfg.Progress != nil {
			scores, err := a.model.Score(pop)
			if err != nil {
				return nil, fmt.Errorf("ascent: step %d score: %w", step, err)
			}
			best := scores[argMax(scores)]
			a.cfg.Progress(step, best)
			if step == a.cfg.Steps {
				slog.Info("ascent finished", "task", a.task.Name(), "steps", step, "best", best)
			}
		}
	}

	return pop, nil
}

// datasetStddev computes the per-dimension standard deviation of the
// offline designs, floored at 1 so flat dimensions do not zero out the
// gradient.
func datasetStddev(t *task.Task) []float64 {
	x, _ := t.Data()
	dim := t.Dim()
	scale := make([]float64, dim)
	col := make([]float64, len(x))
	for d := 0; d < dim; d++ {
		for i, row := range x {
			col[i] = row[d]
		}
		sd := stat.StdDev(col, nil)
		if sd < 1 {
			sd = 1
		}
		scale[d] = sd
	}
	return scale
}
