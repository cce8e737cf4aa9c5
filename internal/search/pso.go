package search

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/trxcc/universal-offline-bbo/internal/task"
)

// PSOConfig holds the particle-swarm hyperparameters.
type PSOConfig struct {
	Generations  int
	NumSolutions int

	// Standard PSO coefficients. Zero values take the usual defaults
	// (inertia 0.729, cognitive/social 1.494).
	Inertia   float64
	Cognitive float64
	Social    float64

	Seed          int64
	EvalStability bool
	Progress      Progress
}

// PSO is a particle swarm over box-bounded domains: each particle
// tracks a velocity updated by personal-best and global-best
// attraction. The swarm is seeded from the top-scoring offline
// designs. Permutation and categorical domains have no meaningful
// velocity arithmetic and are rejected at construction.
type PSO struct {
	task    *task.Task
	scoreFn ScoreFunc
	cfg     PSOConfig
	rng     *rand.Rand
	repair  Repair

	history [][][]float64
}

// NewPSO builds a PSO searcher.
func NewPSO(t *task.Task, scoreFn ScoreFunc, cfg PSOConfig) (*PSO, error) {
	switch t.Kind() {
	case task.Continuous, task.Integer:
	default:
		return nil, fmt.Errorf("pso: %s domains are not supported", t.Kind())
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("pso: generations must be positive, got %d", cfg.Generations)
	}
	if cfg.NumSolutions < 2 {
		return nil, fmt.Errorf("pso: need at least 2 solutions, got %d", cfg.NumSolutions)
	}
	if cfg.Inertia == 0 {
		cfg.Inertia = 0.729
	}
	if cfg.Cognitive == 0 {
		cfg.Cognitive = 1.494
	}
	if cfg.Social == 0 {
		cfg.Social = 1.494
	}

	lower, upper := t.Bounds()
	repair := clampRepair(lower, upper)
	if t.Kind() == task.Integer {
		repair = roundingRepair(lower, upper)
	}

	return &PSO{
		task:    t,
		scoreFn: scoreFn,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		repair:  repair,
	}, nil
}

// History returns the recorded per-generation swarm positions (see
// GA.History).
func (p *PSO) History() [][][]float64 { return p.history }

// Run executes the swarm loop and returns the final particle
// positions.
func (p *PSO) Run(ctx context.Context) ([][]float64, error) {
	x, y := p.task.Data()
	pos, _, err := TopKDesigns(x, y, p.cfg.NumSolutions)
	if err != nil {
		return nil, fmt.Errorf("pso: initializing swarm: %w", err)
	}
	dim := p.task.Dim()

	scores, err := callScore(p.scoreFn, pos)
	if err != nil {
		return nil, fmt.Errorf("pso: scoring initial swarm: %w", err)
	}

	vel := make([][]float64, len(pos))
	for i := range vel {
		vel[i] = make([]float64, dim)
	}

	pBest := clonePop(pos)
	pBestScore := append([]float64{}, scores...)
	gBestIdx := argMax(scores)
	gBest := cloneRow(pos[gBestIdx])
	gBestScore := scores[gBestIdx]

	for gen := 1; gen <= p.cfg.Generations; gen++ {
		select {
		case <-ctx.Done():
			slog.Info("pso stopped early", "task", p.task.Name(), "generation", gen)
			return pos, nil
		default:
		}

		for i := range pos {
			for d := 0; d < dim; d++ {
				r1 := p.rng.Float64()
				r2 := p.rng.Float64()
				vel[i][d] = p.cfg.Inertia*vel[i][d] +
					p.cfg.Cognitive*r1*(pBest[i][d]-pos[i][d]) +
					p.cfg.Social*r2*(gBest[d]-pos[i][d])
				pos[i][d] += vel[i][d]
			}
			p.repair(pos[i])
		}

		scores, err = callScore(p.scoreFn, pos)
		if err != nil {
			return nil, fmt.Errorf("pso: scoring generation %d: %w", gen, err)
		}

		for i, s := range scores {
			if s > pBestScore[i] {
				pBestScore[i] = s
				pBest[i] = cloneRow(pos[i])
			}
			if s > gBestScore {
				gBestScore = s
				gBest = cloneRow(pos[i])
			}
		}

		if p.cfg.EvalStability {
			p.history = append(p.history, clonePop(pos))
		}
		if p.cfg.Progress != nil {
			p.cfg.Progress(gen, gBestScore)
		}
	}

	slog.Info("pso finished",
		"task", p.task.Name(),
		"generations", p.cfg.Generations,
		"best_score", gBestScore,
	)
	return pos, nil
}
