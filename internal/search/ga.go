package search

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"

	"github.com/trxcc/universal-offline-bbo/internal/task"
)

// GAConfig holds the genetic-algorithm hyperparameters.
type GAConfig struct {
	Generations int
	// NumSolutions is the population size and the size of the
	// returned design matrix.
	NumSolutions int
	// TournamentSize controls selection pressure. Defaults to 2.
	TournamentSize int
	Seed           int64

	// EvalStability records every generation's full population for
	// later stability analysis. Memory grows as
	// Generations x NumSolutions x Dim; bound the budget accordingly.
	EvalStability bool

	Progress Progress
}

// GA is a generational genetic algorithm with per-kind variation
// operators, elitism, and duplicate elimination. The population is
// initialized from the top-scoring offline designs and evaluated one
// batch per generation to amortize surrogate calls.
type GA struct {
	task    *task.Task
	scoreFn ScoreFunc
	cfg     GAConfig
	ops     Operators
	rng     *rand.Rand

	history [][][]float64
}

// NewGA builds a GA searcher for the task, resolving the operator
// bundle once from the task kind.
func NewGA(t *task.Task, scoreFn ScoreFunc, cfg GAConfig) (*GA, error) {
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("ga: generations must be positive, got %d", cfg.Generations)
	}
	if cfg.NumSolutions < 2 {
		return nil, fmt.Errorf("ga: need at least 2 solutions, got %d", cfg.NumSolutions)
	}
	if cfg.TournamentSize <= 0 {
		cfg.TournamentSize = 2
	}
	ops, err := OperatorsFor(t)
	if err != nil {
		return nil, fmt.Errorf("ga: %w", err)
	}
	return &GA{
		task:    t,
		scoreFn: scoreFn,
		cfg:     cfg,
		ops:     ops,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// History returns the recorded per-generation populations. Empty
// unless EvalStability was set; one entry per generation, each of
// shape [NumSolutions][Dim].
func (g *GA) History() [][][]float64 { return g.history }

// Run executes the generational loop and returns the final population.
func (g *GA) Run(ctx context.Context) ([][]float64, error) {
	x, y := g.task.Data()
	pop, _, err := TopKDesigns(x, y, g.cfg.NumSolutions)
	if err != nil {
		return nil, fmt.Errorf("ga: initializing population: %w", err)
	}

	scores, err := callScore(g.scoreFn, pop)
	if err != nil {
		return nil, fmt.Errorf("ga: scoring initial population: %w", err)
	}

	for gen := 1; gen <= g.cfg.Generations; gen++ {
		select {
		case <-ctx.Done():
			slog.Info("ga stopped early", "task", g.task.Name(), "generation", gen)
			return pop, nil
		default:
		}

		next := g.breed(pop, scores)

		nextScores, err := callScore(g.scoreFn, next)
		if err != nil {
			return nil, fmt.Errorf("ga: scoring generation %d: %w", gen, err)
		}
		pop, scores = next, nextScores

		if g.cfg.EvalStability {
			g.history = append(g.history, clonePop(pop))
		}
		if g.cfg.Progress != nil {
			g.cfg.Progress(gen, scores[argMax(scores)])
		}
	}

	slog.Info("ga finished",
		"task", g.task.Name(),
		"generations", g.cfg.Generations,
		"best_score", scores[argMax(scores)],
	)
	return pop, nil
}

// breed produces the next generation: the incumbent best survives
// unchanged, the rest come from tournament-selected parents passed
// through crossover, mutation, and repair, with duplicates eliminated.
func (g *GA) breed(pop [][]float64, scores []float64) [][]float64 {
	n := len(pop)
	next := make([][]float64, 0, n)
	seen := make(map[string]bool, n)

	elite := cloneRow(pop[argMax(scores)])
	next = append(next, elite)
	seen[rowKey(elite)] = true

	// Small discrete spaces can run out of distinct encodings; after
	// enough failed attempts duplicates are admitted rather than
	// spinning.
	attempts := 0
	maxAttempts := 64 * n

	for len(next) < n {
		attempts++
		a := g.tournament(pop, scores)
		b := g.tournament(pop, scores)
		c1, c2 := g.ops.Crossover(g.rng, a, b)

		for _, child := range [][]float64{c1, c2} {
			if len(next) >= n {
				break
			}
			g.ops.Mutation(g.rng, child)
			if g.ops.Repair != nil {
				g.ops.Repair(child)
			}
			// No two individuals with identical encoding survive a
			// generation; retry duplicates with extra mutation.
			for tries := 0; seen[rowKey(child)] && tries < 8; tries++ {
				g.ops.Mutation(g.rng, child)
				if g.ops.Repair != nil {
					g.ops.Repair(child)
				}
			}
			if seen[rowKey(child)] && attempts < maxAttempts {
				continue
			}
			seen[rowKey(child)] = true
			next = append(next, child)
		}
	}
	return next
}

func (g *GA) tournament(pop [][]float64, scores []float64) []float64 {
	best := g.rng.Intn(len(pop))
	for i := 1; i < g.cfg.TournamentSize; i++ {
		c := g.rng.Intn(len(pop))
		if scores[c] > scores[best] {
			best = c
		}
	}
	return pop[best]
}

// rowKey renders a design's exact encoding for duplicate elimination.
func rowKey(row []float64) string {
	var sb strings.Builder
	for _, v := range row {
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		sb.WriteByte(',')
	}
	return sb.String()
}
