package search

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/trxcc/universal-offline-bbo/internal/task"
)

// DEConfig holds the differential-evolution hyperparameters.
type DEConfig struct {
	Generations int
	// PopSize is the working population size; may exceed NumSolutions.
	PopSize int
	// NumSolutions is the size of the rolling best-so-far archive
	// returned by Run.
	NumSolutions int

	// Weight is the differential weight F. Defaults to 0.5.
	Weight float64
	// CrossoverRate is the binomial crossover probability CR.
	// Defaults to 0.9.
	CrossoverRate float64

	// EarlyStopThreshold and Patience implement the stall counter:
	// when the best score fails to improve by more than the threshold
	// for Patience consecutive generations, the run ends early.
	// Patience <= 0 disables early stopping.
	EarlyStopThreshold float64
	Patience           int

	Seed     int64
	Progress Progress
}

// DE is DE/rand/1/bin differential evolution with per-individual
// mutation vectors. Alongside the working population it maintains a
// rolling archive of the NumSolutions best designs ever evaluated,
// replacing the worst archive member whenever a new candidate beats
// it; the archive is what Run returns.
type DE struct {
	task    *task.Task
	scoreFn ScoreFunc
	cfg     DEConfig
	rng     *rand.Rand
	repair  Repair
}

// NewDE builds a DE searcher. Box domains only.
func NewDE(t *task.Task, scoreFn ScoreFunc, cfg DEConfig) (*DE, error) {
	switch t.Kind() {
	case task.Continuous, task.Integer:
	default:
		return nil, fmt.Errorf("de: %s domains are not supported", t.Kind())
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("de: generations must be positive, got %d", cfg.Generations)
	}
	if cfg.NumSolutions < 1 {
		return nil, fmt.Errorf("de: need at least 1 solution, got %d", cfg.NumSolutions)
	}
	if cfg.PopSize < 4 {
		cfg.PopSize = max(4, cfg.NumSolutions)
	}
	if cfg.Weight == 0 {
		cfg.Weight = 0.5
	}
	if cfg.CrossoverRate == 0 {
		cfg.CrossoverRate = 0.9
	}

	lower, upper := t.Bounds()
	repair := clampRepair(lower, upper)
	if t.Kind() == task.Integer {
		repair = roundingRepair(lower, upper)
	}

	return &DE{
		task:    t,
		scoreFn: scoreFn,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		repair:  repair,
	}, nil
}

// Run executes the DE loop and returns the best-so-far archive.
func (d *DE) Run(ctx context.Context) ([][]float64, error) {
	x, y := d.task.Data()
	popSize := min(d.cfg.PopSize, len(x))
	pop, _, err := TopKDesigns(x, y, popSize)
	if err != nil {
		return nil, fmt.Errorf("de: initializing population: %w", err)
	}
	dim := d.task.Dim()

	scores, err := callScore(d.scoreFn, pop)
	if err != nil {
		return nil, fmt.Errorf("de: scoring initial population: %w", err)
	}

	archive := newBestArchive(d.cfg.NumSolutions)
	for i := range pop {
		archive.offer(pop[i], scores[i])
	}

	bestSoFar := scores[argMax(scores)]
	stall := 0

	for gen := 1; gen <= d.cfg.Generations; gen++ {
		select {
		case <-ctx.Done():
			slog.Info("de stopped early", "task", d.task.Name(), "generation", gen)
			return archive.designs(), nil
		default:
		}

		trials := make([][]float64, len(pop))
		for i := range pop {
			r1, r2, r3 := d.pickDistinct(i, len(pop))
			trial := make([]float64, dim)
			forced := d.rng.Intn(dim)
			for j := 0; j < dim; j++ {
				if j == forced || d.rng.Float64() < d.cfg.CrossoverRate {
					trial[j] = pop[r1][j] + d.cfg.Weight*(pop[r2][j]-pop[r3][j])
				} else {
					trial[j] = pop[i][j]
				}
			}
			d.repair(trial)
			trials[i] = trial
		}

		trialScores, err := callScore(d.scoreFn, trials)
		if err != nil {
			return nil, fmt.Errorf("de: scoring generation %d: %w", gen, err)
		}

		for i := range pop {
			archive.offer(trials[i], trialScores[i])
			if trialScores[i] > scores[i] {
				pop[i] = trials[i]
				scores[i] = trialScores[i]
			}
		}

		genBest := scores[argMax(scores)]
		if genBest-bestSoFar > d.cfg.EarlyStopThreshold {
			bestSoFar = genBest
			stall = 0
		} else {
			stall++
			if d.cfg.Patience > 0 && stall >= d.cfg.Patience {
				slog.Info("de early stop",
					"task", d.task.Name(),
					"generation", gen,
					"stalled_generations", stall,
				)
				return archive.designs(), nil
			}
		}

		if d.cfg.Progress != nil {
			d.cfg.Progress(gen, bestSoFar)
		}
	}

	slog.Info("de finished",
		"task", d.task.Name(),
		"generations", d.cfg.Generations,
		"best_score", bestSoFar,
	)
	return archive.designs(), nil
}

func (d *DE) pickDistinct(exclude, n int) (int, int, int) {
	picks := [3]int{}
	for k := 0; k < 3; {
		c := d.rng.Intn(n)
		if c == exclude || (k > 0 && c == picks[0]) || (k > 1 && c == picks[1]) {
			continue
		}
		picks[k] = c
		k++
	}
	return picks[0], picks[1], picks[2]
}

// bestArchive keeps the k best (design, score) pairs seen so far,
// replacing the current worst member whenever a better candidate
// arrives.
type bestArchive struct {
	cap    int
	x      [][]float64
	scores []float64
}

func newBestArchive(capacity int) *bestArchive {
	return &bestArchive{cap: capacity}
}

func (a *bestArchive) offer(design []float64, score float64) {
	if len(a.x) < a.cap {
		a.x = append(a.x, cloneRow(design))
		a.scores = append(a.scores, score)
		return
	}
	worst := argMin(a.scores)
	if score > a.scores[worst] {
		a.x[worst] = cloneRow(design)
		a.scores[worst] = score
	}
}

func (a *bestArchive) designs() [][]float64 {
	return clonePop(a.x)
}
