package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/trxcc/universal-offline-bbo/internal/task"
)

// BOConfig holds the Bayesian-optimization hyperparameters.
type BOConfig struct {
	Iterations   int
	NumSolutions int

	// GPSamples is the number of top offline designs used as the
	// initial GP training set. Defaults to 128 (100 for categorical
	// tasks, whose kernel matrices grow expensive faster).
	GPSamples int

	// NoiseSE is the observation-noise standard deviation injected
	// into newly acquired scores and assumed by the GP.
	NoiseSE float64

	// Continuous acquisition optimization: BatchSize candidates per
	// iteration from NumRestarts local refinements over RawSamples
	// random starts, RefineSteps coordinate steps each.
	BatchSize   int
	NumRestarts int
	RawSamples  int
	RefineSteps int

	// Categorical acquisition optimization: an inner GA maximizes the
	// upper confidence bound, seeded from the SeedPool best observed
	// designs.
	UCBBeta          float64
	InnerGenerations int
	InnerPopSize     int
	SeedPool         int

	Seed     int64
	Progress Progress
}

// BO runs Bayesian optimization over the externally supplied score
// function: it fits its OWN internal Gaussian process on noisy
// observations of scoreFn (a surrogate of the surrogate), maximizes an
// acquisition function to pick the next batch, and repeats for a fixed
// iteration budget. The returned solution set is the NumSolutions best
// designs in the acquired pool by observed score.
//
// Continuous tasks use expected improvement over inputs normalized to
// the unit cube and standardized outputs; categorical tasks use an
// overlap-kernel GP with UCB maximized by an inner genetic algorithm,
// since gradient-style refinement has no meaning over discrete
// choices.
type BO struct {
	task    *task.Task
	scoreFn ScoreFunc
	cfg     BOConfig
	rng     *rand.Rand
}

// NewBO builds a BO searcher. Continuous and Categorical tasks only.
func NewBO(t *task.Task, scoreFn ScoreFunc, cfg BOConfig) (*BO, error) {
	switch t.Kind() {
	case task.Continuous, task.Categorical:
	default:
		return nil, fmt.Errorf("bo: %s domains are not supported", t.Kind())
	}
	if cfg.Iterations <= 0 {
		return nil, fmt.Errorf("bo: iterations must be positive, got %d", cfg.Iterations)
	}
	if cfg.NumSolutions < 1 {
		return nil, fmt.Errorf("bo: need at least 1 solution, got %d", cfg.NumSolutions)
	}
	if cfg.GPSamples <= 0 {
		cfg.GPSamples = 128
	}
	if t.Kind() == task.Categorical && cfg.GPSamples > 100 {
		cfg.GPSamples = 100
	}
	if cfg.NoiseSE <= 0 {
		cfg.NoiseSE = 0.1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 4
	}
	if cfg.NumRestarts <= 0 {
		cfg.NumRestarts = 10
	}
	if cfg.RawSamples <= 0 {
		cfg.RawSamples = 256
	}
	if cfg.RefineSteps <= 0 {
		cfg.RefineSteps = 32
	}
	if cfg.UCBBeta <= 0 {
		cfg.UCBBeta = 2.0
	}
	if cfg.InnerGenerations <= 0 {
		cfg.InnerGenerations = 200
	}
	if cfg.InnerPopSize <= 0 {
		cfg.InnerPopSize = 32
	}
	if cfg.SeedPool <= 0 {
		cfg.SeedPool = 128
	}
	return &BO{
		task:    t,
		scoreFn: scoreFn,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run executes the BO loop.
func (b *BO) Run(ctx context.Context) ([][]float64, error) {
	if b.task.Kind() == task.Categorical {
		return b.runCategorical(ctx)
	}
	return b.runContinuous(ctx)
}

func (b *BO) runContinuous(ctx context.Context) ([][]float64, error) {
	x, y := b.task.Data()
	k := min(b.cfg.GPSamples, len(x))
	initX, initY, err := TopKDesigns(x, y, k)
	if err != nil {
		return nil, fmt.Errorf("bo: initializing training set: %w", err)
	}

	lower, upper := b.task.Bounds()

	// GP training set lives in the unit cube.
	trainX := make([][]float64, len(initX))
	for i, row := range initX {
		trainX[i] = b.normalize(row, lower, upper)
	}
	trainY := append([]float64{}, initY...)

	var acquiredX [][]float64
	var acquiredY []float64

	hyper := defaultHyper()

	for it := 1; it <= b.cfg.Iterations; it++ {
		select {
		case <-ctx.Done():
			return b.finalPool(acquiredX, acquiredY, initX, initY)
		default:
		}

		sy, yMean, yStd := standardize(trainY)

		gp, fitted, err := fitWarmStarted(trainX, sy, false, hyper, b.cfg.NoiseSE)
		if err != nil {
			if errors.Is(err, ErrDegenerateFit) {
				// A degenerate fit ends the run with whatever has
				// been acquired; robustness over completeness.
				slog.Warn("bo: degenerate gp fit, stopping early",
					"task", b.task.Name(), "iteration", it)
				break
			}
			return nil, fmt.Errorf("bo: iteration %d: %w", it, err)
		}
		hyper = fitted

		bestF := sy[argMax(sy)]
		candidates := b.optimizeEI(gp, bestF)

		// De-normalize into task bounds before touching the score
		// function.
		batch := make([][]float64, len(candidates))
		for i, c := range candidates {
			batch[i] = b.denormalize(c, lower, upper)
		}

		obs, err := callScore(b.scoreFn, batch)
		if err != nil {
			return nil, fmt.Errorf("bo: scoring iteration %d: %w", it, err)
		}

		for i := range batch {
			noisy := obs[i] + b.cfg.NoiseSE*b.rng.NormFloat64()
			acquiredX = append(acquiredX, batch[i])
			acquiredY = append(acquiredY, noisy)
			trainX = append(trainX, candidates[i])
			trainY = append(trainY, noisy)
		}

		if b.cfg.Progress != nil {
			b.cfg.Progress(it, yMean+yStd*bestF)
		}
	}

	return b.finalPool(acquiredX, acquiredY, initX, initY)
}

// optimizeEI maximizes expected improvement in the unit cube:
// RawSamples random starts, keep the NumRestarts best, refine each
// with shrinking coordinate steps, return the BatchSize best refined
// points.
func (b *BO) optimizeEI(gp *GP, bestF float64) [][]float64 {
	dim := b.task.Dim()

	type scored struct {
		x  []float64
		ei float64
	}

	raw := make([]scored, b.cfg.RawSamples)
	for i := range raw {
		p := make([]float64, dim)
		for d := range p {
			p[d] = b.rng.Float64()
		}
		raw[i] = scored{x: p, ei: expectedImprovement(gp, p, bestF)}
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].ei > raw[j].ei })

	restarts := min(b.cfg.NumRestarts, len(raw))
	refined := make([]scored, restarts)
	for r := 0; r < restarts; r++ {
		p := cloneRow(raw[r].x)
		best := raw[r].ei
		step := 0.1
		for s := 0; s < b.cfg.RefineSteps; s++ {
			improved := false
			for d := 0; d < dim; d++ {
				for _, delta := range [2]float64{step, -step} {
					q := cloneRow(p)
					q[d] = clamp(q[d]+delta, 0, 1)
					if ei := expectedImprovement(gp, q, bestF); ei > best {
						p, best = q, ei
						improved = true
					}
				}
			}
			if !improved {
				step /= 2
				if step < 1e-4 {
					break
				}
			}
		}
		refined[r] = scored{x: p, ei: best}
	}
	sort.Slice(refined, func(i, j int) bool { return refined[i].ei > refined[j].ei })

	n := min(b.cfg.BatchSize, len(refined))
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = refined[i].x
	}
	return out
}

func (b *BO) runCategorical(ctx context.Context) ([][]float64, error) {
	x, y := b.task.Data()
	k := min(b.cfg.GPSamples, len(x))
	trainX, trainY, err := TopKDesigns(x, y, k)
	if err != nil {
		return nil, fmt.Errorf("bo: initializing training set: %w", err)
	}

	numClasses, err := b.task.NumClasses()
	if err != nil {
		return nil, fmt.Errorf("bo: %w", err)
	}
	lower, upper := b.task.Bounds()

	hyper := defaultHyper()

	for it := 1; it <= b.cfg.Iterations; it++ {
		select {
		case <-ctx.Done():
			return b.topObserved(trainX, trainY)
		default:
		}

		sy, _, _ := standardize(trainY)

		gp, fitted, err := fitWarmStarted(trainX, sy, true, hyper, b.cfg.NoiseSE)
		if err != nil {
			if errors.Is(err, ErrDegenerateFit) {
				slog.Warn("bo: degenerate gp fit, stopping early",
					"task", b.task.Name(), "iteration", it)
				break
			}
			return nil, fmt.Errorf("bo: iteration %d: %w", it, err)
		}
		hyper = fitted

		ucb := func(batch [][]float64) ([]float64, error) {
			out := make([]float64, len(batch))
			for i, row := range batch {
				mean, variance := gp.Predict(row)
				out[i] = mean + b.cfg.UCBBeta*math.Sqrt(variance)
			}
			return out, nil
		}

		// Acquisition over discrete choices: inner GA on the UCB,
		// seeded from the best observed designs.
		seedK := min(b.cfg.SeedPool, len(trainX))
		seedX, seedY, err := TopKDesigns(trainX, trainY, seedK)
		if err != nil {
			return nil, fmt.Errorf("bo: seeding inner ga: %w", err)
		}

		innerTask, err := task.New(b.task.Name()+"/ucb", task.Categorical, task.Config{
			X:          seedX,
			Y:          seedY,
			Lower:      lower,
			Upper:      upper,
			NumClasses: numClasses,
			Objective: func(batch [][]float64) []float64 {
				ys, _ := ucb(batch)
				return ys
			},
		})
		if err != nil {
			return nil, fmt.Errorf("bo: building acquisition task: %w", err)
		}

		innerPop := min(b.cfg.InnerPopSize, seedK)
		innerGA, err := NewGA(innerTask, ucb, GAConfig{
			Generations:  b.cfg.InnerGenerations,
			NumSolutions: innerPop,
			Seed:         b.rng.Int63(),
		})
		if err != nil {
			return nil, fmt.Errorf("bo: building inner ga: %w", err)
		}
		pop, err := innerGA.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("bo: acquisition ga: %w", err)
		}

		obs, err := callScore(b.scoreFn, pop)
		if err != nil {
			return nil, fmt.Errorf("bo: scoring iteration %d: %w", it, err)
		}

		trainX = append(trainX, clonePop(pop)...)
		trainY = append(trainY, obs...)

		if b.cfg.Progress != nil {
			b.cfg.Progress(it, trainY[argMax(trainY)])
		}
	}

	return b.topObserved(trainX, trainY)
}

// finalPool returns the NumSolutions best acquired designs by observed
// score, falling back to the initial training designs when the run
// stopped before acquiring enough points.
func (b *BO) finalPool(acquiredX [][]float64, acquiredY []float64, initX [][]float64, initY []float64) ([][]float64, error) {
	poolX := append(clonePop(initX), acquiredX...)
	poolY := append(append([]float64{}, initY...), acquiredY...)
	if len(acquiredX) >= b.cfg.NumSolutions {
		poolX = acquiredX
		poolY = acquiredY
	}
	return b.topObserved(poolX, poolY)
}

func (b *BO) topObserved(poolX [][]float64, poolY []float64) ([][]float64, error) {
	k := min(b.cfg.NumSolutions, len(poolX))
	sols, _, err := TopKDesigns(poolX, poolY, k)
	if err != nil {
		return nil, fmt.Errorf("bo: selecting final solutions: %w", err)
	}
	return sols, nil
}

func (b *BO) normalize(row, lower, upper []float64) []float64 {
	out := make([]float64, len(row))
	for d := range row {
		span := upper[d] - lower[d]
		if span == 0 {
			span = 1
		}
		out[d] = (row[d] - lower[d]) / span
	}
	return out
}

func (b *BO) denormalize(row, lower, upper []float64) []float64 {
	out := make([]float64, len(row))
	for d := range row {
		out[d] = lower[d] + row[d]*(upper[d]-lower[d])
	}
	return out
}

// expectedImprovement is the analytic EI for maximization over
// standardized observations.
func expectedImprovement(gp *GP, q []float64, bestF float64) float64 {
	mean, variance := gp.Predict(q)
	sd := math.Sqrt(variance)
	if sd < 1e-12 {
		return math.Max(0, mean-bestF)
	}
	std := distuv.Normal{Mu: 0, Sigma: 1}
	z := (mean - bestF) / sd
	return (mean-bestF)*std.CDF(z) + sd*std.Prob(z)
}

// standardize returns zero-mean unit-variance scores with the
// transform parameters.
func standardize(y []float64) (sy []float64, mean, std float64) {
	mean, std = stat.MeanStdDev(y, nil)
	if std < 1e-12 || math.IsNaN(std) {
		std = 1
	}
	sy = make([]float64, len(y))
	for i, v := range y {
		sy[i] = (v - mean) / std
	}
	return sy, mean, std
}
