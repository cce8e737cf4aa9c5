// Package engine ties tasks, surrogates, and searchers together: it
// turns a RunConfig into a finished RunResult. The HTTP job worker and
// the CLI run command both drive it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trxcc/universal-offline-bbo/internal/score"
	"github.com/trxcc/universal-offline-bbo/internal/search"
	"github.com/trxcc/universal-offline-bbo/internal/store"
	"github.com/trxcc/universal-offline-bbo/internal/surrogate"
	"github.com/trxcc/universal-offline-bbo/internal/task"
)

// Algorithms lists the searcher names Run accepts.
func Algorithms() []string {
	return []string{"ga", "pso", "de", "bo", "mayfly"}
}

// BuildTask resolves the task named by the config: a benchmark family,
// optionally with its offline dataset replaced by one loaded from
// disk.
func BuildTask(cfg store.RunConfig) (*task.Task, error) {
	if cfg.DatasetPath == "" {
		return task.NewBench(cfg.TaskName, cfg.Dim, cfg.Seed)
	}

	x, y, err := store.LoadDataset(cfg.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	metadata, err := store.LoadMetadata(cfg.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return task.NewBenchWithData(cfg.TaskName, cfg.Dim, cfg.Seed, x, y, metadata)
}

// BuildScoreFunc returns the search guidance function: a remote
// surrogate when the config names one, otherwise the task's own
// objective (sanity mode, useful for validating searchers end to end).
func BuildScoreFunc(ctx context.Context, t *task.Task, cfg store.RunConfig) search.ScoreFunc {
	if cfg.SurrogateURL != "" {
		return surrogate.ScoreFunc(ctx, surrogate.NewHTTPPredictor(cfg.SurrogateURL), t.Metadata())
	}
	return t.Score
}

// BuildSearcher constructs the named searcher over the given task and
// score function.
func BuildSearcher(t *task.Task, scoreFn search.ScoreFunc, cfg store.RunConfig, progress search.Progress) (search.Searcher, error) {
	switch cfg.Algorithm {
	case "ga":
		return search.NewGA(t, scoreFn, search.GAConfig{
			Generations:   cfg.Generations,
			NumSolutions:  cfg.NumSolutions,
			Seed:          cfg.Seed,
			EvalStability: t.EvalStability(),
			Progress:      progress,
		})
	case "pso":
		return search.NewPSO(t, scoreFn, search.PSOConfig{
			Generations:   cfg.Generations,
			NumSolutions:  cfg.NumSolutions,
			Seed:          cfg.Seed,
			EvalStability: t.EvalStability(),
			Progress:      progress,
		})
	case "de":
		return search.NewDE(t, scoreFn, search.DEConfig{
			Generations:  cfg.Generations,
			PopSize:      cfg.PopSize,
			NumSolutions: cfg.NumSolutions,
			Seed:         cfg.Seed,
			Progress:     progress,
		})
	case "bo":
		return search.NewBO(t, scoreFn, search.BOConfig{
			Iterations:   cfg.Generations,
			NumSolutions: cfg.NumSolutions,
			Seed:         cfg.Seed,
			Progress:     progress,
		})
	case "mayfly":
		return search.NewMayfly(t, scoreFn, search.MayflyConfig{
			Iterations: cfg.Generations,
			PopSize:    cfg.PopSize,
			Seed:       cfg.Seed,
		})
	default:
		return nil, fmt.Errorf("engine: unknown algorithm %q", cfg.Algorithm)
	}
}

// Run executes a complete optimization run: search under the score
// function, then evaluate the proposed solutions against the true
// objective. progress may be nil.
func Run(ctx context.Context, cfg store.RunConfig, runID string, progress search.Progress) (*store.RunResult, error) {
	t, err := BuildTask(cfg)
	if err != nil {
		return nil, err
	}

	scoreFn := BuildScoreFunc(ctx, t, cfg)

	bestSeen := 0.0
	haveBest := false
	wrapped := func(generation int, bestScore float64) {
		if !haveBest || bestScore > bestSeen {
			bestSeen = bestScore
			haveBest = true
		}
		if progress != nil {
			progress(generation, bestScore)
		}
	}

	searcher, err := BuildSearcher(t, scoreFn, cfg, wrapped)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	slog.Info("Starting run",
		"run_id", runID, "task", t.Name(), "algorithm", cfg.Algorithm, "seed", cfg.Seed)

	solutions, err := searcher.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: search failed: %w", err)
	}

	report, err := t.Evaluate(solutions, true)
	if err != nil {
		return nil, fmt.Errorf("engine: evaluating solutions: %w", err)
	}

	if !haveBest {
		// Searchers without progress reporting (mayfly) still get a
		// best-score summary from their final solutions.
		if scores, err := scoreFn(solutions); err == nil {
			for _, v := range scores {
				if !haveBest || v > bestSeen {
					bestSeen = v
					haveBest = true
				}
			}
		}
	}

	result := &store.RunResult{
		RunID:      runID,
		Solutions:  solutions,
		Report:     report,
		BestScore:  bestSeen,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Config:     cfg,
	}

	if hist, ok := searcher.(interface{ History() [][][]float64 }); ok && t.EvalStability() {
		if s, err := stabilityFromHistory(hist.History(), scoreFn); err != nil {
			slog.Warn("Stability computation failed", "run_id", runID, "error", err)
		} else {
			result.Stability = &s
		}
	}

	slog.Info("Run complete",
		"run_id", runID,
		"elapsed", result.FinishedAt.Sub(started),
		"best_score", bestSeen,
		"score_100th", report[score.Key100th],
	)

	return result, nil
}

// stabilityFromHistory scores each generation's population and
// computes the trailing coefficient of variation of the per-generation
// bests.
func stabilityFromHistory(history [][][]float64, scoreFn search.ScoreFunc) (float64, error) {
	best, err := search.BestPerGeneration(history, scoreFn)
	if err != nil {
		return 0, err
	}
	return score.Stability(best)
}
