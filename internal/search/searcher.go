// Package search implements the pluggable search algorithms that
// optimize over a task's design space using a surrogate-backed score
// function. All searchers share one sign convention: ScoreFunc values
// are maximized, and any internally minimizing algorithm negates the
// score exactly once.
package search

import (
	"context"
	"fmt"
	"sort"
)

// ScoreFunc scores a batch of designs. Higher is better. It must
// accept any batch size >= 1, must not mutate its input, and must
// return one score per design. Non-finite scores from an unstable
// surrogate are propagated, not handled here.
type ScoreFunc func(x [][]float64) ([]float64, error)

// Searcher executes a single optimization pass over one task and
// returns a final matrix of candidate designs. Searchers are
// constructed per run and discarded afterwards.
type Searcher interface {
	Run(ctx context.Context) ([][]float64, error)
}

// Progress is an optional per-generation callback carrying the best
// score observed so far. Used for trace writing and job streaming.
type Progress func(generation int, bestScore float64)

// TopKDesigns returns the k rows of x with the k largest y values,
// in ascending score order, ties broken by array order (stable sort).
// This is the shared "start from what is already known to be good"
// initialization used by nearly all searchers.
func TopKDesigns(x [][]float64, y []float64, k int) ([][]float64, []float64, error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("design matrix has %d rows but %d scores", len(x), len(y))
	}
	if k <= 0 || k > len(x) {
		return nil, nil, fmt.Errorf("top-k size %d out of range for dataset of %d", k, len(x))
	}

	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return y[idx[a]] < y[idx[b]] })

	topX := make([][]float64, k)
	topY := make([]float64, k)
	for i, j := range idx[len(idx)-k:] {
		topX[i] = cloneRow(x[j])
		topY[i] = y[j]
	}
	return topX, topY, nil
}

// callScore invokes the score function and validates the 1:1 batch
// alignment of the adapter contract.
func callScore(fn ScoreFunc, x [][]float64) ([]float64, error) {
	ys, err := fn(x)
	if err != nil {
		return nil, err
	}
	if len(ys) != len(x) {
		return nil, fmt.Errorf("score function returned %d scores for %d designs", len(ys), len(x))
	}
	return ys, nil
}

// BestPerGeneration scores the recorded per-generation population
// history and returns the best score of each generation. Input for the
// stability metric.
func BestPerGeneration(history [][][]float64, fn ScoreFunc) ([]float64, error) {
	bests := make([]float64, len(history))
	for g, pop := range history {
		ys, err := callScore(fn, pop)
		if err != nil {
			return nil, fmt.Errorf("scoring generation %d: %w", g, err)
		}
		best := ys[0]
		for _, v := range ys[1:] {
			if v > best {
				best = v
			}
		}
		bests[g] = best
	}
	return bests, nil
}

func cloneRow(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	return out
}

func clonePop(pop [][]float64) [][]float64 {
	out := make([][]float64, len(pop))
	for i, row := range pop {
		out[i] = cloneRow(row)
	}
	return out
}

func argMax(ys []float64) int {
	best := 0
	for i, v := range ys {
		if v > ys[best] {
			best = i
		}
	}
	return best
}

func argMin(ys []float64) int {
	worst := 0
	for i, v := range ys {
		if v < ys[worst] {
			worst = i
		}
	}
	return worst
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
