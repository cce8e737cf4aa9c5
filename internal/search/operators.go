package search

import (
	"fmt"
	"math/rand"

	"github.com/trxcc/universal-offline-bbo/internal/task"
)

// Crossover combines two parents into two children. Parents are not
// mutated.
type Crossover func(rng *rand.Rand, a, b []float64) ([]float64, []float64)

// Mutation perturbs a design in place.
type Mutation func(rng *rand.Rand, x []float64)

// Repair fixes a design in place after variation (bounds clamp,
// rounding, permutation anchoring).
type Repair func(x []float64)

// Operators bundles the variation operators for one task kind. The
// bundle is resolved once at searcher construction, never re-checked
// per generation.
type Operators struct {
	Crossover Crossover
	Mutation  Mutation
	Repair    Repair
}

// OperatorsFor selects the operator bundle for a task:
// uniform crossover + random-replacement mutation for Categorical,
// order crossover + inversion mutation (+ anchor repair) for
// Permutation, real-coded operators with rounding repair for Integer,
// and real-coded operators otherwise.
func OperatorsFor(t *task.Task) (Operators, error) {
	lower, upper := t.Bounds()

	switch t.Kind() {
	case task.Categorical:
		numClasses, err := t.NumClasses()
		if err != nil {
			return Operators{}, err
		}
		return Operators{
			Crossover: uniformCrossover,
			Mutation:  randomReplacementMutation(numClasses),
			Repair:    clampRepair(lower, upper),
		}, nil

	case task.Permutation:
		repair := Repair(nil)
		if t.AnchorFirst() {
			repair = anchorFirstRepair
		}
		return Operators{
			Crossover: orderCrossover,
			Mutation:  inversionMutation,
			Repair:    repair,
		}, nil

	case task.Integer:
		return Operators{
			Crossover: blendCrossover,
			Mutation:  gaussianMutation(lower, upper),
			Repair:    roundingRepair(lower, upper),
		}, nil

	case task.Continuous:
		return Operators{
			Crossover: blendCrossover,
			Mutation:  gaussianMutation(lower, upper),
			Repair:    clampRepair(lower, upper),
		}, nil

	default:
		return Operators{}, fmt.Errorf("no operators for task kind %s", t.Kind())
	}
}

// uniformCrossover swaps each gene between the parents with
// probability 0.5.
func uniformCrossover(rng *rand.Rand, a, b []float64) ([]float64, []float64) {
	c1 := cloneRow(a)
	c2 := cloneRow(b)
	for d := range c1 {
		if rng.Float64() < 0.5 {
			c1[d], c2[d] = c2[d], c1[d]
		}
	}
	return c1, c2
}

// randomReplacementMutation replaces each gene with a uniformly drawn
// category index with probability 1/dim.
func randomReplacementMutation(numClasses int) Mutation {
	return func(rng *rand.Rand, x []float64) {
		pm := 1.0 / float64(len(x))
		for d := range x {
			if rng.Float64() < pm {
				x[d] = float64(rng.Intn(numClasses))
			}
		}
	}
}

// blendCrossover draws each child gene from the extended interval
// around the parents (BLX-alpha with alpha 0.25).
func blendCrossover(rng *rand.Rand, a, b []float64) ([]float64, []float64) {
	const alpha = 0.25
	c1 := make([]float64, len(a))
	c2 := make([]float64, len(a))
	for d := range a {
		lo, hi := a[d], b[d]
		if lo > hi {
			lo, hi = hi, lo
		}
		span := hi - lo
		lo -= alpha * span
		hi += alpha * span
		c1[d] = lo + rng.Float64()*(hi-lo)
		c2[d] = lo + rng.Float64()*(hi-lo)
	}
	return c1, c2
}

// gaussianMutation perturbs each gene with probability 1/dim by
// N(0, 0.1 * range) noise.
func gaussianMutation(lower, upper []float64) Mutation {
	return func(rng *rand.Rand, x []float64) {
		pm := 1.0 / float64(len(x))
		for d := range x {
			if rng.Float64() < pm {
				sigma := 0.1 * (upper[d] - lower[d])
				x[d] += rng.NormFloat64() * sigma
			}
		}
	}
}

// orderCrossover (OX) copies a random segment from each parent and
// fills the remaining positions in the other parent's visiting order,
// preserving permutation validity.
func orderCrossover(rng *rand.Rand, a, b []float64) ([]float64, []float64) {
	return oxChild(rng, a, b), oxChild(rng, b, a)
}

func oxChild(rng *rand.Rand, keep, fill []float64) []float64 {
	n := len(keep)
	lo := rng.Intn(n)
	hi := rng.Intn(n)
	if lo > hi {
		lo, hi = hi, lo
	}

	child := make([]float64, n)
	used := make(map[float64]bool, n)
	for i := lo; i <= hi; i++ {
		child[i] = keep[i]
		used[keep[i]] = true
	}

	j := (hi + 1) % n
	for i := 0; i < n; i++ {
		v := fill[(hi+1+i)%n]
		if used[v] {
			continue
		}
		child[j] = v
		used[v] = true
		j = (j + 1) % n
	}
	return child
}

// inversionMutation reverses a random segment of the permutation.
func inversionMutation(rng *rand.Rand, x []float64) {
	n := len(x)
	lo := rng.Intn(n)
	hi := rng.Intn(n)
	if lo > hi {
		lo, hi = hi, lo
	}
	for lo < hi {
		x[lo], x[hi] = x[hi], x[lo]
		lo++
		hi--
	}
}

// anchorFirstRepair rotates a permutation in place so element 0 is
// first. Used by tour families whose encoding fixes the start city.
func anchorFirstRepair(x []float64) {
	zero := 0
	for i, v := range x {
		if v == 0 {
			zero = i
			break
		}
	}
	if zero == 0 {
		return
	}
	rotated := append(append([]float64{}, x[zero:]...), x[:zero]...)
	copy(x, rotated)
}

// clampRepair clamps each gene into its bounds.
func clampRepair(lower, upper []float64) Repair {
	return func(x []float64) {
		for d := range x {
			x[d] = clamp(x[d], lower[d], upper[d])
		}
	}
}

// roundingRepair rounds to the nearest integer, then clamps.
func roundingRepair(lower, upper []float64) Repair {
	return func(x []float64) {
		for d := range x {
			v := x[d]
			if v >= 0 {
				v = float64(int64(v + 0.5))
			} else {
				v = float64(int64(v - 0.5))
			}
			x[d] = clamp(v, lower[d], upper[d])
		}
	}
}
