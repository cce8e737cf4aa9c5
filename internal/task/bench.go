package task

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Procedurally generated benchmark tasks. Each instance draws a random
// per-task shift (or target, or city layout) from its seed, samples an
// offline dataset, and keeps the LOWER-scoring half as the working
// subset — search starts from mediocre designs while the normalization
// constants reflect the full sampled range.

const benchDataSize = 512

// NewSphere builds a continuous task maximizing -(sum (x-c)^2) over
// [-5, 5]^dim with a seeded shift vector c.
func NewSphere(dim int, seed int64) (*Task, error) {
	return newShifted("sphere", dim, seed, func(z []float64) float64 {
		var s float64
		for _, v := range z {
			s += v * v
		}
		return -s
	})
}

// NewRastrigin builds a continuous task maximizing the negated shifted
// Rastrigin function over [-5, 5]^dim.
func NewRastrigin(dim int, seed int64) (*Task, error) {
	return newShifted("rastrigin", dim, seed, func(z []float64) float64 {
		s := 10 * float64(len(z))
		for _, v := range z {
			s += v*v - 10*math.Cos(2*math.Pi*v)
		}
		return -s
	})
}

// NewAckley builds a continuous task maximizing the negated shifted
// Ackley function over [-5, 5]^dim.
func NewAckley(dim int, seed int64) (*Task, error) {
	return newShifted("ackley", dim, seed, func(z []float64) float64 {
		n := float64(len(z))
		var sq, cs float64
		for _, v := range z {
			sq += v * v
			cs += math.Cos(2 * math.Pi * v)
		}
		s := -20*math.Exp(-0.2*math.Sqrt(sq/n)) - math.Exp(cs/n) + 20 + math.E
		return -s
	})
}

func newShifted(family string, dim int, seed int64, f func(z []float64) float64) (*Task, error) {
	if dim < 1 {
		return nil, fmt.Errorf("%s: dim must be >= 1, got %d", family, dim)
	}
	rng := rand.New(rand.NewSource(seed))

	shift := make([]float64, dim)
	for d := range shift {
		shift[d] = rng.Float64()*4 - 2 // shift within [-2, 2]
	}

	objective := func(x [][]float64) []float64 {
		ys := make([]float64, len(x))
		z := make([]float64, dim)
		for i, row := range x {
			for d, v := range row {
				z[d] = v - shift[d]
			}
			ys[i] = f(z)
		}
		return ys
	}

	lower := make([]float64, dim)
	upper := make([]float64, dim)
	for d := 0; d < dim; d++ {
		lower[d] = -5
		upper[d] = 5
	}

	sampleX := make([][]float64, benchDataSize)
	for i := range sampleX {
		row := make([]float64, dim)
		for d := range row {
			row[d] = lower[d] + rng.Float64()*(upper[d]-lower[d])
		}
		sampleX[i] = row
	}
	sampleY := objective(sampleX)

	x, y, yMin, yMax := lowScoringSubset(sampleX, sampleY)

	return New(fmt.Sprintf("%s_%dd_s%d", family, dim, seed), Continuous, Config{
		X:         x,
		Y:         y,
		Lower:     lower,
		Upper:     upper,
		FullYMin:  &yMin,
		FullYMax:  &yMax,
		Metadata:  fmt.Sprintf("maximize the negated shifted %s function in %d dimensions", family, dim),
		Objective: objective,
	})
}

// NewTSP builds a permutation task over a seeded random city layout.
// Designs are tours (permutations of 0..n-1, anchored at city 0) and
// the score is the negated tour length.
func NewTSP(cities int, seed int64) (*Task, error) {
	if cities < 3 {
		return nil, fmt.Errorf("tsp: need at least 3 cities, got %d", cities)
	}
	rng := rand.New(rand.NewSource(seed))

	cx := make([]float64, cities)
	cy := make([]float64, cities)
	for i := 0; i < cities; i++ {
		cx[i] = rng.Float64()
		cy[i] = rng.Float64()
	}

	objective := func(x [][]float64) []float64 {
		ys := make([]float64, len(x))
		for i, tour := range x {
			var length float64
			for j := range tour {
				a := int(tour[j])
				b := int(tour[(j+1)%len(tour)])
				dx := cx[a] - cx[b]
				dy := cy[a] - cy[b]
				length += math.Hypot(dx, dy)
			}
			ys[i] = -length
		}
		return ys
	}

	sampleX := make([][]float64, benchDataSize)
	for i := range sampleX {
		perm := rng.Perm(cities)
		anchorZero(perm)
		row := make([]float64, cities)
		for d, p := range perm {
			row[d] = float64(p)
		}
		sampleX[i] = row
	}
	sampleY := objective(sampleX)
	x, y, yMin, yMax := lowScoringSubset(sampleX, sampleY)

	lower := make([]float64, cities)
	upper := make([]float64, cities)
	for d := 0; d < cities; d++ {
		upper[d] = float64(cities - 1)
	}

	return New(fmt.Sprintf("tsp_%d_s%d", cities, seed), Permutation, Config{
		X:             x,
		Y:             y,
		Lower:         lower,
		Upper:         upper,
		FullYMin:      &yMin,
		FullYMax:      &yMax,
		EvalStability: true,
		AnchorFirst:   true,
		Metadata:      fmt.Sprintf("minimize the tour length over %d cities on the unit square", cities),
		Objective:     objective,
	})
}

// NewKnapsack builds a permutation task over a seeded random item set.
// Designs are packing orders: items are taken greedily in visiting
// order until one no longer fits, which ends the packing. The score is
// the total packed value. Unlike tours, packing orders have a
// distinguished start, so no anchoring applies.
func NewKnapsack(items int, seed int64) (*Task, error) {
	if items < 3 {
		return nil, fmt.Errorf("knapsack: need at least 3 items, got %d", items)
	}
	rng := rand.New(rand.NewSource(seed))

	weights := make([]float64, items)
	values := make([]float64, items)
	for i := 0; i < items; i++ {
		weights[i] = rng.Float64()
		values[i] = rng.Float64()
	}
	capacity := float64(items) / 4

	objective := func(x [][]float64) []float64 {
		ys := make([]float64, len(x))
		for i, order := range x {
			remaining := capacity
			var value float64
			for _, p := range order {
				item := int(p)
				if weights[item] > remaining {
					break
				}
				remaining -= weights[item]
				value += values[item]
			}
			ys[i] = value
		}
		return ys
	}

	sampleX := make([][]float64, benchDataSize)
	for i := range sampleX {
		perm := rng.Perm(items)
		row := make([]float64, items)
		for d, p := range perm {
			row[d] = float64(p)
		}
		sampleX[i] = row
	}
	sampleY := objective(sampleX)
	x, y, yMin, yMax := lowScoringSubset(sampleX, sampleY)

	lower := make([]float64, items)
	upper := make([]float64, items)
	for d := 0; d < items; d++ {
		upper[d] = float64(items - 1)
	}

	return New(fmt.Sprintf("knapsack_%d_s%d", items, seed), Permutation, Config{
		X:             x,
		Y:             y,
		Lower:         lower,
		Upper:         upper,
		FullYMin:      &yMin,
		FullYMax:      &yMax,
		EvalStability: true,
		Metadata:      fmt.Sprintf("pack %d items of random weight and value under a shared capacity, ordered greedily", items),
		Objective:     objective,
	})
}

// NewCategoricalMatch builds a categorical task scoring the fraction of
// positions matching a seeded hidden target vector.
func NewCategoricalMatch(dim, numClasses int, seed int64) (*Task, error) {
	if dim < 1 {
		return nil, fmt.Errorf("catmatch: dim must be >= 1, got %d", dim)
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("catmatch: need at least 2 classes, got %d", numClasses)
	}
	rng := rand.New(rand.NewSource(seed))

	target := make([]int, dim)
	for d := range target {
		target[d] = rng.Intn(numClasses)
	}

	objective := func(x [][]float64) []float64 {
		ys := make([]float64, len(x))
		for i, row := range x {
			matches := 0
			for d, v := range row {
				if int(v) == target[d] {
					matches++
				}
			}
			ys[i] = float64(matches) / float64(dim)
		}
		return ys
	}

	sampleX := make([][]float64, benchDataSize)
	for i := range sampleX {
		row := make([]float64, dim)
		for d := range row {
			row[d] = float64(rng.Intn(numClasses))
		}
		sampleX[i] = row
	}
	sampleY := objective(sampleX)
	x, y, yMin, yMax := lowScoringSubset(sampleX, sampleY)

	lower := make([]float64, dim)
	upper := make([]float64, dim)
	for d := 0; d < dim; d++ {
		upper[d] = float64(numClasses - 1)
	}

	return New(fmt.Sprintf("catmatch_%dd%dc_s%d", dim, numClasses, seed), Categorical, Config{
		X:             x,
		Y:             y,
		Lower:         lower,
		Upper:         upper,
		NumClasses:    numClasses,
		FullYMin:      &yMin,
		FullYMax:      &yMax,
		EvalStability: true,
		Metadata:      fmt.Sprintf("match a hidden %d-way categorical target in %d dimensions", numClasses, dim),
		Objective:     objective,
	})
}

// NewIntegerGrid builds an integer task maximizing -(sum (x-c)^2) over
// the grid [0, 10]^dim with a seeded integral center c.
func NewIntegerGrid(dim int, seed int64) (*Task, error) {
	if dim < 1 {
		return nil, fmt.Errorf("grid: dim must be >= 1, got %d", dim)
	}
	rng := rand.New(rand.NewSource(seed))

	const gridMax = 10
	center := make([]float64, dim)
	for d := range center {
		center[d] = float64(rng.Intn(gridMax + 1))
	}

	objective := func(x [][]float64) []float64 {
		ys := make([]float64, len(x))
		for i, row := range x {
			var s float64
			for d, v := range row {
				diff := v - center[d]
				s += diff * diff
			}
			ys[i] = -s
		}
		return ys
	}

	sampleX := make([][]float64, benchDataSize)
	for i := range sampleX {
		row := make([]float64, dim)
		for d := range row {
			row[d] = float64(rng.Intn(gridMax + 1))
		}
		sampleX[i] = row
	}
	sampleY := objective(sampleX)
	x, y, yMin, yMax := lowScoringSubset(sampleX, sampleY)

	lower := make([]float64, dim)
	upper := make([]float64, dim)
	for d := 0; d < dim; d++ {
		upper[d] = gridMax
	}

	return New(fmt.Sprintf("grid_%dd_s%d", dim, seed), Integer, Config{
		X:         x,
		Y:         y,
		Lower:     lower,
		Upper:     upper,
		FullYMin:  &yMin,
		FullYMax:  &yMax,
		Metadata:  fmt.Sprintf("find a hidden grid point in [0, %d]^%d", gridMax, dim),
		Objective: objective,
	})
}

// BenchNames lists the built-in benchmark families.
func BenchNames() []string {
	return []string{"sphere", "rastrigin", "ackley", "tsp", "knapsack", "catmatch", "grid"}
}

// NewBench constructs a benchmark task by family name with default
// shape parameters governed by dim.
func NewBench(family string, dim int, seed int64) (*Task, error) {
	switch family {
	case "sphere":
		return NewSphere(dim, seed)
	case "rastrigin":
		return NewRastrigin(dim, seed)
	case "ackley":
		return NewAckley(dim, seed)
	case "tsp":
		return NewTSP(dim, seed)
	case "knapsack":
		return NewKnapsack(dim, seed)
	case "catmatch":
		return NewCategoricalMatch(dim, 3, seed)
	case "grid":
		return NewIntegerGrid(dim, seed)
	default:
		return nil, fmt.Errorf("unknown benchmark family: %q (available: %v)", family, BenchNames())
	}
}

// NewBenchWithData builds the named benchmark but substitutes its
// offline dataset with one supplied by the caller (typically loaded
// from disk). The benchmark still provides the objective, domain kind,
// bounds, and normalization constants; an empty metadata string keeps
// the benchmark's own description.
func NewBenchWithData(family string, dim int, seed int64, x [][]float64, y []float64, metadata string) (*Task, error) {
	base, err := NewBench(family, dim, seed)
	if err != nil {
		return nil, err
	}
	if metadata == "" {
		metadata = base.metadata
	}
	cfg := Config{
		X:             x,
		Y:             y,
		Lower:         base.lower,
		Upper:         base.upper,
		NumClasses:    base.numClasses,
		EvalStability: base.evalStability,
		AnchorFirst:   base.anchorFirst,
		Metadata:      metadata,
		Objective:     base.objective,
	}
	if base.hasFullRange {
		yMin, yMax := base.fullYMin, base.fullYMax
		cfg.FullYMin = &yMin
		cfg.FullYMax = &yMax
	}
	return New(base.name, base.kind, cfg)
}

// lowScoringSubset sorts the sample by score and returns the bottom
// half as the working dataset, with normalization constants taken from
// the FULL sample.
func lowScoringSubset(x [][]float64, y []float64) (subX [][]float64, subY []float64, yMin, yMax float64) {
	yMin = y[0]
	yMax = y[0]
	for _, v := range y[1:] {
		yMin = math.Min(yMin, v)
		yMax = math.Max(yMax, v)
	}

	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return y[idx[a]] < y[idx[b]] })

	half := len(idx) / 2
	subX = make([][]float64, half)
	subY = make([]float64, half)
	for i := 0; i < half; i++ {
		subX[i] = x[idx[i]]
		subY[i] = y[idx[i]]
	}
	return subX, subY, yMin, yMax
}

// anchorZero rotates a permutation in place so it starts at 0.
func anchorZero(perm []int) {
	zero := 0
	for i, p := range perm {
		if p == 0 {
			zero = i
			break
		}
	}
	rotated := append(append([]int{}, perm[zero:]...), perm[:zero]...)
	copy(perm, rotated)
}
