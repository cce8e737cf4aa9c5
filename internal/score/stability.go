package score

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Stability measures how sensitive a search run's outcome is to
// randomness, from the per-generation best scores of a run executed in
// stability mode. It is the coefficient of variation of the best score
// over the trailing half of the history: a run that has settled reports
// a value near zero, a run still jumping around reports a large one.
func Stability(bestPerGen []float64) (float64, error) {
	if len(bestPerGen) < 2 {
		return 0, fmt.Errorf("stability requires at least 2 generations, got %d", len(bestPerGen))
	}

	tail := bestPerGen[len(bestPerGen)/2:]
	if len(tail) < 2 {
		tail = bestPerGen
	}

	mean, std := stat.MeanStdDev(tail, nil)
	if math.Abs(mean) < 1e-12 {
		return std, nil
	}
	return std / math.Abs(mean), nil
}
