package score

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Percentile report keys. Every task type reports the same four
// statistics over a batch of evaluated designs.
const (
	Key100th = "score/100th"
	Key75th  = "score/75th"
	Key50th  = "score/50th"
	Key25th  = "score/25th"
)

// NormalizedPrefix is prepended to the percentile keys when scores are
// rescaled by the task's full-data range.
const NormalizedPrefix = "normalized/"

// Report maps percentile keys to values.
type Report map[string]float64

// Percentiles computes the canonical four-statistic report over a batch
// of raw scores: max, 75th percentile, median, 25th percentile.
// Percentiles use linear interpolation between order statistics.
func Percentiles(scores []float64) (Report, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("cannot compute percentiles of empty score batch")
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	return Report{
		Key100th: sorted[len(sorted)-1],
		Key75th:  stat.Quantile(0.75, stat.LinInterp, sorted, nil),
		Key50th:  stat.Quantile(0.50, stat.LinInterp, sorted, nil),
		Key25th:  stat.Quantile(0.25, stat.LinInterp, sorted, nil),
	}, nil
}

// WithNormalized returns a copy of the report extended with
// "normalized/" keys, each value rescaled as (v - yMin) / (yMax - yMin).
// yMin and yMax must come from the full reference dataset for the task,
// not from the possibly-filtered working subset.
func WithNormalized(rep Report, yMin, yMax float64) (Report, error) {
	if yMax <= yMin {
		return nil, fmt.Errorf("invalid normalization range [%g, %g]", yMin, yMax)
	}

	out := make(Report, 2*len(rep))
	span := yMax - yMin
	for key, v := range rep {
		out[key] = v
		out[NormalizedPrefix+key] = (v - yMin) / span
	}
	return out, nil
}
