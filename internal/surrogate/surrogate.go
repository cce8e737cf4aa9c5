// Package surrogate bridges external score models to the search
// layer. A Predictor scores serialized designs; the adapter turns one
// into a search.ScoreFunc.
package surrogate

import "context"

// Predictor scores a batch of serialized designs. Implementations are
// expected to return exactly one score per input, higher is better.
type Predictor interface {
	Predict(ctx context.Context, inputs []string) ([]float64, error)
}
