package surrogate

import (
	"context"
	"fmt"

	"github.com/trxcc/universal-offline-bbo/internal/search"
)

// ScoreFunc adapts a Predictor to the search layer: each batch of
// designs is serialized with the given prefix, scored in one call, and
// the scores passed through untouched. No clipping or rescaling
// happens here; searchers see exactly what the predictor said.
func ScoreFunc(ctx context.Context, p Predictor, prefix string) search.ScoreFunc {
	return func(x [][]float64) ([]float64, error) {
		scores, err := p.Predict(ctx, SerializeBatch(x, prefix))
		if err != nil {
			return nil, fmt.Errorf("surrogate: predict: %w", err)
		}
		if len(scores) != len(x) {
			return nil, fmt.Errorf("surrogate: got %d scores for %d designs", len(scores), len(x))
		}
		return scores, nil
	}
}
