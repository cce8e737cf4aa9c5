package task

import (
	"math"
	"testing"

	"github.com/trxcc/universal-offline-bbo/internal/score"
)

// negSumObjective scores a design by the negated sum of its
// coordinates, so smaller coordinates are better designs.
func negSumObjective(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		s := 0.0
		for _, v := range row {
			s += v
		}
		out[i] = -s
	}
	return out
}

func continuousConfig() Config {
	return Config{
		X:         [][]float64{{0, 0}, {1, 1}, {2, 2}},
		Y:         []float64{0, -2, -4},
		Lower:     []float64{-5, -5},
		Upper:     []float64{5, 5},
		Objective: negSumObjective,
	}
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		kind   Kind
	}{
		{"empty dataset", func(c *Config) { c.X = nil; c.Y = nil }, Continuous},
		{"row count mismatch", func(c *Config) { c.Y = c.Y[:1] }, Continuous},
		{"bounds dim mismatch", func(c *Config) { c.Lower = []float64{-5} }, Continuous},
		{"inverted bounds", func(c *Config) { c.Upper = []float64{-6, -6} }, Continuous},
		{"missing num classes", func(c *Config) {}, Categorical},
		{"num classes on continuous", func(c *Config) { c.NumClasses = 3 }, Continuous},
		{"partial full range", func(c *Config) { v := 1.0; c.FullYMin = &v }, Continuous},
		{"nil objective", func(c *Config) { c.Objective = nil }, Continuous},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := continuousConfig()
			tc.mutate(&cfg)
			if _, err := New("bad", tc.kind, cfg); err == nil {
				t.Errorf("Expected construction error for %s", tc.name)
			}
		})
	}
}

func TestNewAccessors(t *testing.T) {
	cfg := continuousConfig()
	yMin, yMax := -4.0, 0.0
	cfg.FullYMin = &yMin
	cfg.FullYMax = &yMax
	cfg.Metadata = "minimize the coordinate sum"

	tk, err := New("sum", Continuous, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if tk.Name() != "sum" || tk.Kind() != Continuous || tk.Dim() != 2 {
		t.Errorf("Accessor mismatch: name=%s kind=%s dim=%d", tk.Name(), tk.Kind(), tk.Dim())
	}
	lo, hi, ok := tk.FullRange()
	if !ok || lo != yMin || hi != yMax {
		t.Errorf("FullRange = (%g, %g, %v), want (%g, %g, true)", lo, hi, ok, yMin, yMax)
	}
	if _, err := tk.NumClasses(); err == nil {
		t.Error("NumClasses should fail for continuous tasks")
	}
}

func TestScoreDimensionCheck(t *testing.T) {
	tk, err := New("sum", Continuous, continuousConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := tk.Score([][]float64{{1, 2, 3}}); err == nil {
		t.Error("Expected error for wrong design dimensionality")
	}
	if _, err := tk.Score(nil); err == nil {
		t.Error("Expected error for empty batch")
	}
}

func TestScoreIntegralityCheck(t *testing.T) {
	cfg := Config{
		X:          [][]float64{{0, 1}, {1, 2}},
		Y:          []float64{1, 0},
		Lower:      []float64{0, 0},
		Upper:      []float64{2, 2},
		NumClasses: 3,
		Objective:  negSumObjective,
	}
	tk, err := New("cat", Categorical, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := tk.Score([][]float64{{0.5, 1}}); err == nil {
		t.Error("Expected integrality error for categorical design 0.5")
	}
	if _, err := tk.Score([][]float64{{0, 2}}); err != nil {
		t.Errorf("Integral design rejected: %v", err)
	}
}

func TestEvaluateWithNormalization(t *testing.T) {
	cfg := continuousConfig()
	yMin, yMax := -10.0, 0.0
	cfg.FullYMin = &yMin
	cfg.FullYMax = &yMax

	tk, err := New("sum", Continuous, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rep, err := tk.Evaluate([][]float64{{0, 0}, {5, 5}}, true)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// Scores are 0 and -10; max is 0 which normalizes to 1.
	if got := rep[score.Key100th]; got != 0 {
		t.Errorf("100th = %g, want 0", got)
	}
	if got := rep[score.NormalizedPrefix+score.Key100th]; math.Abs(got-1.0) > 1e-9 {
		t.Errorf("normalized 100th = %g, want 1.0", got)
	}
}

func TestEvaluateWithoutFullRange(t *testing.T) {
	tk, err := New("sum", Continuous, continuousConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Asking for normalization without constants degrades to the raw
	// report instead of failing.
	rep, err := tk.Evaluate([][]float64{{1, 1}}, true)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if _, ok := rep[score.NormalizedPrefix+score.Key100th]; ok {
		t.Error("Normalized keys present without full-range constants")
	}
	if _, ok := rep[score.Key100th]; !ok {
		t.Error("Raw report missing")
	}
}
