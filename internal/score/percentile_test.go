package score

import (
	"math"
	"testing"
)

func TestPercentilesKnownValues(t *testing.T) {
	// 0..100 inclusive: percentiles land exactly on sample points.
	scores := make([]float64, 101)
	for i := range scores {
		scores[i] = float64(i)
	}

	rep, err := Percentiles(scores)
	if err != nil {
		t.Fatalf("Percentiles failed: %v", err)
	}

	if got := rep[Key100th]; got != 100 {
		t.Errorf("%s = %g, want 100", Key100th, got)
	}
	// Interpolated percentiles land within one order statistic of the
	// nominal value for this evenly spaced sample.
	approx := map[string]float64{
		Key75th: 75,
		Key50th: 50,
		Key25th: 25,
	}
	for key, want := range approx {
		got, ok := rep[key]
		if !ok {
			t.Fatalf("Missing key %q in report", key)
		}
		if math.Abs(got-want) > 1.0 {
			t.Errorf("%s = %g, want about %g", key, got, want)
		}
	}
}

func TestPercentilesMonotonic(t *testing.T) {
	scores := []float64{3.2, -1.5, 0.0, 7.8, 2.1, -4.4, 9.9, 1.1}

	rep, err := Percentiles(scores)
	if err != nil {
		t.Fatalf("Percentiles failed: %v", err)
	}

	if rep[Key100th] < rep[Key75th] || rep[Key75th] < rep[Key50th] || rep[Key50th] < rep[Key25th] {
		t.Errorf("Percentiles not monotonic: %v", rep)
	}
	if rep[Key100th] != 9.9 {
		t.Errorf("100th percentile = %g, want the maximum 9.9", rep[Key100th])
	}
}

func TestPercentilesDoesNotMutateInput(t *testing.T) {
	scores := []float64{5, 1, 3}

	if _, err := Percentiles(scores); err != nil {
		t.Fatalf("Percentiles failed: %v", err)
	}

	if scores[0] != 5 || scores[1] != 1 || scores[2] != 3 {
		t.Errorf("Input slice was mutated: %v", scores)
	}
}

func TestPercentilesEmpty(t *testing.T) {
	if _, err := Percentiles(nil); err == nil {
		t.Fatal("Expected error for empty scores")
	}
}

func TestWithNormalized(t *testing.T) {
	rep := Report{
		Key100th: 10,
		Key50th:  5,
	}

	out, err := WithNormalized(rep, 0, 10)
	if err != nil {
		t.Fatalf("WithNormalized failed: %v", err)
	}

	if got := out[NormalizedPrefix+Key100th]; math.Abs(got-1.0) > 1e-9 {
		t.Errorf("normalized 100th = %g, want 1.0", got)
	}
	if got := out[NormalizedPrefix+Key50th]; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("normalized 50th = %g, want 0.5", got)
	}

	// Raw keys must survive alongside the normalized ones.
	if _, ok := out[Key100th]; !ok {
		t.Error("Raw key dropped by normalization")
	}
}

func TestWithNormalizedDegenerateRange(t *testing.T) {
	rep := Report{Key100th: 1}

	if _, err := WithNormalized(rep, 5, 5); err == nil {
		t.Fatal("Expected error for yMax == yMin")
	}
	if _, err := WithNormalized(rep, 5, 4); err == nil {
		t.Fatal("Expected error for yMax < yMin")
	}
}

func TestStabilityConstantSeries(t *testing.T) {
	best := []float64{1, 2, 3, 5, 5, 5, 5, 5}

	s, err := Stability(best)
	if err != nil {
		t.Fatalf("Stability failed: %v", err)
	}
	if s != 0 {
		t.Errorf("Stability of a constant trailing half = %g, want 0", s)
	}
}

func TestStabilityVaryingSeries(t *testing.T) {
	steady := []float64{0, 0, 10, 10.1, 10, 10.05}
	noisy := []float64{0, 0, 2, 18, 5, 14}

	sSteady, err := Stability(steady)
	if err != nil {
		t.Fatalf("Stability failed: %v", err)
	}
	sNoisy, err := Stability(noisy)
	if err != nil {
		t.Fatalf("Stability failed: %v", err)
	}

	if sSteady >= sNoisy {
		t.Errorf("Steady series (%g) should be more stable than noisy series (%g)", sSteady, sNoisy)
	}
}

func TestStabilityTooShort(t *testing.T) {
	if _, err := Stability([]float64{1}); err == nil {
		t.Fatal("Expected error for a single-point series")
	}
}
