// Package task defines the offline black-box optimization problem
// abstraction: a fixed (design, score) dataset, per-dimension bounds,
// and a true-objective evaluator used only for held-out scoring.
package task

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/trxcc/universal-offline-bbo/internal/score"
)

// Kind identifies the domain of a task's design space. Operator
// selection and input validation dispatch on it exactly once, at
// construction time of a searcher.
type Kind int

const (
	Continuous Kind = iota
	Categorical
	Integer
	Permutation
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Categorical:
		return "categorical"
	case Integer:
		return "integer"
	case Permutation:
		return "permutation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses the string form used in CLI flags and job configs.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "continuous":
		return Continuous, nil
	case "categorical":
		return Categorical, nil
	case "integer":
		return Integer, nil
	case "permutation":
		return Permutation, nil
	default:
		return 0, fmt.Errorf("unknown task kind: %q", s)
	}
}

// Objective is the true objective for a task: a batch of designs in,
// one score per design out, higher is better. It is used only for
// final evaluation, never for search guidance.
type Objective func(x [][]float64) []float64

// Config assembles a Task. FullYMin/FullYMax are the full-dataset
// normalization constants; they must be both set or both nil, and come
// from the authoritative full dataset, not the (possibly filtered)
// working subset in X/Y.
type Config struct {
	X     [][]float64
	Y     []float64
	Lower []float64
	Upper []float64

	// NumClasses is the per-dimension category cardinality.
	// Required for Categorical tasks, rejected otherwise.
	NumClasses int

	FullYMin *float64
	FullYMax *float64

	// EvalStability marks tasks whose evaluator is cheap enough for
	// repeated-trial stability measurement.
	EvalStability bool

	// AnchorFirst marks permutation families whose tours are anchored
	// to start at index 0 (selects the anchor repair operator).
	AnchorFirst bool

	// Metadata is the free-text task description consumed by the
	// surrogate text adapter when metadata conditioning is enabled.
	Metadata string

	Objective Objective
}

// Task is one fixed optimization problem instance. It is immutable
// after construction; searchers only read from it.
type Task struct {
	name string
	kind Kind

	x [][]float64
	y []float64

	lower []float64
	upper []float64

	numClasses int

	fullYMin     float64
	fullYMax     float64
	hasFullRange bool

	evalStability bool
	anchorFirst   bool
	metadata      string

	objective Objective
}

// New validates the config and constructs a Task.
func New(name string, kind Kind, cfg Config) (*Task, error) {
	if name == "" {
		return nil, fmt.Errorf("task name cannot be empty")
	}
	if cfg.Objective == nil {
		return nil, fmt.Errorf("task %s: objective is required", name)
	}
	if len(cfg.X) == 0 {
		return nil, fmt.Errorf("task %s: offline dataset cannot be empty", name)
	}
	if len(cfg.X) != len(cfg.Y) {
		return nil, fmt.Errorf("task %s: x has %d rows but y has %d", name, len(cfg.X), len(cfg.Y))
	}

	dim := len(cfg.X[0])
	if dim == 0 {
		return nil, fmt.Errorf("task %s: designs cannot be zero-dimensional", name)
	}
	for i, row := range cfg.X {
		if len(row) != dim {
			return nil, fmt.Errorf("task %s: design %d has %d dims, expected %d", name, i, len(row), dim)
		}
	}
	if len(cfg.Lower) != dim || len(cfg.Upper) != dim {
		return nil, fmt.Errorf("task %s: bounds length %d/%d does not match dim %d",
			name, len(cfg.Lower), len(cfg.Upper), dim)
	}
	for d := 0; d < dim; d++ {
		if cfg.Lower[d] > cfg.Upper[d] {
			return nil, fmt.Errorf("task %s: lower bound %g > upper bound %g at dim %d",
				name, cfg.Lower[d], cfg.Upper[d], d)
		}
	}

	if kind == Categorical {
		if cfg.NumClasses < 2 {
			return nil, fmt.Errorf("task %s: categorical tasks need NumClasses >= 2, got %d",
				name, cfg.NumClasses)
		}
	} else if cfg.NumClasses != 0 {
		return nil, fmt.Errorf("task %s: NumClasses is only valid for categorical tasks", name)
	}

	if (cfg.FullYMin == nil) != (cfg.FullYMax == nil) {
		return nil, fmt.Errorf("task %s: FullYMin and FullYMax must be set together", name)
	}

	t := &Task{
		name:          name,
		kind:          kind,
		x:             cfg.X,
		y:             cfg.Y,
		lower:         cfg.Lower,
		upper:         cfg.Upper,
		numClasses:    cfg.NumClasses,
		evalStability: cfg.EvalStability,
		anchorFirst:   cfg.AnchorFirst,
		metadata:      cfg.Metadata,
		objective:     cfg.Objective,
	}
	if cfg.FullYMin != nil {
		if *cfg.FullYMax <= *cfg.FullYMin {
			return nil, fmt.Errorf("task %s: FullYMax %g must exceed FullYMin %g",
				name, *cfg.FullYMax, *cfg.FullYMin)
		}
		t.fullYMin = *cfg.FullYMin
		t.fullYMax = *cfg.FullYMax
		t.hasFullRange = true
	}
	return t, nil
}

// Name returns the task identifier.
func (t *Task) Name() string { return t.name }

// Kind returns the design-space domain.
func (t *Task) Kind() Kind { return t.kind }

// Dim returns the dimensionality of the search space. For permutation
// tasks this is the permutation length.
func (t *Task) Dim() int { return len(t.x[0]) }

// Data returns the offline design matrix and scores. Callers must
// treat both as read-only.
func (t *Task) Data() ([][]float64, []float64) { return t.x, t.y }

// Bounds returns the per-dimension lower and upper bounds. For
// categorical tasks the bounds span the category index range.
func (t *Task) Bounds() (lower, upper []float64) { return t.lower, t.upper }

// NumClasses returns the per-dimension category cardinality.
// Querying it on a non-categorical task is a caller bug.
func (t *Task) NumClasses() (int, error) {
	if t.kind != Categorical {
		return 0, fmt.Errorf("task %s: %s tasks do not have a category cardinality", t.name, t.kind)
	}
	return t.numClasses, nil
}

// FullRange returns the full-dataset normalization constants, if they
// were provided at construction.
func (t *Task) FullRange() (yMin, yMax float64, ok bool) {
	return t.fullYMin, t.fullYMax, t.hasFullRange
}

// EvalStability reports whether this task supports repeated-trial
// stability measurement.
func (t *Task) EvalStability() bool { return t.evalStability }

// AnchorFirst reports whether permutations for this task are anchored
// to start at index 0.
func (t *Task) AnchorFirst() bool { return t.anchorFirst }

// Metadata returns the free-text task description.
func (t *Task) Metadata() string { return t.metadata }

// Evaluate applies the true objective to a batch of candidate designs
// and returns the percentile report. Dimension or domain violations
// are caller bugs and fail fast. When returnNormalized is true and the
// full-range constants are available, "normalized/" keys are added;
// when they are unavailable a warning is logged and the raw report is
// returned — normalization is a reporting concern, never a correctness
// requirement of search.
func (t *Task) Evaluate(x [][]float64, returnNormalized bool) (score.Report, error) {
	ys, err := t.Score(x)
	if err != nil {
		return nil, err
	}

	rep, err := score.Percentiles(ys)
	if err != nil {
		return nil, err
	}
	if !returnNormalized {
		return rep, nil
	}
	if !t.hasFullRange {
		slog.Warn("normalization constants unavailable, returning raw scores only", "task", t.name)
		return rep, nil
	}
	return score.WithNormalized(rep, t.fullYMin, t.fullYMax)
}

// Score applies the true objective to a batch and returns the raw
// scores. This is the sanity-mode seam: when no surrogate is
// available, searchers can be driven by the objective directly.
func (t *Task) Score(x [][]float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("task %s: cannot score an empty batch", t.name)
	}
	dim := t.Dim()
	for i, row := range x {
		if len(row) != dim {
			return nil, fmt.Errorf("task %s: design %d has %d dims, expected %d", t.name, i, len(row), dim)
		}
	}
	if err := t.checkDomain(x); err != nil {
		return nil, err
	}
	ys := t.objective(x)
	if len(ys) != len(x) {
		return nil, fmt.Errorf("task %s: objective returned %d scores for %d designs", t.name, len(ys), len(x))
	}
	return ys, nil
}

// checkDomain enforces the numeric-representation contract: discrete
// kinds only accept integral values.
func (t *Task) checkDomain(x [][]float64) error {
	switch t.kind {
	case Continuous:
		return nil
	case Categorical, Integer, Permutation:
		for i, row := range x {
			for d, v := range row {
				if v != math.Trunc(v) {
					return fmt.Errorf("task %s: %s designs must be integral, got %g at [%d][%d]",
						t.name, t.kind, v, i, d)
				}
			}
		}
		return nil
	default:
		return fmt.Errorf("task %s: unsupported kind %s", t.name, t.kind)
	}
}
