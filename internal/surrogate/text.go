package surrogate

import (
	"strconv"
	"strings"
)

// Serialize renders a design row as a comma-separated list of named
// coordinates, "x0: 1.25, x1: -0.5". Text-backed predictors consume
// this form directly.
func Serialize(row []float64) string {
	var b strings.Builder
	for d, v := range row {
		if d > 0 {
			b.WriteString(", ")
		}
		b.WriteString("x")
		b.WriteString(strconv.Itoa(d))
		b.WriteString(": ")
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}

// SerializeBatch renders every row, optionally prefixing each with a
// task description so conditioned predictors know which task the
// design belongs to.
func SerializeBatch(x [][]float64, prefix string) []string {
	out := make([]string, len(x))
	for i, row := range x {
		s := Serialize(row)
		if prefix != "" {
			s = prefix + ". " + s
		}
		out[i] = s
	}
	return out
}
