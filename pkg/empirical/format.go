package empirical

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// Format writes a human-readable rendering of r.
func (r *Report) Format(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Binning into %d bins over range [%.4f, %.4f] (alpha=%g)\n\n", r.Bins, r.Lo, r.Hi, r.Alpha)
	for _, s := range r.Stats {
		fmt.Fprintf(&b, "%s: N=%d min=%.2f max=%.2f\n", s.Name, s.N, s.Min, s.Max)
	}
	b.WriteString("\n")

	for _, c := range r.Comparisons {
		fmt.Fprintf(&b, "original vs %s: max ratio = %s -> satisfies eps=%g ? %t\n",
			c.Name, formatRatio(c.MaxRatio), r.Epsilon, c.Pass)
	}
	b.WriteString("\n")

	for _, c := range r.Comparisons {
		fmt.Fprintf(&b, "Top bins for original vs %s (ratio, bin, [lo,hi], p_original, p_%s):\n", c.Name, c.Name)
		for _, t := range c.Top {
			fmt.Fprintf(&b, "  %-8s  %3d  [%.4f,%.4f]  p=%.4f q=%.4f\n",
				formatRatio(t.Ratio), t.Index, t.Lo, t.Hi, t.P, t.Q)
		}
		b.WriteString("\n")
	}

	verdict := "FAIL"
	if r.Pass {
		verdict = "PASS"
	}
	fmt.Fprintf(&b, "Result: %s (threshold e^%g = %.4f)\n", verdict, r.Epsilon, r.Threshold)

	_, err := io.WriteString(w, b.String())
	return err
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.4f", v)
}
