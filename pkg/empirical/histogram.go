package empirical

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Dividers returns n+1 equally spaced bin edges over the range of values.
// The last edge is nudged above the maximum so the last bin is closed.
// Values that are all equal get a single bin. values must not be empty.
func Dividers(values []float64, n int) []float64 {
	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi || n < 1 {
		return []float64{lo, math.Nextafter(hi, math.Inf(1))}
	}

	div := floats.Span(make([]float64, n+1), lo, hi)
	div[n] = math.Nextafter(hi, math.Inf(1))
	return div
}

// Probabilities returns the share of values in each bin. A positive alpha
// adds alpha to every count before normalizing. Every value must lie within
// the dividers.
func Probabilities(values, dividers []float64, alpha float64) []float64 {
	k := len(dividers) - 1
	probs := make([]float64, k)
	if len(values) > 0 {
		sorted := slices.Clone(values)
		slices.Sort(sorted)
		stat.Histogram(probs, dividers, sorted, nil)
	}

	total := float64(len(values))
	if alpha > 0 {
		total += alpha * float64(k)
		for i := range probs {
			probs[i] += alpha
		}
	}
	if total == 0 {
		return probs
	}
	floats.Scale(1/total, probs)
	return probs
}

// Ratio is the privacy loss estimate of one bin: p/q, 1 when both are zero
// and +Inf when only q is zero.
func Ratio(p, q float64) float64 {
	switch {
	case p == 0 && q == 0:
		return 1
	case q == 0:
		return math.Inf(1)
	default:
		return p / q
	}
}

// Ratios returns the per-bin ratios of p to q and their maximum.
func Ratios(p, q []float64) (float64, []float64) {
	ratios := make([]float64, len(p))
	maxRatio := math.Inf(-1)
	for i := range p {
		ratios[i] = Ratio(p[i], q[i])
		maxRatio = math.Max(maxRatio, ratios[i])
	}
	return maxRatio, ratios
}
