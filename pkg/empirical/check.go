package empirical

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/ccollicutt/noisyavg/pkg/variant"
)

// DefaultAlphas are the smoothing values tried by AutoTune, in order.
var DefaultAlphas = []float64{0, 0.5, 1, 5}

// TopBins is the number of highest-ratio bins kept per comparison.
const TopBins = 10

// Stats describes the values of one dataset after rounding.
type Stats struct {
	Name variant.Name
	N    int
	Min  float64
	Max  float64
}

// BinRatio is one bin of a comparison.
type BinRatio struct {
	Index int
	Lo    float64
	Hi    float64
	Ratio float64
	P     float64
	Q     float64
}

// Comparison holds the test of the original dataset against one neighbour.
type Comparison struct {
	Name     variant.Name
	MaxRatio float64
	Pass     bool

	// Top lists the highest-ratio bins, infinite ratios first.
	Top []BinRatio
}

// Options configures a check.
type Options struct {
	Epsilon     float64
	Bins        int
	Alpha       float64
	RoundPlaces int
}

// Report is the outcome of one check.
type Report struct {
	Options

	// Threshold is e^epsilon; a comparison passes when its maximum ratio
	// is strictly below it.
	Threshold float64

	// Lo and Hi bound the binned range.
	Lo float64
	Hi float64

	Stats []Stats

	// Comparisons holds each neighbour followed by the combined neighbours.
	Comparisons []Comparison

	// Pass is true when every comparison passes.
	Pass bool
}

// Score is the largest maximum ratio over all comparisons.
func (r *Report) Score() float64 {
	score := math.Inf(-1)
	for _, c := range r.Comparisons {
		score = math.Max(score, c.MaxRatio)
	}
	return score
}

// Check bins the rounded values of every dataset over their common range and
// compares the original's bin probabilities with each neighbour's.
func Check(s *Samples, opts Options) (*Report, error) {
	if opts.Bins < 1 {
		return nil, fmt.Errorf("bins must be >= 1, got %d", opts.Bins)
	}

	orig := Sample{Name: s.Original.Name, Values: Round(s.Original.Values, opts.RoundPlaces)}
	neighbors := make([]Sample, len(s.Neighbors))
	for i, n := range s.Neighbors {
		neighbors[i] = Sample{Name: n.Name, Values: Round(n.Values, opts.RoundPlaces)}
	}
	combined := (&Samples{Neighbors: neighbors}).Combined()

	all := append(slices.Clone(orig.Values), combined.Values...)
	if len(orig.Values) == 0 || len(combined.Values) == 0 {
		return nil, fmt.Errorf("comparing datasets: %w", ErrNoSamples)
	}
	for _, n := range neighbors {
		if len(n.Values) == 0 {
			return nil, fmt.Errorf("%s: %w", n.Name, ErrNoSamples)
		}
	}

	div := Dividers(all, opts.Bins)
	r := &Report{
		Options:   opts,
		Threshold: math.Exp(opts.Epsilon),
		Lo:        div[0],
		Hi:        floats.Max(all),
		Pass:      true,
	}

	for _, d := range append([]Sample{orig}, neighbors...) {
		r.Stats = append(r.Stats, Stats{
			Name: d.Name,
			N:    len(d.Values),
			Min:  floats.Min(d.Values),
			Max:  floats.Max(d.Values),
		})
	}

	p := Probabilities(orig.Values, div, opts.Alpha)
	for _, d := range append(neighbors, combined) {
		q := Probabilities(d.Values, div, opts.Alpha)
		maxRatio, ratios := Ratios(p, q)
		c := Comparison{
			Name:     d.Name,
			MaxRatio: maxRatio,
			Pass:     maxRatio < r.Threshold,
			Top:      topBins(ratios, p, q, div),
		}
		r.Pass = r.Pass && c.Pass
		r.Comparisons = append(r.Comparisons, c)
	}

	return r, nil
}

func topBins(ratios, p, q, div []float64) []BinRatio {
	bins := make([]BinRatio, len(ratios))
	for i := range ratios {
		bins[i] = BinRatio{Index: i, Lo: div[i], Hi: div[i+1], Ratio: ratios[i], P: p[i], Q: q[i]}
	}
	bins[len(bins)-1].Hi = math.Nextafter(div[len(div)-1], math.Inf(-1))

	slices.SortStableFunc(bins, func(a, b BinRatio) int {
		return cmp.Compare(b.Ratio, a.Ratio)
	})
	return bins[:min(TopBins, len(bins))]
}

// AutoTune searches alphas (outer) and bin counts (inner) for the first
// setting where every comparison passes. When none passes it returns the
// report with the lowest score, earliest on ties.
func AutoTune(s *Samples, opts Options, bins []int, alphas []float64) (*Report, error) {
	var best *Report
	for _, alpha := range alphas {
		for _, b := range bins {
			o := opts
			o.Alpha = alpha
			o.Bins = b

			r, err := Check(s, o)
			if err != nil {
				return nil, err
			}
			if r.Pass {
				return r, nil
			}
			if best == nil || r.Score() < best.Score() {
				best = r
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("auto-tune: no bin counts or alphas to try")
	}
	return best, nil
}
