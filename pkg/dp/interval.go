package dp

import (
	"fmt"

	"github.com/google/differential-privacy/go/v3/noise"
)

// Interval returns the half-width of the two-sided confidence interval that
// contains the true average with probability 1-alpha for a single noisy
// estimate. A run with zero sensitivity adds no noise and has width 0.
func (s Summary) Interval(alpha float64) (float64, error) {
	if s.Sensitivity == 0 {
		return 0, nil
	}

	// l0 = 1 and lInf = sensitivity give the same lambda as Scale.
	ci, err := noise.Laplace().ComputeConfidenceIntervalFloat64(s.Average, 1, s.Sensitivity, s.Epsilon, 0, alpha)
	if err != nil {
		return 0, fmt.Errorf("computing confidence interval: %w", err)
	}
	return (ci.UpperBound - ci.LowerBound) / 2, nil
}
