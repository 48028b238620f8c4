// Package dp implements the Laplace mechanism for a noisy bounded average.
package dp

import (
	"math"
	"math/rand/v2"
)

// Source is a stateful uniform random generator.
// Float64 must return values in [0, 1). A Source is not safe for
// concurrent use; callers share one Source sequentially.
type Source interface {
	Float64() float64
}

// NewSource returns a deterministic Source seeded with seed.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

var (
	smallestDraw = math.SmallestNonzeroFloat64
	largestDraw  = math.Nextafter(1, 0)
)

// Laplace maps a uniform draw u in [0, 1) to a Laplace(0, b) sample using the
// inverse CDF. A zero scale always yields exactly 0. Draws at or outside the
// ends of the interval are clamped so the logarithm stays finite.
func Laplace(b, u float64) float64 {
	if b == 0 || u == 0.5 {
		return 0
	}
	if u < smallestDraw {
		u = smallestDraw
	} else if u > largestDraw {
		u = largestDraw
	}
	if u < 0.5 {
		return b * math.Log(2*u)
	}
	return -b * math.Log(2*(1-u))
}

// Sample draws one Laplace(0, b) value from src.
func Sample(src Source, b float64) float64 {
	return Laplace(b, src.Float64())
}
