package dp

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

func TestLaplace_Midpoint(t *testing.T) {
	for _, b := range []float64{0, 0.1, 1, 5, 1e6} {
		if got := Laplace(b, 0.5); got != 0 {
			t.Errorf("Laplace(%v, 0.5) = %v, want 0", b, got)
		}
	}
}

func TestLaplace_ZeroScale(t *testing.T) {
	for _, u := range []float64{0, 1e-300, 0.1, 0.5, 0.9, math.Nextafter(1, 0)} {
		got := Laplace(0, u)
		if got != 0 || math.Signbit(got) {
			t.Errorf("Laplace(0, %v) = %v, want exactly 0", u, got)
		}
	}
}

func TestLaplace_InverseCDF(t *testing.T) {
	tests := []struct {
		b float64
		u float64
	}{
		{1, 0.01},
		{1, 0.25},
		{1, 0.49},
		{1, 0.51},
		{1, 0.75},
		{1, 0.99},
		{5, 0.1},
		{5, 0.9},
		{0.25, 0.3},
		{0.25, 0.7},
	}

	for _, tt := range tests {
		ref := distuv.Laplace{Mu: 0, Scale: tt.b}
		x := Laplace(tt.b, tt.u)
		if got := ref.CDF(x); math.Abs(got-tt.u) > 1e-12 {
			t.Errorf("CDF(Laplace(%v, %v)) = %v, want %v", tt.b, tt.u, got, tt.u)
		}
	}
}

func TestLaplace_Formula(t *testing.T) {
	if got, want := Laplace(2, 0.25), 2*math.Log(0.5); got != want {
		t.Errorf("Laplace(2, 0.25) = %v, want %v", got, want)
	}
	if got, want := Laplace(2, 0.75), -2*math.Log(0.5); got != want {
		t.Errorf("Laplace(2, 0.75) = %v, want %v", got, want)
	}
}

func TestLaplace_Symmetry(t *testing.T) {
	for _, u := range []float64{0.01, 0.2, 0.4} {
		lo := Laplace(3, u)
		hi := Laplace(3, 1-u)
		if math.Abs(lo+hi) > 1e-9 {
			t.Errorf("Laplace(3, %v) = %v, Laplace(3, %v) = %v, want opposite values", u, lo, 1-u, hi)
		}
	}
}

func TestLaplace_ExtremeDraws(t *testing.T) {
	// The magnitude grows without bound as u approaches 0 from above.
	near := Laplace(1, 1e-300)
	if near >= 0 || math.Abs(near) < 600 {
		t.Errorf("Laplace(1, 1e-300) = %v, want a large negative value", near)
	}
	if math.Abs(Laplace(1, 1e-10)) <= math.Abs(Laplace(1, 1e-5)) {
		t.Error("magnitude should grow as u approaches 0")
	}

	for _, u := range []float64{0, 1, math.Nextafter(1, 0), -0.1, 1.5} {
		got := Laplace(1, u)
		if math.IsInf(got, 0) || math.IsNaN(got) {
			t.Errorf("Laplace(1, %v) = %v, want a finite value", u, got)
		}
	}
}

func TestNewSource_Deterministic(t *testing.T) {
	a := NewSource(42)
	b := NewSource(42)
	c := NewSource(43)

	same := true
	for i := 0; i < 100; i++ {
		x, y, z := a.Float64(), b.Float64(), c.Float64()
		if x != y {
			t.Fatalf("draw %d: %v != %v for the same seed", i, x, y)
		}
		if x < 0 || x >= 1 {
			t.Fatalf("draw %d = %v, want [0,1)", i, x)
		}
		if x != z {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical sequences")
	}
}

func TestSample_Distribution(t *testing.T) {
	const (
		n = 200000
		b = 2.0
	)
	src := NewSource(7)

	var sum, sumAbs float64
	for i := 0; i < n; i++ {
		x := Sample(src, b)
		sum += x
		sumAbs += math.Abs(x)
	}

	if mean := sum / n; math.Abs(mean) > 0.03*b {
		t.Errorf("sample mean = %v, want about 0", mean)
	}
	// E|X| = b for Laplace(0, b).
	if meanAbs := sumAbs / n; math.Abs(meanAbs-b) > 0.02*b {
		t.Errorf("mean absolute value = %v, want about %v", meanAbs, b)
	}
}
