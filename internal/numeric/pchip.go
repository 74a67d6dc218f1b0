package numeric

import (
	"fmt"
	"math"
)

// Pchip is a monotonicity-preserving piecewise cubic Hermite interpolant
// using the Fritsch-Carlson slope limiter. It never overshoots the knot
// values, which keeps interpolated temperature profiles physical.
type Pchip struct {
	xs, ys, slopes []float64
}

// NewPchip builds a monotonic cubic interpolant through the given knots.
// xs must be strictly increasing with at least two knots.
func NewPchip(xs, ys []float64) (*Pchip, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("pchip: %d knots for %d values", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("pchip: need at least 2 knots, got %d", len(xs))
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("pchip: knots not strictly increasing at index %d", i)
		}
	}

	n := len(xs)
	h := make([]float64, n-1)
	delta := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = xs[i+1] - xs[i]
		delta[i] = (ys[i+1] - ys[i]) / h[i]
	}

	slopes := make([]float64, n)

	// Interior slopes: weighted harmonic mean of adjacent secants, zeroed
	// at local extrema (Fritsch-Carlson).
	for i := 1; i < n-1; i++ {
		if delta[i-1]*delta[i] <= 0 {
			continue
		}
		w1 := 2.*h[i] + h[i-1]
		w2 := h[i] + 2.*h[i-1]
		slopes[i] = (w1 + w2) / (w1/delta[i-1] + w2/delta[i])
	}

	slopes[0] = endpointSlope(h[0], h[min(1, n-2)], delta[0], delta[min(1, n-2)])
	slopes[n-1] = endpointSlope(h[n-2], h[max(0, n-3)], delta[n-2], delta[max(0, n-3)])

	return &Pchip{xs: xs, ys: ys, slopes: slopes}, nil
}

// endpointSlope is the one-sided three-point estimate with the shape limiter.
func endpointSlope(h0, h1, d0, d1 float64) float64 {
	s := ((2.*h0+h1)*d0 - h0*d1) / (h0 + h1)
	if s*d0 <= 0 {
		return 0
	}
	if d0*d1 < 0 && math.Abs(s) > 3.*math.Abs(d0) {
		return 3. * d0
	}
	return s
}

// Eval evaluates the interpolant at x, clamping outside the knot range.
func (p *Pchip) Eval(x float64) float64 {
	n := len(p.xs)
	if x <= p.xs[0] {
		return p.ys[0]
	}
	if x >= p.xs[n-1] {
		return p.ys[n-1]
	}

	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if p.xs[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}

	h := p.xs[hi] - p.xs[lo]
	t := (x - p.xs[lo]) / h
	t2 := t * t
	t3 := t2 * t

	h00 := 2.*t3 - 3.*t2 + 1.
	h10 := t3 - 2.*t2 + t
	h01 := -2.*t3 + 3.*t2
	h11 := t3 - t2

	return h00*p.ys[lo] + h10*h*p.slopes[lo] + h01*p.ys[hi] + h11*h*p.slopes[hi]
}

// EvalAll evaluates the interpolant over a grid.
func (p *Pchip) EvalAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = p.Eval(x)
	}
	return out
}
