// Package numeric implements the small numerical kernels used by the
// ingestion and posterior packages: grid generation, quadrature, summary
// statistics, monotonic interpolation and autocorrelation estimation.
package numeric

import (
	"fmt"
	"math"
	"sort"
)

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n == 1 {
		return []float64{start}
	}

	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Logspace returns n log-spaced values from 10^start to 10^stop inclusive.
func Logspace(start, stop float64, n int) []float64 {
	out := Linspace(start, stop, n)
	for i, v := range out {
		out[i] = math.Pow(10., v)
	}
	return out
}

// Simpson integrates y over the sample points x using composite Simpson's
// rule for irregularly spaced data. With an even number of intervals the
// trailing interval is handled with a trapezoid.
func Simpson(y, x []float64) (float64, error) {
	if len(y) != len(x) {
		return 0, fmt.Errorf("simpson: %d samples for %d points", len(y), len(x))
	}
	if len(y) < 2 {
		return 0, fmt.Errorf("simpson: need at least 2 samples, got %d", len(y))
	}

	total := 0.
	i := 0
	for ; i+2 < len(x); i += 2 {
		h0 := x[i+1] - x[i]
		h1 := x[i+2] - x[i+1]
		hs := h0 + h1

		total += hs / 6. * ((2.-h1/h0)*y[i] + hs*hs/(h0*h1)*y[i+1] + (2.-h0/h1)*y[i+2])
	}

	if i+1 < len(x) {
		total += 0.5 * (x[i+1] - x[i]) * (y[i] + y[i+1])
	}

	return total, nil
}

// Median returns the median of values without modifying the input.
func Median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) float64 {
	sum := 0.
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Std returns the population standard deviation of values.
func Std(values []float64) float64 {
	mean := Mean(values)
	sum := 0.
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// ArgMax returns the index of the largest value.
func ArgMax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

// ArgMin returns the index of the smallest value.
func ArgMin(values []float64) int {
	best := 0
	for i, v := range values {
		if v < values[best] {
			best = i
		}
	}
	return best
}

// Unravel converts a flat row-major index into per-axis indices for the
// given shape.
func Unravel(index int, shape []int) []int {
	out := make([]int, len(shape))
	for i := len(shape) - 1; i >= 0; i-- {
		out[i] = index % shape[i]
		index /= shape[i]
	}
	return out
}

// Interp linearly interpolates ys over xs at x, clamping outside the range.
// xs must be strictly increasing.
func Interp(x float64, xs, ys []float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[len(xs)-1] {
		return ys[len(ys)-1]
	}

	i := sort.SearchFloat64s(xs, x)
	t := (x - xs[i-1]) / (xs[i] - xs[i-1])
	return ys[i-1] + t*(ys[i]-ys[i-1])
}

// GaussianSmooth smooths values with a Gaussian kernel of the given width in
// index units. Width zero or negative returns a copy of the input.
func GaussianSmooth(values []float64, sigma float64) []float64 {
	out := make([]float64, len(values))
	if sigma <= 0 {
		copy(out, values)
		return out
	}

	half := int(math.Ceil(4. * sigma))
	for i := range values {
		sum, norm := 0., 0.
		for k := -half; k <= half; k++ {
			j := i + k
			if j < 0 || j >= len(values) {
				continue
			}
			w := math.Exp(-0.5 * float64(k*k) / (sigma * sigma))
			sum += w * values[j]
			norm += w
		}
		out[i] = sum / norm
	}
	return out
}
