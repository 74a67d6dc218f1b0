package numeric

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func TestLogspace(t *testing.T) {
	grid := Logspace(-6, 3, 180)

	if len(grid) != 180 {
		t.Fatalf("len = %d, want 180", len(grid))
	}
	if math.Abs(grid[0]-1e-6) > 1e-18 {
		t.Errorf("grid[0] = %g, want 1e-6", grid[0])
	}
	if math.Abs(grid[179]-1e3) > 1e-9 {
		t.Errorf("grid[179] = %g, want 1e3", grid[179])
	}
	for i := 1; i < len(grid); i++ {
		if grid[i] <= grid[i-1] {
			t.Fatalf("grid not increasing at %d", i)
		}
	}
}

func TestSimpson(t *testing.T) {
	// Integral of x^2 over [0, 1] is 1/3; Simpson is exact for cubics.
	x := Linspace(0, 1, 101)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = v * v
	}

	got, err := Simpson(y, x)
	if err != nil {
		t.Fatalf("Simpson() error = %v", err)
	}
	if math.Abs(got-1./3.) > 1e-12 {
		t.Errorf("Simpson() = %g, want 1/3", got)
	}
}

func TestSimpsonIrregular(t *testing.T) {
	x := []float64{0, 0.1, 0.4, 0.5, 0.9, 1}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 3*v*v + 1
	}

	got, err := Simpson(y, x)
	if err != nil {
		t.Fatalf("Simpson() error = %v", err)
	}
	// Exact integral is 2; the trailing trapezoid costs a little accuracy.
	if math.Abs(got-2.) > 1e-2 {
		t.Errorf("Simpson() = %g, want 2", got)
	}
}

func TestMedianOrderIndependent(t *testing.T) {
	values := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	want := Median(values)

	shuffled := append([]float64(nil), values...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if got := Median(shuffled); got != want {
		t.Errorf("Median(shuffled) = %g, want %g", got, want)
	}
	if !reflect.DeepEqual(values, []float64{3, 1, 4, 1, 5, 9, 2, 6}) {
		t.Error("Median modified the input")
	}
}

func TestArgMaxUnravel(t *testing.T) {
	if got := ArgMax([]float64{-5.0, -1.0}); got != 1 {
		t.Errorf("ArgMax = %d, want 1", got)
	}

	// Flat index 7 in a (3, 4) array is row 1, column 3.
	if got := Unravel(7, []int{3, 4}); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("Unravel(7, [3 4]) = %v, want [1 3]", got)
	}
}

func TestInterp(t *testing.T) {
	xs := []float64{0, 1, 2}
	ys := []float64{0, 10, 40}

	if got := Interp(0.5, xs, ys); got != 5 {
		t.Errorf("Interp(0.5) = %g, want 5", got)
	}
	if got := Interp(-1, xs, ys); got != 0 {
		t.Errorf("Interp(-1) = %g, want 0 (clamped)", got)
	}
	if got := Interp(3, xs, ys); got != 40 {
		t.Errorf("Interp(3) = %g, want 40 (clamped)", got)
	}
}

func TestPchipMonotonic(t *testing.T) {
	xs := []float64{0, 1, 2, 3, 4}
	ys := []float64{0, 0, 1, 10, 10}

	p, err := NewPchip(xs, ys)
	if err != nil {
		t.Fatalf("NewPchip() error = %v", err)
	}

	// Knots are reproduced and no overshoot appears between them.
	for i, x := range xs {
		if got := p.Eval(x); math.Abs(got-ys[i]) > 1e-12 {
			t.Errorf("Eval(%g) = %g, want %g", x, got, ys[i])
		}
	}

	prev := p.Eval(0)
	for _, x := range Linspace(0, 4, 401) {
		v := p.Eval(x)
		if v < prev-1e-12 {
			t.Fatalf("interpolant not monotonic at x=%g", x)
		}
		if v < -1e-12 || v > 10+1e-12 {
			t.Fatalf("interpolant overshoots at x=%g: %g", x, v)
		}
		prev = v
	}
}

func TestPchipBadKnots(t *testing.T) {
	if _, err := NewPchip([]float64{0, 0, 1}, []float64{1, 2, 3}); err == nil {
		t.Error("NewPchip() with duplicate knots expected error")
	}
	if _, err := NewPchip([]float64{0}, []float64{1}); err == nil {
		t.Error("NewPchip() with one knot expected error")
	}
}

func TestGaussianSmooth(t *testing.T) {
	values := []float64{0, 0, 10, 0, 0}

	out := GaussianSmooth(values, 1)
	if out[2] >= 10 {
		t.Errorf("peak not reduced: %g", out[2])
	}
	if out[1] <= 0 || out[3] <= 0 {
		t.Error("neighbors not raised")
	}

	same := GaussianSmooth(values, 0)
	if !reflect.DeepEqual(same, values) {
		t.Errorf("sigma=0 should copy input, got %v", same)
	}
}

func TestAutocorrTime(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	// AR(1) process with coefficient a has tau = (1+a)/(1-a).
	a := 0.9
	want := (1 + a) / (1 - a)

	chain := make([]float64, 20000)
	for i := 1; i < len(chain); i++ {
		chain[i] = a*chain[i-1] + rng.NormFloat64()
	}

	tau, ok := AutocorrTime(chain)
	if !ok {
		t.Fatal("AutocorrTime() reported unreliable for a long chain")
	}
	if tau < 0.5*want || tau > 2*want {
		t.Errorf("tau = %g, want about %g", tau, want)
	}
}

func TestAutocorrTimeShortChain(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	chain := make([]float64, 40)
	for i := 1; i < len(chain); i++ {
		chain[i] = 0.95*chain[i-1] + rng.NormFloat64()
	}

	if _, ok := AutocorrTime(chain); ok {
		t.Error("AutocorrTime() on a short correlated chain should report unreliable")
	}
}
