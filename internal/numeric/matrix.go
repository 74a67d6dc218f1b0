package numeric

import (
	"fmt"
	"math"
)

// InvertMatrix inverts an n-by-n row-major matrix via Gauss-Jordan
// elimination with partial pivoting. The input is not modified.
func InvertMatrix(m []float64, n int) ([]float64, error) {
	if len(m) != n*n {
		return nil, fmt.Errorf("invert: %d elements for a %dx%d matrix", len(m), n, n)
	}

	a := append([]float64(nil), m...)
	inv := make([]float64, n*n)
	for i := 0; i < n; i++ {
		inv[i*n+i] = 1
	}

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row*n+col]) > math.Abs(a[pivot*n+col]) {
				pivot = row
			}
		}
		if a[pivot*n+col] == 0 {
			return nil, fmt.Errorf("invert: singular matrix at column %d", col)
		}

		if pivot != col {
			for j := 0; j < n; j++ {
				a[col*n+j], a[pivot*n+j] = a[pivot*n+j], a[col*n+j]
				inv[col*n+j], inv[pivot*n+j] = inv[pivot*n+j], inv[col*n+j]
			}
		}

		p := a[col*n+col]
		for j := 0; j < n; j++ {
			a[col*n+j] /= p
			inv[col*n+j] /= p
		}

		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			f := a[row*n+col]
			if f == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				a[row*n+j] -= f * a[col*n+j]
				inv[row*n+j] -= f * inv[col*n+j]
			}
		}
	}

	return inv, nil
}
