package search

import (
	"fmt"

	"lane-overlay/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// fitPolynomial fits x = a*y^2 + b*y + c to the samples by least squares.
func fitPolynomial(ys, xs []float64) (geometry.Polynomial, error) {
	n := len(ys)
	if n != len(xs) {
		return geometry.Polynomial{}, fmt.Errorf("sample count mismatch: %d vs %d", n, len(xs))
	}
	if n < 3 {
		return geometry.Polynomial{}, fmt.Errorf("need at least 3 samples, got %d", n)
	}

	// Build overdetermined system
	A := mat.NewDense(n, 3, nil)
	B := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		y := ys[i]
		A.Set(i, 0, y*y)
		A.Set(i, 1, y)
		A.Set(i, 2, 1)
		B.SetVec(i, xs[i])
	}

	// Solve using QR decomposition
	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return geometry.Polynomial{}, err
	}

	return geometry.Polynomial{
		A: params.AtVec(0),
		B: params.AtVec(1),
		C: params.AtVec(2),
	}, nil
}
