package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ridgeSolve solves (X'X + lambda*P) beta = X'y where P is the identity with the
// first (intercept) column left unpenalised. rows holds the design matrix row-major.
func ridgeSolve(rows [][]float64, y []float64, lambda float64) ([]float64, error) {
	n := len(rows)
	if n == 0 || n != len(y) {
		return nil, fmt.Errorf("design has %d rows for %d targets", n, len(y))
	}
	k := len(rows[0])

	flat := make([]float64, 0, n*k)
	for _, r := range rows {
		flat = append(flat, r...)
	}
	X := mat.NewDense(n, k, flat)
	Y := mat.NewVecDense(n, y)

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	for j := 1; j < k; j++ {
		xtx.Set(j, j, xtx.At(j, j)+lambda)
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), Y)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return nil, fmt.Errorf("least squares solve failed: %w", err)
	}

	out := make([]float64, k)
	for j := range out {
		out[j] = beta.AtVec(j)
	}
	return out, nil
}

// residualVariance returns the mean squared residual of the fitted design.
func residualVariance(rows [][]float64, y, beta []float64) float64 {
	sse := 0.0
	for i, r := range rows {
		d := y[i] - dot(r, beta)
		sse += d * d
	}
	return sse / float64(len(rows))
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
