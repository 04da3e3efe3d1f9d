package linalg

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned by CholeskyDense when H is not
// positive-definite; the LM driver treats this as a rejected step.
var ErrSingular = errors.New("linalg: matrix is not positive-definite")

// CholeskyDense solves (JᵀJ + λ diag(JᵀJ)) x = b for x via a dense
// Cholesky factorisation from gonum.org/v1/gonum/mat.
func CholeskyDense(h [][]float64, b []float64) ([]float64, error) {
	n := len(h)
	flat := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		flat = append(flat, h[i]...)
	}
	sym := mat.NewSymDense(n, flat)

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, ErrSingular
	}

	rhs := mat.NewVecDense(n, b)
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, rhs); err != nil {
		return nil, ErrSingular
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = x.AtVec(i)
	}
	return out, nil
}
