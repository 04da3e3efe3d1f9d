package linalg

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// SymmetricEigen decomposes the symmetric matrix s (size n×n, row-major)
// into ascending eigenvalues and their eigenvectors, using gonum's
// symmetric eigensolver rather than a hand-rolled QR iteration.
//
// DLT wants the eigenvector of the smallest eigenvalue of
// AᵀA as the null-space solution; when the two smallest eigenvalues are
// within rankTolRel of each other the null space is (numerically)
// two-dimensional and rng disambiguates by drawing a random combination of
// the two candidate vectors, re-normalised; this keeps the routine
// deterministic given a seeded rng.
func SymmetricEigen(s [][]float64, rng *rand.Rand) (vals []float64, vecs [][]float64) {
	n := len(s)
	flat := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		flat = append(flat, s[i]...)
	}
	sym := mat.NewSymDense(n, flat)

	var eig mat.EigenSym
	ok := eig.Factorize(sym, true)
	if !ok {
		return make([]float64, n), identityRows(n)
	}

	rawVals := eig.Values(nil)
	var ev mat.Dense
	eig.VectorsTo(&ev)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return rawVals[order[i]] < rawVals[order[j]] })

	vals = make([]float64, n)
	vecs = make([][]float64, n)
	for col := range vecs {
		vecs[col] = make([]float64, n)
	}
	for destCol, srcCol := range order {
		vals[destCol] = rawVals[srcCol]
		for row := 0; row < n; row++ {
			vecs[row][destCol] = ev.At(row, srcCol)
		}
	}

	if n >= 2 && rng != nil && vals[1]-vals[0] < rankTolRel*maxAbsFloat(vals) {
		resolveDegenerateNullSpace(vecs, rng)
	}
	return vals, vecs
}

func resolveDegenerateNullSpace(vecs [][]float64, rng *rand.Rand) {
	n := len(vecs)
	alpha := rng.Float64()*2 - 1
	beta := rng.Float64()*2 - 1
	combined := make([]float64, n)
	var norm float64
	for row := 0; row < n; row++ {
		combined[row] = alpha*vecs[row][0] + beta*vecs[row][1]
		norm += combined[row] * combined[row]
	}
	if norm < zeroTol {
		return
	}
	inv := 1 / math.Sqrt(norm)
	for row := 0; row < n; row++ {
		vecs[row][0] = combined[row] * inv
	}
}

func identityRows(n int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		rows[i][i] = 1
	}
	return rows
}

func maxAbsFloat(xs []float64) float64 {
	var m float64
	for _, x := range xs {
		if x < 0 {
			x = -x
		}
		if x > m {
			m = x
		}
	}
	if m == 0 {
		return 1
	}
	return m
}

