package lm

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// halfSumSquares is ½‖r‖², the LM cost function.
func halfSumSquares(r []float64) float64 {
	return 0.5 * floats.Dot(r, r)
}

func norm(v []float64) float64 {
	return floats.Norm(v, 2)
}

func hasNonFinite(v []float64) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return true
		}
	}
	return false
}

// minDiagonal floors each diag(JᵀJ) entry before damping so a column the
// residuals do not touch still gets a positive pivot.
const minDiagonal = 1e-10

// normalEquations returns JᵀJ + λ·diag(JᵀJ) from a dense N×numVars
// Jacobian, with each diagonal entry floored at minDiagonal before it is
// scaled by λ.
func normalEquations(dense [][]float64, lambda float64) [][]float64 {
	if len(dense) == 0 {
		return nil
	}
	numVars := len(dense[0])
	h := make([][]float64, numVars)
	for i := range h {
		h[i] = make([]float64, numVars)
	}
	for _, row := range dense {
		for i, vi := range row {
			if vi == 0 {
				continue
			}
			for j, vj := range row {
				h[i][j] += vi * vj
			}
		}
	}
	for i := 0; i < numVars; i++ {
		d := h[i][i]
		if d < minDiagonal {
			d = minDiagonal
		}
		h[i][i] += lambda * d
	}
	return h
}

// jacobianTransposeResidual returns Jᵀr from a dense N×numVars Jacobian.
func jacobianTransposeResidual(dense [][]float64, r []float64) []float64 {
	if len(dense) == 0 {
		return nil
	}
	numVars := len(dense[0])
	out := make([]float64, numVars)
	for rowIdx, row := range dense {
		rv := r[rowIdx]
		if rv == 0 {
			continue
		}
		for j, vj := range row {
			out[j] += vj * rv
		}
	}
	return out
}
