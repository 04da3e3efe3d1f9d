package lm

import (
	"github.com/mfagerlund/rotera-core/linalg"
	"github.com/mfagerlund/rotera-core/residual"
)

const numericalEps = 1e-6

// jacobianOf returns one provider's own k-column Jacobian block: its
// forward-mode AD derivative by default, or a forward-difference
// approximation when the NumericalSparse back-end is selected.
func jacobianOf(p residual.Provider, x []float64, numerical bool) [][]float64 {
	if !numerical {
		return p.ComputeJacobian(x)
	}
	idx := p.VariableIndices()
	r0 := p.ComputeResiduals(x)
	jac := make([][]float64, len(r0))
	for i := range jac {
		jac[i] = make([]float64, len(idx))
	}
	xp := append([]float64(nil), x...)
	for j, gi := range idx {
		orig := xp[gi]
		xp[gi] = orig + numericalEps
		rp := p.ComputeResiduals(xp)
		xp[gi] = orig
		for i := range r0 {
			jac[i][j] = (rp[i] - r0[i]) / numericalEps
		}
	}
	return jac
}

// residualsOnly concatenates every provider's residuals in insertion
// order.
func residualsOnly(providers []residual.Provider, x []float64) []float64 {
	var out []float64
	for _, p := range providers {
		out = append(out, p.ComputeResiduals(x)...)
	}
	return out
}

// assembleDense builds the full residual vector and a dense N×numVars
// Jacobian by scattering each provider's own k-column block into its
// global columns.
func assembleDense(providers []residual.Provider, numVars int, x []float64, numerical bool) ([]float64, [][]float64) {
	var r []float64
	var rows [][]float64
	for _, p := range providers {
		pr := p.ComputeResiduals(x)
		pj := jacobianOf(p, x, numerical)
		idx := p.VariableIndices()
		for i, val := range pr {
			row := make([]float64, numVars)
			for j, gi := range idx {
				row[gi] = pj[i][j]
			}
			rows = append(rows, row)
			r = append(r, val)
		}
	}
	return r, rows
}

// assembleCSR builds the same residual/Jacobian pair as a sparse CSR
// matrix for the ExplicitSparse/NumericalSparse back-ends.
func assembleCSR(providers []residual.Provider, numVars int, x []float64, numerical bool) ([]float64, linalg.CSR) {
	builder := linalg.NewCSRBuilder(numVars)
	var r []float64
	for _, p := range providers {
		pr := p.ComputeResiduals(x)
		pj := jacobianOf(p, x, numerical)
		idx := p.VariableIndices()
		for i, val := range pr {
			cols := append([]int(nil), idx...)
			vals := append([]float64(nil), pj[i]...)
			builder.AddRow(cols, vals)
			r = append(r, val)
		}
	}
	return r, builder.Build()
}
