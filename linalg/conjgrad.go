package linalg

import "math"

// ConjugateGradientSparse solves the damped normal equations
// (JᵀJ + λ·diag(JᵀJ)) x = −Jᵀr without ever forming JᵀJ, using matrix-free
// J·v / Jᵀ·v products and a Jacobi (diagonal) preconditioner. Iterates
// until the residual falls below tol·‖Jᵀr‖ or maxIters inner iterations
// elapse.
func ConjugateGradientSparse(j CSR, r []float64, lambda, tol float64, maxIters int) []float64 {
	n := j.Cols
	negJtR := j.MulVecTranspose(r)
	for i := range negJtR {
		negJtR[i] = -negJtR[i]
	}
	targetNorm := tol * norm(negJtR)

	diag := j.DiagAtA()
	precond := make([]float64, n)
	for i := range precond {
		d := diag[i] + lambda*diag[i]
		if d < zeroTol {
			d = zeroTol
		}
		precond[i] = 1 / d
	}

	x := make([]float64, n)
	applyA := func(v []float64) []float64 {
		jv := j.MulVec(v)
		jtjv := j.MulVecTranspose(jv)
		out := make([]float64, n)
		for i := range out {
			out[i] = jtjv[i] + lambda*diag[i]*v[i]
		}
		return out
	}

	residual := make([]float64, n)
	copy(residual, negJtR) // x0 = 0, so residual = b - A·x0 = b
	z := applyPrecond(precond, residual)
	p := append([]float64{}, z...)
	rzOld := dot(residual, z)

	for iter := 0; iter < maxIters; iter++ {
		if norm(residual) <= targetNorm {
			break
		}
		ap := applyA(p)
		denom := dot(p, ap)
		if math.Abs(denom) < zeroTol {
			break
		}
		alpha := rzOld / denom
		for i := 0; i < n; i++ {
			x[i] += alpha * p[i]
			residual[i] -= alpha * ap[i]
		}
		z = applyPrecond(precond, residual)
		rzNew := dot(residual, z)
		if math.Abs(rzOld) < zeroTol {
			break
		}
		beta := rzNew / rzOld
		for i := 0; i < n; i++ {
			p[i] = z[i] + beta*p[i]
		}
		rzOld = rzNew
	}
	return x
}

func applyPrecond(precond, v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = precond[i] * v[i]
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}
