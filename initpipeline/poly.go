package initpipeline

// poly is a polynomial's coefficients in ascending degree: poly[0] is the
// constant term, poly[i] the coefficient of x^i. Used by SolveP3P to build
// its quartic by polynomial multiplication rather than hand-expanded
// algebra.
type poly []float64

func polyMul(a, b poly) poly {
	out := make(poly, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

func polyAdd(a, b poly) poly {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(poly, n)
	copy(out, a)
	for i, v := range b {
		out[i] += v
	}
	return out
}

func polyScale(a poly, s float64) poly {
	out := make(poly, len(a))
	for i, v := range a {
		out[i] = v * s
	}
	return out
}

// padTo5 returns p's coefficients as a fixed [5]float64, ascending degree,
// zero-padding any missing high-order terms.
func padTo5(p poly) [5]float64 {
	var out [5]float64
	for i, v := range p {
		if i < 5 {
			out[i] = v
		}
	}
	return out
}
