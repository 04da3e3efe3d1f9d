package polynomial

import "math"

// Quartic returns the real roots of a·x⁴ + b·x³ + c·x² + d·x + e = 0 via
// Ferrari's method (resolvent cubic), falling back to Cubic when a is
// degenerate. Used by initpipeline.SolveP3P's Grunert-style formulation,
// which solves a quartic in the distance ratio x = s2/s1 (not Kneip's
// parameterisation).
func Quartic(a, b, c, d, e float64) []float64 {
	if math.Abs(a) < eps {
		return Cubic(b, c, d, e)
	}

	// Normalise and depress: x = u - b/(4a).
	b, c, d, e = b/a, c/a, d/a, e/a
	shift := b / 4

	p := c - 3*b*b/8
	q := d - b*c/2 + b*b*b/8
	r := e - b*d/4 + b*b*c/16 - 3*b*b*b*b/256

	if math.Abs(q) < 1e-9 {
		// Biquadratic: u⁴ + p u² + r = 0.
		var roots []float64
		for _, z := range Quadratic(1, p, r) {
			if z < 0 {
				continue
			}
			s := math.Sqrt(z)
			roots = append(roots, s-shift, -s-shift)
		}
		return roots
	}

	// Resolvent cubic: 8m³ + 8p m² + (2p²−8r) m − q² = 0.
	candidates := Cubic(8, 8*p, 2*p*p-8*r, -q*q)
	m, ok := bestResolventRoot(candidates)
	if !ok {
		return nil
	}

	sq2m := math.Sqrt(2 * m)
	term := q / (4 * m)

	var roots []float64
	roots = append(roots, Quadratic(1, -sq2m, p/2+m+sq2m*term)...)
	roots = append(roots, Quadratic(1, sq2m, p/2+m-sq2m*term)...)
	for i := range roots {
		roots[i] -= shift
	}
	return roots
}

// bestResolventRoot picks the real resolvent-cubic root with the largest
// positive value of 2m, which is both numerically safest (avoids dividing
// by a near-zero m) and guarantees the sqrt(2m) terms above stay real.
func bestResolventRoot(candidates []float64) (float64, bool) {
	best := math.Inf(-1)
	found := false
	for _, m := range candidates {
		if m > eps && m > best {
			best = m
			found = true
		}
	}
	return best, found
}
