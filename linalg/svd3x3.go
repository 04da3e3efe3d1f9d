package linalg

import "math"

// SVD3x3 factors a as U·Σ·Vᵀ via power iteration on AᵀA,
// used by P3P's absolute-orientation step and by DLT's projection-matrix
// decomposition. Singular values are returned in descending order.
func SVD3x3(a Mat3) (u Mat3, sigma [3]float64, v Mat3) {
	ata := Mul3x3(Transpose3x3(a), a)

	eigvals, eigvecs := symmetricEigen3(ata)

	// Sort descending by eigenvalue (== σ²).
	order := []int{0, 1, 2}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if eigvals[order[j]] > eigvals[order[i]] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}

	for col, src := range order {
		sigma[col] = math.Sqrt(math.Max(eigvals[src], 0))
		for row := 0; row < 3; row++ {
			v[row][col] = eigvecs[row][src]
		}
	}

	// U columns: u_i = A v_i / σ_i for nonzero σ_i; fill degenerate columns
	// with a Gram-Schmidt-completed orthonormal basis so U stays orthogonal.
	threshold := sigma[0] * rankTolRel
	var cols [3][3]float64
	filled := make([]bool, 3)
	for col := 0; col < 3; col++ {
		colVec := [3]float64{v[0][col], v[1][col], v[2][col]}
		av := MulVec3(a, colVec)
		if sigma[col] > threshold && sigma[col] > zeroTol {
			cols[col] = [3]float64{av[0] / sigma[col], av[1] / sigma[col], av[2] / sigma[col]}
			filled[col] = true
		}
	}
	completeOrthonormalBasis(&cols, filled)
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			u[row][col] = cols[col][row]
		}
	}
	return u, sigma, v
}

// symmetricEigen3 is the 3x3 specialisation of SymmetricEigen, used by
// SVD3x3's inner AᵀA decomposition. It deflates the dominant eigenvector
// out after each power-iteration pass.
func symmetricEigen3(s Mat3) (vals [3]float64, vecs Mat3) {
	work := s
	seeds := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for k := 0; k < 3; k++ {
		lambda, vec := powerIterate3(work, seeds[k])
		vals[k] = lambda
		for row := 0; row < 3; row++ {
			vecs[row][k] = vec[row]
		}
		// Deflate: work -= lambda * vec * vecᵀ.
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				work[i][j] -= lambda * vec[i] * vec[j]
			}
		}
	}
	return vals, vecs
}

func powerIterate3(m Mat3, seed [3]float64) (float64, [3]float64) {
	v := normalize3(seed)
	var lambda float64
	for iter := 0; iter < 10000; iter++ {
		next := MulVec3(m, v)
		n := norm3(next)
		if n < zeroTol {
			// m is (numerically) zero in this subspace: seed defines a
			// valid eigenvector with eigenvalue 0.
			return 0, v
		}
		next = normalize3(next)
		lambda = dot3(next, MulVec3(m, next))
		step := [3]float64{next[0] - v[0], next[1] - v[1], next[2] - v[2]}
		v = next
		if norm3(step) < 1e-14 {
			break
		}
	}
	return lambda, v
}

func completeOrthonormalBasis(cols *[3][3]float64, filled []bool) {
	candidates := [][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for col := 0; col < 3; col++ {
		if filled[col] {
			continue
		}
		for _, cand := range candidates {
			v := cand
			for j := 0; j < 3; j++ {
				if !filled[j] {
					continue
				}
				d := dot3(v, cols[j])
				v = [3]float64{v[0] - d*cols[j][0], v[1] - d*cols[j][1], v[2] - d*cols[j][2]}
			}
			if norm3(v) > 1e-6 {
				cols[col] = normalize3(v)
				filled[col] = true
				break
			}
		}
	}
}

func dot3(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func norm3(a [3]float64) float64 {
	return math.Sqrt(dot3(a, a))
}

func normalize3(a [3]float64) [3]float64 {
	n := norm3(a)
	if n < zeroTol {
		return a
	}
	return [3]float64{a[0] / n, a[1] / n, a[2] / n}
}

// OrthogonaliseRotation projects m onto SO(3) by SVD (U·Vᵀ); if the
// resulting determinant is negative, the last column of V is negated
// before recomposing, 
func OrthogonaliseRotation(m Mat3) Mat3 {
	u, _, v := SVD3x3(m)
	r := Mul3x3(u, Transpose3x3(v))
	if Det3x3(r) < 0 {
		for row := 0; row < 3; row++ {
			v[row][2] = -v[row][2]
		}
		r = Mul3x3(u, Transpose3x3(v))
	}
	return r
}
