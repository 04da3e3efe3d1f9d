// Package linalg is the dense/sparse linear-algebra kernel underneath the
// solver: 3x3 inversion, a power-iteration SVD, a symmetric eigensolver
// used to pull the null-space vector out of DLT's normal equations, a
// dense Cholesky solve for the damped normal equations, and a matrix-free
// sparse conjugate-gradient back-end. Every comparison against zero uses
// a 1e-10 tolerance; rank tests use σ₁·1e-6.
package linalg

import "math"

const (
	zeroTol    = 1e-10
	rankTolRel = 1e-6
)

// Mat3 is a row-major 3x3 matrix.
type Mat3 [3][3]float64

// Identity3 is the 3x3 identity matrix.
func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Transpose3x3 returns mᵀ.
func Transpose3x3(m Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// Mul3x3 returns a·b.
func Mul3x3(a, b Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += a[i][k] * b[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// MulVec3 returns m·v.
func MulVec3(m Mat3, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// Det3x3 is the determinant of m.
func Det3x3(m Mat3) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Invert3x3 returns m⁻¹, or ok=false if m is singular (|det| < zeroTol).
func Invert3x3(m Mat3) (Mat3, bool) {
	det := Det3x3(m)
	if math.Abs(det) < zeroTol {
		return Mat3{}, false
	}
	invDet := 1 / det
	var out Mat3
	out[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) * invDet
	out[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * invDet
	out[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * invDet
	out[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) * invDet
	out[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * invDet
	out[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * invDet
	out[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) * invDet
	out[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * invDet
	out[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * invDet
	return out, true
}
