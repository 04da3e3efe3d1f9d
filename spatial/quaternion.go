// Package spatial holds the small set of 3D primitives the optimisation
// core shares across components: vectors, quaternions and poses built on
// top of github.com/go-gl/mathgl/mgl64, plus the rotation/normalisation
// helpers the residual families need explicitly (quaternion normalisation
// residual). SO(3) orthogonalisation lives in linalg
// (OrthogonaliseRotation).
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Quaternion is a (w, x, y, z) unit quaternion representing a rotation.
// It is a thin alias over mgl64.Quat so the rest of the module can use
// mathgl's Rotate/Mul/Conjugate machinery without re-deriving it.
type Quaternion = mgl64.Quat

// NewQuaternion builds a Quaternion from explicit components in (w, x, y, z)
// order, matching wire order for camera rotation.
func NewQuaternion(w, x, y, z float64) Quaternion {
	return Quaternion{W: w, V: mgl64.Vec3{x, y, z}}
}

// IdentityQuaternion is the no-rotation quaternion.
func IdentityQuaternion() Quaternion {
	return mgl64.QuatIdent()
}

// Components returns (w, x, y, z).
func Components(q Quaternion) (w, x, y, z float64) {
	return q.W, q.V[0], q.V[1], q.V[2]
}

// SquaredNorm returns w²+x²+y²+z², the quantity the quaternion
// normalisation residual drives toward 1.
func SquaredNorm(q Quaternion) float64 {
	w, x, y, z := Components(q)
	return w*w + x*x + y*y + z*z
}

// Norm is |q|.
func Norm(q Quaternion) float64 {
	return math.Sqrt(SquaredNorm(q))
}

// RotateVector rotates v by q: q · v · q*.
func RotateVector(q Quaternion, v mgl64.Vec3) mgl64.Vec3 {
	return q.Rotate(v)
}

// Normalized returns q/|q|. Callers that need the at-rest invariant
// |q| = 1 ± 1e-2 should call this after reading a Viewpoint's
// raw rotation before using it geometrically; the LM driver itself leaves
// the stored value unnormalised between iterations and instead drives it
// toward unit length via the dedicated residual family.
func Normalized(q Quaternion) Quaternion {
	n := Norm(q)
	if n < 1e-12 {
		return IdentityQuaternion()
	}
	w, x, y, z := Components(q)
	return NewQuaternion(w/n, x/n, y/n, z/n)
}

// LookAt builds the world-to-camera rotation for a camera at eye looking
// toward target with the given up direction, used by test fixtures and
// by pose seeding.
//
// The camera looks down +Z in its own frame (pinhole convention); right and
// camUp are the camera's X/Y axes expressed in world coordinates, so the
// rows of [right; camUp; forward] form the world->camera rotation matrix,
// converted to a quaternion via Shepperd's method.
func LookAt(eye, target, up mgl64.Vec3) Quaternion {
	forward := target.Sub(eye).Normalize()
	right := up.Cross(forward).Normalize()
	camUp := forward.Cross(right)

	return quaternionFromRows(right, camUp, forward)
}

// QuaternionFromRotationMatrix builds the quaternion for the rotation whose
// rows (world->camera basis vectors) are r0, r1, r2; exported for the
// initialisation pipeline's absolute-orientation and DLT decomposition
// steps, which recover a rotation matrix before converting it to the
// Viewpoint's stored quaternion form.
func QuaternionFromRotationMatrix(r0, r1, r2 mgl64.Vec3) Quaternion {
	return quaternionFromRows(r0, r1, r2)
}

// quaternionFromRows builds the quaternion for the rotation matrix whose
// rows are r0, r1, r2 (row-major, orthonormal), using Shepperd's method,
// numerically stable for all rotation angles, unlike the naive trace-based
// formula which degrades near 180°.
func quaternionFromRows(r0, r1, r2 mgl64.Vec3) Quaternion {
	m00, m01, m02 := r0[0], r0[1], r0[2]
	m10, m11, m12 := r1[0], r1[1], r1[2]
	m20, m21, m22 := r2[0], r2[1], r2[2]

	trace := m00 + m11 + m22
	var w, x, y, z float64
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		w = 0.25 * s
		x = (m21 - m12) / s
		y = (m02 - m20) / s
		z = (m10 - m01) / s
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		w = (m21 - m12) / s
		x = 0.25 * s
		y = (m01 + m10) / s
		z = (m02 + m20) / s
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		w = (m02 - m20) / s
		x = (m01 + m10) / s
		y = 0.25 * s
		z = (m12 + m21) / s
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		w = (m10 - m01) / s
		x = (m02 + m20) / s
		y = (m12 + m21) / s
		z = 0.25 * s
	}
	return Normalized(NewQuaternion(w, x, y, z))
}
