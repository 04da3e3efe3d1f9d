// Package projection implements the pinhole camera model with
// Brown–Conrady distortion in two independently maintained
// forms: ProjectPlain for scalar float64 residual evaluation, and
// ProjectAutodiff for building Jacobians by forward-mode AD over
// autodiff.Dual. Both share the same near-plane guard and distortion
// formula so they can be cross-checked bit-for-bit on zero-distortion
// inputs (a core numerical property).
package projection

// NearPlane is the camera-space Z below which a point is considered
// "behind the camera" and projection is rejected.
const NearPlane = 0.1

// Intrinsics bundles a camera's pinhole + Brown–Conrady parameters.
type Intrinsics struct {
	FocalLength   float64
	AspectRatio   float64
	Cx, Cy        float64
	Skew          float64
	K1, K2, K3    float64 // radial distortion
	P1, P2        float64 // tangential distortion
}

// FyOf returns fy = fx · aspectRatio.
func (in Intrinsics) FyOf() float64 {
	return in.FocalLength * in.AspectRatio
}
