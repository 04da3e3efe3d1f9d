package projection

import "github.com/go-gl/mathgl/mgl64"

// ProjectPlain projects a camera-space point (already world->camera
// transformed, see spatial.Pose.ToCamera) to pixel coordinates using plain
// float64 arithmetic. inFront is false when camPoint.Z < NearPlane, in
// which case u, v are undefined and callers must apply the "behind
// camera" residual penalty rather than trust them.
func ProjectPlain(camPoint mgl64.Vec3, intr Intrinsics) (u, v float64, inFront bool) {
	if camPoint[2] < NearPlane {
		return 0, 0, false
	}
	x := camPoint[0] / camPoint[2]
	y := camPoint[1] / camPoint[2]

	r2 := x*x + y*y
	radial := 1 + intr.K1*r2 + intr.K2*r2*r2 + intr.K3*r2*r2*r2

	xd := x*radial + 2*intr.P1*x*y + intr.P2*(r2+2*x*x)
	yd := y*radial + intr.P1*(r2+2*y*y) + 2*intr.P2*x*y

	fy := intr.FyOf()
	u = intr.FocalLength*xd + intr.Skew*yd + intr.Cx
	v = fy*yd + intr.Cy
	return u, v, true
}
