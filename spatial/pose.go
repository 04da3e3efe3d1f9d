package spatial

import "github.com/go-gl/mathgl/mgl64"

// Pose is a camera or object placement: a position plus an orientation.
type Pose struct {
	Position mgl64.Vec3
	Rotation Quaternion
}

// IdentityPose places the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Position: mgl64.Vec3{0, 0, 0}, Rotation: IdentityQuaternion()}
}

// ToCamera transforms a world-space point into the camera frame described
// by this pose: p_c = q · (p_w − C) · q*. If zReflected is
// true, every component is negated afterward, matching the isZReflected
// handedness correction.
func (p Pose) ToCamera(world mgl64.Vec3, zReflected bool) mgl64.Vec3 {
	local := world.Sub(p.Position)
	cam := RotateVector(p.Rotation, local)
	if zReflected {
		cam = mgl64.Vec3{-cam[0], -cam[1], -cam[2]}
	}
	return cam
}
