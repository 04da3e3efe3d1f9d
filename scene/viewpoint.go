package scene

import (
	"github.com/mfagerlund/rotera-core/projection"
	"github.com/mfagerlund/rotera-core/spatial"
)

// Viewpoint is a camera: intrinsics, image dimensions, pose and the set of
// ImagePoints it observes.
type Viewpoint struct {
	Intrinsics projection.Intrinsics
	Width      int
	Height     int

	Pose         spatial.Pose
	PoseLocked   bool
	IsZReflected bool

	ObservedImagePoints []ImagePointHandle
}

// Valid reports whether the camera is geometrically usable: focal
// length, aspect ratio and image dimensions must all be positive.
func (v Viewpoint) Valid() bool {
	return v.Intrinsics.FocalLength > 0 && v.Intrinsics.AspectRatio > 0 && v.Width > 0 && v.Height > 0
}
