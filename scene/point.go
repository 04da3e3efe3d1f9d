package scene

import "github.com/go-gl/mathgl/mgl64"

// WorldPoint is a 3D point with optional per-axis locks. LockedAxis[i]
// true means axis i (0=x,1=y,2=z) is pinned at LockedValue[i] and must
// never change across any operation.
type WorldPoint struct {
	LockedAxis  [3]bool
	LockedValue [3]float64

	OptimizedXYZ mgl64.Vec3

	// InferredXYZ holds, per axis, the value deduced from direction-
	// constrained lines whose other endpoint has that axis locked or
	// already inferred, and whether that axis currently has an inferred
	// value. Set by Project.RecomputeInferredAxes and PropagateFurther;
	// adding or changing points and lines does not update it.
	InferredAxis [3]bool
	InferredXYZ  mgl64.Vec3

	IncidentLines        []LineHandle
	ObservingImagePoints []ImagePointHandle
}

// IsFullyConstrained reports whether every axis is either locked or
// inferred, the condition a point must satisfy before it can serve as a
// PnP/triangulation correspondence or an inference-propagation anchor.
func (p WorldPoint) IsFullyConstrained() bool {
	for i := 0; i < 3; i++ {
		if !p.LockedAxis[i] && !p.InferredAxis[i] {
			return false
		}
	}
	return true
}

// KnownValue returns the authoritative value for axis i (locked takes
// priority over inferred, which takes priority over the current optimised
// estimate), and whether axis i is "known" (locked or inferred) at all.
func (p WorldPoint) KnownValue(axis int) (value float64, known bool) {
	if p.LockedAxis[axis] {
		return p.LockedValue[axis], true
	}
	if p.InferredAxis[axis] {
		return p.InferredXYZ[axis], true
	}
	return p.OptimizedXYZ[axis], false
}

// FreeAxes returns the indices (0,1,2 subset) that are not locked, the
// axes the variable layout must allocate a column for; inferred axes stay
// free.
func (p WorldPoint) FreeAxes() []int {
	var free []int
	for i := 0; i < 3; i++ {
		if !p.LockedAxis[i] {
			free = append(free, i)
		}
	}
	return free
}
