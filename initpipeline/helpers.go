// Package initpipeline implements the pose initialisation
// pipeline: vanishing-point orientation, PnP (P3P/DLT) position recovery,
// a bounded LM pose refinement, ray-ray triangulation of unknown world
// points, BFS smart seeding, and the sign-ambiguity inference branching
// implemented by the inference subpackage. It runs once, before the main LM
// solve, whenever the orchestrator's auto-initialise options request it.
package initpipeline

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mfagerlund/rotera-core/linalg"
	"github.com/mfagerlund/rotera-core/projection"
	"github.com/mfagerlund/rotera-core/scene"
)

// defaultSceneScale is the fallback distance used wherever a heuristic
// needs a scene-scale number (smart seeding's edge length, the camera
// placeholder position behind a vanishing-point orientation) and no
// locked geometry is available to derive one from.
const defaultSceneScale = 10.0

// intrinsicsMatrix returns the 3x3 calibration matrix K for intr, in
// the row order the projection formula implies: row 0 carries fx and
// the skew term, row 1 carries fy, row 2 is the homogeneous row.
func intrinsicsMatrix(intr projection.Intrinsics) linalg.Mat3 {
	fy := intr.FyOf()
	return linalg.Mat3{
		{intr.FocalLength, intr.Skew, intr.Cx},
		{0, fy, intr.Cy},
		{0, 0, 1},
	}
}

// IntrinsicsMatrix is intrinsicsMatrix, exported for callers outside this
// package (the orchestrator's continuous vanishing-line provider, which
// needs K⁻¹ to back-project a VP the same way ResolveOrientation does).
func IntrinsicsMatrix(intr projection.Intrinsics) linalg.Mat3 {
	return intrinsicsMatrix(intr)
}

// fullPosition returns pt's known (locked/inferred) coordinates where
// available, falling back to its current optimised estimate axis by axis,
// and whether every axis was actually known.
func fullPosition(pt scene.WorldPoint) (mgl64.Vec3, bool) {
	var v mgl64.Vec3
	allKnown := true
	for axis := 0; axis < 3; axis++ {
		val, known := pt.KnownValue(axis)
		v[axis] = val
		if !known {
			allKnown = false
		}
	}
	return v, allKnown
}

// lockedCentroid averages the positions of every fully-constrained world
// point, falling back to the project's overall centroid when none exist.
func lockedCentroid(project *scene.Project) mgl64.Vec3 {
	var sum mgl64.Vec3
	count := 0
	for i := 0; i < project.NumPoints(); i++ {
		pt, _ := project.Point(scene.PointHandle(i))
		if !pt.IsFullyConstrained() {
			continue
		}
		v, _ := fullPosition(pt)
		sum = sum.Add(v)
		count++
	}
	if count == 0 {
		return project.Centroid()
	}
	return sum.Mul(1 / float64(count))
}

// sceneScale estimates a characteristic distance for the project from the
// spread of its fully-constrained points, used wherever initialisation
// needs a plausible default length (smart seeding, the vanishing-point
// orientation step's placeholder camera distance).
func sceneScale(project *scene.Project) float64 {
	var pts []mgl64.Vec3
	for i := 0; i < project.NumPoints(); i++ {
		pt, _ := project.Point(scene.PointHandle(i))
		if pt.IsFullyConstrained() {
			v, _ := fullPosition(pt)
			pts = append(pts, v)
		}
	}
	if len(pts) < 2 {
		return defaultSceneScale
	}
	var maxDist float64
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			d := pts[i].Sub(pts[j]).Len()
			if d > maxDist {
				maxDist = d
			}
		}
	}
	if maxDist < 1e-9 {
		return defaultSceneScale
	}
	return maxDist
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func crossVec(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dotVec(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func normVec(v [3]float64) float64 {
	return math.Sqrt(dotVec(v, v))
}
