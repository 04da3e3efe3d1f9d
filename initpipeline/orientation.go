package initpipeline

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mfagerlund/rotera-core/linalg"
	"github.com/mfagerlund/rotera-core/scene"
	"github.com/mfagerlund/rotera-core/spatial"
)

// homogeneousLine returns the homogeneous line through two pixel points.
func homogeneousLine(p1, p2 [2]float64) [3]float64 {
	return crossVec([3]float64{p1[0], p1[1], 1}, [3]float64{p2[0], p2[1], 1})
}

// AxisDirection back-projects the vanishing point implied by a set of
// same-axis VanishingLines (their intersection in homogeneous image
// space) through K⁻¹ to a unit direction in camera space.
// With more than two lines every pairwise intersection is computed and
// averaged (sign-aligned against the running sum first, since antiparallel
// homogeneous intersections are the same line at infinity read backwards).
// Exported so the orchestrator can reuse it when building a continuous
// residual.NewVanishingLine constraint for the main solve.
func AxisDirection(lines []scene.VanishingLine, kInv linalg.Mat3) (dir [3]float64, ok bool) {
	if len(lines) < 2 {
		return dir, false
	}
	homLines := make([][3]float64, len(lines))
	for i, vl := range lines {
		homLines[i] = homogeneousLine(vl.P1, vl.P2)
	}

	var sum [3]float64
	count := 0
	for i := 0; i < len(homLines); i++ {
		for j := i + 1; j < len(homLines); j++ {
			vp := crossVec(homLines[i], homLines[j])
			camDir := linalg.MulVec3(kInv, vp)
			n := normVec(camDir)
			if n < 1e-10 {
				continue
			}
			camDir = [3]float64{camDir[0] / n, camDir[1] / n, camDir[2] / n}
			if count > 0 && dotVec(camDir, sum) < 0 {
				camDir = [3]float64{-camDir[0], -camDir[1], -camDir[2]}
			}
			sum[0] += camDir[0]
			sum[1] += camDir[1]
			sum[2] += camDir[2]
			count++
		}
	}
	if count == 0 {
		return dir, false
	}
	n := normVec(sum)
	if n < 1e-10 {
		return dir, false
	}
	return [3]float64{sum[0] / n, sum[1] / n, sum[2] / n}, true
}

type resolvedAxis struct {
	axis int
	dir  [3]float64
}

// ResolveOrientation resolves the vanishing-point orientation of one
// viewpoint: group its VanishingLines by axis, back-project
// each axis's vanishing point, fit a rotation by orthogonalising the
// matrix whose columns are the resolved directions (linalg.OrthogonaliseRotation,
// which also fills in any axis left unresolved when only two of three are
// available), and enumerate the sign ambiguity (one bit per resolved
// axis) to pick the assignment that puts the project's already-fixed
// points in front of the camera.
func ResolveOrientation(project *scene.Project, vh scene.ViewpointHandle) (spatial.Quaternion, bool) {
	vp, ok := project.Viewpoint(vh)
	if !ok {
		return spatial.IdentityQuaternion(), false
	}

	byAxis := map[scene.Axis][]scene.VanishingLine{}
	for _, vl := range project.VanishingLinesFor(vh) {
		byAxis[vl.Axis] = append(byAxis[vl.Axis], vl)
	}

	kInv, invOK := linalg.Invert3x3(intrinsicsMatrix(vp.Intrinsics))
	if !invOK {
		return spatial.IdentityQuaternion(), false
	}

	var axes []resolvedAxis
	for _, axis := range []scene.Axis{scene.AxisX, scene.AxisY, scene.AxisZ} {
		dir, ok := AxisDirection(byAxis[axis], kInv)
		if ok {
			axes = append(axes, resolvedAxis{axis: int(axis), dir: dir})
		}
	}
	if len(axes) < 2 {
		return spatial.IdentityQuaternion(), false
	}

	quat, found := bestSignAssignment(project, axes)
	if !found {
		return spatial.IdentityQuaternion(), false
	}
	return quat, true
}

// bestSignAssignment enumerates every ± sign combination of the resolved
// axis directions, fits a rotation to each via orthogonal Procrustes, and
// scores it by how many of the project's fully-constrained points land in
// front of a camera placed behind their centroid along that rotation's
// back-projected forward direction.
func bestSignAssignment(project *scene.Project, axes []resolvedAxis) (spatial.Quaternion, bool) {
	locked := fullyConstrainedPoints(project)
	combos := 1 << len(axes)

	bestScore := -1
	var best linalg.Mat3
	found := false
	for mask := 0; mask < combos; mask++ {
		var cols linalg.Mat3
		for i, ra := range axes {
			sign := 1.0
			if mask&(1<<i) != 0 {
				sign = -1.0
			}
			cols[0][ra.axis] = sign * ra.dir[0]
			cols[1][ra.axis] = sign * ra.dir[1]
			cols[2][ra.axis] = sign * ra.dir[2]
		}
		r := linalg.OrthogonaliseRotation(cols)
		score := scoreRotation(r, locked)
		if score > bestScore {
			bestScore = score
			best = r
			found = true
		}
	}
	if !found {
		return spatial.IdentityQuaternion(), false
	}
	return spatial.QuaternionFromRotationMatrix(
		mgl64.Vec3{best[0][0], best[0][1], best[0][2]},
		mgl64.Vec3{best[1][0], best[1][1], best[1][2]},
		mgl64.Vec3{best[2][0], best[2][1], best[2][2]},
	), true
}

func scoreRotation(r linalg.Mat3, locked []mgl64.Vec3) int {
	if len(locked) == 0 {
		return 0
	}
	var centroid mgl64.Vec3
	for _, p := range locked {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1 / float64(len(locked)))

	forward := [3]float64{r[2][0], r[2][1], r[2][2]} // camera-local +Z expressed in world coords
	d := 10.0
	camPos := mgl64.Vec3{
		centroid[0] - d*forward[0],
		centroid[1] - d*forward[1],
		centroid[2] - d*forward[2],
	}

	inFront := 0
	for _, p := range locked {
		rel := p.Sub(camPos)
		z := r[2][0]*rel[0] + r[2][1]*rel[1] + r[2][2]*rel[2]
		if z > 0.1 {
			inFront++
		}
	}
	return inFront
}

func fullyConstrainedPoints(project *scene.Project) []mgl64.Vec3 {
	var out []mgl64.Vec3
	for i := 0; i < project.NumPoints(); i++ {
		pt, _ := project.Point(scene.PointHandle(i))
		if !pt.IsFullyConstrained() {
			continue
		}
		v, _ := fullPosition(pt)
		out = append(out, v)
	}
	return out
}
