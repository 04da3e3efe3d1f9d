package initpipeline

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mfagerlund/rotera-core/linalg"
	"github.com/mfagerlund/rotera-core/polynomial"
	"github.com/mfagerlund/rotera-core/projection"
	"github.com/mfagerlund/rotera-core/scene"
	"github.com/mfagerlund/rotera-core/spatial"
)

// Correspondence is one 3D↔2D match used to recover a camera pose: a
// world point already fixed by locks/inference/triangulation, observed at
// a pixel in the viewpoint being initialised.
type Correspondence struct {
	World mgl64.Vec3
	Pixel [2]float64
	Point scene.PointHandle
}

// collectCorrespondences gathers every visible ImagePoint of vh whose
// WorldPoint is fully constrained, the pool the PnP step draws from.
func collectCorrespondences(project *scene.Project, vh scene.ViewpointHandle) []Correspondence {
	vp, ok := project.Viewpoint(vh)
	if !ok {
		return nil
	}
	var out []Correspondence
	for _, ih := range vp.ObservedImagePoints {
		ip, ok := project.ImagePoint(ih)
		if !ok || !ip.Visible {
			continue
		}
		pt, ok := project.Point(ip.Point)
		if !ok || !pt.IsFullyConstrained() {
			continue
		}
		world, _ := fullPosition(pt)
		out = append(out, Correspondence{World: world, Pixel: [2]float64{ip.U, ip.V}, Point: ip.Point})
	}
	return out
}

// bearingVector returns the unit ray through pixel, in camera space.
func bearingVector(pixel [2]float64, kInv linalg.Mat3) mgl64.Vec3 {
	d := linalg.MulVec3(kInv, [3]float64{pixel[0], pixel[1], 1})
	v := mgl64.Vec3{d[0], d[1], d[2]}
	return v.Normalize()
}

// SolveP3P implements the classic Grunert-style closed-form P3P: given
// three 3D↔2D correspondences it returns every geometrically valid camera
// pose (up to four), each recovered by absolute orientation (orthogonal
// Procrustes via linalg.OrthogonaliseRotation) between the reconstructed
// camera-frame triangle and the world triangle.
//
// Derivation: with s1,s2,s3 the unknown camera-to-point distances and
// x=s2/s1, y=s3/s1, the law of cosines in the three triangles at the
// camera center gives two independent quadratics in x and y; eliminating
// y² between them yields y as a rational linear function of x, and
// back-substituting gives a single quartic in x. The quartic's
// coefficients are obtained by polynomial multiplication in code rather
// than hand-expanded algebra, to keep the closed form auditable.
func SolveP3P(corr [3]Correspondence, kInv linalg.Mat3) []spatial.Pose {
	f1 := bearingVector(corr[0].Pixel, kInv)
	f2 := bearingVector(corr[1].Pixel, kInv)
	f3 := bearingVector(corr[2].Pixel, kInv)

	p1, p2, p3 := corr[0].World, corr[1].World, corr[2].World

	a := p2.Sub(p3).Len() // side opposite P1
	b := p1.Sub(p3).Len() // side opposite P2
	c := p1.Sub(p2).Len() // side opposite P3
	if a < 1e-9 || b < 1e-9 || c < 1e-9 {
		return nil
	}

	cosAlpha := clamp(f2.Dot(f3), -1, 1) // angle at camera between rays to P2,P3
	cosBeta := clamp(f1.Dot(f3), -1, 1)  // angle between rays to P1,P3
	cosGamma := clamp(f1.Dot(f2), -1, 1) // angle between rays to P1,P2

	k1 := (a * a) / (c * c)
	k2 := (b * b) / (c * c)

	// Q(x) = p0 + p1 x + p2 x^2, the numerator of y(x); D(x) = -cosBeta +
	// cosAlpha x, its denominator's linear factor; R(x) is the remaining
	// quadratic from back-substitution into the second law-of-cosines
	// relation.
	q := poly{k2 - k1 - 1, 2 * cosGamma * (k1 - k2), 1 - k1 + k2}
	d := poly{-cosBeta, cosAlpha}
	r := poly{-k1, 2 * k1 * cosGamma, 1 - k1}

	xTimesD := polyMul(poly{0, 1}, d)
	term2 := polyScale(polyMul(xTimesD, q), 4*cosAlpha)
	term3 := polyScale(polyMul(polyMul(d, d), r), 4)
	quartic := polyAdd(polyAdd(polyMul(q, q), polyScale(term2, -1)), term3)

	coeffs := padTo5(quartic)
	roots := polynomial.Quartic(coeffs[4], coeffs[3], coeffs[2], coeffs[1], coeffs[0])

	var poses []spatial.Pose
	for _, x := range roots {
		if x <= 0 {
			continue
		}
		dx := d[0] + d[1]*x
		if math.Abs(dx) < 1e-9 {
			continue
		}
		qx := q[0] + q[1]*x + q[2]*x*x
		y := qx / (2 * dx)
		if y <= 0 {
			continue
		}
		denom := 1 + x*x - 2*x*cosGamma
		if denom <= 1e-12 {
			continue
		}
		s1 := c / math.Sqrt(denom)
		s2 := x * s1
		s3 := y * s1

		camPts := [3]mgl64.Vec3{f1.Mul(s1), f2.Mul(s2), f3.Mul(s3)}
		worldPts := [3]mgl64.Vec3{p1, p2, p3}
		if pose, ok := absoluteOrientation(camPts[:], worldPts[:]); ok {
			poses = append(poses, pose)
		}
	}
	return poses
}

// absoluteOrientation recovers the pose (R,t expressed as position +
// quaternion) that best maps world-frame points to their already-known
// camera-frame coordinates, by orthogonal Procrustes on the
// centroid-subtracted correlation matrix (Kabsch
// building block, reused here rather than re-derived).
func absoluteOrientation(camPts, worldPts []mgl64.Vec3) (spatial.Pose, bool) {
	if len(camPts) != len(worldPts) || len(camPts) < 3 {
		return spatial.Pose{}, false
	}
	n := float64(len(camPts))
	var camCentroid, worldCentroid mgl64.Vec3
	for i := range camPts {
		camCentroid = camCentroid.Add(camPts[i])
		worldCentroid = worldCentroid.Add(worldPts[i])
	}
	camCentroid = camCentroid.Mul(1 / n)
	worldCentroid = worldCentroid.Mul(1 / n)

	var h linalg.Mat3
	for i := range camPts {
		cp := camPts[i].Sub(camCentroid)
		wp := worldPts[i].Sub(worldCentroid)
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				h[row][col] += cp[row] * wp[col]
			}
		}
	}
	r := linalg.OrthogonaliseRotation(h)

	rWorldCentroid := linalg.MulVec3(r, [3]float64{worldCentroid[0], worldCentroid[1], worldCentroid[2]})
	t := mgl64.Vec3{
		camCentroid[0] - rWorldCentroid[0],
		camCentroid[1] - rWorldCentroid[1],
		camCentroid[2] - rWorldCentroid[2],
	}
	rt := linalg.MulVec3(linalg.Transpose3x3(r), [3]float64{t[0], t[1], t[2]})
	camPos := mgl64.Vec3{-rt[0], -rt[1], -rt[2]}

	quat := spatial.QuaternionFromRotationMatrix(
		mgl64.Vec3{r[0][0], r[0][1], r[0][2]},
		mgl64.Vec3{r[1][0], r[1][1], r[1][2]},
		mgl64.Vec3{r[2][0], r[2][1], r[2][2]},
	)
	return spatial.Pose{Position: camPos, Rotation: quat}, true
}

// reprojError returns the mean reprojection error (pixels) of pose over
// corrs and how many correspondences land in front of the camera.
func reprojError(pose spatial.Pose, intr projection.Intrinsics, zReflected bool, corrs []Correspondence) (float64, int) {
	var sum float64
	count := 0
	inFront := 0
	for _, c := range corrs {
		camPoint := pose.ToCamera(c.World, zReflected)
		if camPoint[2] > projection.NearPlane {
			inFront++
		}
		u, v, ok := projection.ProjectPlain(camPoint, intr)
		if !ok {
			continue
		}
		du, dv := u-c.Pixel[0], v-c.Pixel[1]
		sum += math.Sqrt(du*du + dv*dv)
		count++
	}
	if count == 0 {
		return math.Inf(1), inFront
	}
	return sum / float64(count), inFront
}

// bestPnPPose runs every applicable PnP method over corrs (P3P on the
// first three once ≥3 are available, DLT once ≥4 are available) and
// keeps whichever candidate has the lowest mean reprojection error over
// all of corrs.
func bestPnPPose(corrs []Correspondence, kInv linalg.Mat3, intr projection.Intrinsics, zReflected bool, rng *rand.Rand) (spatial.Pose, bool) {
	var candidates []spatial.Pose
	if len(corrs) >= 3 {
		var arr [3]Correspondence
		copy(arr[:], corrs[:3])
		candidates = append(candidates, SolveP3P(arr, kInv)...)
	}
	if len(corrs) >= 4 {
		if pose, ok := SolveDLT(corrs, kInv, rng); ok {
			candidates = append(candidates, pose)
		}
	}
	if len(candidates) == 0 {
		return spatial.Pose{}, false
	}
	bestIdx := -1
	bestErr := math.Inf(1)
	for i, pose := range candidates {
		err, _ := reprojError(pose, intr, zReflected, corrs)
		if err < bestErr {
			bestErr = err
			bestIdx = i
		}
	}
	return candidates[bestIdx], true
}
