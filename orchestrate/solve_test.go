package orchestrate

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.viam.com/test"

	"github.com/mfagerlund/rotera-core/projection"
	"github.com/mfagerlund/rotera-core/scene"
	"github.com/mfagerlund/rotera-core/spatial"
)

func cubeIntrinsics() projection.Intrinsics {
	return projection.Intrinsics{FocalLength: 1000, AspectRatio: 1, Cx: 960, Cy: 540}
}

func lookAtPose(eye, target mgl64.Vec3) spatial.Pose {
	return spatial.Pose{Position: eye, Rotation: spatial.LookAt(eye, target, mgl64.Vec3{0, 1, 0})}
}

// cubeCorners is the 10-unit axis-aligned cube shared by the
// reconstruction tests.
func cubeCorners() []mgl64.Vec3 {
	return []mgl64.Vec3{
		{0, 0, 0}, {10, 0, 0}, {10, 10, 0}, {0, 10, 0},
		{0, 0, 10}, {10, 0, 10}, {10, 10, 10}, {0, 10, 10},
	}
}

// buildCubeProject wires up the two-camera cube fixture with every
// non-locked world point started `offset` units away from truth along
// (1,1,1)/sqrt(3), and returns the project plus the true corner positions
// for later comparison.
func buildCubeProject(t *testing.T, offset float64) (*scene.Project, []mgl64.Vec3, []scene.ViewpointHandle) {
	p := scene.NewProject()
	corners := cubeCorners()

	intr := cubeIntrinsics()
	poses := []spatial.Pose{
		lookAtPose(mgl64.Vec3{0, 0, -20}, mgl64.Vec3{0, 0, 0}),
		lookAtPose(mgl64.Vec3{20, 0, -20}, mgl64.Vec3{0, 0, 0}),
	}

	var viewpoints []scene.ViewpointHandle
	for _, pose := range poses {
		vh := p.AddViewpoint(scene.Viewpoint{
			Intrinsics: intr,
			Width:      1920,
			Height:     1080,
			Pose:       pose,
		})
		viewpoints = append(viewpoints, vh)
	}

	nudge := mgl64.Vec3{1, 1, 1}.Normalize().Mul(offset)
	var points []scene.PointHandle
	for i, c := range corners {
		wp := scene.WorldPoint{OptimizedXYZ: c.Add(nudge)}
		if i == 0 || i == 1 {
			wp = scene.WorldPoint{LockedAxis: [3]bool{true, true, true}, LockedValue: c, OptimizedXYZ: c}
		}
		points = append(points, p.AddPoint(wp))
	}

	for _, vh := range viewpoints {
		vp, _ := p.Viewpoint(vh)
		for i, c := range corners {
			camPoint := vp.Pose.ToCamera(c, vp.IsZReflected)
			u, v, ok := projection.ProjectPlain(camPoint, intr)
			test.That(t, ok, test.ShouldBeTrue)
			_, err := p.AddImagePoint(scene.ImagePoint{U: u, V: v, Point: points[i], Viewpoint: vh, Visible: true})
			test.That(t, err, test.ShouldBeNil)
		}
	}

	return p, corners, viewpoints
}

// TestSolveCubeReconstruction checks that every free corner, started a
// small distance off its true position, lands within 0.1 units of it
// after Solve.
func TestSolveCubeReconstruction(t *testing.T) {
	p, corners, _ := buildCubeProject(t, 0.2)

	opts := DefaultSolveOptions()
	opts.AutoInitializeCameras = false
	opts.AutoInitializeWorldPoints = false

	result := Solve(context.Background(), p, opts)
	test.That(t, result.Error, test.ShouldBeEmpty)

	for i, c := range corners {
		if i == 0 || i == 1 {
			continue
		}
		pt, ok := p.Point(scene.PointHandle(i))
		test.That(t, ok, test.ShouldBeTrue)
		dist := pt.OptimizedXYZ.Sub(c).Len()
		test.That(t, dist, test.ShouldBeLessThan, 0.1)
	}
}

// TestSolveLineDirectionEnforcement checks that a horizontal-direction
// line drives its free endpoint's Y component to match the locked
// endpoint's.
func TestSolveLineDirectionEnforcement(t *testing.T) {
	p := scene.NewProject()
	a := p.AddPoint(scene.WorldPoint{LockedAxis: [3]bool{true, true, true}})
	b := p.AddPoint(scene.WorldPoint{OptimizedXYZ: mgl64.Vec3{10, 5, 3}})
	dir, err := scene.MapDTODirection("horizontal")
	test.That(t, err, test.ShouldBeNil)
	_, err = p.AddLine(scene.Line{A: a, B: b, Direction: dir})
	test.That(t, err, test.ShouldBeNil)

	opts := DefaultSolveOptions()
	opts.AutoInitializeCameras = false
	opts.AutoInitializeWorldPoints = false
	result := Solve(context.Background(), p, opts)
	test.That(t, result.Error, test.ShouldBeEmpty)

	ptA, _ := p.Point(a)
	ptB, _ := p.Point(b)
	diff := ptB.OptimizedXYZ.Sub(ptA.OptimizedXYZ)
	test.That(t, diff.Y(), test.ShouldBeLessThan, 1e-4)
	test.That(t, diff.Y(), test.ShouldBeGreaterThan, -1e-4)
}

// TestSolveLengthEnforcement checks that a free-direction line with a
// target length pulls its free endpoint to that distance from the locked
// one.
func TestSolveLengthEnforcement(t *testing.T) {
	p := scene.NewProject()
	a := p.AddPoint(scene.WorldPoint{LockedAxis: [3]bool{true, true, true}})
	b := p.AddPoint(scene.WorldPoint{OptimizedXYZ: mgl64.Vec3{5, 0, 0}})
	_, err := p.AddLine(scene.Line{A: a, B: b, Direction: scene.DirFree, HasTargetLength: true, TargetLength: 100})
	test.That(t, err, test.ShouldBeNil)

	opts := DefaultSolveOptions()
	opts.AutoInitializeCameras = false
	opts.AutoInitializeWorldPoints = false
	result := Solve(context.Background(), p, opts)
	test.That(t, result.Error, test.ShouldBeEmpty)

	ptA, _ := p.Point(a)
	ptB, _ := p.Point(b)
	dist := ptB.OptimizedXYZ.Sub(ptA.OptimizedXYZ).Len()
	test.That(t, dist, test.ShouldAlmostEqual, 100.0, 1e-4)
}

// TestSolveCombinedDirectionAndLength applies a horizontal direction and
// a target length to the same line.
func TestSolveCombinedDirectionAndLength(t *testing.T) {
	p := scene.NewProject()
	a := p.AddPoint(scene.WorldPoint{LockedAxis: [3]bool{true, true, true}})
	b := p.AddPoint(scene.WorldPoint{OptimizedXYZ: mgl64.Vec3{5, 3, 2}})
	dir, err := scene.MapDTODirection("horizontal")
	test.That(t, err, test.ShouldBeNil)
	_, err = p.AddLine(scene.Line{A: a, B: b, Direction: dir, HasTargetLength: true, TargetLength: 50})
	test.That(t, err, test.ShouldBeNil)

	opts := DefaultSolveOptions()
	opts.AutoInitializeCameras = false
	opts.AutoInitializeWorldPoints = false
	result := Solve(context.Background(), p, opts)
	test.That(t, result.Error, test.ShouldBeEmpty)

	ptA, _ := p.Point(a)
	ptB, _ := p.Point(b)
	test.That(t, ptB.OptimizedXYZ.Y(), test.ShouldAlmostEqual, 0.0, 1e-4)
	dist := ptB.OptimizedXYZ.Sub(ptA.OptimizedXYZ).Len()
	test.That(t, dist, test.ShouldAlmostEqual, 50.0, 1e-4)
}

// TestSolveOutlierRejection builds the cube exactly at truth (no
// perturbation) with one image point shifted by (200, 200) px; with
// outlier detection enabled, exactly that observation should be flagged
// and everything else should settle near zero reprojection error.
func TestSolveOutlierRejection(t *testing.T) {
	p, _, viewpoints := buildCubeProject(t, 0.0)

	firstViewpoint, _ := p.Viewpoint(viewpoints[0])
	perturbed := firstViewpoint.ObservedImagePoints[2]
	ip, _ := p.ImagePoint(perturbed)
	ip.U += 200
	ip.V += 200
	p.SetImagePoint(perturbed, ip)

	opts := DefaultSolveOptions()
	opts.AutoInitializeCameras = false
	opts.AutoInitializeWorldPoints = false
	opts.DetectOutliers = true
	opts.MaxAttempts = 3

	result := Solve(context.Background(), p, opts)
	test.That(t, result.Error, test.ShouldBeEmpty)
	test.That(t, len(result.Outliers), test.ShouldEqual, 1)
	test.That(t, result.Outliers[0], test.ShouldEqual, perturbed)
	test.That(t, result.MedianReprojectionError, test.ShouldBeLessThan, 1.0)
}
