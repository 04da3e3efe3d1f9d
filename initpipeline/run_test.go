package initpipeline

import (
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.viam.com/test"

	"github.com/mfagerlund/rotera-core/logging"
	"github.com/mfagerlund/rotera-core/projection"
	"github.com/mfagerlund/rotera-core/scene"
	"github.com/mfagerlund/rotera-core/spatial"
)

// buildInitProject wires a scene where every cube corner is locked at its
// true position and both cameras start from a meaningless identity pose,
// with image points synthesized from the true poses; exactly what Run has
// to recover from. A ninth, unconstrained point is observed by both
// cameras so triangulation has work to do.
func buildInitProject(t *testing.T) (*scene.Project, []scene.ViewpointHandle, scene.PointHandle, mgl64.Vec3) {
	t.Helper()
	intr := pnpIntrinsics()
	truePoses := []spatial.Pose{
		{Position: mgl64.Vec3{5, 5, -30}, Rotation: spatial.LookAt(mgl64.Vec3{5, 5, -30}, mgl64.Vec3{5, 5, 5}, mgl64.Vec3{0, 1, 0})},
		{Position: mgl64.Vec3{35, 5, -20}, Rotation: spatial.LookAt(mgl64.Vec3{35, 5, -20}, mgl64.Vec3{5, 5, 5}, mgl64.Vec3{0, 1, 0})},
	}

	corners := []mgl64.Vec3{
		{0, 0, 0}, {10, 0, 0}, {10, 10, 0}, {0, 10, 0},
		{0, 0, 10}, {10, 0, 10}, {10, 10, 10}, {0, 10, 10},
	}
	freePoint := mgl64.Vec3{5, 5, 5}

	p := scene.NewProject()
	var points []scene.PointHandle
	for _, c := range corners {
		points = append(points, p.AddPoint(scene.WorldPoint{
			LockedAxis: [3]bool{true, true, true}, LockedValue: c, OptimizedXYZ: c,
		}))
	}
	free := p.AddPoint(scene.WorldPoint{})

	var viewpoints []scene.ViewpointHandle
	for _, truth := range truePoses {
		vh := p.AddViewpoint(scene.Viewpoint{
			Intrinsics: intr,
			Width:      1920,
			Height:     1080,
			Pose:       spatial.IdentityPose(),
		})
		viewpoints = append(viewpoints, vh)

		for i, c := range corners {
			u, v, ok := projection.ProjectPlain(truth.ToCamera(c, false), intr)
			test.That(t, ok, test.ShouldBeTrue)
			_, err := p.AddImagePoint(scene.ImagePoint{U: u, V: v, Point: points[i], Viewpoint: vh, Visible: true})
			test.That(t, err, test.ShouldBeNil)
		}
		u, v, ok := projection.ProjectPlain(truth.ToCamera(freePoint, false), intr)
		test.That(t, ok, test.ShouldBeTrue)
		_, err := p.AddImagePoint(scene.ImagePoint{U: u, V: v, Point: free, Viewpoint: vh, Visible: true})
		test.That(t, err, test.ShouldBeNil)
	}

	return p, viewpoints, free, freePoint
}

func TestRunInitializesCamerasFromCorrespondences(t *testing.T) {
	p, viewpoints, _, _ := buildInitProject(t)

	result := Run(p, Options{InitializeCameras: true}, rand.New(rand.NewPCG(3, 3)), logging.NewNoopLogger())
	test.That(t, len(result.ExcludedViewpoints), test.ShouldEqual, 0)

	for _, vh := range viewpoints {
		test.That(t, result.InitializedViewpoints[vh], test.ShouldBeTrue)
		vp, _ := p.Viewpoint(vh)
		corrs := collectCorrespondences(p, vh)
		e, inFront := reprojError(vp.Pose, vp.Intrinsics, vp.IsZReflected, corrs)
		test.That(t, inFront, test.ShouldEqual, len(corrs))
		test.That(t, e, test.ShouldBeLessThan, 1.0)
	}
}

func TestRunTriangulatesFreePointAfterCameraInit(t *testing.T) {
	p, _, free, truth := buildInitProject(t)

	Run(p, Options{InitializeCameras: true, InitializeWorldPoints: true}, rand.New(rand.NewPCG(3, 3)), logging.NewNoopLogger())

	pt, _ := p.Point(free)
	test.That(t, pt.OptimizedXYZ.Sub(truth).Len(), test.ShouldBeLessThan, 0.1)
}

func TestRunExcludesCameraWithoutCorrespondences(t *testing.T) {
	p := scene.NewProject()
	// One free point, so the camera sees something but nothing is fully
	// constrained; no PnP pool, no vanishing lines, no usable pose.
	pt := p.AddPoint(scene.WorldPoint{})
	vh := p.AddViewpoint(scene.Viewpoint{Intrinsics: pnpIntrinsics(), Width: 1920, Height: 1080, Pose: spatial.IdentityPose()})
	_, err := p.AddImagePoint(scene.ImagePoint{U: 100, V: 100, Point: pt, Viewpoint: vh, Visible: true})
	test.That(t, err, test.ShouldBeNil)

	result := Run(p, Options{InitializeCameras: true}, rand.New(rand.NewPCG(3, 3)), logging.NewNoopLogger())
	test.That(t, result.InitializedViewpoints[vh], test.ShouldBeFalse)
	test.That(t, result.ExcludedViewpoints, test.ShouldResemble, []scene.ViewpointHandle{vh})
}
