package orchestrate

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.viam.com/test"

	"github.com/mfagerlund/rotera-core/projection"
	"github.com/mfagerlund/rotera-core/scene"
	"github.com/mfagerlund/rotera-core/spatial"
)

func testIntrinsics() projection.Intrinsics {
	return projection.Intrinsics{FocalLength: 1000, AspectRatio: 1, Cx: 320, Cy: 240}
}

// buildReprojectionProject wires up a single camera looking down +Z at the
// origin, with nObservations world points placed directly in front of it,
// so their exact reprojection is easy to compute and perturb.
func buildReprojectionProject(t *testing.T, n int) (*scene.Project, scene.ViewpointHandle) {
	p := scene.NewProject()
	vh := p.AddViewpoint(scene.Viewpoint{
		Intrinsics: testIntrinsics(),
		Width:      640,
		Height:     480,
		Pose:       spatial.IdentityPose(),
	})

	for i := 0; i < n; i++ {
		ph := p.AddPoint(scene.WorldPoint{OptimizedXYZ: mgl64.Vec3{float64(i), 0, 5}})
		u, v, ok := projection.ProjectPlain(mgl64.Vec3{float64(i), 0, 5}, testIntrinsics())
		test.That(t, ok, test.ShouldBeTrue)
		_, err := p.AddImagePoint(scene.ImagePoint{U: u, V: v, Point: ph, Viewpoint: vh, Visible: true})
		test.That(t, err, test.ShouldBeNil)
	}
	return p, vh
}

func TestReprojectionErrorsZeroForExactMatch(t *testing.T) {
	p, _ := buildReprojectionProject(t, 4)
	errs := reprojectionErrors(p, map[scene.ImagePointHandle]bool{}, map[scene.ViewpointHandle]bool{})
	test.That(t, len(errs), test.ShouldEqual, 4)
	for _, e := range errs {
		test.That(t, e, test.ShouldBeLessThan, 1e-6)
	}
}

func TestReprojectionErrorsSkipsExcludedImagePoints(t *testing.T) {
	p, _ := buildReprojectionProject(t, 3)
	excluded := map[scene.ImagePointHandle]bool{0: true}
	errs := reprojectionErrors(p, excluded, map[scene.ViewpointHandle]bool{})
	test.That(t, len(errs), test.ShouldEqual, 2)
	_, stillThere := errs[0]
	test.That(t, stillThere, test.ShouldBeFalse)
}

func TestReprojectionErrorsSkipsExcludedViewpoints(t *testing.T) {
	p, vh := buildReprojectionProject(t, 2)
	excluded := map[scene.ViewpointHandle]bool{vh: true}
	errs := reprojectionErrors(p, map[scene.ImagePointHandle]bool{}, excluded)
	test.That(t, len(errs), test.ShouldEqual, 0)
}

func TestDetectOutliersFlagsLargeResidualKeepingMinimumObservations(t *testing.T) {
	// 5 observations on one camera: 4 near-zero error, 1 badly off. The
	// camera keeps >=3 remaining observations either way so the outlier
	// should be flagged.
	p, vh := buildReprojectionProject(t, 5)
	ip, _ := p.ImagePoint(0)
	ip.U += 200 // ~200px off, well past both MAD and the 50px hard cap
	p.SetImagePoint(0, ip)

	errs := reprojectionErrors(p, map[scene.ImagePointHandle]bool{}, map[scene.ViewpointHandle]bool{})
	outliers := detectOutliers(p, errs)

	test.That(t, len(outliers), test.ShouldEqual, 1)
	test.That(t, outliers[0], test.ShouldEqual, scene.ImagePointHandle(0))
	_ = vh
}

func TestDetectOutliersPreservesMinimumObservationsPerCamera(t *testing.T) {
	// Only 3 observations total on the camera; even a huge outlier must
	// not be dropped since removing it would leave fewer than the
	// minimum 3 observations needed to keep the pose observable.
	p, _ := buildReprojectionProject(t, 3)
	ip, _ := p.ImagePoint(0)
	ip.U += 300
	p.SetImagePoint(0, ip)

	errs := reprojectionErrors(p, map[scene.ImagePointHandle]bool{}, map[scene.ViewpointHandle]bool{})
	outliers := detectOutliers(p, errs)
	test.That(t, len(outliers), test.ShouldEqual, 0)
}

func TestDetectOutliersNoneWhenAllClean(t *testing.T) {
	p, _ := buildReprojectionProject(t, 6)
	errs := reprojectionErrors(p, map[scene.ImagePointHandle]bool{}, map[scene.ViewpointHandle]bool{})
	test.That(t, len(detectOutliers(p, errs)), test.ShouldEqual, 0)
}

func TestMedianOfEmptyIsZero(t *testing.T) {
	test.That(t, medianOf(map[scene.ImagePointHandle]float64{}), test.ShouldEqual, 0.0)
}

func TestMedianOfOddCount(t *testing.T) {
	errs := map[scene.ImagePointHandle]float64{0: 1, 1: 2, 2: 3}
	test.That(t, medianOf(errs), test.ShouldEqual, 2.0)
}

func TestFullPositionPrefersLockedOverOptimized(t *testing.T) {
	pt := scene.WorldPoint{
		LockedAxis:   [3]bool{true, false, false},
		LockedValue:  [3]float64{9, 0, 0},
		OptimizedXYZ: mgl64.Vec3{1, 2, 3},
	}
	pos := fullPosition(pt)
	test.That(t, pos[0], test.ShouldEqual, 9.0)
	test.That(t, pos[1], test.ShouldEqual, 2.0)
	test.That(t, pos[2], test.ShouldEqual, 3.0)
}
