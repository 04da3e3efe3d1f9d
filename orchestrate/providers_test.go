package orchestrate

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.viam.com/test"

	"github.com/mfagerlund/rotera-core/logging"
	"github.com/mfagerlund/rotera-core/residual"
	"github.com/mfagerlund/rotera-core/scene"
	"github.com/mfagerlund/rotera-core/varlayout"
)

// TestBuildProvidersIncludesLineLengthAndDirection wires one locked corner,
// one free top point, and a Y-direction line with a target length, then
// checks buildProviders produces both a line_length and a line_direction
// provider for it.
func TestBuildProvidersIncludesLineLengthAndDirection(t *testing.T) {
	p := scene.NewProject()
	corner := p.AddPoint(scene.WorldPoint{LockedAxis: [3]bool{true, true, true}})
	top := p.AddPoint(scene.WorldPoint{OptimizedXYZ: mgl64.Vec3{0, 3, 0}})
	_, err := p.AddLine(scene.Line{A: corner, B: top, Direction: scene.DirY, HasTargetLength: true, TargetLength: 3})
	test.That(t, err, test.ShouldBeNil)

	layout := varlayout.Build(p, varlayout.Options{})
	providers := buildProviders(p, layout, providerBuildOptions{Logger: logging.NewNoopLogger()})

	var sawLength, sawDirection bool
	for _, pr := range providers {
		if pr.Kind == residual.KindLineLength {
			sawLength = true
		}
		if pr.Kind == residual.KindLineDirection {
			sawDirection = true
		}
	}
	test.That(t, sawLength, test.ShouldBeTrue)
	test.That(t, sawDirection, test.ShouldBeTrue)
}

func TestBuildProvidersSkipsDistancePointLineConstraint(t *testing.T) {
	p := scene.NewProject()
	a := p.AddPoint(scene.WorldPoint{})
	b := p.AddPoint(scene.WorldPoint{})
	p.AddConstraint(scene.Constraint{Kind: scene.ConstraintDistancePointLine, Points: []scene.PointHandle{a, b}, Enabled: true})

	layout := varlayout.Build(p, varlayout.Options{})
	providers := buildProviders(p, layout, providerBuildOptions{Logger: logging.NewNoopLogger()})
	test.That(t, len(providers), test.ShouldEqual, 0)
}

func TestBuildProvidersSkipsDisabledConstraints(t *testing.T) {
	p := scene.NewProject()
	a := p.AddPoint(scene.WorldPoint{})
	b := p.AddPoint(scene.WorldPoint{})
	p.AddConstraint(scene.Constraint{
		Kind: scene.ConstraintDistancePointPoint, Points: []scene.PointHandle{a, b}, Target: 5, Enabled: false,
	})

	layout := varlayout.Build(p, varlayout.Options{})
	providers := buildProviders(p, layout, providerBuildOptions{Logger: logging.NewNoopLogger()})
	test.That(t, len(providers), test.ShouldEqual, 0)
}

func TestBuildProvidersBuildsDistancePointPointConstraint(t *testing.T) {
	p := scene.NewProject()
	a := p.AddPoint(scene.WorldPoint{})
	b := p.AddPoint(scene.WorldPoint{})
	p.AddConstraint(scene.Constraint{
		Kind: scene.ConstraintDistancePointPoint, Points: []scene.PointHandle{a, b}, Target: 5, Enabled: true,
	})

	layout := varlayout.Build(p, varlayout.Options{})
	providers := buildProviders(p, layout, providerBuildOptions{Logger: logging.NewNoopLogger()})

	test.That(t, len(providers), test.ShouldEqual, 1)
	test.That(t, providers[0].Kind, test.ShouldEqual, residual.KindDistancePointPoint)
	test.That(t, providers[0].Target, test.ShouldEqual, 5.0)
}

// TestBuildProvidersLocksPoseWhenForced checks the fix tying buildProviders'
// poseFree determination to the layout's own PoseRefs rather than a
// duplicated providerBuildOptions flag: when ForceAllPosesLocked forces the
// pose constant at layout-build time, no quaternion-norm provider should be
// emitted for it even though scene.Viewpoint.PoseLocked itself is false.
func TestBuildProvidersLocksPoseWhenForced(t *testing.T) {
	p := scene.NewProject()
	p.AddViewpoint(scene.Viewpoint{})

	layout := varlayout.Build(p, varlayout.Options{ForceAllPosesLocked: true})
	providers := buildProviders(p, layout, providerBuildOptions{Logger: logging.NewNoopLogger()})

	for _, pr := range providers {
		test.That(t, pr.Kind, test.ShouldNotEqual, residual.KindQuaternionNorm)
	}
}

func TestBuildProvidersAddsQuaternionNormForFreePose(t *testing.T) {
	p := scene.NewProject()
	p.AddViewpoint(scene.Viewpoint{})

	layout := varlayout.Build(p, varlayout.Options{})
	providers := buildProviders(p, layout, providerBuildOptions{Logger: logging.NewNoopLogger()})

	var sawQuatNorm bool
	for _, pr := range providers {
		if pr.Kind == residual.KindQuaternionNorm {
			sawQuatNorm = true
		}
	}
	test.That(t, sawQuatNorm, test.ShouldBeTrue)
}

func TestBuildProvidersRegularizationPinsFreePoints(t *testing.T) {
	p := scene.NewProject()
	p.AddPoint(scene.WorldPoint{OptimizedXYZ: mgl64.Vec3{1, 2, 3}})

	layout := varlayout.Build(p, varlayout.Options{})
	providers := buildProviders(p, layout, providerBuildOptions{RegularizationWeight: 0.5, Logger: logging.NewNoopLogger()})

	var found bool
	for _, pr := range providers {
		if pr.Kind == residual.KindFixedPoint {
			found = true
			test.That(t, pr.Weight, test.ShouldEqual, 0.5)
			test.That(t, pr.Target3, test.ShouldResemble, [3]float64{1, 2, 3})
		}
	}
	test.That(t, found, test.ShouldBeTrue)
}

func TestBuildProvidersSkipsRegularizationForFullyConstrainedPoints(t *testing.T) {
	p := scene.NewProject()
	p.AddPoint(scene.WorldPoint{LockedAxis: [3]bool{true, true, true}})

	layout := varlayout.Build(p, varlayout.Options{})
	providers := buildProviders(p, layout, providerBuildOptions{RegularizationWeight: 1, Logger: logging.NewNoopLogger()})
	test.That(t, len(providers), test.ShouldEqual, 0)
}
