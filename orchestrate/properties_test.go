package orchestrate

import (
	"context"
	"math"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/mfagerlund/rotera-core/projection"
	"github.com/mfagerlund/rotera-core/scene"
	"github.com/mfagerlund/rotera-core/spatial"
	"github.com/mfagerlund/rotera-core/varlayout"
)

// TestSolveIsDeterministicPerSeed runs the same solve twice from two
// identically-built projects and demands bit-identical results.
func TestSolveIsDeterministicPerSeed(t *testing.T) {
	opts := DefaultSolveOptions()
	opts.AutoInitializeCameras = false
	opts.AutoInitializeWorldPoints = false
	opts.Seed = 42

	p1, _, _ := buildCubeProject(t, 0.2)
	r1 := Solve(context.Background(), p1, opts)
	p2, _, _ := buildCubeProject(t, 0.2)
	r2 := Solve(context.Background(), p2, opts)

	test.That(t, r1.Error, test.ShouldBeEmpty)
	test.That(t, r1.Residual, test.ShouldEqual, r2.Residual)
	test.That(t, r1.Iterations, test.ShouldEqual, r2.Iterations)

	for i := 0; i < p1.NumPoints(); i++ {
		pt1, _ := p1.Point(scene.PointHandle(i))
		pt2, _ := p2.Point(scene.PointHandle(i))
		for axis := 0; axis < 3; axis++ {
			test.That(t, pt1.OptimizedXYZ[axis], test.ShouldEqual, pt2.OptimizedXYZ[axis])
		}
	}
}

// TestSolveNeverMovesLockedAxes pins the locked-axis invariant: a locked
// coordinate survives the whole solve untouched.
func TestSolveNeverMovesLockedAxes(t *testing.T) {
	p, corners, _ := buildCubeProject(t, 0.5)

	opts := DefaultSolveOptions()
	opts.AutoInitializeCameras = false
	opts.AutoInitializeWorldPoints = false
	result := Solve(context.Background(), p, opts)
	test.That(t, result.Error, test.ShouldBeEmpty)

	for _, i := range []int{0, 1} {
		pt, _ := p.Point(scene.PointHandle(i))
		for axis := 0; axis < 3; axis++ {
			test.That(t, pt.OptimizedXYZ[axis], test.ShouldEqual, corners[i][axis])
		}
	}
}

// TestSolveNormalisesFreeCameraQuaternions checks that the quaternion
// normalisation residual leaves every free pose at unit length after the
// solve.
func TestSolveNormalisesFreeCameraQuaternions(t *testing.T) {
	p, _, viewpoints := buildCubeProject(t, 0.2)

	// Start both rotations slightly off unit length.
	for _, vh := range viewpoints {
		vp, _ := p.Viewpoint(vh)
		q := vp.Pose.Rotation
		vp.Pose.Rotation = spatial.NewQuaternion(q.W*1.01, q.V.X()*1.01, q.V.Y()*1.01, q.V.Z()*1.01)
		p.SetViewpoint(vh, vp)
	}

	opts := DefaultSolveOptions()
	opts.AutoInitializeCameras = false
	opts.AutoInitializeWorldPoints = false
	result := Solve(context.Background(), p, opts)
	test.That(t, result.Error, test.ShouldBeEmpty)

	for _, vh := range viewpoints {
		vp, _ := p.Viewpoint(vh)
		test.That(t, math.Abs(spatial.Norm(vp.Pose.Rotation)-1), test.ShouldBeLessThan, 1e-6)
	}
}

func TestSolveReportsTimeoutOnExpiredDeadline(t *testing.T) {
	p, _, _ := buildCubeProject(t, 0.2)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	opts := DefaultSolveOptions()
	opts.AutoInitializeCameras = false
	opts.AutoInitializeWorldPoints = false
	result := Solve(ctx, p, opts)
	test.That(t, result.Converged, test.ShouldBeFalse)
	test.That(t, result.Error, test.ShouldEqual, string(ErrTimeout))
}

func TestSolveReportsCancelledOnCancelledContext(t *testing.T) {
	p, _, _ := buildCubeProject(t, 0.2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultSolveOptions()
	opts.AutoInitializeCameras = false
	opts.AutoInitializeWorldPoints = false
	result := Solve(ctx, p, opts)
	test.That(t, result.Converged, test.ShouldBeFalse)
	test.That(t, result.Error, test.ShouldEqual, string(ErrCancelled))
}

// TestWriteBackLayoutCopiesDistortion exercises the optimize_distortion
// write-back path without a full solve: poke new values into the layout's
// parameter vector and confirm they land on the viewpoint's intrinsics.
func TestWriteBackLayoutCopiesDistortion(t *testing.T) {
	p := scene.NewProject()
	vh := p.AddViewpoint(scene.Viewpoint{
		Intrinsics: projection.Intrinsics{FocalLength: 1000, AspectRatio: 1},
		PoseLocked: true,
	})

	layout := varlayout.Build(p, varlayout.Options{OptimizeIntrinsics: true, OptimizeDistortion: true})
	test.That(t, layout.NumVariables(), test.ShouldEqual, 6)

	layout.SetValues([]float64{1100, 0.1, 0.02, 0.003, 0.004, 0.005})
	writeBackLayout(p, layout)

	vp, _ := p.Viewpoint(vh)
	test.That(t, vp.Intrinsics.FocalLength, test.ShouldEqual, 1100.0)
	test.That(t, vp.Intrinsics.K1, test.ShouldEqual, 0.1)
	test.That(t, vp.Intrinsics.K2, test.ShouldEqual, 0.02)
	test.That(t, vp.Intrinsics.K3, test.ShouldEqual, 0.003)
	test.That(t, vp.Intrinsics.P1, test.ShouldEqual, 0.004)
	test.That(t, vp.Intrinsics.P2, test.ShouldEqual, 0.005)
}
