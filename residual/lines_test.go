package residual

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestDistancePointPlaneResidual(t *testing.T) {
	var refs [12]ParamRef
	copy(refs[:], freeRefs(12))
	p := NewDistancePointPlane("dist-plane", refs, 2)
	// Plane z=0 through A=(0,0,0), B=(1,0,0), C=(0,1,0); P sits 2 above it.
	x := []float64{
		0.5, 0.5, 2,
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	}
	r := p.ComputeResiduals(x)
	test.That(t, math.Abs(r[0]), test.ShouldBeLessThan, 1e-9)
	assertJacobianMatchesNumerical(t, p, []float64{0.5, 0.7, 2.3, 0, 0.1, 0, 1, 0, 0.2, 0, 1, 0.1})
}

func TestCollinearPointsResidualZeroOnLine(t *testing.T) {
	refs := freeRefs(12)
	p := NewCollinearPoints("collinear", refs)
	test.That(t, p.N, test.ShouldEqual, 6)
	// Four points along the x axis.
	x := []float64{
		0, 0, 0,
		1, 0, 0,
		3, 0, 0,
		-2, 0, 0,
	}
	r := p.ComputeResiduals(x)
	for _, v := range r {
		test.That(t, math.Abs(v), test.ShouldBeLessThan, 1e-9)
	}
	assertJacobianMatchesNumerical(t, p, []float64{0, 0, 0, 1, 0.2, 0.1, 3, 0.5, 0.4, -2, 0.3, 0.2})
}

func TestAnglePointPointPointRightAngle(t *testing.T) {
	var refs [9]ParamRef
	copy(refs[:], freeRefs(9))
	p := NewAnglePointPointPoint("angle-ppp", refs, math.Pi/2)
	// Rays B->A and B->C along x and y respectively.
	x := []float64{1, 0, 0, 0, 0, 0, 0, 1, 0}
	r := p.ComputeResiduals(x)
	test.That(t, math.Abs(r[0]), test.ShouldBeLessThan, 1e-9)
	assertJacobianMatchesNumerical(t, p, []float64{1, 0.1, 0.2, 0, 0, 0, 0.1, 1, 0.1})
}

func TestAngleLineLineRightAngle(t *testing.T) {
	var refs [12]ParamRef
	copy(refs[:], freeRefs(12))
	p := NewAngleLineLine("angle-ll", refs, math.Pi/2)
	// A-B along x, C-D along y.
	x := []float64{0, 0, 0, 5, 0, 0, 1, 1, 1, 1, 4, 1}
	r := p.ComputeResiduals(x)
	test.That(t, math.Abs(r[0]), test.ShouldBeLessThan, 1e-9)
	assertJacobianMatchesNumerical(t, p, []float64{0, 0, 0, 5, 0.4, 0.2, 1, 1, 1, 1.3, 4, 1.2})
}

func TestReprojectionDistortionJacobian(t *testing.T) {
	var refs [16]ParamRef
	copy(refs[:], freeRefs(16))
	intr := identityIntrinsics()
	p := NewReprojectionDistortion("reproj-dist", refs, 960, 540, intr, false)
	test.That(t, len(p.VariableIndices()), test.ShouldEqual, 16)
	x := []float64{
		0.3, 0.2, 10, // world point
		0, 0, 0, // camera center
		1, 0, 0, 0, // quaternion
		1000,                            // focal length
		0.05, 0.01, 0.001, 0.002, 0.003, // k1,k2,k3,p1,p2
	}
	assertJacobianMatchesNumerical(t, p, x)
}
