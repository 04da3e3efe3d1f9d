// Package residual implements the residual/Jacobian providers as a
// closed tagged union rather than a class hierarchy. Every family's
// residual formula is written once, over autodiff.Dual; ComputeJacobian
// reads the exact forward-mode gradient off that same evaluation rather
// than a hand-transcribed closed-form partial, so residual and Jacobian
// can never drift apart.
package residual

import (
	"fmt"
	"math"

	"github.com/mfagerlund/rotera-core/autodiff"
	"github.com/mfagerlund/rotera-core/projection"
)

// Kind discriminates Provider's tagged union: one value per residual
// family, plus the constraint kinds named in scene.Constraint that are
// not already covered by a dedicated family.
type Kind int

const (
	KindFixedPoint Kind = iota
	KindDistancePointPoint
	KindDistancePointPlane
	KindLineLength
	KindCoincident
	KindLineDirection
	KindParallelLines
	KindPerpendicularLines
	KindCollinearPoints
	KindCoplanarPoints
	KindEqualDistances
	KindEqualAngles
	KindAnglePointPointPoint
	KindAngleLineLine
	KindQuaternionNorm
	KindReprojection
	KindReprojectionIntrinsics
	KindVanishingLine
)

func (k Kind) String() string {
	switch k {
	case KindFixedPoint:
		return "fixed_point"
	case KindDistancePointPoint:
		return "distance_point_point"
	case KindDistancePointPlane:
		return "distance_point_plane"
	case KindLineLength:
		return "line_length"
	case KindCoincident:
		return "coincident"
	case KindLineDirection:
		return "line_direction"
	case KindParallelLines:
		return "parallel_lines"
	case KindPerpendicularLines:
		return "perpendicular_lines"
	case KindCollinearPoints:
		return "collinear_points"
	case KindCoplanarPoints:
		return "coplanar_points"
	case KindEqualDistances:
		return "equal_distances"
	case KindEqualAngles:
		return "equal_angles"
	case KindAnglePointPointPoint:
		return "angle_point_point_point"
	case KindAngleLineLine:
		return "angle_line_line"
	case KindQuaternionNorm:
		return "quaternion_normalisation"
	case KindReprojection:
		return "reprojection"
	case KindReprojectionIntrinsics:
		return "reprojection_intrinsics"
	case KindVanishingLine:
		return "vanishing_line"
	default:
		return "unknown"
	}
}

// Provider is a single residual/Jacobian source: a pure function of the
// global parameter vector x, with no hidden state between LM iterations.
// Which extra fields are meaningful depends on Kind; see the
// New* constructors for the Refs ordering each family expects.
type Provider struct {
	Kind Kind
	Name string

	Refs []ParamRef
	N    int

	Target  float64
	Target3 [3]float64

	ForcedZero []int

	ObservedU, ObservedV float64
	Intrinsics           projection.Intrinsics
	ZReflected           bool

	Axis        int
	VPDirection [3]float64
	Weight      float64
}

// ResidualCount is this provider's N.
func (p Provider) ResidualCount() int { return p.N }

// VariableIndices returns the global indices of this provider's free
// slots, in the order its Jacobian's columns are produced.
func (p Provider) VariableIndices() []int { return variableIndices(p.Refs) }

// ComputeResiduals evaluates r(x) ∈ R^N for this provider.
func (p Provider) ComputeResiduals(x []float64) []float64 {
	ds := p.evaluate(x)
	if ds == nil {
		return nil
	}
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.Val
	}
	return out
}

// ComputeJacobian evaluates J(x) ∈ R^{N×k}, k = len(VariableIndices()).
func (p Provider) ComputeJacobian(x []float64) [][]float64 {
	ds := p.evaluate(x)
	out := make([][]float64, len(ds))
	for i, d := range ds {
		row := make([]float64, len(d.Grad))
		copy(row, d.Grad)
		out[i] = row
	}
	return out
}

func (p Provider) evaluate(x []float64) []autodiff.Dual {
	switch p.Kind {
	case KindFixedPoint:
		return p.evalFixedPoint(x)
	case KindDistancePointPoint:
		return p.evalDistancePointPoint(x)
	case KindDistancePointPlane:
		return p.evalDistancePointPlane(x)
	case KindLineLength:
		return p.evalLineLength(x)
	case KindCoincident:
		return p.evalCoincident(x)
	case KindLineDirection:
		return p.evalLineDirection(x)
	case KindParallelLines:
		return p.evalParallelLines(x)
	case KindPerpendicularLines:
		return p.evalPerpendicularLines(x)
	case KindCollinearPoints:
		return p.evalCollinearPoints(x)
	case KindCoplanarPoints:
		return p.evalCoplanarPoints(x)
	case KindEqualDistances:
		return p.evalEqualDistances(x)
	case KindEqualAngles:
		return p.evalEqualAngles(x)
	case KindAnglePointPointPoint:
		return p.evalAnglePointPointPoint(x)
	case KindAngleLineLine:
		return p.evalAngleLineLine(x)
	case KindQuaternionNorm:
		return p.evalQuaternionNorm(x)
	case KindReprojection, KindReprojectionIntrinsics:
		return p.evalReprojection(x)
	case KindVanishingLine:
		return p.evalVanishingLine(x)
	default:
		panic(fmt.Sprintf("residual: unhandled kind %v", p.Kind))
	}
}

// clampAcos guards against the |x|>1 that floating-point rounding can
// produce right at the boundary of acos's domain.
func clampAcos(v float64) float64 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return v
}

// angleBetween returns the dual angle (radians) between two direction
// vectors as acos of the clamped cosine. The gradient of acos blows up
// exactly at the clamp boundary, so the residual goes flat (constant)
// there instead of propagating an infinite derivative.
func angleBetween(a, b vec3) autodiff.Dual {
	cos := dot3(normalize3(a), normalize3(b))
	clamped := clampAcos(cos.Val)
	n := len(cos.Grad)
	if clamped != cos.Val {
		return autodiff.Constant(math.Acos(clamped), n)
	}
	// d/dx acos(u) = -1/sqrt(1-u^2)
	dacos := -1 / math.Sqrt(1-cos.Val*cos.Val)
	out := autodiff.Constant(math.Acos(cos.Val), n)
	for i := range out.Grad {
		out.Grad[i] = dacos * cos.Grad[i]
	}
	return out
}
