package orchestrate

import (
	"fmt"

	"github.com/mfagerlund/rotera-core/initpipeline"
	"github.com/mfagerlund/rotera-core/linalg"
	"github.com/mfagerlund/rotera-core/logging"
	"github.com/mfagerlund/rotera-core/residual"
	"github.com/mfagerlund/rotera-core/scene"
	"github.com/mfagerlund/rotera-core/varlayout"
)

// providerBuildOptions narrows SolveOptions down to what buildProviders
// needs, plus the per-attempt exclusion sets the outlier retry loop and
// the auto-init exclusion list grow between attempts.
type providerBuildOptions struct {
	RegularizationWeight float64
	ExcludedImagePoints  map[scene.ImagePointHandle]bool
	ExcludedViewpoints   map[scene.ViewpointHandle]bool
	Logger               logging.Logger
}

// buildProviders assembles the full residual set over project given
// layout: every line's length/direction constraint, every
// scene.Constraint, one reprojection provider per visible, non-excluded
// ImagePoint, a quaternion-normalisation provider per free camera pose, a
// continuous vanishing-line provider per axis with ≥2 resolved VLs on a
// free pose, and, if RegularizationWeight > 0, a fixed-point anchor
// pinning every free world point to its layout-build-time initial value
// (a soft prior toward the starting estimate).
func buildProviders(project *scene.Project, layout *varlayout.Layout, opts providerBuildOptions) []residual.Provider {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	var providers []residual.Provider

	for _, lh := range project.AllLineHandles() {
		line, ok := project.Line(lh)
		if !ok {
			continue
		}
		refs := toFixed6(flatten(layout, line.A, line.B))
		if line.HasTargetLength && line.TargetLength > 0 {
			providers = append(providers, residual.NewLineLength(fmt.Sprintf("line[%d].length", lh), refs, line.TargetLength))
		}
		if zero := line.Direction.ForcedZeroComponents(); len(zero) > 0 {
			providers = append(providers, residual.NewLineDirection(fmt.Sprintf("line[%d].direction", lh), refs, zero))
		}
	}

	for i, c := range project.AllConstraints() {
		if p, ok := buildConstraintProvider(project, layout, i, c, logger); ok {
			providers = append(providers, p)
		}
	}

	for _, vh := range project.AllViewpointHandles() {
		if opts.ExcludedViewpoints[vh] {
			continue
		}
		vp, ok := project.Viewpoint(vh)
		if !ok {
			continue
		}
		poseFree := !layout.PoseRefs(vh)[0].IsConstant

		for _, ih := range vp.ObservedImagePoints {
			if opts.ExcludedImagePoints[ih] {
				continue
			}
			ip, ok := project.ImagePoint(ih)
			if !ok || !ip.Visible {
				continue
			}
			providers = append(providers, reprojectionProvider(layout, ih, ip, vh, vp))
		}

		if poseFree {
			poseRefs := layout.PoseRefs(vh)
			var quatRefs [4]residual.ParamRef
			copy(quatRefs[:], poseRefs[3:])
			providers = append(providers, residual.NewQuaternionNorm(fmt.Sprintf("viewpoint[%d].quat_norm", vh), quatRefs))

			providers = append(providers, vanishingLineProviders(project, layout, vh, vp)...)
		}
	}

	if opts.RegularizationWeight > 0 {
		providers = append(providers, regularizationProviders(project, layout, opts.RegularizationWeight)...)
	}

	return providers
}

// reprojectionProvider picks NewReprojection or NewReprojectionIntrinsics
// depending on whether layout promoted this viewpoint's focal length to a
// free variable (optimize_intrinsics).
func reprojectionProvider(layout *varlayout.Layout, ih scene.ImagePointHandle, ip scene.ImagePoint, vh scene.ViewpointHandle, vp scene.Viewpoint) residual.Provider {
	pointRefs := layout.PointRefs3(ip.Point)
	poseRefs := layout.PoseRefs(vh)
	name := fmt.Sprintf("imagepoint[%d]", ih)

	if layout.OptimizingIntrinsics(vh) {
		if layout.OptimizingDistortion(vh) {
			var refs [16]residual.ParamRef
			copy(refs[0:3], pointRefs[:])
			copy(refs[3:10], poseRefs[:])
			refs[10] = layout.FocalLengthRef(vh)
			dist := layout.DistortionRefs(vh)
			copy(refs[11:16], dist[:])
			return residual.NewReprojectionDistortion(name, refs, ip.U, ip.V, vp.Intrinsics, vp.IsZReflected)
		}
		var refs [11]residual.ParamRef
		copy(refs[0:3], pointRefs[:])
		copy(refs[3:10], poseRefs[:])
		refs[10] = layout.FocalLengthRef(vh)
		return residual.NewReprojectionIntrinsics(name, refs, ip.U, ip.V, vp.Intrinsics, vp.IsZReflected)
	}

	var refs [10]residual.ParamRef
	copy(refs[0:3], pointRefs[:])
	copy(refs[3:10], poseRefs[:])
	return residual.NewReprojection(name, refs, ip.U, ip.V, vp.Intrinsics, vp.IsZReflected)
}

// vanishingLineProviders builds one continuous residual.NewVanishingLine
// per axis that has ≥2 VanishingLines on vh, so the main solve keeps the
// orientation vanishing lines implied even as the pose keeps moving, since
// initpipeline.ResolveOrientation only ever runs once, before the LM loop
// starts.
func vanishingLineProviders(project *scene.Project, layout *varlayout.Layout, vh scene.ViewpointHandle, vp scene.Viewpoint) []residual.Provider {
	kInv, ok := linalg.Invert3x3(initpipeline.IntrinsicsMatrix(vp.Intrinsics))
	if !ok {
		return nil
	}

	byAxis := map[scene.Axis][]scene.VanishingLine{}
	for _, vl := range project.VanishingLinesFor(vh) {
		byAxis[vl.Axis] = append(byAxis[vl.Axis], vl)
	}

	poseRefs := layout.PoseRefs(vh)
	var quatRefs [4]residual.ParamRef
	copy(quatRefs[:], poseRefs[3:])

	var out []residual.Provider
	for _, axis := range []scene.Axis{scene.AxisX, scene.AxisY, scene.AxisZ} {
		lines := byAxis[axis]
		dir, ok := initpipeline.AxisDirection(lines, kInv)
		if !ok {
			continue
		}
		name := fmt.Sprintf("viewpoint[%d].vanishing_line[%d]", vh, axis)
		out = append(out, residual.NewVanishingLine(name, quatRefs, int(axis), dir, float64(len(lines))))
	}
	return out
}

// regularizationProviders pins every free world point to the value it held
// when layout was built, scaled by weight: a soft prior that keeps an
// under-constrained solve from drifting arbitrarily far from its starting
// estimate.
func regularizationProviders(project *scene.Project, layout *varlayout.Layout, weight float64) []residual.Provider {
	initial := layout.InitialValues()
	var out []residual.Provider
	for i := 0; i < project.NumPoints(); i++ {
		ph := scene.PointHandle(i)
		pt, ok := project.Point(ph)
		if !ok || pt.IsFullyConstrained() {
			continue
		}
		refs := layout.PointRefs3(ph)
		var target [3]float64
		anyFree := false
		for axis := 0; axis < 3; axis++ {
			if refs[axis].IsConstant {
				target[axis] = refs[axis].Constant
				continue
			}
			target[axis] = initial[refs[axis].Index]
			anyFree = true
		}
		if !anyFree {
			continue
		}
		p := residual.NewFixedPoint(fmt.Sprintf("point[%d].regularization", ph), refs, target)
		p.Weight = weight
		out = append(out, p)
	}
	return out
}

// flatten concatenates the (x,y,z) ParamRefs of each point in order.
func flatten(layout *varlayout.Layout, points ...scene.PointHandle) []residual.ParamRef {
	out := make([]residual.ParamRef, 0, 3*len(points))
	for _, ph := range points {
		r := layout.PointRefs3(ph)
		out = append(out, r[0], r[1], r[2])
	}
	return out
}

func toFixed6(s []residual.ParamRef) (out [6]residual.ParamRef)   { copy(out[:], s); return }
func toFixed9(s []residual.ParamRef) (out [9]residual.ParamRef)   { copy(out[:], s); return }
func toFixed12(s []residual.ParamRef) (out [12]residual.ParamRef) { copy(out[:], s); return }

// buildConstraintProvider maps one scene.Constraint onto its residual
// family. ConstraintDistancePointLine has no residual family (only
// point-point and point-plane distances do); rather than inventing a new
// Provider kind for a single DTO value, it is logged and skipped.
func buildConstraintProvider(project *scene.Project, layout *varlayout.Layout, index int, c scene.Constraint, logger logging.Logger) (residual.Provider, bool) {
	if !c.Enabled {
		return residual.Provider{}, false
	}
	name := fmt.Sprintf("constraint[%d].%s", index, constraintKindName(c.Kind))

	switch c.Kind {
	case scene.ConstraintDistancePointPoint:
		if len(c.Points) < 2 {
			return residual.Provider{}, false
		}
		return residual.NewDistancePointPoint(name, toFixed6(flatten(layout, c.Points[0], c.Points[1])), c.Target), true

	case scene.ConstraintDistancePointLine:
		logger.Warnf("constraint[%d]: distance_point_line has no residual family, skipped", index)
		return residual.Provider{}, false

	case scene.ConstraintDistancePointPlane:
		if len(c.Points) < 4 {
			return residual.Provider{}, false
		}
		refs := toFixed12(flatten(layout, c.Points[0], c.Points[1], c.Points[2], c.Points[3]))
		return residual.NewDistancePointPlane(name, refs, c.Target), true

	case scene.ConstraintAnglePointPointPoint:
		if len(c.Points) < 3 {
			return residual.Provider{}, false
		}
		refs := toFixed9(flatten(layout, c.Points[0], c.Points[1], c.Points[2]))
		return residual.NewAnglePointPointPoint(name, refs, c.Target), true

	case scene.ConstraintAngleLineLine:
		refs, ok := twoLineRefs(project, layout, c)
		if !ok {
			return residual.Provider{}, false
		}
		return residual.NewAngleLineLine(name, refs, c.Target), true

	case scene.ConstraintParallelLines:
		refs, ok := twoLineRefs(project, layout, c)
		if !ok {
			return residual.Provider{}, false
		}
		return residual.NewParallelLines(name, refs), true

	case scene.ConstraintPerpendicularLines:
		refs, ok := twoLineRefs(project, layout, c)
		if !ok {
			return residual.Provider{}, false
		}
		return residual.NewPerpendicularLines(name, refs), true

	case scene.ConstraintCollinearPoints:
		if len(c.Points) < 2 {
			return residual.Provider{}, false
		}
		return residual.NewCollinearPoints(name, flatten(layout, c.Points...)), true

	case scene.ConstraintCoplanarPoints:
		if len(c.Points) < 3 {
			return residual.Provider{}, false
		}
		return residual.NewCoplanarPoints(name, flatten(layout, c.Points...)), true

	case scene.ConstraintFixedPoint:
		return fixedPointProvider(layout, name, c)

	case scene.ConstraintHorizontalLine:
		if len(c.Points) < 2 {
			return residual.Provider{}, false
		}
		refs := toFixed6(flatten(layout, c.Points[0], c.Points[1]))
		return residual.NewLineDirection(name, refs, []int{1}), true

	case scene.ConstraintVerticalLine:
		if len(c.Points) < 2 {
			return residual.Provider{}, false
		}
		refs := toFixed6(flatten(layout, c.Points[0], c.Points[1]))
		return residual.NewLineDirection(name, refs, []int{0, 2}), true

	case scene.ConstraintEqualDistances:
		if len(c.Points) < 4 {
			return residual.Provider{}, false
		}
		return residual.NewEqualDistances(name, flatten(layout, c.Points...)), true

	case scene.ConstraintEqualAngles:
		if len(c.Points) < 6 {
			return residual.Provider{}, false
		}
		return residual.NewEqualAngles(name, flatten(layout, c.Points...)), true

	default:
		logger.Warnf("constraint[%d]: unrecognised kind %d, skipped", index, c.Kind)
		return residual.Provider{}, false
	}
}

// fixedPointProvider pins c.Points[0] to its own current position. This is
// the natural reading given scene.Constraint carries no dedicated
// target-position field (only the scalar Target field it defines for
// distance/angle constraints). A caller wanting to freeze a point
// mid-session without touching WorldPoint.LockedAxis authors a fixed_point
// constraint, and this snapshots wherever the point currently sits at
// provider-build time.
func fixedPointProvider(layout *varlayout.Layout, name string, c scene.Constraint) (residual.Provider, bool) {
	if len(c.Points) < 1 {
		return residual.Provider{}, false
	}
	refs := layout.PointRefs3(c.Points[0])
	var target [3]float64
	for axis := 0; axis < 3; axis++ {
		if refs[axis].IsConstant {
			target[axis] = refs[axis].Constant
		} else {
			target[axis] = layout.Values()[refs[axis].Index]
		}
	}
	return residual.NewFixedPoint(name, refs, target), true
}

// twoLineRefs resolves the first two scene.Lines named by c into the
// [Ax,Ay,Az,Bx,By,Bz,Cx,Cy,Cz,Dx,Dy,Dz] shape NewParallelLines,
// NewPerpendicularLines and NewAngleLineLine all share.
func twoLineRefs(project *scene.Project, layout *varlayout.Layout, c scene.Constraint) ([12]residual.ParamRef, bool) {
	if len(c.Lines) < 2 {
		return [12]residual.ParamRef{}, false
	}
	l0, ok0 := project.Line(c.Lines[0])
	l1, ok1 := project.Line(c.Lines[1])
	if !ok0 || !ok1 {
		return [12]residual.ParamRef{}, false
	}
	return toFixed12(flatten(layout, l0.A, l0.B, l1.A, l1.B)), true
}

func constraintKindName(k scene.ConstraintKind) string {
	names := []string{
		"distance_point_point", "distance_point_line", "distance_point_plane",
		"angle_point_point_point", "angle_line_line", "parallel_lines",
		"perpendicular_lines", "collinear_points", "coplanar_points",
		"fixed_point", "horizontal_line", "vertical_line",
		"equal_distances", "equal_angles",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "unknown"
	}
	return names[k]
}
