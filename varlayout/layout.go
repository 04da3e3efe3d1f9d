// Package varlayout implements variable layout: the
// bidirectional map between scene entities and the flat parameter vector
// the LM driver optimises. It is built once per solve and is immutable
// for the solve's lifetime; free axes of WorldPoints and unlocked
// Viewpoint poses/intrinsics get a contiguous global index (inferred axes
// included), locked axes are read back as literal constants.
package varlayout

import (
	"sort"

	"github.com/mfagerlund/rotera-core/residual"
	"github.com/mfagerlund/rotera-core/scene"
)

// Options selects which extra camera parameters participate as free
// variables, mirroring SolveOptions.OptimizeIntrinsics and
// OptimizeDistortion.
type Options struct {
	OptimizeIntrinsics bool
	OptimizeDistortion bool

	// ForceAllPosesLocked treats every Viewpoint's pose as locked
	// regardless of scene.Viewpoint.PoseLocked, letting a fine-tune pass
	// reuse Build instead of a parallel code path.
	ForceAllPosesLocked bool
}

// poseBlock is the 7 contiguous global indices a free Viewpoint pose
// occupies: Cx,Cy,Cz,qw,qx,qy,qz.
type poseBlock struct {
	start int
}

// intrinsicsBlock is the contiguous global indices an optimised
// Viewpoint's intrinsics occupy, in the fixed order f,[k1,k2,k3,p1,p2].
type intrinsicsBlock struct {
	start int
	count int
}

// Layout is the built entity<->index map plus the current and initial
// parameter values.
type Layout struct {
	project *scene.Project
	opts    Options

	values  []float64
	initial []float64

	pointAxisIndex map[pointAxisKey]int
	pose           map[scene.ViewpointHandle]poseBlock
	intrinsics     map[scene.ViewpointHandle]intrinsicsBlock
}

type pointAxisKey struct {
	point scene.PointHandle
	axis  int
}

// Build assembles a Layout over every free parameter of project, in
// deterministic order: points by handle then axis, then viewpoints by
// handle (pose block, then intrinsics block), so identical projects
// always produce identical orderings.
func Build(project *scene.Project, opts Options) *Layout {
	l := &Layout{
		project:        project,
		opts:           opts,
		pointAxisIndex: make(map[pointAxisKey]int),
		pose:           make(map[scene.ViewpointHandle]poseBlock),
		intrinsics:     make(map[scene.ViewpointHandle]intrinsicsBlock),
	}

	pointHandles := make([]int, project.NumPoints())
	for i := range pointHandles {
		pointHandles[i] = i
	}
	sort.Ints(pointHandles)
	for _, hi := range pointHandles {
		h := scene.PointHandle(hi)
		pt, _ := project.Point(h)
		axes := pt.FreeAxes()
		sort.Ints(axes)
		for _, axis := range axes {
			l.pointAxisIndex[pointAxisKey{h, axis}] = l.push(pt.OptimizedXYZ[axis])
		}
	}

	for _, vh := range project.AllViewpointHandles() {
		vp, _ := project.Viewpoint(vh)
		if !vp.PoseLocked && !opts.ForceAllPosesLocked {
			start := len(l.values)
			c := vp.Pose.Position
			q := vp.Pose.Rotation
			l.push(c.X())
			l.push(c.Y())
			l.push(c.Z())
			l.push(q.W)
			l.push(q.V.X())
			l.push(q.V.Y())
			l.push(q.V.Z())
			l.pose[vh] = poseBlock{start: start}
		}
		if opts.OptimizeIntrinsics {
			start := len(l.values)
			count := 1
			l.push(vp.Intrinsics.FocalLength)
			if opts.OptimizeDistortion {
				l.push(vp.Intrinsics.K1)
				l.push(vp.Intrinsics.K2)
				l.push(vp.Intrinsics.K3)
				l.push(vp.Intrinsics.P1)
				l.push(vp.Intrinsics.P2)
				count = 6
			}
			l.intrinsics[vh] = intrinsicsBlock{start: start, count: count}
		}
	}

	l.initial = append([]float64(nil), l.values...)
	return l
}

func (l *Layout) push(v float64) int {
	l.values = append(l.values, v)
	return len(l.values) - 1
}

// NumVariables returns the total free-parameter count.
func (l *Layout) NumVariables() int { return len(l.values) }

// Values returns the layout's current parameter vector (not a copy;
// callers that mutate it are expected to own the result of a solve step).
func (l *Layout) Values() []float64 { return l.values }

// SetValues overwrites the current parameter vector; len(x) must equal
// NumVariables().
func (l *Layout) SetValues(x []float64) { copy(l.values, x) }

// InitialValues returns the snapshot taken at Build time, which the
// regularisation providers pin free world points toward.
func (l *Layout) InitialValues() []float64 {
	return append([]float64(nil), l.initial...)
}

// PointRef returns the ParamRef a provider should use for one axis of a
// WorldPoint: Free if the axis is unlocked, Const at its known value
// otherwise.
func (l *Layout) PointRef(h scene.PointHandle, axis int) residual.ParamRef {
	if idx, ok := l.pointAxisIndex[pointAxisKey{h, axis}]; ok {
		return residual.Free(idx)
	}
	pt, _ := l.project.Point(h)
	v, _ := pt.KnownValue(axis)
	return residual.Const(v)
}

// PointRefs3 returns the (x,y,z) ParamRefs for a WorldPoint.
func (l *Layout) PointRefs3(h scene.PointHandle) [3]residual.ParamRef {
	return [3]residual.ParamRef{l.PointRef(h, 0), l.PointRef(h, 1), l.PointRef(h, 2)}
}

// PoseRefs returns the 7 ParamRefs (Cx,Cy,Cz,qw,qx,qy,qz) for a Viewpoint's
// pose: all Free if the pose is unlocked, all Const at the current pose
// otherwise.
func (l *Layout) PoseRefs(h scene.ViewpointHandle) [7]residual.ParamRef {
	if block, ok := l.pose[h]; ok {
		var out [7]residual.ParamRef
		for i := range out {
			out[i] = residual.Free(block.start + i)
		}
		return out
	}
	vp, _ := l.project.Viewpoint(h)
	c := vp.Pose.Position
	q := vp.Pose.Rotation
	return [7]residual.ParamRef{
		residual.Const(c.X()), residual.Const(c.Y()), residual.Const(c.Z()),
		residual.Const(q.W), residual.Const(q.V.X()), residual.Const(q.V.Y()), residual.Const(q.V.Z()),
	}
}

// FocalLengthRef returns the ParamRef for a Viewpoint's focal length: Free
// if intrinsics optimisation is enabled for this layout, Const otherwise.
func (l *Layout) FocalLengthRef(h scene.ViewpointHandle) residual.ParamRef {
	vp, _ := l.project.Viewpoint(h)
	if block, ok := l.intrinsics[h]; ok {
		return residual.Free(block.start)
	}
	return residual.Const(vp.Intrinsics.FocalLength)
}

// DistortionRefs returns the five ParamRefs (k1,k2,k3,p1,p2) for a
// Viewpoint's Brown-Conrady coefficients: Free if distortion optimisation
// is enabled for this layout, Const at the current values otherwise.
func (l *Layout) DistortionRefs(h scene.ViewpointHandle) [5]residual.ParamRef {
	if block, ok := l.intrinsics[h]; ok && block.count == 6 {
		var out [5]residual.ParamRef
		for i := range out {
			out[i] = residual.Free(block.start + 1 + i)
		}
		return out
	}
	vp, _ := l.project.Viewpoint(h)
	return [5]residual.ParamRef{
		residual.Const(vp.Intrinsics.K1), residual.Const(vp.Intrinsics.K2), residual.Const(vp.Intrinsics.K3),
		residual.Const(vp.Intrinsics.P1), residual.Const(vp.Intrinsics.P2),
	}
}

// OptimizingDistortion reports whether h's distortion coefficients were
// promoted to free variables alongside the focal length.
func (l *Layout) OptimizingDistortion(h scene.ViewpointHandle) bool {
	block, ok := l.intrinsics[h]
	return ok && block.count == 6
}

// OptimizingIntrinsics reports whether h's intrinsics have a free block at
// all, used by the caller to decide between residual.NewReprojection and
// residual.NewReprojectionIntrinsics.
func (l *Layout) OptimizingIntrinsics(h scene.ViewpointHandle) bool {
	_, ok := l.intrinsics[h]
	return ok
}

// LockMask returns, for every global index, whether that parameter must
// never move. Every entry is false: locked axes and locked poses
// (including those forced by Options.ForceAllPosesLocked) never get an
// index in the first place.
func (l *Layout) LockMask() []bool {
	return make([]bool, len(l.values))
}
