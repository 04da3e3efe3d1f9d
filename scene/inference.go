package scene

// RecomputeInferredAxes propagates axis values across direction-constrained
// lines to a fixed point. A line whose
// Direction forces component c of B−A to zero means A and B share the same
// value on axis c; if one endpoint's axis c is already known (locked or
// already inferred) and the other's is not, the unknown side inherits it.
// This lets, for example, a single locked corner of a box propagate its
// height to every vertical edge's far endpoint before the solver ever runs.
//
// The loop is a textbook worklist fixed point: it recomputes until a full
// pass over every line makes no further assignment, which terminates in at
// most NumPoints*3 passes since each pass that changes anything flips at
// least one (point, axis) from unknown to known.
func (p *Project) RecomputeInferredAxes() {
	for i := 0; i < p.points.len(); i++ {
		pt, _ := p.points.get(i)
		pt.InferredAxis = [3]bool{}
		pt.InferredXYZ = [3]float64{}
		p.points.set(i, pt)
	}
	p.propagateFixedPoint()
}

// PropagateFurther re-runs the same worklist fixed point without resetting
// already-inferred axes first, so a value resolved outside this pass (e.g.
// initpipeline/inference's sign-ambiguity branching) can chain through any
// further direction-constrained lines it touches.
func (p *Project) PropagateFurther() {
	p.propagateFixedPoint()
}

func (p *Project) propagateFixedPoint() {
	maxPasses := p.points.len()*3 + 1
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for i := 0; i < p.lines.len(); i++ {
			line, _ := p.lines.get(i)
			for _, axis := range line.Direction.ForcedZeroComponents() {
				if p.propagateAxis(line.A, line.B, axis) {
					changed = true
				}
				if p.propagateAxis(line.B, line.A, axis) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
}

// SyncInferredIntoOptimized copies every point's inferred axis values into
// OptimizedXYZ. RecomputeInferredAxes/PropagateFurther only ever touch
// InferredXYZ, never the variable layout's seed (OptimizedXYZ). A point
// that is fully constrained by a mix of locked and inferred axes is never
// visited by initpipeline's triangulation/seeding passes (it's already
// "positioned"), so without this step its inferred axis would still seed
// the solve from whatever OptimizedXYZ happened to hold (typically the
// zero value from AddPoint). Call this once, after inference branching
// and before varlayout.Build.
func (p *Project) SyncInferredIntoOptimized() {
	for i := 0; i < p.points.len(); i++ {
		pt, _ := p.points.get(i)
		changed := false
		for axis := 0; axis < 3; axis++ {
			if pt.InferredAxis[axis] && !pt.LockedAxis[axis] {
				pt.OptimizedXYZ[axis] = pt.InferredXYZ[axis]
				changed = true
			}
		}
		if changed {
			p.points.set(i, pt)
		}
	}
}

// propagateAxis, given that `from` and `to` must share the same value on
// axis, copies from's known value onto to's InferredXYZ if to does not
// already have a known value there. Returns whether it made a change.
func (p *Project) propagateAxis(from, to PointHandle, axis int) bool {
	fromPt, _ := p.points.get(int(from))
	toPt, _ := p.points.get(int(to))

	if toPt.LockedAxis[axis] || toPt.InferredAxis[axis] {
		return false
	}

	value, known := fromPt.KnownValue(axis)
	if !known {
		return false
	}

	toPt.InferredAxis[axis] = true
	toPt.InferredXYZ[axis] = value
	p.points.set(int(to), toPt)
	return true
}
