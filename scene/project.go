package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Project owns every entity by value in its six arenas; every
// cross-reference between entities is a handle resolved through the
// Project, never an owning pointer. A solve mutates the
// Project in place: it recomputes inferred axes, writes optimised point
// and camera values back after every attempt, and records each image
// point's LastResidual.
type Project struct {
	points         arena[WorldPoint]
	lines          arena[Line]
	viewpoints     arena[Viewpoint]
	imagePoints    arena[ImagePoint]
	vanishingLines arena[VanishingLine]
	constraints    arena[Constraint]
}

// NewProject returns an empty scene.
func NewProject() *Project {
	return &Project{}
}

// AddPoint inserts a WorldPoint and returns its handle.
func (p *Project) AddPoint(pt WorldPoint) PointHandle {
	return PointHandle(p.points.add(pt))
}

// Point resolves a PointHandle.
func (p *Project) Point(h PointHandle) (WorldPoint, bool) {
	return p.points.get(int(h))
}

// SetPoint overwrites the WorldPoint at h (used by the orchestrator to
// write back optimised coordinates).
func (p *Project) SetPoint(h PointHandle, pt WorldPoint) {
	p.points.set(int(h), pt)
}

// NumPoints returns the number of WorldPoints in the project.
func (p *Project) NumPoints() int { return p.points.len() }

// AddLine validates that A and B are distinct and, on success, registers
// the line with both endpoints' incident sets.
func (p *Project) AddLine(l Line) (LineHandle, error) {
	if l.A == l.B {
		return NoHandle, fmt.Errorf("scene: degenerate line: both endpoints are point %d", l.A)
	}
	if _, ok := p.points.get(int(l.A)); !ok {
		return NoHandle, fmt.Errorf("scene: line references unknown point %d", l.A)
	}
	if _, ok := p.points.get(int(l.B)); !ok {
		return NoHandle, fmt.Errorf("scene: line references unknown point %d", l.B)
	}
	h := LineHandle(p.lines.add(l))
	p.addIncidentLine(l.A, h)
	p.addIncidentLine(l.B, h)
	return h, nil
}

func (p *Project) addIncidentLine(pt PointHandle, l LineHandle) {
	wp, _ := p.points.get(int(pt))
	wp.IncidentLines = append(wp.IncidentLines, l)
	p.points.set(int(pt), wp)
}

// Line resolves a LineHandle.
func (p *Project) Line(h LineHandle) (Line, bool) {
	return p.lines.get(int(h))
}

// NumLines returns the number of Lines in the project.
func (p *Project) NumLines() int { return p.lines.len() }

// AllLineHandles returns every line handle in insertion order, the
// deterministic order every other Project iterator follows too.
func (p *Project) AllLineHandles() []LineHandle {
	out := make([]LineHandle, p.lines.len())
	for i := range out {
		out[i] = LineHandle(i)
	}
	return out
}

// AddViewpoint inserts a Viewpoint and returns its handle.
func (p *Project) AddViewpoint(v Viewpoint) ViewpointHandle {
	return ViewpointHandle(p.viewpoints.add(v))
}

// Viewpoint resolves a ViewpointHandle.
func (p *Project) Viewpoint(h ViewpointHandle) (Viewpoint, bool) {
	return p.viewpoints.get(int(h))
}

// SetViewpoint overwrites the Viewpoint at h.
func (p *Project) SetViewpoint(h ViewpointHandle, v Viewpoint) {
	p.viewpoints.set(int(h), v)
}

// NumViewpoints returns the number of Viewpoints in the project.
func (p *Project) NumViewpoints() int { return p.viewpoints.len() }

// AllViewpointHandles returns every viewpoint handle in insertion order.
func (p *Project) AllViewpointHandles() []ViewpointHandle {
	out := make([]ViewpointHandle, p.viewpoints.len())
	for i := range out {
		out[i] = ViewpointHandle(i)
	}
	return out
}

// AddImagePoint inserts an ImagePoint, registering it against both its
// WorldPoint's and its Viewpoint's observation sets.
func (p *Project) AddImagePoint(ip ImagePoint) (ImagePointHandle, error) {
	if _, ok := p.points.get(int(ip.Point)); !ok {
		return NoHandle, fmt.Errorf("scene: image point references unknown world point %d", ip.Point)
	}
	if _, ok := p.viewpoints.get(int(ip.Viewpoint)); !ok {
		return NoHandle, fmt.Errorf("scene: image point references unknown viewpoint %d", ip.Viewpoint)
	}
	h := ImagePointHandle(p.imagePoints.add(ip))

	wp, _ := p.points.get(int(ip.Point))
	wp.ObservingImagePoints = append(wp.ObservingImagePoints, h)
	p.points.set(int(ip.Point), wp)

	vp, _ := p.viewpoints.get(int(ip.Viewpoint))
	vp.ObservedImagePoints = append(vp.ObservedImagePoints, h)
	p.viewpoints.set(int(ip.Viewpoint), vp)

	return h, nil
}

// ImagePoint resolves an ImagePointHandle.
func (p *Project) ImagePoint(h ImagePointHandle) (ImagePoint, bool) {
	return p.imagePoints.get(int(h))
}

// SetImagePoint overwrites the ImagePoint at h (used to write back
// LastResidual and outlier exclusion).
func (p *Project) SetImagePoint(h ImagePointHandle, ip ImagePoint) {
	p.imagePoints.set(int(h), ip)
}

// NumImagePoints returns the number of ImagePoints in the project.
func (p *Project) NumImagePoints() int { return p.imagePoints.len() }

// AllImagePointHandles returns every image point handle in insertion order.
func (p *Project) AllImagePointHandles() []ImagePointHandle {
	out := make([]ImagePointHandle, p.imagePoints.len())
	for i := range out {
		out[i] = ImagePointHandle(i)
	}
	return out
}

// AddVanishingLine inserts a VanishingLine and returns its handle.
func (p *Project) AddVanishingLine(vl VanishingLine) (VanishingLineHandle, error) {
	if _, ok := p.viewpoints.get(int(vl.Viewpoint)); !ok {
		return NoHandle, fmt.Errorf("scene: vanishing line references unknown viewpoint %d", vl.Viewpoint)
	}
	return VanishingLineHandle(p.vanishingLines.add(vl)), nil
}

// VanishingLine resolves a VanishingLineHandle.
func (p *Project) VanishingLine(h VanishingLineHandle) (VanishingLine, bool) {
	return p.vanishingLines.get(int(h))
}

// VanishingLinesFor returns every vanishing line belonging to viewpoint v.
func (p *Project) VanishingLinesFor(v ViewpointHandle) []VanishingLine {
	var out []VanishingLine
	for i := 0; i < p.vanishingLines.len(); i++ {
		vl, _ := p.vanishingLines.get(i)
		if vl.Viewpoint == v {
			out = append(out, vl)
		}
	}
	return out
}

// AddConstraint inserts a Constraint and returns its handle.
func (p *Project) AddConstraint(c Constraint) ConstraintHandle {
	return ConstraintHandle(p.constraints.add(c))
}

// Constraint resolves a ConstraintHandle.
func (p *Project) Constraint(h ConstraintHandle) (Constraint, bool) {
	return p.constraints.get(int(h))
}

// AllConstraints returns every constraint in insertion order.
func (p *Project) AllConstraints() []Constraint {
	out := make([]Constraint, p.constraints.len())
	for i := range out {
		out[i], _ = p.constraints.get(i)
	}
	return out
}

// Clone returns a deep copy of the project: every arena's backing slice is
// copied so mutating the clone (e.g. initpipeline/inference's speculative
// sign assignments) never touches the original. Handles remain valid
// across the copy since arenas are dense and append-only.
func (p *Project) Clone() *Project {
	out := &Project{}
	out.points.items = append([]WorldPoint(nil), p.points.items...)
	for i, pt := range out.points.items {
		out.points.items[i].IncidentLines = append([]LineHandle(nil), pt.IncidentLines...)
		out.points.items[i].ObservingImagePoints = append([]ImagePointHandle(nil), pt.ObservingImagePoints...)
	}
	out.lines.items = append([]Line(nil), p.lines.items...)
	out.viewpoints.items = append([]Viewpoint(nil), p.viewpoints.items...)
	for i, vp := range out.viewpoints.items {
		out.viewpoints.items[i].ObservedImagePoints = append([]ImagePointHandle(nil), vp.ObservedImagePoints...)
	}
	out.imagePoints.items = append([]ImagePoint(nil), p.imagePoints.items...)
	out.vanishingLines.items = append([]VanishingLine(nil), p.vanishingLines.items...)
	out.constraints.items = append([]Constraint(nil), p.constraints.items...)
	return out
}

// Centroid returns the mean optimised position of every world point,
// used by scene-scale heuristics in initialisation.
func (p *Project) Centroid() mgl64.Vec3 {
	if p.points.len() == 0 {
		return mgl64.Vec3{}
	}
	var sum mgl64.Vec3
	for i := 0; i < p.points.len(); i++ {
		pt, _ := p.points.get(i)
		sum = sum.Add(pt.OptimizedXYZ)
	}
	return sum.Mul(1 / float64(p.points.len()))
}
