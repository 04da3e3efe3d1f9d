package initpipeline

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mfagerlund/rotera-core/logging"
	"github.com/mfagerlund/rotera-core/scene"
)

// SeedUnresolvedPoints seeds starting estimates: any
// WorldPoint that triangulation could not position (too few initialised
// observing cameras, or none at all) gets a plausible starting estimate
// instead of being left at the origin, so the main LM solve has something
// to refine rather than a degenerate zero vector shared by every
// unresolved point.
//
// Two passes, in order: first the coplanar-constraint groups are laid out
// on a grid on their plane (a stronger prior than a random walk, since the
// plane itself is already known), then everything still unpositioned is
// walked via BFS over the incident-line graph from the nearest positioned
// or fully-constrained anchor, each edge placed at the line's target
// length (or sceneScale as a fallback) along a seeded-random unit
// direction.
func SeedUnresolvedPoints(project *scene.Project, positioned map[scene.PointHandle]bool, rng *rand.Rand, logger logging.Logger) {
	seedCoplanarGroups(project, positioned, logger)
	seedByBFS(project, positioned, rng, logger)
}

// seedCoplanarGroups lays out every coplanar_points constraint's member
// points that are still unpositioned on a square grid in the plane defined
// by the group's already-positioned or fully-constrained members (falling
// back to the XZ plane through the scene centroid if none are known yet).
func seedCoplanarGroups(project *scene.Project, positioned map[scene.PointHandle]bool, logger logging.Logger) {
	for _, c := range project.AllConstraints() {
		if c.Kind != scene.ConstraintCoplanarPoints || len(c.Points) < 3 {
			continue
		}

		origin, u, v := planeBasis(project, c.Points, positioned)
		spacing := sceneScale(project) / float64(len(c.Points)+1)
		cols := gridCols(len(c.Points))

		placed := 0
		for _, ph := range c.Points {
			if positioned[ph] {
				continue
			}
			pt, ok := project.Point(ph)
			if !ok || pt.IsFullyConstrained() {
				continue
			}
			row, col := placed/cols, placed%cols
			pos := origin.Add(u.Mul(float64(col) * spacing)).Add(v.Mul(float64(row) * spacing))
			pt.OptimizedXYZ = applyKnownAxes(pt, pos)
			project.SetPoint(ph, pt)
			positioned[ph] = true
			placed++
		}
		if placed > 0 {
			logger.Debugf("seeded %d coplanar points on a %dx%d grid", placed, cols, (placed+cols-1)/cols)
		}
	}
}

func gridCols(n int) int {
	c := 1
	for c*c < n {
		c++
	}
	return c
}

// planeBasis returns an origin and two orthonormal in-plane axes for a
// coplanar group: if ≥3 of its points already have a position, fit the
// plane through the first three found; otherwise default to the XZ plane
// through the scene centroid.
func planeBasis(project *scene.Project, points []scene.PointHandle, positioned map[scene.PointHandle]bool) (origin, u, v mgl64.Vec3) {
	var known []mgl64.Vec3
	for _, ph := range points {
		pt, ok := project.Point(ph)
		if !ok {
			continue
		}
		if pt.IsFullyConstrained() || positioned[ph] {
			p, _ := fullPosition(pt)
			known = append(known, p)
			if len(known) == 3 {
				break
			}
		}
	}
	if len(known) == 3 {
		origin = known[0]
		u = known[1].Sub(known[0])
		if u.Len() < 1e-9 {
			u = mgl64.Vec3{1, 0, 0}
		} else {
			u = u.Normalize()
		}
		normal := u.Cross(known[2].Sub(known[0]))
		if normal.Len() < 1e-9 {
			v = mgl64.Vec3{0, 0, 1}
		} else {
			v = normal.Normalize().Cross(u)
		}
		return origin, u, v
	}
	return project.Centroid(), mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 1}
}

// applyKnownAxes overwrites only pt's unknown axes with candidate's
// corresponding components, leaving any locked/inferred axis untouched:
// seeding must never override a value the scene already authoritatively
// knows (a locked axis keeps the locked value).
func applyKnownAxes(pt scene.WorldPoint, candidate mgl64.Vec3) mgl64.Vec3 {
	out := candidate
	for axis := 0; axis < 3; axis++ {
		if v, known := pt.KnownValue(axis); known {
			out[axis] = v
		}
	}
	return out
}

// seedByBFS walks the incident-line graph breadth-first from every already
// positioned or fully-constrained point, placing each newly-reached
// neighbour at the connecting line's target length (or sceneScale as a
// scene-relative default) along a random unit direction seeded from rng.
// Points unreachable from any anchor (a disconnected component with no
// locked geometry at all) are left at the origin; there is no scene-scale
// information to seed them from.
func seedByBFS(project *scene.Project, positioned map[scene.PointHandle]bool, rng *rand.Rand, logger logging.Logger) {
	scale := sceneScale(project)

	var queue []scene.PointHandle
	visited := make(map[scene.PointHandle]bool)
	for i := 0; i < project.NumPoints(); i++ {
		ph := scene.PointHandle(i)
		pt, ok := project.Point(ph)
		if !ok {
			continue
		}
		if positioned[ph] || pt.IsFullyConstrained() {
			visited[ph] = true
			queue = append(queue, ph)
		}
	}

	seeded := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curPt, ok := project.Point(cur)
		if !ok {
			continue
		}
		curPos, _ := fullPosition(curPt)
		if positioned[cur] {
			curPos = curPt.OptimizedXYZ
		}

		for _, lh := range curPt.IncidentLines {
			line, ok := project.Line(lh)
			if !ok {
				continue
			}
			next := line.B
			if next == cur {
				next = line.A
			}
			if visited[next] {
				continue
			}
			visited[next] = true

			length := scale
			if line.HasTargetLength && line.TargetLength > 0 {
				length = line.TargetLength
			}
			dir := randomUnitVector(rng)
			nextPt, _ := project.Point(next)
			candidate := curPos.Add(dir.Mul(length))
			nextPt.OptimizedXYZ = applyKnownAxes(nextPt, candidate)
			project.SetPoint(next, nextPt)
			positioned[next] = true
			seeded++
			queue = append(queue, next)
		}
	}

	if seeded > 0 {
		logger.Debugf("BFS-seeded %d world points from scene-scale %g", seeded, scale)
	}
}

func randomUnitVector(rng *rand.Rand) mgl64.Vec3 {
	for {
		v := mgl64.Vec3{rng.Float64()*2 - 1, rng.Float64()*2 - 1, rng.Float64()*2 - 1}
		if n := v.Len(); n > 1e-6 && n <= 1 {
			return v.Mul(1 / n)
		}
	}
}
