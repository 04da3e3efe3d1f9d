// Package inference implements sign-ambiguity branching, the only
// combinatorial-search unit in the optimisation core. A line with an
// axis-aligned direction constraint (X/Y/Z) and a target length, touching
// one fully-known endpoint, determines the magnitude of its free
// endpoint's remaining coordinate but not its sign: the far point could
// sit either side of the known one. This package enumerates the sign
// choices across every such ambiguous axis in the project and keeps
// whichever combination a caller-supplied cost function scores lowest.
package inference

import (
	"math"
	"math/rand/v2"

	"github.com/mfagerlund/rotera-core/logging"
	"github.com/mfagerlund/rotera-core/scene"
)

// maxBranchAxes caps the enumerated search at 2^6 = 64 combinations;
// beyond that the branch count grows too fast to enumerate exhaustively.
const maxBranchAxes = 6

// Candidate is one sign-ambiguous axis: Point's Axis coordinate is known to
// be Anchor ± Magnitude, but the direction constraint alone can't say
// which.
type Candidate struct {
	Point     scene.PointHandle
	Axis      int
	Anchor    float64
	Magnitude float64
}

// CostFunc scores one fully-applied candidate assignment, lower is better
// (typically the reprojection/geometric cost of running the rest of
// initialisation against it). Supplied by the caller (initpipeline.Run)
// rather than imported here, so this package never needs to know about
// camera initialisation to stay acyclic.
type CostFunc func(*scene.Project) float64

// FindCandidates scans every line for the axis-aligned-direction-plus-
// target-length shape described above: one endpoint already known on
// Axis, the other not. A point that is the "unknown" side of more than one
// such line only contributes its first candidate; later lines touching
// an axis that branching resolves are picked up by Project.PropagateFurther
// once the winning combination is applied, not by a second candidate here.
func FindCandidates(project *scene.Project) []Candidate {
	axisOf := map[scene.Direction]int{scene.DirX: 0, scene.DirY: 1, scene.DirZ: 2}

	seen := map[scene.PointHandle]bool{}
	var out []Candidate
	for _, lh := range project.AllLineHandles() {
		line, ok := project.Line(lh)
		if !ok || !line.HasTargetLength || line.TargetLength <= 0 {
			continue
		}
		axis, ok := axisOf[line.Direction]
		if !ok {
			continue
		}

		a, _ := project.Point(line.A)
		b, _ := project.Point(line.B)
		aKnown, aVal := a.LockedAxis[axis] || a.InferredAxis[axis], pointAxisValue(a, axis)
		bKnown, bVal := b.LockedAxis[axis] || b.InferredAxis[axis], pointAxisValue(b, axis)

		switch {
		case aKnown && !bKnown && !seen[line.B]:
			out = append(out, Candidate{Point: line.B, Axis: axis, Anchor: aVal, Magnitude: line.TargetLength})
			seen[line.B] = true
		case bKnown && !aKnown && !seen[line.A]:
			out = append(out, Candidate{Point: line.A, Axis: axis, Anchor: bVal, Magnitude: line.TargetLength})
			seen[line.A] = true
		}
	}
	return out
}

func pointAxisValue(p scene.WorldPoint, axis int) float64 {
	v, _ := p.KnownValue(axis)
	return v
}

// Branch enumerates every ± sign combination over candidates, applies each
// to a scratch clone of project, scores it with cost, and permanently
// applies whichever combination scored lowest to project itself (as
// InferredAxis/InferredXYZ, then Project.PropagateFurther to chain any
// follow-on propagation). With more than maxBranchAxes candidates the
// search is skipped in favour of the positive-sign heuristic, since 2^k
// candidate evaluations each re-running initialisation would dominate
// solve time past that point.
func Branch(project *scene.Project, candidates []Candidate, cost CostFunc, rng *rand.Rand, logger logging.Logger) {
	if len(candidates) == 0 {
		return
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	if len(candidates) > maxBranchAxes {
		logger.Warnf("inference: %d ambiguous axes exceeds branch cap %d, applying positive-sign heuristic", len(candidates), maxBranchAxes)
		apply(project, candidates, allPositive(len(candidates)))
		project.PropagateFurther()
		return
	}

	combos := 1 << len(candidates)
	bestMask := 0
	bestCost := math.Inf(1)
	for mask := 0; mask < combos; mask++ {
		signs := signsFromMask(mask, len(candidates))
		scratch := project.Clone()
		apply(scratch, candidates, signs)
		scratch.PropagateFurther()
		c := cost(scratch)
		if c < bestCost {
			bestCost = c
			bestMask = mask
		}
	}

	logger.Debugf("inference: resolved %d ambiguous axes, best combo cost %g", len(candidates), bestCost)
	apply(project, candidates, signsFromMask(bestMask, len(candidates)))
	project.PropagateFurther()
}

func allPositive(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func signsFromMask(mask, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if mask&(1<<i) != 0 {
			out[i] = -1
		} else {
			out[i] = 1
		}
	}
	return out
}

func apply(project *scene.Project, candidates []Candidate, signs []float64) {
	for i, c := range candidates {
		pt, ok := project.Point(c.Point)
		if !ok {
			continue
		}
		pt.InferredAxis[c.Axis] = true
		pt.InferredXYZ[c.Axis] = c.Anchor + signs[i]*c.Magnitude
		project.SetPoint(c.Point, pt)
	}
}
