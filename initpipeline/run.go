package initpipeline

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mfagerlund/rotera-core/initpipeline/inference"
	"github.com/mfagerlund/rotera-core/linalg"
	"github.com/mfagerlund/rotera-core/logging"
	"github.com/mfagerlund/rotera-core/projection"
	"github.com/mfagerlund/rotera-core/scene"
	"github.com/mfagerlund/rotera-core/spatial"
)

// Options selects which parts of the pipeline Run performs, a subset of
// the orchestrator's SolveOptions relevant to initialisation.
type Options struct {
	InitializeCameras     bool
	InitializeWorldPoints bool
}

// Result reports what Run accomplished, for the orchestrator's
// diagnostics and outlier-retry loop: a camera with no reliable pose is
// excluded from the initial solve and retried on a later attempt.
type Result struct {
	InitializedViewpoints map[scene.ViewpointHandle]bool
	ExcludedViewpoints    []scene.ViewpointHandle
}

const (
	maxPoseReprojectionError = 80.0 // px, initial-pose sanity check
	minInFrontFraction       = 0.5
	driftFactor              = 15.0
	minQuatMagnitude         = 0.5
	maxQuatMagnitude         = 2.0
)

// Run executes the initialisation pipeline in order: recompute inferred
// axes, resolve any sign-ambiguous inferred axes by branching, initialise camera
// poses (vanishing-point orientation, then PnP position refinement, with
// the behind-camera 180° flip and drift/error sanity checks), triangulate
// every world point now observed by ≥2 initialised cameras, and finally
// smart-seed whatever is still unpositioned.
func Run(project *scene.Project, opts Options, rng *rand.Rand, logger logging.Logger) Result {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 1))
	}

	project.RecomputeInferredAxes()
	if candidates := inference.FindCandidates(project); len(candidates) > 0 {
		cost := func(p *scene.Project) float64 { return evaluateInitCost(p, rng, logger) }
		inference.Branch(project, candidates, cost, rng, logger)
	}
	project.SyncInferredIntoOptimized()
	initialized := map[scene.ViewpointHandle]bool{}
	var excluded []scene.ViewpointHandle

	if opts.InitializeCameras {
		for _, vh := range project.AllViewpointHandles() {
			vp, ok := project.Viewpoint(vh)
			if !ok || vp.PoseLocked {
				continue
			}
			pose, ok := initializeViewpoint(project, vh, rng, logger)
			if !ok {
				excluded = append(excluded, vh)
				logger.Warnf("viewpoint %d: no reliable initial pose, excluded from first solve attempt", vh)
				continue
			}
			vp.Pose = pose
			project.SetViewpoint(vh, vp)
			initialized[vh] = true
		}
	}

	if opts.InitializeWorldPoints {
		positioned := map[scene.PointHandle]bool{}
		for i := 0; i < project.NumPoints(); i++ {
			ph := scene.PointHandle(i)
			pt, _ := project.Point(ph)
			if pt.IsFullyConstrained() {
				positioned[ph] = true
			}
		}
		TriangulateUnresolvedPoints(project, initialized, positioned, logger)
		SeedUnresolvedPoints(project, positioned, rng, logger)
	}

	return Result{InitializedViewpoints: initialized, ExcludedViewpoints: excluded}
}

// initializeViewpoint runs the per-camera pipeline:
// orientation from vanishing lines where available, PnP from
// fully-constrained correspondences, a bounded LM pose refinement, then the
// sanity checks and 180°-flip recovery, in that priority order. It returns
// ok=false if nothing usable could be built.
func initializeViewpoint(project *scene.Project, vh scene.ViewpointHandle, rng *rand.Rand, logger logging.Logger) (spatial.Pose, bool) {
	vp, _ := project.Viewpoint(vh)
	corrs := collectCorrespondences(project, vh)

	kInv, invOK := linalg.Invert3x3(intrinsicsMatrix(vp.Intrinsics))
	if !invOK {
		return spatial.Pose{}, false
	}

	candidate, have := bestStartingPose(project, vh, vp, corrs, kInv, rng)
	if !have {
		return spatial.Pose{}, false
	}

	if len(corrs) > 0 {
		candidate = RefinePose(vp.Intrinsics, vp.IsZReflected, candidate, corrs, logger)
	}

	return sanityCheckPose(candidate, vp, corrs, logger)
}

// bestStartingPose tries vanishing-point orientation (placed a scene-scale
// distance back from the locked centroid, since orientation alone says
// nothing about position) and PnP, keeping whichever reprojects better
// over corrs when both are available.
func bestStartingPose(project *scene.Project, vh scene.ViewpointHandle, vp scene.Viewpoint, corrs []Correspondence, kInv linalg.Mat3, rng *rand.Rand) (spatial.Pose, bool) {
	var candidate spatial.Pose
	have := false

	if quat, ok := ResolveOrientation(project, vh); ok {
		forward := quat.Inverse().Rotate(mgl64.Vec3{0, 0, 1})
		pos := lockedCentroid(project).Sub(forward.Mul(sceneScale(project)))
		candidate = spatial.Pose{Position: pos, Rotation: quat}
		have = true
	}

	if pnpPose, ok := bestPnPPose(corrs, kInv, vp.Intrinsics, vp.IsZReflected, rng); ok {
		if !have {
			return pnpPose, true
		}
		errOrientation, _ := reprojError(candidate, vp.Intrinsics, vp.IsZReflected, corrs)
		errPnP, _ := reprojError(pnpPose, vp.Intrinsics, vp.IsZReflected, corrs)
		if errPnP < errOrientation {
			candidate = pnpPose
		}
	}

	return candidate, have
}

// sanityCheckPose applies the final pose acceptance checks in order, including
// the 180°-flip-around-X recovery for a behind-camera majority, and
// reports whether the resulting pose is trustworthy enough to seed the
// main solve with.
func sanityCheckPose(pose spatial.Pose, vp scene.Viewpoint, corrs []Correspondence, logger logging.Logger) (spatial.Pose, bool) {
	if len(corrs) == 0 {
		return pose, true
	}

	mag := spatial.Norm(pose.Rotation)
	if mag < minQuatMagnitude || mag > maxQuatMagnitude {
		logger.Debugf("pose rejected: quaternion magnitude %g outside [%.1f,%.1f], resetting to identity", mag, minQuatMagnitude, maxQuatMagnitude)
		pose.Rotation = spatial.IdentityQuaternion()
	}

	errPx, inFront := reprojError(pose, vp.Intrinsics, vp.IsZReflected, corrs)
	frac := float64(inFront) / float64(len(corrs))

	if frac < minInFrontFraction {
		flipped := flipPoseAroundX(pose, corrs)
		flippedErr, flippedInFront := reprojError(flipped, vp.Intrinsics, vp.IsZReflected, corrs)
		flippedFrac := float64(flippedInFront) / float64(len(corrs))
		if flippedFrac > frac {
			logger.Debugf("pose flipped 180deg around X: in-front fraction %g -> %g", frac, flippedFrac)
			pose, errPx, frac = flipped, flippedErr, flippedFrac
		}
	}

	if frac < minInFrontFraction || errPx > maxPoseReprojectionError {
		return pose, false
	}

	// Drift sanity: the camera should not have ended up implausibly far
	// from the points it observes.
	avgDist := averageCorrespondenceDistance(pose, corrs)
	scale := sceneScale3(corrs)
	if scale > 0 && avgDist > driftFactor*scale {
		return pose, false
	}

	return pose, true
}

// flipPoseAroundX rotates pose 180° about its own local X axis and
// mirrors the camera position through the correspondence centroid,
// recovering from a mirrored initial orientation.
func flipPoseAroundX(pose spatial.Pose, corrs []Correspondence) spatial.Pose {
	flip := spatial.NewQuaternion(0, 1, 0, 0)
	var centroid mgl64.Vec3
	for _, c := range corrs {
		centroid = centroid.Add(c.World)
	}
	if len(corrs) > 0 {
		centroid = centroid.Mul(1 / float64(len(corrs)))
	}
	mirroredPos := centroid.Mul(2).Sub(pose.Position)
	return spatial.Pose{
		Position: mirroredPos,
		Rotation: spatial.Normalized(pose.Rotation.Mul(flip)),
	}
}

func averageCorrespondenceDistance(pose spatial.Pose, corrs []Correspondence) float64 {
	if len(corrs) == 0 {
		return 0
	}
	var sum float64
	for _, c := range corrs {
		sum += c.World.Sub(pose.Position).Len()
	}
	return sum / float64(len(corrs))
}

// sceneScale3 is the spread of the correspondence pool itself, the
// cameraDistance heuristic's scale reference, independent of project-wide
// sceneScale so a single camera's sanity check doesn't depend on unrelated
// parts of the scene.
func sceneScale3(corrs []Correspondence) float64 {
	if len(corrs) < 2 {
		return 0
	}
	var maxDist float64
	for i := range corrs {
		for j := i + 1; j < len(corrs); j++ {
			d := corrs[i].World.Sub(corrs[j].World).Len()
			if d > maxDist {
				maxDist = d
			}
		}
	}
	return maxDist
}

// evaluateInitCost gives inference.Branch a cheap proxy for "run the rest
// of initialisation and see how well it reprojects": it runs camera
// orientation/PnP without the bounded LM refine pass (too slow to repeat
// once per candidate combination), triangulates, and sums squared
// reprojection error over every image point whose camera ended up
// initialised and whose world point ended up positioned. The caller always
// hands this a scratch clone (inference.Branch), so mutating project here
// is safe.
func evaluateInitCost(project *scene.Project, rng *rand.Rand, logger logging.Logger) float64 {
	initialized := map[scene.ViewpointHandle]bool{}
	for _, vh := range project.AllViewpointHandles() {
		vp, ok := project.Viewpoint(vh)
		if !ok || vp.PoseLocked {
			continue
		}
		corrs := collectCorrespondences(project, vh)
		kInv, ok := linalg.Invert3x3(intrinsicsMatrix(vp.Intrinsics))
		if !ok {
			continue
		}
		pose, have := bestStartingPose(project, vh, vp, corrs, kInv, rng)
		if !have {
			continue
		}
		vp.Pose = pose
		project.SetViewpoint(vh, vp)
		initialized[vh] = true
	}

	positioned := map[scene.PointHandle]bool{}
	for i := 0; i < project.NumPoints(); i++ {
		ph := scene.PointHandle(i)
		pt, _ := project.Point(ph)
		if pt.IsFullyConstrained() {
			positioned[ph] = true
		}
	}
	TriangulateUnresolvedPoints(project, initialized, positioned, logger)

	var cost float64
	for i := 0; i < project.NumImagePoints(); i++ {
		ih := scene.ImagePointHandle(i)
		ip, _ := project.ImagePoint(ih)
		if !ip.Visible || !initialized[ip.Viewpoint] || !positioned[ip.Point] {
			continue
		}
		vp, _ := project.Viewpoint(ip.Viewpoint)
		pt, _ := project.Point(ip.Point)
		world, _ := fullPosition(pt)
		camPoint := vp.Pose.ToCamera(world, vp.IsZReflected)
		u, v, ok := projection.ProjectPlain(camPoint, vp.Intrinsics)
		if !ok {
			cost += 1000 * 1000 * 2
			continue
		}
		du, dv := u-ip.U, v-ip.V
		cost += du*du + dv*dv
	}
	return cost
}
