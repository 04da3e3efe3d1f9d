package orchestrate

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/montanaflynn/stats"

	"github.com/mfagerlund/rotera-core/projection"
	"github.com/mfagerlund/rotera-core/scene"
)

// outlierMADFactor and outlierHardCapPx set the exclusion threshold:
// error above median + 5·MAD, or above 50 px outright.
const (
	outlierMADFactor         = 5.0
	outlierHardCapPx         = 50.0
	minObservationsPerCamera = 3
)

// fullPosition returns pt's authoritative per-axis value (locked/inferred
// where known, the current optimised estimate otherwise); every axis
// participates in a reprojection regardless of whether it is free.
func fullPosition(pt scene.WorldPoint) mgl64.Vec3 {
	var v mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		val, _ := pt.KnownValue(axis)
		v[axis] = val
	}
	return v
}

// reprojectionErrors computes ‖(u_proj,v_proj) − (u_obs,v_obs)‖ for every
// visible, non-excluded ImagePoint in project, given the current pose and
// world-point estimates. It also writes each point's LastResidual back to
// the scene, done here rather than deferred since every attempt needs
// fresh residuals anyway.
func reprojectionErrors(project *scene.Project, excludedImagePoints map[scene.ImagePointHandle]bool, excludedViewpoints map[scene.ViewpointHandle]bool) map[scene.ImagePointHandle]float64 {
	errs := make(map[scene.ImagePointHandle]float64)
	for i := 0; i < project.NumImagePoints(); i++ {
		ih := scene.ImagePointHandle(i)
		ip, ok := project.ImagePoint(ih)
		if !ok || !ip.Visible || excludedImagePoints[ih] || excludedViewpoints[ip.Viewpoint] {
			continue
		}
		vp, ok := project.Viewpoint(ip.Viewpoint)
		if !ok {
			continue
		}
		pt, ok := project.Point(ip.Point)
		if !ok {
			continue
		}
		world := fullPosition(pt)
		camPoint := vp.Pose.ToCamera(world, vp.IsZReflected)
		u, v, inFront := projection.ProjectPlain(camPoint, vp.Intrinsics)

		du, dv := u-ip.U, v-ip.V
		if !inFront {
			du, dv = 1000, 1000
		}
		ip.LastResidual = [2]float64{du, dv}
		project.SetImagePoint(ih, ip)
		errs[ih] = math.Hypot(du, dv)
	}
	return errs
}

// detectOutliers marks as outlier every ImagePoint whose reprojection error
// exceeds median+k·MAD or the hard 50px cap, except where doing so would
// strand its camera below 3 remaining observations. Candidates are
// excluded worst first, so a camera at that floor keeps its
// smallest-error over-threshold observations, and the camera itself
// is left alone (outlier detection only excludes individual observations
// from the next solve attempt, never a whole camera from the main solve,
// once that camera already has a pose).
func detectOutliers(project *scene.Project, errs map[scene.ImagePointHandle]float64) []scene.ImagePointHandle {
	if len(errs) == 0 {
		return nil
	}

	values := make([]float64, 0, len(errs))
	for _, e := range errs {
		values = append(values, e)
	}
	median, err := stats.Median(stats.Float64Data(values))
	if err != nil {
		return nil
	}
	mad, err := stats.MedianAbsoluteDeviation(stats.Float64Data(values))
	if err != nil {
		mad = 0
	}
	threshold := median + outlierMADFactor*mad

	remaining := map[scene.ViewpointHandle]int{}
	for i := 0; i < project.NumImagePoints(); i++ {
		ih := scene.ImagePointHandle(i)
		ip, ok := project.ImagePoint(ih)
		if !ok || !ip.Visible {
			continue
		}
		if _, counted := errs[ih]; counted {
			remaining[ip.Viewpoint]++
		}
	}

	var candidates []scene.ImagePointHandle
	for ih, e := range errs {
		if e > threshold || e > outlierHardCapPx {
			candidates = append(candidates, ih)
		}
	}
	// Ranging over errs (a map) visits candidates in nondeterministic
	// order; the stranding cap below depends on visit order whenever two
	// over-threshold observations share a camera at the floor, so sort by
	// descending error first, worst offender wins the cap every time for
	// identical inputs.
	sort.Slice(candidates, func(i, j int) bool {
		if errs[candidates[i]] != errs[candidates[j]] {
			return errs[candidates[i]] > errs[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})

	var out []scene.ImagePointHandle
	for _, ih := range candidates {
		ip, _ := project.ImagePoint(ih)
		if remaining[ip.Viewpoint]-1 < minObservationsPerCamera {
			continue
		}
		remaining[ip.Viewpoint]--
		out = append(out, ih)
	}
	return out
}

func medianOf(errs map[scene.ImagePointHandle]float64) float64 {
	if len(errs) == 0 {
		return 0
	}
	values := make([]float64, 0, len(errs))
	for _, e := range errs {
		values = append(values, e)
	}
	m, err := stats.Median(stats.Float64Data(values))
	if err != nil {
		return 0
	}
	return m
}
