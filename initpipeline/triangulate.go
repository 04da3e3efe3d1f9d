package initpipeline

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mfagerlund/rotera-core/linalg"
	"github.com/mfagerlund/rotera-core/logging"
	"github.com/mfagerlund/rotera-core/scene"
)

type ray struct {
	origin mgl64.Vec3
	dir    mgl64.Vec3
}

// closestPointBetweenRays returns the midpoint of the shortest segment
// connecting two rays, or ok=false if they are near-parallel.
func closestPointBetweenRays(r1, r2 ray) (mgl64.Vec3, bool) {
	w0 := r1.origin.Sub(r2.origin)
	a := r1.dir.Dot(r1.dir)
	b := r1.dir.Dot(r2.dir)
	c := r2.dir.Dot(r2.dir)
	d := r1.dir.Dot(w0)
	e := r2.dir.Dot(w0)

	denom := a*c - b*b
	if denom < 1e-10 {
		return mgl64.Vec3{}, false
	}
	s := (b*e - c*d) / denom
	t := (a*e - b*d) / denom

	p1 := r1.origin.Add(r1.dir.Mul(s))
	p2 := r2.origin.Add(r2.dir.Mul(t))
	return p1.Add(p2).Mul(0.5), true
}

// viewpointRay returns the world-space ray from an initialised viewpoint
// through one of its pixel observations.
func viewpointRay(project *scene.Project, vh scene.ViewpointHandle, pixel [2]float64) (ray, bool) {
	vp, ok := project.Viewpoint(vh)
	if !ok {
		return ray{}, false
	}
	kInv, ok := linalg.Invert3x3(intrinsicsMatrix(vp.Intrinsics))
	if !ok {
		return ray{}, false
	}
	d := linalg.MulVec3(kInv, [3]float64{pixel[0], pixel[1], 1})
	camDir := mgl64.Vec3{d[0], d[1], d[2]}
	if vp.IsZReflected {
		camDir = mgl64.Vec3{-camDir[0], -camDir[1], -camDir[2]}
	}
	worldDir := vp.Pose.Rotation.Inverse().Rotate(camDir)
	return ray{origin: vp.Pose.Position, dir: worldDir.Normalize()}, true
}

// TriangulateUnresolvedPoints performs ray-ray triangulation: for every
// WorldPoint not already positioned, it gathers
// the rays from every initialised viewpoint observing it, averages the
// pairwise closest-point midpoint, and records the result as the point's
// optimised estimate. positioned is updated in place so callers (smart
// seeding) can tell which points already have a usable position.
func TriangulateUnresolvedPoints(project *scene.Project, initialized map[scene.ViewpointHandle]bool, positioned map[scene.PointHandle]bool, logger logging.Logger) {
	for i := 0; i < project.NumPoints(); i++ {
		ph := scene.PointHandle(i)
		if positioned[ph] {
			continue
		}
		pt, ok := project.Point(ph)
		if !ok {
			continue
		}

		var rays []ray
		for _, ih := range pt.ObservingImagePoints {
			ip, ok := project.ImagePoint(ih)
			if !ok || !ip.Visible || !initialized[ip.Viewpoint] {
				continue
			}
			r, ok := viewpointRay(project, ip.Viewpoint, [2]float64{ip.U, ip.V})
			if ok {
				rays = append(rays, r)
			}
		}
		if len(rays) < 2 {
			continue
		}

		var sum mgl64.Vec3
		count := 0
		for a := 0; a < len(rays); a++ {
			for b := a + 1; b < len(rays); b++ {
				if p, ok := closestPointBetweenRays(rays[a], rays[b]); ok {
					sum = sum.Add(p)
					count++
				}
			}
		}
		if count == 0 {
			continue
		}
		pt.OptimizedXYZ = sum.Mul(1 / float64(count))
		project.SetPoint(ph, pt)
		positioned[ph] = true
		logger.Debugf("triangulated world point %d from %d rays", i, len(rays))
	}
}
