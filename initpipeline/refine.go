package initpipeline

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mfagerlund/rotera-core/lm"
	"github.com/mfagerlund/rotera-core/logging"
	"github.com/mfagerlund/rotera-core/projection"
	"github.com/mfagerlund/rotera-core/residual"
	"github.com/mfagerlund/rotera-core/spatial"
)

// RefinePose is a bounded LM polish over just
// one viewpoint's 7-variable pose block (camera position + quaternion),
// holding every correspondence's world point fixed, to clean up the
// closed-form P3P/DLT/vanishing-point estimate before it's handed to the
// main solve. It builds its own tiny variable layout rather than going
// through varlayout.Build, since this problem never touches any other
// viewpoint or world point.
func RefinePose(intr projection.Intrinsics, zReflected bool, initial spatial.Pose, corrs []Correspondence, logger logging.Logger) spatial.Pose {
	if len(corrs) == 0 {
		return initial
	}

	poseRefs := [7]residual.ParamRef{
		residual.Free(0), residual.Free(1), residual.Free(2),
		residual.Free(3), residual.Free(4), residual.Free(5), residual.Free(6),
	}

	providers := make([]residual.Provider, 0, len(corrs)+1)
	for _, c := range corrs {
		refs := [10]residual.ParamRef{
			residual.Const(c.World[0]), residual.Const(c.World[1]), residual.Const(c.World[2]),
			poseRefs[0], poseRefs[1], poseRefs[2],
			poseRefs[3], poseRefs[4], poseRefs[5], poseRefs[6],
		}
		providers = append(providers, residual.NewReprojection("init-reprojection", refs, c.Pixel[0], c.Pixel[1], intr, zReflected))
	}
	providers = append(providers, residual.NewQuaternionNorm("init-quat-norm", [4]residual.ParamRef{poseRefs[3], poseRefs[4], poseRefs[5], poseRefs[6]}))

	c := initial.Position
	q := initial.Rotation
	x0 := []float64{c.X(), c.Y(), c.Z(), q.W, q.V.X(), q.V.Y(), q.V.Z()}

	cfg := lm.DefaultConfig()
	cfg.MaxIterations = 100
	// Heavy initial damping keeps the step conservative while the
	// closed-form estimate is still far from the basin.
	cfg.InitialDamping = 10
	if logger != nil {
		cfg.Logger = logger
	}

	result := lm.Solve(context.Background(), providers, 7, x0, cfg)
	x := result.X
	return spatial.Pose{
		Position: mgl64.Vec3{x[0], x[1], x[2]},
		Rotation: spatial.NewQuaternion(x[3], x[4], x[5], x[6]),
	}
}
