package orchestrate

import (
	"context"
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mfagerlund/rotera-core/initpipeline"
	"github.com/mfagerlund/rotera-core/lm"
	"github.com/mfagerlund/rotera-core/logging"
	"github.com/mfagerlund/rotera-core/scene"
	"github.com/mfagerlund/rotera-core/spatial"
	"github.com/mfagerlund/rotera-core/varlayout"
)

// Solve is the top-level entry point. In order: resolve
// inferred/ambiguous axes, run initialisation if requested,
// build the layout and residual providers, call the LM driver, retry with
// outliers excluded up to opts.MaxAttempts, optionally fine-tune with
// cameras locked, then write every optimised value back onto project.
func Solve(ctx context.Context, project *scene.Project, opts SolveOptions) SolveResult {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	rng := rngFor(opts.Seed)

	var excludedViewpoints []scene.ViewpointHandle
	excludedSet := map[scene.ViewpointHandle]bool{}

	if opts.AutoInitializeCameras || opts.AutoInitializeWorldPoints {
		result := initpipeline.Run(project, initpipeline.Options{
			InitializeCameras:     opts.AutoInitializeCameras,
			InitializeWorldPoints: opts.AutoInitializeWorldPoints,
		}, rng, logger)
		excludedViewpoints = result.ExcludedViewpoints
		for _, vh := range excludedViewpoints {
			excludedSet[vh] = true
		}
		if opts.AutoInitializeCameras && len(result.InitializedViewpoints) == 0 && project.NumViewpoints() > 0 {
			return SolveResult{Error: string(ErrNoInitCameras)}
		}
	} else {
		project.RecomputeInferredAxes()
		project.SyncInferredIntoOptimized()
	}

	layoutOpts := varlayout.Options{
		OptimizeIntrinsics:  opts.OptimizeIntrinsics,
		OptimizeDistortion:  opts.OptimizeDistortion,
		ForceAllPosesLocked: opts.LockCameraPoses,
	}
	layout := varlayout.Build(project, layoutOpts)
	if layout.NumVariables() == 0 {
		return SolveResult{Error: string(ErrNoFreeVariables)}
	}

	lmCfg := lm.Config{
		Tolerance:      opts.Tolerance,
		MaxIterations:  opts.MaxIterations,
		InitialDamping: opts.Damping,
		BackEnd:        opts.BackEnd,
		Logger:         logger,
	}
	if lmCfg.MaxIterations <= 0 {
		lmCfg.MaxIterations = lm.DefaultConfig().MaxIterations
	}
	if lmCfg.Tolerance <= 0 {
		lmCfg.Tolerance = lm.DefaultConfig().Tolerance
	}
	if lmCfg.InitialDamping <= 0 {
		lmCfg.InitialDamping = lm.DefaultConfig().InitialDamping
	}

	excludedImagePoints := map[scene.ImagePointHandle]bool{}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var lmResult lm.Result
	var allOutliers []scene.ImagePointHandle

	for attempt := 0; attempt < maxAttempts; attempt++ {
		providers := buildProviders(project, layout, providerBuildOptions{
			RegularizationWeight: opts.RegularizationWeight,
			ExcludedImagePoints:  excludedImagePoints,
			ExcludedViewpoints:   excludedSet,
			Logger:               logger,
		})

		lmResult = lm.Solve(ctx, providers, layout.NumVariables(), layout.Values(), lmCfg)
		layout.SetValues(lmResult.X)
		writeBackLayout(project, layout)

		if ctx.Err() != nil {
			break
		}
		if !opts.DetectOutliers {
			break
		}

		errs := reprojectionErrors(project, excludedImagePoints, excludedSet)
		newOutliers := detectOutliers(project, errs)
		if len(newOutliers) == 0 {
			break
		}
		for _, ih := range newOutliers {
			excludedImagePoints[ih] = true
		}
		allOutliers = append(allOutliers, newOutliers...)
	}

	if opts.FineTune {
		fineLayout := varlayout.Build(project, varlayout.Options{
			OptimizeIntrinsics:  opts.OptimizeIntrinsics,
			OptimizeDistortion:  opts.OptimizeDistortion,
			ForceAllPosesLocked: true,
		})
		if fineLayout.NumVariables() > 0 {
			providers := buildProviders(project, fineLayout, providerBuildOptions{
				RegularizationWeight: opts.RegularizationWeight,
				ExcludedImagePoints:  excludedImagePoints,
				ExcludedViewpoints:   excludedSet,
				Logger:               logger,
			})
			lmResult = lm.Solve(ctx, providers, fineLayout.NumVariables(), fineLayout.Values(), lmCfg)
			fineLayout.SetValues(lmResult.X)
			writeBackLayout(project, fineLayout)
		}
	}

	finalErrs := reprojectionErrors(project, excludedImagePoints, excludedSet)

	var logEntries []logging.Entry
	if opts.LogSink != nil {
		logEntries = opts.LogSink.Entries()
	}

	errStr := lmResult.Reason
	if ctx.Err() != nil {
		errStr = string(ErrCancelled)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			errStr = string(ErrTimeout)
		}
	}

	return SolveResult{
		Converged:               lmResult.Converged,
		Iterations:              lmResult.Iterations,
		Residual:                lmResult.Residual,
		MedianReprojectionError: medianOf(finalErrs),
		Outliers:                allOutliers,
		ExcludedViewpoints:      excludedViewpoints,
		Error:                   errStr,
		LogEntries:              logEntries,
	}
}

// writeBackLayout copies the layout's current parameter values onto
// every WorldPoint.OptimizedXYZ and Viewpoint.Pose/Intrinsics it owns.
// Per-observation LastResidual values are written separately, by
// reprojectionErrors.
func writeBackLayout(project *scene.Project, layout *varlayout.Layout) {
	for i := 0; i < project.NumPoints(); i++ {
		ph := scene.PointHandle(i)
		pt, ok := project.Point(ph)
		if !ok {
			continue
		}
		refs := layout.PointRefs3(ph)
		for axis := 0; axis < 3; axis++ {
			if !refs[axis].IsConstant {
				pt.OptimizedXYZ[axis] = layout.Values()[refs[axis].Index]
			}
		}
		project.SetPoint(ph, pt)
	}

	for _, vh := range project.AllViewpointHandles() {
		vp, ok := project.Viewpoint(vh)
		if !ok {
			continue
		}
		poseRefs := layout.PoseRefs(vh)
		anyFree := false
		values := [7]float64{}
		for i, r := range poseRefs {
			if r.IsConstant {
				values[i] = r.Constant
			} else {
				values[i] = layout.Values()[r.Index]
				anyFree = true
			}
		}
		if anyFree {
			vp.Pose.Position = mgl64.Vec3{values[0], values[1], values[2]}
			vp.Pose.Rotation = spatial.NewQuaternion(values[3], values[4], values[5], values[6])
		}
		if layout.OptimizingIntrinsics(vh) {
			focalRef := layout.FocalLengthRef(vh)
			if !focalRef.IsConstant {
				vp.Intrinsics.FocalLength = layout.Values()[focalRef.Index]
			}
			if layout.OptimizingDistortion(vh) {
				distRefs := layout.DistortionRefs(vh)
				dst := [5]*float64{
					&vp.Intrinsics.K1, &vp.Intrinsics.K2, &vp.Intrinsics.K3,
					&vp.Intrinsics.P1, &vp.Intrinsics.P2,
				}
				for i, r := range distRefs {
					if !r.IsConstant {
						*dst[i] = layout.Values()[r.Index]
					}
				}
			}
		}
		project.SetViewpoint(vh, vp)
	}
}
