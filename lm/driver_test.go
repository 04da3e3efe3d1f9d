package lm

import (
	"context"
	"math"
	"testing"

	"github.com/mfagerlund/rotera-core/residual"
	"go.viam.com/test"
)

func fixedPointProblem() ([]residual.Provider, int, []float64) {
	var refs [3]residual.ParamRef
	refs[0], refs[1], refs[2] = residual.Free(0), residual.Free(1), residual.Free(2)
	p := residual.NewFixedPoint("target", refs, [3]float64{1, 2, 3})
	return []residual.Provider{p}, 3, []float64{0, 0, 0}
}

func TestSolveConvergesOnLinearFixedPointProblem(t *testing.T) {
	providers, numVars, x0 := fixedPointProblem()
	cfg := DefaultConfig()
	result := Solve(context.Background(), providers, numVars, x0, cfg)

	test.That(t, result.Converged, test.ShouldBeTrue)
	test.That(t, math.Abs(result.X[0]-1), test.ShouldBeLessThan, 1e-6)
	test.That(t, math.Abs(result.X[1]-2), test.ShouldBeLessThan, 1e-6)
	test.That(t, math.Abs(result.X[2]-3), test.ShouldBeLessThan, 1e-6)
}

func TestSolveConvergesOnEveryBackEnd(t *testing.T) {
	backends := []BackEnd{BackEndExplicitDense, BackEndExplicitSparse, BackEndNumericalSparse}
	for _, be := range backends {
		providers, numVars, x0 := fixedPointProblem()
		cfg := DefaultConfig()
		cfg.BackEnd = be
		result := Solve(context.Background(), providers, numVars, x0, cfg)
		test.That(t, result.Converged, test.ShouldBeTrue)
		test.That(t, result.Residual, test.ShouldBeLessThan, 1e-9)
	}
}

func TestSolveRespectsCancellation(t *testing.T) {
	providers, numVars, x0 := fixedPointProblem()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := Solve(ctx, providers, numVars, x0, DefaultConfig())
	test.That(t, result.Converged, test.ShouldBeFalse)
	test.That(t, result.Reason, test.ShouldEqual, "cancelled")
	test.That(t, result.Iterations, test.ShouldEqual, 0)
}

func TestSolveDrivesDistanceToTarget(t *testing.T) {
	var refs [6]residual.ParamRef
	refs[0], refs[1], refs[2] = residual.Const(0), residual.Const(0), residual.Const(0)
	refs[3], refs[4], refs[5] = residual.Free(0), residual.Free(1), residual.Free(2)
	p := residual.NewDistancePointPoint("stretch", refs, 10)

	result := Solve(context.Background(), []residual.Provider{p}, 3, []float64{5, 0, 0}, DefaultConfig())
	test.That(t, result.Converged, test.ShouldBeTrue)

	dist := math.Sqrt(result.X[0]*result.X[0] + result.X[1]*result.X[1] + result.X[2]*result.X[2])
	test.That(t, math.Abs(dist-10), test.ShouldBeLessThan, 1e-4)
}

func TestSolveAcceptedCostsAreNonIncreasing(t *testing.T) {
	var refs [6]residual.ParamRef
	refs[0], refs[1], refs[2] = residual.Const(0), residual.Const(0), residual.Const(0)
	refs[3], refs[4], refs[5] = residual.Free(0), residual.Free(1), residual.Free(2)
	p := residual.NewDistancePointPoint("stretch", refs, 10)

	result := Solve(context.Background(), []residual.Provider{p}, 3, []float64{0.5, 0.3, 0.1}, DefaultConfig())
	test.That(t, len(result.AcceptedCosts), test.ShouldBeGreaterThan, 0)
	for i := 1; i < len(result.AcceptedCosts); i++ {
		test.That(t, result.AcceptedCosts[i], test.ShouldBeLessThanOrEqualTo, result.AcceptedCosts[i-1])
	}
	test.That(t, result.Residual, test.ShouldEqual, result.AcceptedCosts[len(result.AcceptedCosts)-1])
}

func TestSolveStopsAtMaxIterationsWithoutConverging(t *testing.T) {
	providers, numVars, x0 := fixedPointProblem()
	cfg := DefaultConfig()
	cfg.MaxIterations = 0
	result := Solve(context.Background(), providers, numVars, x0, cfg)
	test.That(t, result.Converged, test.ShouldBeFalse)
	test.That(t, result.Reason, test.ShouldEqual, "Max iterations reached")
}
