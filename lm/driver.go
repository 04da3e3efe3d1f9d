// Package lm implements the Levenberg-Marquardt driver: damped
// Gauss-Newton with a per-iteration damping update, three linear
// back-ends (dense Cholesky, matrix-free sparse CG, and a
// numerical-Jacobian variant of the sparse path), and cooperative
// cancellation via context.Context.
package lm

import (
	"context"
	"math"

	"github.com/mfagerlund/rotera-core/linalg"
	"github.com/mfagerlund/rotera-core/logging"
	"github.com/mfagerlund/rotera-core/residual"
)

// BackEnd selects the linear solver used at every LM iteration.
type BackEnd int

const (
	// BackEndAutodiff and BackEndExplicitDense are equivalent in this
	// implementation: every provider's Jacobian is already obtained by
	// forward-mode AD, so there is only one analytical code path,
	// assembled densely and solved with Cholesky. Both names are kept so
	// either can be selected from config.
	BackEndAutodiff BackEnd = iota
	BackEndExplicitDense
	BackEndExplicitSparse
	BackEndNumericalSparse
)

const (
	minDamping = 1e-10
	maxDamping = 1e10
)

// Config is the LM driver's tuning surface.
type Config struct {
	Tolerance                       float64
	MaxIterations                   int
	InitialDamping                  float64
	BackEnd                         BackEnd
	MaxStepRejectionsPerIteration   int
	MaxConsecutiveNumericalFailures int
	Logger                          logging.Logger
}

// DefaultConfig returns the driver's stated defaults.
func DefaultConfig() Config {
	return Config{
		Tolerance:                       1e-6,
		MaxIterations:                   100,
		InitialDamping:                  1e-3,
		BackEnd:                         BackEndExplicitDense,
		MaxStepRejectionsPerIteration:   10,
		MaxConsecutiveNumericalFailures: 8,
		Logger:                          logging.NewNoopLogger(),
	}
}

// Result is the driver's outcome for one run.
type Result struct {
	X          []float64
	Converged  bool
	Iterations int
	Residual   float64 // ½‖r‖² at termination
	Reason     string  // "", "Max iterations reached", "cancelled", "numerical failure"

	// AcceptedCosts is the cost after each accepted step, oldest first.
	// After damping adjustment the sequence is non-increasing.
	AcceptedCosts []float64
}

// Solve runs damped Gauss-Newton to convergence, cancellation, or
// iteration budget exhaustion.
func Solve(ctx context.Context, providers []residual.Provider, numVars int, x0 []float64, cfg Config) Result {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNoopLogger()
	}
	if cfg.MaxStepRejectionsPerIteration <= 0 {
		cfg.MaxStepRejectionsPerIteration = 10
	}

	x := append([]float64(nil), x0...)
	lambda := cfg.InitialDamping
	numerical := cfg.BackEnd == BackEndNumericalSparse
	sparse := cfg.BackEnd == BackEndExplicitSparse || cfg.BackEnd == BackEndNumericalSparse

	cost := halfSumSquares(residualsOnly(providers, x))
	consecutiveFailures := 0
	var acceptedCosts []float64

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{X: x, Converged: false, Iterations: iter, Residual: cost, Reason: "cancelled", AcceptedCosts: acceptedCosts}
		}

		accepted := false
		var delta []float64
		var newCost float64

		for attempt := 0; attempt < cfg.MaxStepRejectionsPerIteration; attempt++ {
			var ok bool
			delta, ok = solveStep(providers, numVars, x, lambda, sparse, numerical)
			if !ok {
				lambda = math.Min(lambda*10, maxDamping)
				consecutiveFailures++
				continue
			}

			xTry := make([]float64, numVars)
			for i := range xTry {
				xTry[i] = x[i] + delta[i]
			}
			trialR := residualsOnly(providers, xTry)
			if hasNonFinite(trialR) {
				lambda = math.Min(lambda*10, maxDamping)
				consecutiveFailures++
				continue
			}
			trialCost := halfSumSquares(trialR)
			if trialCost < cost {
				accepted = true
				newCost = trialCost
				acceptedCosts = append(acceptedCosts, trialCost)
				x = xTry
				lambda = math.Max(lambda/10, minDamping)
				consecutiveFailures = 0
				break
			}
			lambda = math.Min(lambda*10, maxDamping)
		}

		if !accepted {
			if consecutiveFailures > cfg.MaxConsecutiveNumericalFailures {
				return Result{X: x, Converged: false, Iterations: iter, Residual: cost, Reason: "numerical failure", AcceptedCosts: acceptedCosts}
			}
			log.Debugf("lm: iteration %d rejected every trial step, damping now %g", iter, lambda)
			continue
		}

		relChange := math.Abs(cost-newCost) / math.Max(cost, 1e-300)
		deltaNorm := norm(delta)
		xNorm := norm(x)
		cost = newCost

		if relChange < cfg.Tolerance || deltaNorm < cfg.Tolerance*(xNorm+cfg.Tolerance) {
			return Result{X: x, Converged: true, Iterations: iter + 1, Residual: cost, Reason: "", AcceptedCosts: acceptedCosts}
		}
	}

	return Result{X: x, Converged: false, Iterations: cfg.MaxIterations, Residual: cost, Reason: "Max iterations reached", AcceptedCosts: acceptedCosts}
}

// solveStep computes one trial Δ for the damped normal equations at the
// current x and λ, reporting ok=false on a singular system so the caller
// rejects the step and raises damping.
func solveStep(providers []residual.Provider, numVars int, x []float64, lambda float64, sparse, numerical bool) ([]float64, bool) {
	if sparse {
		r, csr := assembleCSR(providers, numVars, x, numerical)
		delta := linalg.ConjugateGradientSparse(csr, r, lambda, 1e-6, 200)
		return delta, true
	}

	r, dense := assembleDense(providers, numVars, x, numerical)
	h := normalEquations(dense, lambda)
	jtr := jacobianTransposeResidual(dense, r)
	neg := make([]float64, len(jtr))
	for i := range jtr {
		neg[i] = -jtr[i]
	}
	delta, err := linalg.CholeskyDense(h, neg)
	if err != nil {
		return nil, false
	}
	return delta, true
}
