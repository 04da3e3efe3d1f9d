package orchestrate

// SolveError is a comparable string type so every sentinel below works
// directly with errors.Is (string equality is all errors.Is needs when
// neither side defines its own Is method).
type SolveError string

func (e SolveError) Error() string { return string(e) }

const (
	// ErrNoFreeVariables is a pre-flight failure: the layout has zero free
	// parameters, so there is nothing for the LM driver to do.
	ErrNoFreeVariables SolveError = "no free variables"
	// ErrDegenerateLine is a pre-flight failure: a line's two endpoints
	// resolve to the same point.
	ErrDegenerateLine SolveError = "degenerate line"
	// ErrNoInitCameras is raised when auto-initialisation could not
	// produce a single reliable camera pose.
	ErrNoInitCameras SolveError = "no initializable cameras"
	// ErrNumericalFailure is raised when the LM driver rejects more than
	// MaxConsecutiveNumericalFailures steps in a row.
	ErrNumericalFailure SolveError = "numerical failure"
	// ErrMaxIterations marks a non-fatal, partial result: the driver
	// exhausted its iteration budget before meeting tolerance.
	ErrMaxIterations SolveError = "Max iterations reached"
	// ErrCancelled is returned when opts' context is done.
	ErrCancelled SolveError = "cancelled"
	// ErrTimeout is returned instead of ErrCancelled when the context's
	// deadline has passed: callers set a wall-clock budget with
	// context.WithTimeout and Solve reports the distinction.
	ErrTimeout SolveError = "timeout"
)
