package scene

// Line is an ordered pair of WorldPoints with an optional direction and/or
// length constraint. Both endpoints must be distinct; that
// invariant is checked by Project.AddLine, not re-checked on every read.
type Line struct {
	A, B      PointHandle
	Direction Direction

	HasTargetLength bool
	TargetLength    float64
	Tolerance       float64
}
