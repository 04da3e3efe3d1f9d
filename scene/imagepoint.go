package scene

// ImagePoint is a pixel observation of a WorldPoint from a Viewpoint.
// Out-of-bounds pixel coordinates are accepted, not rejected; InBounds
// reports them, and no solve step calls it or logs a warning for them.
type ImagePoint struct {
	U, V       float64
	Point      PointHandle
	Viewpoint  ViewpointHandle
	Visible    bool
	Confidence float64

	// LastResidual is (u_proj−u_obs, v_proj−v_obs) from the most recent
	// solve, written back by the orchestrator.
	LastResidual [2]float64
}

// InBounds reports whether (U, V) falls within the owning viewpoint's
// image dimensions.
func (p ImagePoint) InBounds(width, height int) bool {
	return p.U >= 0 && p.U <= float64(width) && p.V >= 0 && p.V <= float64(height)
}
