package scene

// Axis labels a VanishingLine's associated world axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// VanishingLine is a user-drawn image segment used by the orientation
// stage of initialisation to fix one world axis in a
// Viewpoint's camera frame.
type VanishingLine struct {
	P1, P2    [2]float64 // pixel endpoints
	Axis      Axis
	Viewpoint ViewpointHandle
}
