// Package nav turns vehicle state into flight commands. WaypointNavigator
// sequences an ordered mission; other Navigator variants can be swapped in
// by the agent without touching the vehicle side.
package nav

import (
	"fmt"

	"magnav-sim/internal/geometry/vector"
)

// Waypoint is a mission point in the local frame (x=east, y=north,
// z=altitude above reference).
type Waypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (w Waypoint) Vec() vector.Vec3 { return vector.Vec3{X: w.X, Y: w.Y, Z: w.Z} }

func (w Waypoint) String() string { return fmt.Sprintf("(%.1f, %.1f, %.1f)", w.X, w.Y, w.Z) }

// State is the vehicle state as seen by navigation. Psi is the heading in
// radians, 0 = north, increasing clockwise. V is speed in m/s.
type State struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Z   float64 `json:"z"`
	Psi float64 `json:"psi"`
	V   float64 `json:"v"`
}

func (s State) Pos() vector.Vec3 { return vector.Vec3{X: s.X, Y: s.Y, Z: s.Z} }

// Command is what a navigator asks of the vehicle. Heading uses the same
// convention as State.Psi. No range is enforced here.
type Command struct {
	Speed    float64 `json:"speed"`
	Heading  float64 `json:"heading"`
	Altitude float64 `json:"altitude"`
}

// Navigator produces a command for the current vehicle state.
type Navigator interface {
	ProduceCommand(st State) Command
}
