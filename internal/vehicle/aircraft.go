// Package vehicle is a minimal fixed-wing kinematic model: speed and
// heading follow the command instantly, altitude converges with a
// proportional climb law.
package vehicle

import (
	"math"

	"magnav-sim/internal/env"
	"magnav-sim/internal/geometry/vector"
	"magnav-sim/internal/nav"
)

// ClimbGain is the proportional gain (1/s) of the altitude loop.
const ClimbGain = 0.1

// Aircraft integrates commands into a nav.State. It is not safe for
// concurrent use; one owner drives it.
type Aircraft struct {
	state       nav.State
	climbRate   float64
	environment env.Environment
	warning     string
}

// New returns an aircraft at the initial state. A nil environment means
// no environmental effects.
func New(initial nav.State, environment env.Environment) *Aircraft {
	if environment == nil {
		environment = env.NoOp
	}
	return &Aircraft{state: initial, environment: environment}
}

// Actuate advances the aircraft by dt seconds under cmd.
func (a *Aircraft) Actuate(dt float64, cmd nav.Command) {
	a.state.V = cmd.Speed
	a.state.Psi = cmd.Heading

	vel := vector.Vec3{
		X: a.state.V * math.Sin(a.state.Psi),
		Y: a.state.V * math.Cos(a.state.Psi),
		Z: (cmd.Altitude - a.state.Z) * ClimbGain,
	}
	pos := a.state.Pos().Add(vel.Mul(dt))

	pos, vel, a.warning = a.environment.Apply(dt, pos, vel)

	a.state.X, a.state.Y, a.state.Z = pos.X, pos.Y, pos.Z
	a.climbRate = vel.Z
}

// State returns a copy of the current state.
func (a *Aircraft) State() nav.State { return a.state }

// ClimbRate is the vertical speed of the last step in m/s.
func (a *Aircraft) ClimbRate() float64 { return a.climbRate }

// Warning is the environment warning raised by the last step, if any.
func (a *Aircraft) Warning() string { return a.warning }
