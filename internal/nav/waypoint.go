package nav

import "math"

// LoiterTurnIncrement is added to the vehicle's actual heading on every
// call once a non-looping mission has completed. No turn state is kept,
// so repeated calls produce a continuous circle.
const LoiterTurnIncrement = 0.2 // radians

// WaypointNavigator flies an ordered list of waypoints. Arrival is a
// planar test against the acceptance radius; at most one waypoint is
// advanced per call.
type WaypointNavigator struct {
	waypoints        []Waypoint
	index            int
	speed            float64
	acceptanceRadius float64
	loop             bool
	loitering        bool
}

var _ Navigator = (*WaypointNavigator)(nil)

// NewWaypointNavigator validates its arguments and returns a navigator
// targeting the first waypoint. The waypoint slice is copied.
func NewWaypointNavigator(waypoints []Waypoint, speed, acceptanceRadius float64, loop bool) (*WaypointNavigator, error) {
	if len(waypoints) == 0 {
		return nil, NewConfigError("waypoints", "at least one waypoint is required")
	}
	if !(speed > 0) || math.IsInf(speed, 0) {
		return nil, NewConfigError("speed", "must be a finite value > 0, got %v", speed)
	}
	if !(acceptanceRadius > 0) || math.IsInf(acceptanceRadius, 0) {
		return nil, NewConfigError("acceptance_radius", "must be a finite value > 0, got %v", acceptanceRadius)
	}

	wps := make([]Waypoint, len(waypoints))
	copy(wps, waypoints)

	return &WaypointNavigator{
		waypoints:        wps,
		speed:            speed,
		acceptanceRadius: acceptanceRadius,
		loop:             loop,
	}, nil
}

func (n *WaypointNavigator) last() int { return len(n.waypoints) - 1 }

// ProduceCommand returns the command for st, advancing the cursor when the
// current target has been reached.
func (n *WaypointNavigator) ProduceCommand(st State) Command {
	target := n.Target()
	dx, dy := target.X-st.X, target.Y-st.Y

	if math.Hypot(dx, dy) < n.acceptanceRadius {
		if n.index >= n.last() {
			if !n.loop {
				n.loitering = true
				return Command{
					Speed:    n.speed,
					Heading:  st.Psi + LoiterTurnIncrement,
					Altitude: target.Z,
				}
			}
			n.index = 0
		} else {
			n.index++
		}
		target = n.Target()
		dx, dy = target.X-st.X, target.Y-st.Y
	}
	n.loitering = false

	// atan2(dx, dy) puts zero on north and turns clockwise.
	return Command{
		Speed:    n.speed,
		Heading:  math.Atan2(dx, dy),
		Altitude: target.Z,
	}
}

// Target is the waypoint currently being flown to.
func (n *WaypointNavigator) Target() Waypoint {
	return n.waypoints[min(n.index, n.last())]
}

// Index is the position of Target in the mission.
func (n *WaypointNavigator) Index() int { return n.index }

// Loop reports whether the mission restarts after the last waypoint.
func (n *WaypointNavigator) Loop() bool { return n.loop }

// Speed is the commanded airspeed in m/s.
func (n *WaypointNavigator) Speed() float64 { return n.speed }

func (n *WaypointNavigator) AcceptanceRadius() float64 { return n.acceptanceRadius }

// Waypoints returns a copy of the mission.
func (n *WaypointNavigator) Waypoints() []Waypoint {
	wps := make([]Waypoint, len(n.waypoints))
	copy(wps, n.waypoints)
	return wps
}

// Finished reports whether a non-looping mission is complete and the last
// command issued was a loiter command.
func (n *WaypointNavigator) Finished() bool { return n.loitering }

// Reset puts the cursor back on the first waypoint.
func (n *WaypointNavigator) Reset() {
	n.index = 0
	n.loitering = false
}
