package env

import (
	"math"

	"magnav-sim/internal/geometry/vector"
)

// Wind is a constant horizontal wind in m/s (Wx east, Wy north).
type Wind struct {
	Wx float64 `json:"wx"`
	Wy float64 `json:"wy"`
}

// Apply drifts the ground track by the wind; airspeed is unchanged.
func (w Wind) Apply(dt float64, pos vector.Vec3, vel vector.Vec3) (vector.Vec3, vector.Vec3, string) {
	return pos.Add(w.Velocity().Mul(dt)), vel, ""
}

func (w Wind) Velocity() vector.Vec3 { return vector.Vec3{X: w.Wx, Y: w.Wy} }

// FromSpeedAndDir builds a Wind blowing towards directionDeg, measured
// clockwise from north.
func FromSpeedAndDir(speed, directionDeg float64) Wind {
	rad := directionDeg * math.Pi / 180
	return Wind{
		Wx: speed * math.Sin(rad),
		Wy: speed * math.Cos(rad),
	}
}
