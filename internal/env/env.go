// Package env holds environmental effects applied to the vehicle after each
// kinematic step: wind drift, terrain floor clipping and so on.
package env

import (
	"magnav-sim/internal/geometry/vector"
)

// Environment modifies the vehicle's position and velocity for one step of
// dt seconds and may return a warning.
type Environment interface {
	Apply(dt float64, pos vector.Vec3, vel vector.Vec3) (vector.Vec3, vector.Vec3, string)
}

// Chain applies its effects in order, feeding the output of one into the
// next. The last non-empty warning wins.
type Chain struct {
	Effects []Environment
}

func (c *Chain) Apply(dt float64, pos vector.Vec3, vel vector.Vec3) (vector.Vec3, vector.Vec3, string) {
	var warning string
	for _, effect := range c.Effects {
		if effect == nil {
			continue
		}
		var w string
		pos, vel, w = effect.Apply(dt, pos, vel)
		if w != "" {
			warning = w
		}
	}
	return pos, vel, warning
}

// NoOp leaves the vehicle untouched.
var NoOp Environment = noOpEnv{}

type noOpEnv struct{}

func (noOpEnv) Apply(dt float64, pos, vel vector.Vec3) (vector.Vec3, vector.Vec3, string) {
	return pos, vel, ""
}
