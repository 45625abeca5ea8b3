package env

import (
	"math"

	"magnav-sim/internal/geometry/vector"
)

// TerrainWarning is returned by Terrain.Apply when the vehicle was lifted
// back to the safety floor.
const TerrainWarning = "terrain-floor: altitude clipped to safety margin"

// Terrain keeps the vehicle at least SafetyMarginM above a synthetic
// ground surface.
type Terrain struct {
	SafetyMarginM float64 `json:"safety_margin_m"`
}

// GroundAltitude is a smooth rolling surface, bounded to +/-30 m, so a
// low-altitude MagNav leg at 50 m with a small margin stays legal.
func (t Terrain) GroundAltitude(pos vector.Vec3) float64 {
	return 20*math.Sin(pos.X/1500) + 10*math.Sin((pos.X+pos.Y)/700)
}

func (t Terrain) Apply(dt float64, pos vector.Vec3, vel vector.Vec3) (vector.Vec3, vector.Vec3, string) {
	floor := t.GroundAltitude(pos) + t.SafetyMarginM
	if pos.Z >= floor {
		return pos, vel, ""
	}
	pos.Z = floor
	if vel.Z < 0 {
		vel.Z = 0
	}
	return pos, vel, TerrainWarning
}

// DefaultTerrain uses a 10 m margin.
func DefaultTerrain() Terrain {
	return Terrain{SafetyMarginM: 10}
}
