// Package mission generates waypoint lists for survey and patrol
// missions.
package mission

import (
	"math"

	"magnav-sim/internal/nav"
)

// Lawnmower is a boustrophedon survey over a rectangle. Tracks run
// north/south and are stepped east by Spacing.
type Lawnmower struct {
	MinX     float64 `json:"min_x"`
	MaxX     float64 `json:"max_x"`
	MinY     float64 `json:"min_y"`
	MaxY     float64 `json:"max_y"`
	Spacing  float64 `json:"spacing"`
	Altitude float64 `json:"altitude"`
}

func (l Lawnmower) Validate() error {
	if !(l.Spacing > 0) {
		return nav.NewConfigError("lawnmower.spacing", "must be > 0, got %v", l.Spacing)
	}
	if !(l.MaxX > l.MinX) {
		return nav.NewConfigError("lawnmower.bounds", "max_x (%v) must exceed min_x (%v)", l.MaxX, l.MinX)
	}
	if !(l.MaxY > l.MinY) {
		return nav.NewConfigError("lawnmower.bounds", "max_y (%v) must exceed min_y (%v)", l.MaxY, l.MinY)
	}
	return nil
}

// Generate returns two waypoints per pass, ceil(width/spacing) passes.
// The first pass heads north; each subsequent pass reverses.
func (l Lawnmower) Generate() ([]nav.Waypoint, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	passes := int(math.Ceil((l.MaxX - l.MinX) / l.Spacing))
	wps := make([]nav.Waypoint, 0, 2*passes)
	for i := 0; i < passes; i++ {
		x := math.Min(l.MinX+float64(i)*l.Spacing, l.MaxX)
		south := nav.Waypoint{X: x, Y: l.MinY, Z: l.Altitude}
		north := nav.Waypoint{X: x, Y: l.MaxY, Z: l.Altitude}
		if i%2 == 0 {
			wps = append(wps, south, north)
		} else {
			wps = append(wps, north, south)
		}
	}
	return wps, nil
}

// Square is a clockwise patrol box (north, east, south, back to start)
// with its south-west corner at (minX, minY).
func Square(minX, minY, side, altitude float64) []nav.Waypoint {
	return []nav.Waypoint{
		{X: minX, Y: minY + side, Z: altitude},
		{X: minX + side, Y: minY + side, Z: altitude},
		{X: minX + side, Y: minY, Z: altitude},
		{X: minX, Y: minY, Z: altitude},
	}
}
