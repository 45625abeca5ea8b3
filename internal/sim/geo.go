package sim

import (
	"math"

	"magnav-sim/internal/geometry/vector"
)

// GeoRef anchors the flat local frame at a geodetic origin using an
// equirectangular approximation. Good enough over a few tens of km.
type GeoRef struct {
	OriginLat float64
	OriginLon float64
}

const metersPerDegLat = 111_320.0

func (g GeoRef) metersPerDegLon() float64 {
	return metersPerDegLat * math.Cos(g.OriginLat*math.Pi/180.0)
}

func (g GeoRef) GeoToLocal(lat, lon, alt float64) vector.Vec3 {
	return vector.Vec3{
		X: (lon - g.OriginLon) * g.metersPerDegLon(),
		Y: (lat - g.OriginLat) * metersPerDegLat,
		Z: alt,
	}
}

func (g GeoRef) LocalToGeo(p vector.Vec3) (lat, lon, alt float64) {
	lat = g.OriginLat + p.Y/metersPerDegLat
	lon = g.OriginLon + p.X/g.metersPerDegLon()
	alt = p.Z
	return
}

// HeadingDeg converts a heading in radians (0 = north, clockwise) to
// degrees in [0, 360).
func HeadingDeg(psi float64) float64 {
	deg := math.Mod(psi*180.0/math.Pi, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
