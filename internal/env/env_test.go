package env

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"magnav-sim/internal/geometry/vector"
)

func TestWindDriftsPositionOnly(t *testing.T) {
	w := Wind{Wx: 5, Wy: -2}
	vel := vector.NewVec3(10, 0, 1)

	pos, v, warn := w.Apply(2, vector.Vec3{}, vel)
	assert.Equal(t, vector.NewVec3(10, -4, 0), pos)
	assert.Equal(t, vel, v)
	assert.Empty(t, warn)
}

func TestFromSpeedAndDir(t *testing.T) {
	east := FromSpeedAndDir(10, 90)
	assert.InDelta(t, 10, east.Wx, 1e-9)
	assert.InDelta(t, 0, east.Wy, 1e-9)

	north := FromSpeedAndDir(3, 0)
	assert.InDelta(t, 0, north.Wx, 1e-9)
	assert.InDelta(t, 3, north.Wy, 1e-9)

	assert.Equal(t, vector.Vec3{}, Wind{}.Velocity())
}

func TestTerrainClipsBelowFloor(t *testing.T) {
	terr := Terrain{SafetyMarginM: 10}
	pos := vector.NewVec3(0, 0, -100)
	floor := terr.GroundAltitude(pos) + 10

	p, v, warn := terr.Apply(0.5, pos, vector.NewVec3(1, 1, -5))
	assert.InDelta(t, floor, p.Z, 1e-12)
	assert.Equal(t, 0.0, v.Z)
	assert.Equal(t, TerrainWarning, warn)
}

func TestTerrainLeavesSafeAltitude(t *testing.T) {
	terr := DefaultTerrain()
	pos := vector.NewVec3(100, 200, 500)
	vel := vector.NewVec3(0, 0, -3)

	p, v, warn := terr.Apply(0.5, pos, vel)
	assert.Equal(t, pos, p)
	assert.Equal(t, vel, v)
	assert.Empty(t, warn)
}

func TestChainOrderAndWarning(t *testing.T) {
	chain := &Chain{Effects: []Environment{Wind{Wx: 1}, nil, Terrain{SafetyMarginM: 1000}, NoOp}}

	p, _, warn := chain.Apply(1, vector.Vec3{}, vector.Vec3{})
	assert.Equal(t, 1.0, p.X)
	assert.Equal(t, TerrainWarning, warn)
	assert.Greater(t, p.Z, 900.0)
}
