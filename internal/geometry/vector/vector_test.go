package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNorm(t *testing.T) {
	assert.InDelta(t, 5.0, NewVec3(3, 4, 0).Norm(), 1e-12)
	assert.InDelta(t, 13.0, NewVec3(3, 4, 12).Norm(), 1e-12)
	assert.Zero(t, Vec3{}.Norm())
}

func TestNormalize(t *testing.T) {
	n := NewVec3(0, 10, 0).Normalize()
	assert.Equal(t, NewVec3(0, 1, 0), n)
	assert.Equal(t, Vec3{}, Vec3{}.Normalize())
}

func TestDist2DIgnoresAltitude(t *testing.T) {
	a := NewVec3(0, 0, 0)
	b := NewVec3(3, 4, 1000)
	assert.InDelta(t, 5.0, a.Dist2D(b), 1e-12)
}

func TestCross(t *testing.T) {
	east := NewVec3(1, 0, 0)
	north := NewVec3(0, 1, 0)
	assert.Equal(t, NewVec3(0, 0, 1), east.Cross(north))
	assert.InDelta(t, 0.0, east.Dot(north), 1e-12)
	assert.False(t, math.IsNaN(east.Sub(north).Norm()))
}
