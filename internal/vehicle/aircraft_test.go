package vehicle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"magnav-sim/internal/env"
	"magnav-sim/internal/nav"
)

func TestActuateNorthAndEast(t *testing.T) {
	a := New(nav.State{Z: 100}, nil)

	a.Actuate(2, nav.Command{Speed: 10, Heading: 0, Altitude: 100})
	st := a.State()
	assert.InDelta(t, 0, st.X, 1e-9)
	assert.InDelta(t, 20, st.Y, 1e-9)
	assert.InDelta(t, 100, st.Z, 1e-9)
	assert.Equal(t, 10.0, st.V)

	a.Actuate(1, nav.Command{Speed: 10, Heading: math.Pi / 2, Altitude: 100})
	st = a.State()
	assert.InDelta(t, 10, st.X, 1e-9)
	assert.InDelta(t, 20, st.Y, 1e-9)
	assert.Equal(t, math.Pi/2, st.Psi)
}

func TestActuateClimbsProportionally(t *testing.T) {
	a := New(nav.State{Z: 100}, nil)

	a.Actuate(0.5, nav.Command{Speed: 0, Altitude: 50})
	// vz = (50-100)*0.1 = -5 m/s for 0.5 s.
	assert.InDelta(t, 97.5, a.State().Z, 1e-9)
	assert.InDelta(t, -5, a.ClimbRate(), 1e-9)
}

func TestActuateZeroDtDoesNotMove(t *testing.T) {
	start := nav.State{X: 3, Y: 4, Z: 5}
	a := New(start, nil)
	a.Actuate(0, nav.Command{Speed: 100, Heading: 1, Altitude: 1000})

	st := a.State()
	assert.Equal(t, start.X, st.X)
	assert.Equal(t, start.Y, st.Y)
	assert.Equal(t, start.Z, st.Z)
}

func TestActuateAppliesEnvironment(t *testing.T) {
	a := New(nav.State{Z: 0}, &env.Chain{Effects: []env.Environment{
		env.Wind{Wx: 2},
		env.Terrain{SafetyMarginM: 200},
	}})

	a.Actuate(1, nav.Command{Speed: 0, Altitude: 0})
	st := a.State()
	assert.InDelta(t, 2, st.X, 1e-9)
	assert.Greater(t, st.Z, 150.0)
	assert.Equal(t, env.TerrainWarning, a.Warning())
}

func TestStateIsACopy(t *testing.T) {
	a := New(nav.State{X: 1}, nil)
	st := a.State()
	st.X = 42
	assert.Equal(t, 1.0, a.State().X)
}
