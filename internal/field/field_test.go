package field

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"magnav-sim/internal/geometry/vector"
	"magnav-sim/internal/nav"
)

func testMap(t *testing.T, seed uint64) *Map {
	t.Helper()
	m, err := NewMap(Config{Width: 2000, Height: 2000, Seed: seed})
	require.NoError(t, err)
	return m
}

// roughness is the mean absolute step-to-step change along an east-west
// line at altitude z.
func roughness(m *Map, z float64) float64 {
	var sum float64
	n := 0
	prev := m.Field(vector.NewVec3(100, 1000, z))
	for x := 110.0; x <= 1900; x += 10 {
		v := m.Field(vector.NewVec3(x, 1000, z))
		sum += math.Abs(v - prev)
		prev = v
		n++
	}
	return sum / float64(n)
}

func TestMapIsSeeded(t *testing.T) {
	a, b, c := testMap(t, 7), testMap(t, 7), testMap(t, 8)
	p := vector.NewVec3(812, 1260, 100)
	assert.Equal(t, a.Field(p), b.Field(p))
	assert.NotEqual(t, a.Field(p), c.Field(p))
}

func TestMapOutsideBoundsIsBackground(t *testing.T) {
	m := testMap(t, 1)
	assert.Equal(t, Background, m.Field(vector.NewVec3(-1, 500, 100)))
	assert.Equal(t, Background, m.Field(vector.NewVec3(500, 2001, 100)))
	assert.NotEqual(t, Background, m.Field(vector.NewVec3(500, 500, 0)))
}

func TestMapSmoothsWithAltitude(t *testing.T) {
	m := testMap(t, 42)
	low, high := roughness(m, 50), roughness(m, 500)
	assert.Greater(t, low, high, "fine structure fades when flying higher")

	alongLow := make([]float64, 0, 100)
	alongHigh := make([]float64, 0, 100)
	for x := 0.0; x < 2000; x += 20 {
		alongLow = append(alongLow, m.Anomaly(vector.NewVec3(x, 700, 50)))
		alongHigh = append(alongHigh, m.Anomaly(vector.NewVec3(x, 700, 2000)))
	}
	assert.Greater(t, stat.StdDev(alongLow, nil), stat.StdDev(alongHigh, nil))
}

func TestMapBelowGroundReadsAsGround(t *testing.T) {
	m := testMap(t, 3)
	assert.Equal(t, m.Field(vector.NewVec3(900, 900, 0)), m.Field(vector.NewVec3(900, 900, -40)))
}

func TestNewMapRejectsBadConfig(t *testing.T) {
	for _, cfg := range []Config{{Width: 0, Height: 10}, {Width: 10, Height: math.NaN()}, {Width: math.Inf(1), Height: 10}} {
		_, err := NewMap(cfg)
		assert.True(t, errors.Is(err, nav.ErrConfig), "%+v", cfg)
	}
}

func TestMagnetometerNoiseAndBias(t *testing.T) {
	m := testMap(t, 5)
	p := vector.NewVec3(1000, 1000, 100)
	truth := m.Field(p)

	exact := NewMagnetometer(0, 3, 1)
	assert.Equal(t, truth+3, exact.Read(m, p))

	noisy := NewMagnetometer(2, 0, 1)
	readings := make([]float64, 4000)
	for i := range readings {
		readings[i] = noisy.Read(m, p)
	}
	mean, std := stat.MeanStdDev(readings, nil)
	assert.InDelta(t, truth, mean, 0.2)
	assert.InDelta(t, 2.0, std, 0.15)
}

func TestGridGeometry(t *testing.T) {
	g, err := NewGrid(0, 100, 0, 50, 20)
	require.NoError(t, err)
	c, r := g.Dims()
	assert.Equal(t, 5, c)
	assert.Equal(t, 3, r)
	assert.Equal(t, 10.0, g.X(0))
	assert.Equal(t, 50.0, g.Y(2))

	_, err = NewGrid(0, 100, 0, 50, 0)
	assert.True(t, errors.Is(err, nav.ErrConfig))
}

func TestReconstructDenseSurvey(t *testing.T) {
	m := testMap(t, 11)
	truth, err := Sample(m, 50, 100)
	require.NoError(t, err)

	var obs []Observation
	for y := 0.0; y <= 2000; y += 25 {
		for x := 0.0; x <= 2000; x += 25 {
			obs = append(obs, Observation{X: x, Y: y, Value: m.Field(vector.NewVec3(x, y, 100))})
		}
	}

	g, err := NewGrid(0, 2000, 0, 2000, 50)
	require.NoError(t, err)
	require.NoError(t, Reconstruct(obs, g, DefaultReconstructOptions(50)))

	rmse, coverage := g.RMSE(truth)
	assert.Equal(t, 1.0, coverage)

	nc, nr := truth.Dims()
	vals := make([]float64, 0, nc*nr)
	for r := 0; r < nr; r++ {
		for c := 0; c < nc; c++ {
			vals = append(vals, truth.Z(c, r))
		}
	}
	assert.Less(t, rmse, 0.25*stat.StdDev(vals, nil))
}

func TestReconstructLeavesGapsUnknown(t *testing.T) {
	g, err := NewGrid(0, 1000, 0, 1000, 100)
	require.NoError(t, err)
	obs := []Observation{{X: 50, Y: 50, Value: 1}, {X: 150, Y: 50, Value: 3}}
	require.NoError(t, Reconstruct(obs, g, ReconstructOptions{Neighbours: 2, MaxDist: 150}))

	assert.Equal(t, 1.0, g.Z(0, 0), "cell centred on a reading takes its value")
	assert.Equal(t, 3.0, g.Z(1, 0))
	assert.True(t, math.IsNaN(g.Z(9, 9)))

	_, coverage := g.RMSE(g)
	assert.Less(t, coverage, 0.2)
}

func TestReconstructNeedsObservations(t *testing.T) {
	g, err := NewGrid(0, 10, 0, 10, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, Reconstruct(nil, g, DefaultReconstructOptions(1)), ErrNoObservations)
}
