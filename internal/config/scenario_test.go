package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magnav-sim/internal/env"
	"magnav-sim/internal/nav"
)

func writeScenario(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultScenario(t *testing.T) {
	sc := Default()
	require.NoError(t, sc.Validate())

	assert.Equal(t, 1200, sc.Steps())
	assert.Equal(t, 0.1, sc.VarianceAt(0))
	assert.Equal(t, 0.1, sc.VarianceAt(200), "window is open at the start")
	assert.Equal(t, 10.0, sc.VarianceAt(200.5))
	assert.Equal(t, 10.0, sc.VarianceAt(399.5))
	assert.Equal(t, 0.1, sc.VarianceAt(400))

	wps, err := sc.Waypoints()
	require.NoError(t, err)
	assert.Equal(t, nav.Waypoint{X: 100, Y: 4000, Z: 100}, wps[0])
	assert.Nil(t, sc.BuildEnvironment())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeScenario(t, "survey.json", `{
  "name": "survey",
  "mission": {
    "objectives": ["Survey"],
    "lawnmower": {"min_x": 0, "max_x": 1000, "min_y": 0, "max_y": 2000, "spacing": 250, "altitude": 120},
    "risk_tolerance": 0.2,
    "acceptance_radius": 25,
    "loop": false
  },
  "sim": {"dt": 0.25, "duration": 100},
  "gps": {"baseline_variance": 0.5, "jamming": [{"start": 10, "end": 20, "variance": 8}, {"start": 15, "end": 30, "variance": 12}]},
  "environment": {"wind": {"wx": 3, "wy": -1}, "terrain_margin_m": 10}
}`)

	sc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "survey", sc.Name)
	assert.Equal(t, "Red-1", sc.Organization.Callsign, "unset fields keep defaults")
	assert.Equal(t, 400, sc.Steps())

	wps, err := sc.Waypoints()
	require.NoError(t, err)
	assert.Len(t, wps, 8)
	assert.Equal(t, 120.0, wps[0].Z)

	assert.Equal(t, 0.5, sc.VarianceAt(5))
	assert.Equal(t, 8.0, sc.VarianceAt(12))
	assert.Equal(t, 12.0, sc.VarianceAt(17), "strongest window wins")
	assert.Equal(t, 12.0, sc.VarianceAt(25))

	ctx, err := sc.AgentContext()
	require.NoError(t, err)
	assert.Equal(t, wps, ctx.Mission.Waypoints)
	assert.Equal(t, 0.2, ctx.Mission.RiskTolerance)
	assert.Len(t, sc.AgentOptions(), 2)

	chain, ok := sc.BuildEnvironment().(*env.Chain)
	require.True(t, ok)
	assert.Len(t, chain.Effects, 2)
}

func TestAgentContextIsIndependent(t *testing.T) {
	sc := Default()
	a, err := sc.AgentContext()
	require.NoError(t, err)
	b, err := sc.AgentContext()
	require.NoError(t, err)

	a.Situation.GPSVariance = 99
	a.Mission.Waypoints[0].X = -1
	assert.Zero(t, b.Situation.GPSVariance)
	assert.Equal(t, 100.0, b.Mission.Waypoints[0].X)
	assert.Equal(t, 100.0, sc.Mission.Waypoints[0].X)
}

func TestLoadErrors(t *testing.T) {
	t.Run("wrong extension", func(t *testing.T) {
		_, err := Load(writeScenario(t, "scenario.yaml", "{}"))
		assert.ErrorContains(t, err, ".json extension")
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
	t.Run("bad json", func(t *testing.T) {
		_, err := Load(writeScenario(t, "bad.json", "{"))
		assert.ErrorContains(t, err, "parse")
	})
	t.Run("bad dt", func(t *testing.T) {
		_, err := Load(writeScenario(t, "dt.json", `{"sim": {"dt": 0}}`))
		assert.True(t, errors.Is(err, nav.ErrConfig))
	})
	t.Run("inverted jam window", func(t *testing.T) {
		_, err := Load(writeScenario(t, "jam.json", `{"gps": {"jamming": [{"start": 5, "end": 1, "variance": 9}]}}`))
		assert.True(t, errors.Is(err, nav.ErrConfig))
	})
	t.Run("empty mission", func(t *testing.T) {
		_, err := Load(writeScenario(t, "empty.json", `{"mission": {"waypoints": []}}`))
		assert.True(t, errors.Is(err, nav.ErrConfig))
	})
	t.Run("too many steps", func(t *testing.T) {
		_, err := Load(writeScenario(t, "long.json", `{"sim": {"dt": 0.5, "duration": 1e30}}`))
		assert.True(t, errors.Is(err, nav.ErrConfig))
		assert.ErrorContains(t, err, "sim.duration")
	})
	t.Run("tick rate too high", func(t *testing.T) {
		_, err := Load(writeScenario(t, "tick.json", `{"sim": {"dt": 0.5, "duration": 10, "tick_hz": 5e9}}`))
		assert.True(t, errors.Is(err, nav.ErrConfig))
		assert.ErrorContains(t, err, "sim.tick_hz")
	})
	t.Run("negative magnetometer noise", func(t *testing.T) {
		_, err := Load(writeScenario(t, "mag.json", `{"magnetic": {"noise_std": -1}}`))
		assert.True(t, errors.Is(err, nav.ErrConfig))
	})
	t.Run("empty field map", func(t *testing.T) {
		_, err := Load(writeScenario(t, "map.json", `{"magnetic": {"map": {"width": 0}}}`))
		assert.True(t, errors.Is(err, nav.ErrConfig))
	})
	t.Run("bad radius", func(t *testing.T) {
		_, err := Load(writeScenario(t, "radius.json", `{"mission": {"acceptance_radius": -5, "waypoints": [{"x": 1, "y": 1, "z": 1}]}}`))
		assert.True(t, errors.Is(err, nav.ErrConfig))
	})
}

func TestValidateRejectsNonFinite(t *testing.T) {
	cases := map[string]func(sc *Scenario){
		"infinite duration": func(sc *Scenario) { sc.Sim.Duration = math.Inf(1) },
		"nan duration":      func(sc *Scenario) { sc.Sim.Duration = math.NaN() },
		"tiny dt":           func(sc *Scenario) { sc.Sim.DT = 1e-300 },
		"nan tick rate":     func(sc *Scenario) { sc.Sim.TickHz = math.NaN() },
		"nan initial x":     func(sc *Scenario) { sc.Initial.X = math.NaN() },
		"nan jam end":       func(sc *Scenario) { sc.GPS.Jamming[0].End = math.NaN() },
		"nan baseline":      func(sc *Scenario) { sc.GPS.Baseline = math.NaN() },
		"infinite bias":     func(sc *Scenario) { sc.Magnetic.Bias = math.Inf(-1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			sc := Default()
			mutate(sc)
			assert.True(t, errors.Is(sc.Validate(), nav.ErrConfig))
		})
	}
}

func TestValidateAcceptsLimits(t *testing.T) {
	sc := Default()
	sc.Sim.TickHz = MaxTickHz
	sc.Sim.DT = 1
	sc.Sim.Duration = MaxSteps
	require.NoError(t, sc.Validate())
	assert.Equal(t, MaxSteps, sc.Steps())
}

func TestBuildField(t *testing.T) {
	sc := Default()
	m, mag, err := sc.BuildField()
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 2.0, mag.NoiseStd())

	path := writeScenario(t, "nomag.json", `{"magnetic": null}`)
	sc, err = Load(path)
	require.NoError(t, err)
	m, mag, err = sc.BuildField()
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Nil(t, mag)
}
