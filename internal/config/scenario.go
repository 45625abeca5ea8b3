// Package config loads simulation scenarios from JSON. A scenario bundles
// the agent context, the vehicle's initial state, the driver timing and
// the GPS interference schedule.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"magnav-sim/internal/agent"
	"magnav-sim/internal/env"
	"magnav-sim/internal/field"
	"magnav-sim/internal/mission"
	"magnav-sim/internal/nav"
)

const maxFileSize = 1 << 20 // 1MB

// Limits that keep a scenario runnable. MaxSteps bounds duration/dt and
// MaxTickHz keeps the engine's tick interval at a millisecond or more.
const (
	MaxSteps  = 10_000_000
	MaxTickHz = 1000
)

type Scenario struct {
	Name         string                    `json:"name"`
	Organization agent.OrganizationContext `json:"organization"`
	Platform     agent.PlatformContext     `json:"platform"`
	Mission      MissionConfig             `json:"mission"`
	Initial      nav.State                 `json:"initial_state"`
	Sim          SimConfig                 `json:"sim"`
	GPS          GPSConfig                 `json:"gps"`
	Environment  EnvironmentConfig         `json:"environment"`
	Magnetic     *MagneticConfig           `json:"magnetic,omitempty"`
}

// MissionConfig takes an explicit waypoint list or a lawnmower survey. A
// lawnmower, when present, replaces the waypoint list.
type MissionConfig struct {
	Objectives       []string           `json:"objectives"`
	Waypoints        []nav.Waypoint     `json:"waypoints,omitempty"`
	Lawnmower        *mission.Lawnmower `json:"lawnmower,omitempty"`
	RiskTolerance    float64            `json:"risk_tolerance"`
	AcceptanceRadius *float64           `json:"acceptance_radius,omitempty"`
	Loop             *bool              `json:"loop,omitempty"`
}

type SimConfig struct {
	DT        float64 `json:"dt"`       // seconds per cycle
	Duration  float64 `json:"duration"` // seconds
	TickHz    float64 `json:"tick_hz"`  // real-time engine only
	OriginLat float64 `json:"origin_lat"`
	OriginLon float64 `json:"origin_lon"`
}

// JamWindow raises the GPS variance to Variance for Start < t < End.
type JamWindow struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Variance float64 `json:"variance"`
}

type GPSConfig struct {
	Baseline float64     `json:"baseline_variance"`
	Jamming  []JamWindow `json:"jamming,omitempty"`
}

// MagneticConfig places the flight over a synthetic anomaly map read by a
// scalar magnetometer. A null "magnetic" entry flies without one.
type MagneticConfig struct {
	Map      field.Config `json:"map"`
	NoiseStd float64      `json:"noise_std"` // nT
	Bias     float64      `json:"bias"`      // nT
}

type EnvironmentConfig struct {
	Wind           env.Wind `json:"wind"`
	TerrainMarginM *float64 `json:"terrain_margin_m,omitempty"`
}

// Default reproduces the reference patrol: a 3.9 km square flown at
// 100 m with GPS jammed between t=200 s and t=400 s.
func Default() *Scenario {
	return &Scenario{
		Name:         "patrol-jamming",
		Organization: agent.OrganizationContext{SquadronName: "Red Tails", Callsign: "Red-1", CommandFrequency: 123.45},
		Platform:     agent.PlatformContext{MaxSpeed: 100, MaxAltitude: 1000, Sensors: []string{"GPS", "Magnetometer"}},
		Mission: MissionConfig{
			Objectives:    []string{"Patrol"},
			Waypoints:     mission.Square(100, 100, 3900, 100),
			RiskTolerance: 0.5,
		},
		Initial: nav.State{X: 100, Y: 100, Z: 100, Psi: 0, V: 50},
		Sim:     SimConfig{DT: 0.5, Duration: 600, TickHz: 20, OriginLat: 32.0853, OriginLon: 34.7818},
		GPS: GPSConfig{
			Baseline: 0.1,
			Jamming:  []JamWindow{{Start: 200, End: 400, Variance: 10}},
		},
		Magnetic: &MagneticConfig{
			Map:      field.Config{Width: 5000, Height: 5000, Seed: 42},
			NoiseStd: 2,
		},
	}
}

// Load reads a scenario file. Fields left out of the file keep the values
// from Default.
func Load(path string) (*Scenario, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("scenario file must have .json extension, got %q", ext)
	}

	fi, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scenario file: %w", err)
	}
	if fi.Size() > maxFileSize {
		return nil, fmt.Errorf("scenario file too large: %d bytes (max %d)", fi.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	sc := Default()
	if err := json.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario JSON: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return sc, nil
}

// Validate rejects anything that would fail or misbehave once running.
func (s *Scenario) Validate() error {
	if !(s.Sim.DT > 0) || math.IsInf(s.Sim.DT, 0) {
		return nav.NewConfigError("sim.dt", "must be a finite value > 0, got %v", s.Sim.DT)
	}
	if !(s.Sim.Duration >= 0) || math.IsInf(s.Sim.Duration, 0) {
		return nav.NewConfigError("sim.duration", "must be a finite value >= 0, got %v", s.Sim.Duration)
	}
	if steps := s.Sim.Duration / s.Sim.DT; steps > MaxSteps {
		return nav.NewConfigError("sim.duration", "%v s at dt %v is %.0f steps, max %d", s.Sim.Duration, s.Sim.DT, steps, MaxSteps)
	}
	if !(s.Sim.TickHz >= 0) || s.Sim.TickHz > MaxTickHz {
		return nav.NewConfigError("sim.tick_hz", "must be in [0, %d], got %v", MaxTickHz, s.Sim.TickHz)
	}
	if !finite(s.Initial.X, s.Initial.Y, s.Initial.Z, s.Initial.Psi, s.Initial.V) {
		return nav.NewConfigError("initial_state", "must be finite, got %+v", s.Initial)
	}
	if !(s.GPS.Baseline >= 0) {
		return nav.NewConfigError("gps.baseline_variance", "must be >= 0, got %v", s.GPS.Baseline)
	}
	for i, w := range s.GPS.Jamming {
		if !(w.End >= w.Start) {
			return nav.NewConfigError(fmt.Sprintf("gps.jamming[%d]", i), "end (%v) before start (%v)", w.End, w.Start)
		}
		if !(w.Variance >= 0) {
			return nav.NewConfigError(fmt.Sprintf("gps.jamming[%d].variance", i), "must be >= 0, got %v", w.Variance)
		}
	}
	if m := s.Magnetic; m != nil {
		if err := m.Map.Validate(); err != nil {
			return err
		}
		if !(m.NoiseStd >= 0) || math.IsInf(m.NoiseStd, 0) {
			return nav.NewConfigError("magnetic.noise_std", "must be a finite value >= 0, got %v", m.NoiseStd)
		}
		if !finite(m.Bias) {
			return nav.NewConfigError("magnetic.bias", "must be finite, got %v", m.Bias)
		}
	}
	if r := s.Mission.AcceptanceRadius; r != nil && !(*r > 0) {
		return nav.NewConfigError("mission.acceptance_radius", "must be > 0, got %v", *r)
	}
	if _, err := s.Waypoints(); err != nil {
		return err
	}
	return nil
}

// Waypoints resolves the mission route.
func (s *Scenario) Waypoints() ([]nav.Waypoint, error) {
	if s.Mission.Lawnmower != nil {
		return s.Mission.Lawnmower.Generate()
	}
	if len(s.Mission.Waypoints) > 0 {
		return s.Mission.Waypoints, nil
	}
	return nil, nav.NewConfigError("mission", "waypoints or lawnmower is required")
}

// VarianceAt is the GPS variance the sensor source reports at time t. The
// highest active jamming window wins over the baseline.
func (s *Scenario) VarianceAt(t float64) float64 {
	v := s.GPS.Baseline
	for _, w := range s.GPS.Jamming {
		if t > w.Start && t < w.End && w.Variance > v {
			v = w.Variance
		}
	}
	return v
}

// Steps is the number of cycles the batch runner executes.
func (s *Scenario) Steps() int {
	return int(s.Sim.Duration / s.Sim.DT)
}

// AgentContext builds a fresh context with its own situation, so each
// call yields an independent agent.
func (s *Scenario) AgentContext() (agent.AgentContext, error) {
	wps, err := s.Waypoints()
	if err != nil {
		return agent.AgentContext{}, err
	}
	return agent.AgentContext{
		Organization: s.Organization,
		Platform: agent.PlatformContext{
			MaxSpeed:    s.Platform.MaxSpeed,
			MaxAltitude: s.Platform.MaxAltitude,
			Sensors:     append([]string(nil), s.Platform.Sensors...),
		},
		Mission: agent.MissionContext{
			Objectives:    append([]string(nil), s.Mission.Objectives...),
			Waypoints:     append([]nav.Waypoint(nil), wps...),
			RiskTolerance: s.Mission.RiskTolerance,
		},
		Situation: agent.NewSituation(s.Initial),
	}, nil
}

// AgentOptions maps optional mission overrides onto agent options.
func (s *Scenario) AgentOptions() []agent.Option {
	var opts []agent.Option
	if s.Mission.AcceptanceRadius != nil {
		opts = append(opts, agent.WithAcceptanceRadius(*s.Mission.AcceptanceRadius))
	}
	if s.Mission.Loop != nil {
		opts = append(opts, agent.WithLoop(*s.Mission.Loop))
	}
	return opts
}

// BuildField returns the anomaly map and magnetometer, or nils when the
// scenario has no magnetic section.
func (s *Scenario) BuildField() (*field.Map, *field.Magnetometer, error) {
	if s.Magnetic == nil {
		return nil, nil, nil
	}
	m, err := field.NewMap(s.Magnetic.Map)
	if err != nil {
		return nil, nil, err
	}
	return m, field.NewMagnetometer(s.Magnetic.NoiseStd, s.Magnetic.Bias, s.Magnetic.Map.Seed+1), nil
}

// BuildEnvironment returns the effects chain for the vehicle, or nil when
// the scenario has none.
func (s *Scenario) BuildEnvironment() env.Environment {
	var effects []env.Environment
	if w := s.Environment.Wind; w.Wx != 0 || w.Wy != 0 {
		effects = append(effects, w)
	}
	if m := s.Environment.TerrainMarginM; m != nil {
		effects = append(effects, env.Terrain{SafetyMarginM: *m})
	}
	if len(effects) == 0 {
		return nil
	}
	return &env.Chain{Effects: effects}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
