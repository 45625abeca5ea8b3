package agent

import (
	"math"

	"github.com/brunoga/deep"

	"magnav-sim/internal/nav"
)

// OrganizationContext identifies who is flying.
type OrganizationContext struct {
	SquadronName     string  `json:"squadron_name"`
	Callsign         string  `json:"callsign"`
	CommandFrequency float64 `json:"command_frequency"`
}

// PlatformContext holds the airframe limits and the sensors it carries.
type PlatformContext struct {
	MaxSpeed    float64  `json:"max_speed"`
	MaxAltitude float64  `json:"max_altitude"`
	Sensors     []string `json:"sensors"`
}

// MissionContext is the route and what it is for. RiskTolerance is in
// [0,1].
type MissionContext struct {
	Objectives    []string       `json:"objectives"`
	Waypoints     []nav.Waypoint `json:"waypoints"`
	RiskTolerance float64        `json:"risk_tolerance"`
}

// SituationContext is the agent's mutable view of the world. It is
// created once per mission and rewritten every cycle.
type SituationContext struct {
	Estimated     nav.State               `json:"estimated_state"`
	SensorHealth  map[string]SensorStatus `json:"sensor_health"`
	ActiveThreats []string                `json:"active_threats,omitempty"`
	Mode          NavigationMode          `json:"mode"`
	// GPSVariance is a unitless jamming/interference proxy.
	GPSVariance float64 `json:"gps_variance"`
}

// NewSituation returns a situation in GPS mode at the initial state.
func NewSituation(initial nav.State) *SituationContext {
	return &SituationContext{
		Estimated:    initial,
		SensorHealth: make(map[string]SensorStatus),
		Mode:         ModeGPS,
	}
}

// Status returns the recorded health of sensor, or Unknown if it has never
// been reported.
func (s *SituationContext) Status(sensor string) SensorStatus {
	st, ok := s.SensorHealth[sensor]
	if !ok {
		return Unknown
	}
	return st
}

// Snapshot returns a deep copy safe to hand to another goroutine.
func (s *SituationContext) Snapshot() SituationContext {
	return deep.MustCopy(*s)
}

// AgentContext is everything the agent decides against. Only Situation
// changes during a mission.
type AgentContext struct {
	Organization OrganizationContext `json:"organization"`
	Platform     PlatformContext     `json:"platform"`
	Mission      MissionContext      `json:"mission"`
	Situation    *SituationContext   `json:"situation"`
}

// Validate returns a *nav.ConfigError naming the first bad field.
func (c AgentContext) Validate() error {
	if c.Situation == nil {
		return nav.NewConfigError("situation", "must not be nil")
	}
	if !(c.Platform.MaxSpeed > 0) || math.IsInf(c.Platform.MaxSpeed, 0) {
		return nav.NewConfigError("platform.max_speed", "must be a finite value > 0, got %v", c.Platform.MaxSpeed)
	}
	if !(c.Platform.MaxAltitude >= 0) || math.IsInf(c.Platform.MaxAltitude, 0) {
		return nav.NewConfigError("platform.max_altitude", "must be a finite value >= 0, got %v", c.Platform.MaxAltitude)
	}
	if !(c.Mission.RiskTolerance >= 0 && c.Mission.RiskTolerance <= 1) {
		return nav.NewConfigError("mission.risk_tolerance", "must be in [0,1], got %v", c.Mission.RiskTolerance)
	}
	if len(c.Mission.Waypoints) == 0 {
		return nav.NewConfigError("mission.waypoints", "at least one waypoint is required")
	}
	return nil
}
