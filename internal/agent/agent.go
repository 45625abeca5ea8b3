// Package agent runs the per-cycle decision loop: monitor sensors,
// update the state estimate, pick a navigation mode and command, and
// hand the command to the vehicle.
package agent

import (
	"log/slog"
	"math"

	"magnav-sim/internal/nav"
)

// Actuator is the vehicle the agent flies. Actuate must update the state
// returned by the next State call.
type Actuator interface {
	Actuate(dt float64, cmd nav.Command)
	State() nav.State
}

// CycleReport describes the outcome of one Update call.
type CycleReport struct {
	Cycle         int            `json:"cycle"`
	Mode          NavigationMode `json:"mode"`
	PreviousMode  NavigationMode `json:"previous_mode"`
	GPS           SensorStatus   `json:"gps"`
	Command       nav.Command    `json:"command"`
	WaypointIndex int            `json:"waypoint_index"`
}

func (r CycleReport) Switched() bool { return r.Mode != r.PreviousMode }

type Option func(*options)

type options struct {
	logger           *slog.Logger
	acceptanceRadius float64
	loop             bool
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithAcceptanceRadius(r float64) Option {
	return func(o *options) { o.acceptanceRadius = r }
}

func WithLoop(loop bool) Option {
	return func(o *options) { o.loop = loop }
}

// Agent owns one AgentContext and one WaypointNavigator. It is
// single-threaded; give every simulated vehicle its own Agent.
type Agent struct {
	ctx       AgentContext
	vehicle   Actuator
	navigator *nav.WaypointNavigator
	lg        *slog.Logger

	cycles int
	last   CycleReport
}

// New validates ctx and builds the mission navigator at
// CruiseSpeedFraction of the platform's maximum speed. Every platform
// sensor starts out OPERATIONAL.
func New(ctx AgentContext, vehicle Actuator, opts ...Option) (*Agent, error) {
	o := options{
		logger:           slog.Default(),
		acceptanceRadius: AcceptanceRadius,
		loop:             LoopMission,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, nav.NewConfigError("vehicle", "must not be nil")
	}

	navigator, err := nav.NewWaypointNavigator(ctx.Mission.Waypoints,
		ctx.Platform.MaxSpeed*CruiseSpeedFraction, o.acceptanceRadius, o.loop)
	if err != nil {
		return nil, err
	}

	if ctx.Situation.SensorHealth == nil {
		ctx.Situation.SensorHealth = make(map[string]SensorStatus)
	}
	for _, s := range ctx.Platform.Sensors {
		ctx.Situation.SensorHealth[s] = Operational
	}

	lg := o.logger.With(slog.String("callsign", ctx.Organization.Callsign))
	lg.Info("agent ready",
		slog.Int("waypoints", len(ctx.Mission.Waypoints)),
		slog.Float64("cruise_speed", navigator.Speed()),
		slog.Bool("loop", navigator.Loop()))

	return &Agent{
		ctx:       ctx,
		vehicle:   vehicle,
		navigator: navigator,
		lg:        lg,
		last:      CycleReport{Mode: ctx.Situation.Mode, PreviousMode: ctx.Situation.Mode},
	}, nil
}

// Update runs one control cycle of dt seconds with the externally observed
// GPS variance. The only error is a negative or non-finite dt, which is
// rejected before anything is touched.
func (a *Agent) Update(dt, gpsVariance float64) error {
	if !(dt >= 0) || math.IsInf(dt, 0) {
		return nav.NewConfigError("dt", "must be a finite value >= 0, got %v", dt)
	}

	sit := a.ctx.Situation
	a.cycles++

	gps := a.monitor(sit, gpsVariance)
	a.estimate(sit)
	cmd, prev := a.decide(sit, gps)
	a.vehicle.Actuate(dt, cmd)

	a.last = CycleReport{
		Cycle:         a.cycles,
		Mode:          sit.Mode,
		PreviousMode:  prev,
		GPS:           gps,
		Command:       cmd,
		WaypointIndex: a.navigator.Index(),
	}
	return nil
}

func (a *Agent) monitor(sit *SituationContext, variance float64) SensorStatus {
	prev := sit.Status(GPSSensor)
	sit.GPSVariance = variance

	gps := GPSStatusFor(variance)
	sit.SensorHealth[GPSSensor] = gps

	if gps == Degraded && prev != Degraded {
		a.lg.Warn("GPS variance high, marking GPS degraded",
			slog.Float64("variance", variance),
			slog.Float64("threshold", GPSVarianceThreshold))
	}
	return gps
}

// estimate is a pass-through: the estimate is the vehicle's true state.
func (a *Agent) estimate(sit *SituationContext) {
	sit.Estimated = a.vehicle.State()
}

func (a *Agent) decide(sit *SituationContext, gps SensorStatus) (nav.Command, NavigationMode) {
	prev := sit.Mode
	sit.Mode = NextMode(prev, gps)
	if sit.Mode != prev {
		a.lg.Info("switching navigation mode",
			slog.String("from", prev.String()),
			slog.String("to", sit.Mode.String()),
			slog.String("gps", gps.String()),
			slog.Int("cycle", a.cycles))
	}

	// Both modes share the one navigator so the route survives a switch.
	cmd := a.navigator.ProduceCommand(sit.Estimated)
	if sit.Mode == ModeMagNav {
		cmd.Altitude = MagNavAltitude
	}
	return cmd, prev
}

func (a *Agent) Context() AgentContext { return a.ctx }

func (a *Agent) Situation() *SituationContext { return a.ctx.Situation }

func (a *Agent) Mode() NavigationMode { return a.ctx.Situation.Mode }

func (a *Agent) Navigator() *nav.WaypointNavigator { return a.navigator }

// LastCycle reports the most recent Update. Before the first Update it
// only carries the initial mode.
func (a *Agent) LastCycle() CycleReport { return a.last }

func (a *Agent) Cycles() int { return a.cycles }
