// Package sim drives agents through time: Runner steps a scenario as
// fast as possible, Engine steps it in real time behind a command and
// subscription interface.
package sim

import (
	"context"
	"log/slog"

	"magnav-sim/internal/agent"
	"magnav-sim/internal/config"
	"magnav-sim/internal/field"
	"magnav-sim/internal/nav"
	"magnav-sim/internal/vehicle"
)

// Sample is the record of one control cycle, taken after actuation.
type Sample struct {
	Step          int                  `json:"step"`
	T             float64              `json:"t"`
	State         nav.State            `json:"state"`
	Command       nav.Command          `json:"command"`
	Mode          agent.NavigationMode `json:"mode"`
	GPS           agent.SensorStatus   `json:"gps"`
	Variance      float64              `json:"variance"`
	WaypointIndex int                  `json:"waypoint_index"`
	Warning       string               `json:"warning,omitempty"`
	Field         float64              `json:"field_nt"` // magnetometer reading, 0 without a field map
}

// Runner owns one agent and one aircraft built from a scenario.
type Runner struct {
	sc    *config.Scenario
	agent *agent.Agent
	craft *vehicle.Aircraft
	fmap  *field.Map
	mag   *field.Magnetometer
	lg    *slog.Logger
	step  int
}

func NewRunner(sc *config.Scenario, lg *slog.Logger) (*Runner, error) {
	if lg == nil {
		lg = slog.Default()
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	actx, err := sc.AgentContext()
	if err != nil {
		return nil, err
	}
	fmap, mag, err := sc.BuildField()
	if err != nil {
		return nil, err
	}
	craft := vehicle.New(sc.Initial, sc.BuildEnvironment())
	opts := append([]agent.Option{agent.WithLogger(lg)}, sc.AgentOptions()...)
	a, err := agent.New(actx, craft, opts...)
	if err != nil {
		return nil, err
	}
	return &Runner{sc: sc, agent: a, craft: craft, fmap: fmap, mag: mag, lg: lg}, nil
}

// Step runs one cycle of dt seconds at simulation time t using variance.
func (r *Runner) Step(t, dt, variance float64) (Sample, error) {
	if err := r.agent.Update(dt, variance); err != nil {
		return Sample{}, err
	}
	rep := r.agent.LastCycle()
	s := Sample{
		Step:          r.step,
		T:             t,
		State:         r.craft.State(),
		Command:       rep.Command,
		Mode:          rep.Mode,
		GPS:           rep.GPS,
		Variance:      variance,
		WaypointIndex: rep.WaypointIndex,
		Warning:       r.craft.Warning(),
	}
	if r.fmap != nil {
		s.Field = r.mag.Read(r.fmap, s.State.Pos())
	}
	r.step++
	return s, nil
}

// Run executes the scenario's full duration at its fixed dt, feeding the
// scheduled GPS variance. It stops early if ctx is cancelled and returns
// the samples gathered so far with ctx.Err().
func (r *Runner) Run(ctx context.Context) ([]Sample, error) {
	dt := r.sc.Sim.DT
	steps := r.sc.Steps()
	samples := make([]Sample, 0, steps)

	r.lg.Info("run starting", slog.String("scenario", r.sc.Name),
		slog.Int("steps", steps), slog.Float64("dt", dt))

	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return samples, err
		}
		t := float64(i) * dt
		s, err := r.Step(t, dt, r.sc.VarianceAt(t))
		if err != nil {
			return samples, err
		}
		samples = append(samples, s)
	}

	r.lg.Info("run complete", slog.Int("cycles", r.agent.Cycles()),
		slog.String("final_mode", r.agent.Mode().String()))
	return samples, nil
}

func (r *Runner) Agent() *agent.Agent { return r.agent }

func (r *Runner) Aircraft() *vehicle.Aircraft { return r.craft }

func (r *Runner) Scenario() *config.Scenario { return r.sc }

// FieldMap is the scenario's anomaly map, nil when it has none.
func (r *Runner) FieldMap() *field.Map { return r.fmap }
