package sim

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"magnav-sim/internal/agent"
	"magnav-sim/internal/config"
	"magnav-sim/internal/nav"
)

// Snapshot is the externally visible state of a running Engine.
type Snapshot struct {
	Callsign string  `json:"callsign"`
	SimTime  float64 `json:"sim_time"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Alt      float64 `json:"alt"`

	State      nav.State   `json:"state"`
	HeadingDeg float64     `json:"heading_deg"`
	ClimbRate  float64     `json:"climb_rate"`
	Command    nav.Command `json:"command"`
	Field      float64     `json:"field_nt"`

	Mode           agent.NavigationMode          `json:"mode"`
	SensorHealth   map[string]agent.SensorStatus `json:"sensor_health"`
	GPSVariance    float64                       `json:"gps_variance"`
	VariancePinned bool                          `json:"variance_pinned"`
	WaypointIndex  int                           `json:"waypoint_index"`
	Paused         bool                          `json:"paused"`
	Warning        string                        `json:"warning,omitempty"`
	TS             time.Time                     `json:"ts"`
}

var (
	// ErrStopped is returned by requests made after Run has returned.
	ErrStopped = errors.New("engine stopped")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("engine already running")
)

type stateReq struct {
	reply chan Snapshot
}

type subscribeReq struct {
	ch chan Snapshot
}

// Engine runs one agent in real time. All agent and vehicle state lives
// in the Run goroutine; the rest of the API talks to it over channels.
type Engine struct {
	geo    GeoRef
	runner *Runner
	tickHz float64
	lg     *slog.Logger

	cmdCh       chan Command
	stateReqCh  chan stateReq
	subscribeCh chan subscribeReq
	unsubCh     chan chan Snapshot

	started atomic.Bool
	done    chan struct{} // closed when Run returns
}

// Config selects the scenario an Engine flies. A nil Scenario means
// config.Default.
type Config struct {
	Scenario *config.Scenario
	TickHz   float64 // overrides the scenario's tick rate when > 0
	Logger   *slog.Logger
}

// New validates the scenario and builds the agent. Call Run to start it.
func New(cfg Config) (*Engine, error) {
	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}
	sc := cfg.Scenario
	if sc == nil {
		sc = config.Default()
	}
	runner, err := NewRunner(sc, lg)
	if err != nil {
		return nil, err
	}

	if !(cfg.TickHz >= 0) || cfg.TickHz > config.MaxTickHz {
		return nil, nav.NewConfigError("tick_hz", "must be in [0, %d], got %v", config.MaxTickHz, cfg.TickHz)
	}
	tickHz := cfg.TickHz
	if tickHz <= 0 {
		tickHz = sc.Sim.TickHz
	}
	if tickHz <= 0 {
		tickHz = 20
	}

	return &Engine{
		geo:         GeoRef{OriginLat: sc.Sim.OriginLat, OriginLon: sc.Sim.OriginLon},
		runner:      runner,
		tickHz:      tickHz,
		lg:          lg,
		cmdCh:       make(chan Command, 128),
		stateReqCh:  make(chan stateReq),
		subscribeCh: make(chan subscribeReq),
		unsubCh:     make(chan chan Snapshot),
		done:        make(chan struct{}),
	}, nil
}

// Submit queues cmd for the engine. It never blocks; commands are dropped
// when the queue is full or the engine has stopped.
func (e *Engine) Submit(cmd Command) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.cmdCh <- cmd:
		return true
	default:
		e.lg.Warn("command queue full, dropping command", slog.String("type", string(cmd.Type())))
		return false
	}
}

// GetState returns the current snapshot. It fails with ErrStopped once
// Run has returned.
func (e *Engine) GetState(ctx context.Context) (Snapshot, error) {
	req := stateReq{reply: make(chan Snapshot, 1)}
	select {
	case e.stateReqCh <- req:
	case <-e.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case st := <-req.reply:
		return st, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Subscribe returns a channel receiving a snapshot after every cycle.
// Slow subscribers miss frames. The channel is closed after unsub, when
// the engine stops, or at once if it already has.
func (e *Engine) Subscribe(ctx context.Context) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 32)

	select {
	case e.subscribeCh <- subscribeReq{ch: ch}:
	case <-e.done:
		close(ch)
		return ch, func() {}
	case <-ctx.Done():
		close(ch)
		return ch, func() {}
	}

	unsub := func() {
		select {
		case e.unsubCh <- ch:
		case <-e.done:
		}
	}
	return ch, unsub
}

// Run steps the agent at the engine's tick rate until ctx is done. An
// Engine runs once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(e.done)

	now := time.Now()
	simT := 0.0
	paused := false
	var pinned *float64
	var last Sample
	last.State = e.runner.Aircraft().State()

	subs := map[chan Snapshot]struct{}{}

	snapshot := func(ts time.Time) Snapshot {
		sit := e.runner.Agent().Situation().Snapshot()
		lat, lon, alt := e.geo.LocalToGeo(last.State.Pos())
		return Snapshot{
			Callsign:       e.runner.Agent().Context().Organization.Callsign,
			SimTime:        simT,
			Lat:            lat,
			Lon:            lon,
			Alt:            alt,
			State:          last.State,
			HeadingDeg:     HeadingDeg(last.State.Psi),
			ClimbRate:      e.runner.Aircraft().ClimbRate(),
			Command:        last.Command,
			Field:          last.Field,
			Mode:           sit.Mode,
			SensorHealth:   sit.SensorHealth,
			GPSVariance:    sit.GPSVariance,
			VariancePinned: pinned != nil,
			WaypointIndex:  e.runner.Agent().Navigator().Index(),
			Paused:         paused,
			Warning:        last.Warning,
			TS:             ts,
		}
	}

	publish := func(st Snapshot) {
		for ch := range subs {
			select {
			case ch <- st:
			default:
				// slow subscriber -> drop frame
			}
		}
	}

	tick := time.NewTicker(time.Duration(float64(time.Second) / e.tickHz))
	defer tick.Stop()

	e.lg.Info("engine running", slog.Float64("tick_hz", e.tickHz))

	for {
		select {
		case <-ctx.Done():
			for ch := range subs {
				close(ch)
			}
			e.lg.Info("engine stopped", slog.Float64("sim_time", simT))
			return nil

		case req := <-e.subscribeCh:
			subs[req.ch] = struct{}{}
			req.ch <- snapshot(now)

		case ch := <-e.unsubCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case req := <-e.stateReqCh:
			req.reply <- snapshot(now)

		case cmd := <-e.cmdCh:
			switch c := cmd.(type) {
			case SetVarianceCommand:
				v := c.Variance
				pinned = &v
			case ClearVarianceCommand:
				pinned = nil
			case PauseCommand:
				paused = true
			case ResumeCommand:
				paused = false
			case ResetMissionCommand:
				e.runner.Agent().Navigator().Reset()
				e.lg.Info("mission reset", slog.Float64("sim_time", simT))
			}
			e.lg.Debug("command applied", slog.String("type", string(cmd.Type())))

		case t := <-tick.C:
			dt := t.Sub(now).Seconds()
			if dt <= 0 {
				dt = 1.0 / e.tickHz
			}
			now = t
			if paused {
				continue
			}

			variance := e.runner.Scenario().VarianceAt(simT)
			if pinned != nil {
				variance = *pinned
			}
			s, err := e.runner.Step(simT, dt, variance)
			if err != nil {
				// dt is always positive here, so this is a programming error.
				e.lg.Error("cycle failed", slog.Any("error", err))
				continue
			}
			last = s
			simT += dt

			publish(snapshot(now))
		}
	}
}
