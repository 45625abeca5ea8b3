package sim

import (
	"context"
	"log/slog"
	"math"

	"magnav-sim/internal/field"
	"magnav-sim/internal/geometry/vector"
	"magnav-sim/internal/mission"
	"magnav-sim/internal/nav"
	"magnav-sim/internal/vehicle"
)

// SurveyConfig is a mapping flight: a lawnmower over the whole field map
// with magnetometer readings taken along the way.
type SurveyConfig struct {
	Map         field.Config `json:"map"`
	Passes      int          `json:"passes"`
	Altitude    float64      `json:"altitude"`
	Speed       float64      `json:"speed"`
	NoiseStd    float64      `json:"noise_std"`
	DT          float64      `json:"dt"`
	SampleEvery int          `json:"sample_every"` // cycles between readings
	MaxSteps    int          `json:"max_steps"`
}

// DefaultSurvey maps a 5 km square at 100 m with a noisy magnetometer.
func DefaultSurvey(passes int) SurveyConfig {
	return SurveyConfig{
		Map:         field.Config{Width: 5000, Height: 5000, Seed: 123},
		Passes:      passes,
		Altitude:    100,
		Speed:       50,
		NoiseStd:    5,
		DT:          0.5,
		SampleEvery: 2,
		MaxSteps:    200000,
	}
}

func (c SurveyConfig) Validate() error {
	if err := c.Map.Validate(); err != nil {
		return err
	}
	if c.Passes < 1 {
		return nav.NewConfigError("survey.passes", "must be >= 1, got %d", c.Passes)
	}
	if !(c.Speed > 0) || !(c.DT > 0) {
		return nav.NewConfigError("survey", "speed and dt must be > 0, got %v and %v", c.Speed, c.DT)
	}
	if !(c.NoiseStd >= 0) {
		return nav.NewConfigError("survey.noise_std", "must be >= 0, got %v", c.NoiseStd)
	}
	if c.SampleEvery < 1 || c.MaxSteps < 1 {
		return nav.NewConfigError("survey", "sample_every and max_steps must be >= 1")
	}
	return nil
}

// SurveyResult holds the route flown and the readings taken on it.
type SurveyResult struct {
	Map          *field.Map
	Waypoints    []nav.Waypoint
	Observations []field.Observation
	Path         []vector.Vec3
	Steps        int
	Completed    bool // false when MaxSteps ran out first
}

// RunSurvey flies the lawnmower until the last waypoint is reached, the
// step budget is spent or ctx is cancelled.
func RunSurvey(ctx context.Context, cfg SurveyConfig, lg *slog.Logger) (SurveyResult, error) {
	if lg == nil {
		lg = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return SurveyResult{}, err
	}
	fmap, err := field.NewMap(cfg.Map)
	if err != nil {
		return SurveyResult{}, err
	}

	plan := mission.Lawnmower{
		MinX: 0, MaxX: cfg.Map.Width,
		MinY: 0, MaxY: cfg.Map.Height,
		Spacing:  cfg.Map.Width / float64(cfg.Passes),
		Altitude: cfg.Altitude,
	}
	wps, err := plan.Generate()
	if err != nil {
		return SurveyResult{}, err
	}

	// The acceptance circle must be wider than half a step or the
	// aircraft can straddle a waypoint forever.
	radius := math.Max(10, 0.6*cfg.Speed*cfg.DT)
	navigator, err := nav.NewWaypointNavigator(wps, cfg.Speed, radius, false)
	if err != nil {
		return SurveyResult{}, err
	}

	start := wps[0]
	craft := vehicle.New(nav.State{X: start.X, Y: start.Y, Z: start.Z, V: cfg.Speed}, nil)
	mag := field.NewMagnetometer(cfg.NoiseStd, 0, cfg.Map.Seed+1)

	res := SurveyResult{Map: fmap, Waypoints: wps}
	lg.Info("survey starting", slog.Int("passes", cfg.Passes), slog.Int("waypoints", len(wps)),
		slog.Float64("spacing", plan.Spacing))

	for step := 0; step < cfg.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		cmd := navigator.ProduceCommand(craft.State())
		if navigator.Finished() {
			res.Completed = true
			break
		}
		craft.Actuate(cfg.DT, cmd)
		res.Steps++

		pos := craft.State().Pos()
		res.Path = append(res.Path, pos)
		if step%cfg.SampleEvery == 0 {
			res.Observations = append(res.Observations, field.Observation{X: pos.X, Y: pos.Y, Value: mag.Read(fmap, pos)})
		}
	}

	lg.Info("survey complete", slog.Int("steps", res.Steps), slog.Int("readings", len(res.Observations)),
		slog.Bool("completed", res.Completed))
	return res, nil
}

// SurveyReport compares a reconstructed map against the true field at
// the survey altitude.
type SurveyReport struct {
	Truth         *field.Grid
	Reconstructed *field.Grid
	RMSE          float64
	Coverage      float64
}

// Reconstruct interpolates the readings onto a grid of cell size res and
// scores it against the true field at altitude.
func (r SurveyResult) Reconstruct(res, altitude float64) (SurveyReport, error) {
	truth, err := field.Sample(r.Map, res, altitude)
	if err != nil {
		return SurveyReport{}, err
	}
	minX, maxX, minY, maxY := r.Map.Bounds()
	recon, err := field.NewGrid(minX, maxX, minY, maxY, res)
	if err != nil {
		return SurveyReport{}, err
	}
	if err := field.Reconstruct(r.Observations, recon, field.DefaultReconstructOptions(res)); err != nil {
		return SurveyReport{}, err
	}
	rmse, coverage := recon.RMSE(truth)
	return SurveyReport{Truth: truth, Reconstructed: recon, RMSE: rmse, Coverage: coverage}, nil
}
