// Package report reduces a run's samples to summary statistics and plots.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"magnav-sim/internal/agent"
	"magnav-sim/internal/sim"
)

// ModeStats describes the cycles flown in one navigation mode.
type ModeStats struct {
	Cycles    int
	Seconds   float64
	MeanAlt   float64
	StdAlt    float64
	MeanSpeed float64
	// FieldStd is the spread of magnetometer readings, which grows as
	// the aircraft descends towards the anomaly sources.
	FieldStd float64
}

// Summary aggregates a whole run.
type Summary struct {
	Cycles         int
	Duration       float64
	Distance       float64
	ModeSwitches   int
	WaypointsHit   int
	TerrainAlerts  int
	Modes          map[agent.NavigationMode]ModeStats
	FirstMagNavAt  float64
	LastDegradedAt float64
}

// Summarize computes run statistics. Times that never occurred are NaN.
func Summarize(samples []sim.Sample) Summary {
	s := Summary{
		Cycles:         len(samples),
		Modes:          map[agent.NavigationMode]ModeStats{},
		FirstMagNavAt:  math.NaN(),
		LastDegradedAt: math.NaN(),
	}
	if len(samples) == 0 {
		return s
	}

	alts := map[agent.NavigationMode][]float64{}
	speeds := map[agent.NavigationMode][]float64{}
	fields := map[agent.NavigationMode][]float64{}
	seconds := map[agent.NavigationMode]float64{}
	steps := make([]float64, 0, len(samples))

	prev := samples[0]
	for i, smp := range samples {
		alts[smp.Mode] = append(alts[smp.Mode], smp.State.Z)
		speeds[smp.Mode] = append(speeds[smp.Mode], smp.State.V)
		fields[smp.Mode] = append(fields[smp.Mode], smp.Field)
		if i > 0 {
			seconds[smp.Mode] += smp.T - prev.T
			steps = append(steps, smp.State.Pos().Dist2D(prev.State.Pos()))
			if smp.Mode != prev.Mode {
				s.ModeSwitches++
			}
			if smp.WaypointIndex != prev.WaypointIndex {
				s.WaypointsHit++
			}
		}
		if smp.Mode == agent.ModeMagNav && math.IsNaN(s.FirstMagNavAt) {
			s.FirstMagNavAt = smp.T
		}
		if smp.GPS == agent.Degraded {
			s.LastDegradedAt = smp.T
		}
		if smp.Warning != "" {
			s.TerrainAlerts++
		}
		prev = smp
	}
	s.Duration = samples[len(samples)-1].T - samples[0].T
	s.Distance = floats.Sum(steps)

	for mode, z := range alts {
		mean, std := stat.MeanStdDev(z, nil)
		fieldStd := stat.StdDev(fields[mode], nil)
		if len(z) < 2 {
			std, fieldStd = 0, 0
		}
		s.Modes[mode] = ModeStats{
			Cycles:    len(z),
			Seconds:   seconds[mode],
			MeanAlt:   mean,
			StdAlt:    std,
			MeanSpeed: stat.Mean(speeds[mode], nil),
			FieldStd:  fieldStd,
		}
	}
	return s
}

// Write prints a human readable summary.
func (s Summary) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "cycles=%d duration=%.1fs distance=%.0fm switches=%d waypoints=%d terrain_alerts=%d\n",
		s.Cycles, s.Duration, s.Distance, s.ModeSwitches, s.WaypointsHit, s.TerrainAlerts); err != nil {
		return err
	}
	modes := make([]agent.NavigationMode, 0, len(s.Modes))
	for m := range s.Modes {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	for _, m := range modes {
		ms := s.Modes[m]
		if _, err := fmt.Fprintf(w, "  %-14s cycles=%-5d time=%7.1fs alt=%6.1f±%-5.1fm speed=%.1fm/s field_std=%.1fnT\n",
			m, ms.Cycles, ms.Seconds, ms.MeanAlt, ms.StdAlt, ms.MeanSpeed, ms.FieldStd); err != nil {
			return err
		}
	}
	if !math.IsNaN(s.FirstMagNavAt) {
		if _, err := fmt.Fprintf(w, "  first MAG_NAV at t=%.1fs, last GPS degradation at t=%.1fs\n",
			s.FirstMagNavAt, s.LastDegradedAt); err != nil {
			return err
		}
	}
	return nil
}
