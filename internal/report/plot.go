package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"magnav-sim/internal/agent"
	"magnav-sim/internal/nav"
	"magnav-sim/internal/sim"
)

var modeColors = map[agent.NavigationMode]color.Color{
	agent.ModeGPS:           color.RGBA{R: 31, G: 119, B: 180, A: 255},
	agent.ModeMagNav:        color.RGBA{R: 214, G: 39, B: 40, A: 255},
	agent.ModeDeadReckoning: color.RGBA{R: 127, G: 127, B: 127, A: 255},
}

type segment struct {
	mode agent.NavigationMode
	pts  plotter.XYs
}

// segments splits samples into contiguous runs of one mode. Consecutive
// segments share their boundary point so lines join up.
func segments(samples []sim.Sample, xy func(sim.Sample) plotter.XY) []segment {
	var out []segment
	for i, smp := range samples {
		p := xy(smp)
		if i == 0 || smp.Mode != samples[i-1].Mode {
			seg := segment{mode: smp.Mode}
			if len(out) > 0 {
				last := out[len(out)-1].pts
				seg.pts = append(seg.pts, last[len(last)-1])
			}
			out = append(out, seg)
		}
		out[len(out)-1].pts = append(out[len(out)-1].pts, p)
	}
	return out
}

func addSegments(p *plot.Plot, segs []segment) error {
	seen := map[agent.NavigationMode]bool{}
	for _, seg := range segs {
		if len(seg.pts) < 2 {
			continue
		}
		line, err := plotter.NewLine(seg.pts)
		if err != nil {
			return err
		}
		line.Color = modeColors[seg.mode]
		line.Width = vg.Points(1.5)
		p.Add(line)
		if !seen[seg.mode] {
			p.Legend.Add(seg.mode.String(), line)
			seen[seg.mode] = true
		}
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return nil
}

// TrajectoryPlot draws the ground track coloured by navigation mode, with
// the mission waypoints marked.
func TrajectoryPlot(samples []sim.Sample, wps []nav.Waypoint) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Ground track"
	p.X.Label.Text = "East (m)"
	p.Y.Label.Text = "North (m)"

	segs := segments(samples, func(s sim.Sample) plotter.XY {
		return plotter.XY{X: s.State.X, Y: s.State.Y}
	})
	if err := addSegments(p, segs); err != nil {
		return nil, err
	}

	if len(wps) > 0 {
		pts := make(plotter.XYs, len(wps))
		for i, wp := range wps {
			pts[i] = plotter.XY{X: wp.X, Y: wp.Y}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Radius = vg.Points(4)
		sc.GlyphStyle.Color = color.Black
		p.Add(sc)
		p.Legend.Add("waypoint", sc)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// AltitudePlot draws altitude against time coloured by navigation mode.
func AltitudePlot(samples []sim.Sample) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Altitude"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Altitude (m)"

	segs := segments(samples, func(s sim.Sample) plotter.XY {
		return plotter.XY{X: s.T, Y: s.State.Z}
	})
	if err := addSegments(p, segs); err != nil {
		return nil, err
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// SavePlots writes trajectory.png and altitude.png into dir and returns
// the written paths.
func SavePlots(dir string, samples []sim.Sample, wps []nav.Waypoint) ([]string, error) {
	traj, err := TrajectoryPlot(samples, wps)
	if err != nil {
		return nil, fmt.Errorf("trajectory plot: %w", err)
	}
	alt, err := AltitudePlot(samples)
	if err != nil {
		return nil, fmt.Errorf("altitude plot: %w", err)
	}

	trajFile := filepath.Join(dir, "trajectory.png")
	if err := traj.Save(8*vg.Inch, 8*vg.Inch, trajFile); err != nil {
		return nil, fmt.Errorf("save trajectory plot: %w", err)
	}
	altFile := filepath.Join(dir, "altitude.png")
	if err := alt.Save(14*vg.Inch, 6*vg.Inch, altFile); err != nil {
		return nil, fmt.Errorf("save altitude plot: %w", err)
	}
	return []string{trajFile, altFile}, nil
}
