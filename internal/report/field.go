package report

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"magnav-sim/internal/field"
	"magnav-sim/internal/geometry/vector"
)

// gridRange returns the smallest and largest known values of g.
func gridRange(g *field.Grid) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	nc, nr := g.Dims()
	for r := 0; r < nr; r++ {
		for c := 0; c < nc; c++ {
			v := g.Z(c, r)
			if math.IsNaN(v) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	return lo, hi, lo <= hi
}

// FieldPlot draws g as a heat map over [lo, hi] with the optional flight
// path on top. Unknown cells are grey; values outside the range take the
// nearest end of the palette.
func FieldPlot(title string, g *field.Grid, lo, hi float64, path []vector.Vec3) (*plot.Plot, error) {
	if !(hi > lo) {
		return nil, fmt.Errorf("field plot %q: empty colour range [%v, %v]", title, lo, hi)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "East (m)"
	p.Y.Label.Text = "North (m)"

	pal := palette.Heat(64, 1)
	hm := plotter.NewHeatMap(g, pal)
	hm.Min, hm.Max = lo, hi
	cols := pal.Colors()
	hm.Underflow, hm.Overflow = cols[0], cols[len(cols)-1]
	hm.NaN = color.Gray{Y: 200}
	p.Add(hm)

	if len(path) > 0 {
		xys := make(plotter.XYs, len(path))
		for i, pos := range path {
			xys[i] = plotter.XY{X: pos.X, Y: pos.Y}
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		l.Width = vg.Points(0.5)
		p.Add(l)
		p.Legend.Add("survey path", l)
	}
	return p, nil
}

// SaveFieldPlots writes field_truth.png and field_reconstructed.png into
// dir, both on the colour scale of the truth grid.
func SaveFieldPlots(dir string, truth, recon *field.Grid, path []vector.Vec3) ([]string, error) {
	lo, hi, ok := gridRange(truth)
	if !ok {
		return nil, fmt.Errorf("truth grid has no known cells")
	}

	truthPlot, err := FieldPlot("True field (nT)", truth, lo, hi, nil)
	if err != nil {
		return nil, err
	}
	reconPlot, err := FieldPlot("Reconstructed field (nT)", recon, lo, hi, path)
	if err != nil {
		return nil, err
	}

	truthFile := filepath.Join(dir, "field_truth.png")
	if err := truthPlot.Save(8*vg.Inch, 8*vg.Inch, truthFile); err != nil {
		return nil, fmt.Errorf("save truth plot: %w", err)
	}
	reconFile := filepath.Join(dir, "field_reconstructed.png")
	if err := reconPlot.Save(8*vg.Inch, 8*vg.Inch, reconFile); err != nil {
		return nil, fmt.Errorf("save reconstruction plot: %w", err)
	}
	return []string{truthFile, reconFile}, nil
}
