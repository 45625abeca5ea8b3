package field

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/stat"

	"magnav-sim/internal/geometry/vector"
	"magnav-sim/internal/nav"
)

// Observation is one georeferenced magnetometer reading.
type Observation struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value float64 `json:"value"`
}

// ErrNoObservations is returned when reconstructing from an empty survey.
var ErrNoObservations = errors.New("no observations")

// Grid is a regular raster of field values. Cell (r, c) is centred on
// (MinX+(c+0.5)*Res, MinY+(r+0.5)*Res). Unknown cells are NaN.
type Grid struct {
	MinX, MinY float64
	Res        float64
	Values     *mat.Dense // rows north, columns east
}

// NewGrid returns an all-zero grid covering the bounds with cells of size
// res. Partial cells at the far edges are included.
func NewGrid(minX, maxX, minY, maxY, res float64) (*Grid, error) {
	if !(res > 0) {
		return nil, nav.NewConfigError("grid.resolution", "must be > 0, got %v", res)
	}
	nx := int(math.Ceil((maxX - minX) / res))
	ny := int(math.Ceil((maxY - minY) / res))
	if nx < 1 || ny < 1 {
		return nil, nav.NewConfigError("grid.bounds", "empty grid %dx%d", nx, ny)
	}
	return &Grid{MinX: minX, MinY: minY, Res: res, Values: mat.NewDense(ny, nx, nil)}, nil
}

// Dims returns (columns, rows).
func (g *Grid) Dims() (c, r int) {
	r, c = g.Values.Dims()
	return c, r
}

func (g *Grid) Z(c, r int) float64 { return g.Values.At(r, c) }

func (g *Grid) X(c int) float64 { return g.MinX + (float64(c)+0.5)*g.Res }

func (g *Grid) Y(r int) float64 { return g.MinY + (float64(r)+0.5)*g.Res }

// Sample rasterises the true field of m at altitude alt.
func Sample(m *Map, res, alt float64) (*Grid, error) {
	minX, maxX, minY, maxY := m.Bounds()
	g, err := NewGrid(minX, maxX, minY, maxY, res)
	if err != nil {
		return nil, err
	}
	nc, nr := g.Dims()
	for r := 0; r < nr; r++ {
		for c := 0; c < nc; c++ {
			g.Values.Set(r, c, m.Field(vector.NewVec3(g.X(c), g.Y(r), alt)))
		}
	}
	return g, nil
}

// RMSE compares g against truth cell by cell, skipping unknown cells. It
// returns the error and the fraction of cells that were known.
func (g *Grid) RMSE(truth *Grid) (rmse, coverage float64) {
	nc, nr := g.Dims()
	var sq []float64
	for r := 0; r < nr; r++ {
		for c := 0; c < nc; c++ {
			v := g.Z(c, r)
			if math.IsNaN(v) {
				continue
			}
			d := v - truth.Z(c, r)
			sq = append(sq, d*d)
		}
	}
	if len(sq) == 0 {
		return math.NaN(), 0
	}
	return math.Sqrt(stat.Mean(sq, nil)), float64(len(sq)) / float64(nc*nr)
}

// ReconstructOptions tunes inverse distance weighting.
type ReconstructOptions struct {
	Neighbours int     // readings blended per cell
	MaxDist    float64 // cells farther than this from any reading stay NaN
}

// DefaultReconstructOptions blends eight readings and leaves cells more
// than four cells from any reading unknown.
func DefaultReconstructOptions(res float64) ReconstructOptions {
	return ReconstructOptions{Neighbours: 8, MaxDist: 4 * res}
}

// Reconstruct interpolates scattered observations onto g by inverse
// distance weighting over the nearest readings.
func Reconstruct(obs []Observation, g *Grid, opts ReconstructOptions) error {
	if len(obs) == 0 {
		return ErrNoObservations
	}
	if opts.Neighbours < 1 {
		opts.Neighbours = 1
	}
	pts := make(points, len(obs))
	for i, o := range obs {
		pts[i] = point{x: o.X, y: o.Y, v: o.Value}
	}
	tree := kdtree.New(pts, false)

	maxD2 := opts.MaxDist * opts.MaxDist
	nc, nr := g.Dims()
	for r := 0; r < nr; r++ {
		for c := 0; c < nc; c++ {
			keep := kdtree.NewNKeeper(opts.Neighbours)
			tree.NearestSet(keep, point{x: g.X(c), y: g.Y(r)})
			g.Values.Set(r, c, blend(keep.Heap, maxD2))
		}
	}
	return nil
}

func blend(near kdtree.Heap, maxD2 float64) float64 {
	var wsum, vsum float64
	closest := math.Inf(1)
	for _, cd := range near {
		if cd.Comparable == nil {
			continue
		}
		p := cd.Comparable.(point)
		if cd.Dist < 1e-12 {
			return p.v
		}
		closest = math.Min(closest, cd.Dist)
		w := 1 / cd.Dist
		wsum += w
		vsum += w * p.v
	}
	if wsum == 0 || (maxD2 > 0 && closest > maxD2) {
		return math.NaN()
	}
	return vsum / wsum
}

// point is a reading in the kd-tree; distances use east/north only.
type point struct{ x, y, v float64 }

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	if d == 0 {
		return p.x - q.x
	}
	return p.y - q.y
}

func (p point) Dims() int { return 2 }

func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dx, dy := p.x-q.x, p.y-q.y
	return dx*dx + dy*dy
}

type points []point

func (p points) Index(i int) kdtree.Comparable { return p[i] }

func (p points) Len() int { return len(p) }

func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p points) Pivot(d kdtree.Dim) int {
	pl := plane{points: p, dim: d}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	if p.dim == 0 {
		return p.points[i].x < p.points[j].x
	}
	return p.points[i].y < p.points[j].y
}

func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], dim: p.dim}
}
