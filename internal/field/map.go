// Package field models the magnetic environment: a synthetic crustal
// anomaly map that smooths with altitude, a noisy scalar magnetometer and
// reconstruction of a gridded map from scattered readings.
package field

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"magnav-sim/internal/geometry/vector"
	"magnav-sim/internal/nav"
)

// Background is the Earth's main field strength in nT.
const Background = 50000.0

// MaxSourcesPerScale bounds the anomaly sources generated for one scale.
const MaxSourcesPerScale = 5000

// Config describes the surveyed rectangle [0,Width]x[0,Height] in metres.
type Config struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Seed   uint64  `json:"seed"`
}

func (c Config) Validate() error {
	if !(c.Width > 0) || math.IsInf(c.Width, 0) {
		return nav.NewConfigError("field.width", "must be a finite value > 0, got %v", c.Width)
	}
	if !(c.Height > 0) || math.IsInf(c.Height, 0) {
		return nav.NewConfigError("field.height", "must be a finite value > 0, got %v", c.Height)
	}
	return nil
}

// scale is one band of geological structure. Density is sources per km².
type scale struct {
	width     float64 // m
	amplitude float64 // nT
	density   float64
}

var scales = []scale{
	{width: 1000, amplitude: 500, density: 1.2}, // large structures
	{width: 250, amplitude: 150, density: 8},    // mid-size features
	{width: 50, amplitude: 40, density: 40},     // fine detail
}

type source struct {
	x, y float64
	w2   float64 // squared width
	amp  float64
}

// Map is a sum of Gaussian anomaly sources over a constant background.
// Reading it at altitude h blurs each source by a Gaussian of width h,
// which approximates upward continuation: anomalies get wider and weaker
// the higher the sensor flies.
type Map struct {
	cfg     Config
	sources []source
}

func NewMap(cfg Config) (*Map, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	ux := distuv.Uniform{Min: 0, Max: cfg.Width, Src: src}
	uy := distuv.Uniform{Min: 0, Max: cfg.Height, Src: src}

	areaKm2 := cfg.Width * cfg.Height / 1e6
	m := &Map{cfg: cfg}
	for _, sc := range scales {
		n := int(math.Round(sc.density * areaKm2))
		n = max(1, min(n, MaxSourcesPerScale))

		// Keep the band's spread near its nominal amplitude however
		// densely the sources overlap.
		overlap := float64(n) * 2 * math.Pi * sc.width * sc.width / (cfg.Width * cfg.Height)
		amp := distuv.Normal{Mu: 0, Sigma: sc.amplitude / math.Sqrt(math.Max(1, overlap)), Src: src}

		for i := 0; i < n; i++ {
			m.sources = append(m.sources, source{
				x:   ux.Rand(),
				y:   uy.Rand(),
				w2:  sc.width * sc.width,
				amp: amp.Rand(),
			})
		}
	}
	return m, nil
}

func (m *Map) Config() Config { return m.cfg }

// Bounds returns (minX, maxX, minY, maxY).
func (m *Map) Bounds() (float64, float64, float64, float64) {
	return 0, m.cfg.Width, 0, m.cfg.Height
}

// Contains reports whether pos lies over the mapped area.
func (m *Map) Contains(pos vector.Vec3) bool {
	return pos.X >= 0 && pos.X <= m.cfg.Width && pos.Y >= 0 && pos.Y <= m.cfg.Height
}

// Anomaly is the field minus Background at pos. Altitudes below zero read
// as ground level; outside the mapped area it is zero.
func (m *Map) Anomaly(pos vector.Vec3) float64 {
	if !m.Contains(pos) {
		return 0
	}
	h := math.Max(0, pos.Z)
	h2 := h * h

	var sum float64
	for _, s := range m.sources {
		s2 := s.w2 + h2
		dx, dy := pos.X-s.x, pos.Y-s.y
		d2 := dx*dx + dy*dy
		if d2 > 16*s2 {
			continue
		}
		sum += s.amp * (s.w2 / s2) * math.Exp(-d2/(2*s2))
	}
	return sum
}

// Field is the total intensity in nT at pos.
func (m *Map) Field(pos vector.Vec3) float64 {
	return Background + m.Anomaly(pos)
}
