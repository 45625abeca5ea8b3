package field

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"magnav-sim/internal/geometry/vector"
)

// Source is anything that yields a true field intensity at a position.
type Source interface {
	Field(pos vector.Vec3) float64
}

// Magnetometer is a scalar sensor with a constant bias and Gaussian noise.
// It is not safe for concurrent use.
type Magnetometer struct {
	Bias  float64
	noise distuv.Normal
}

func NewMagnetometer(noiseStd, bias float64, seed uint64) *Magnetometer {
	return &Magnetometer{
		Bias:  bias,
		noise: distuv.Normal{Mu: 0, Sigma: noiseStd, Src: rand.NewPCG(seed, ^seed)},
	}
}

func (m *Magnetometer) NoiseStd() float64 { return m.noise.Sigma }

// Read returns one measurement of src at pos in nT.
func (m *Magnetometer) Read(src Source, pos vector.Vec3) float64 {
	v := src.Field(pos) + m.Bias
	if m.noise.Sigma > 0 {
		v += m.noise.Rand()
	}
	return v
}
