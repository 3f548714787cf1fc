package snake

import (
	"github.com/MeKo-Tech/snake/internal/contour"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ContinuityEnergy penalises spacing between prev and p that deviates from
// the contour's average spacing avg.
func ContinuityEnergy(avg float64, prev, p contour.Point) float64 {
	d := avg - contour.Distance(prev, p)
	return d * d
}

// CurvatureEnergy is the squared magnitude of the discrete second derivative
// prev - 2p + next.
func CurvatureEnergy(prev, p, next contour.Point) float64 {
	dx := float64(prev.X - 2*p.X + next.X)
	dy := float64(prev.Y - 2*p.Y + next.Y)
	return dx*dx + dy*dy
}

// ImageEnergy is the negated field value under p.
func (s *Snake) ImageEnergy(p contour.Point) float64 {
	return -s.field.At(p.X, p.Y)
}

// Normalize rescales m to [0, 1] via (v-min)/(max-min) and returns the
// result as a new matrix. A flat matrix normalises to all zeros.
func Normalize(m *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.CloneFrom(m)
	normalizeInPlace(&out)
	return &out
}

func normalizeInPlace(m *mat.Dense) {
	lo, hi := mat.Min(m), mat.Max(m)
	if hi == lo {
		m.Zero()
		return
	}
	span := hi - lo
	m.Apply(func(_, _ int, v float64) float64 {
		return (v - lo) / span
	}, m)
}

// NormalizeVector is Normalize for a flat slice. An empty or flat input
// yields zeros of the same length.
func NormalizeVector(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}
	lo, hi := floats.Min(v), floats.Max(v)
	if hi == lo {
		return out
	}
	span := hi - lo
	for i, x := range v {
		out[i] = (x - lo) / span
	}
	return out
}
