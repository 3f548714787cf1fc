// Package snake implements the greedy active contour relaxation.
//
// A Snake owns a closed contour and per-point weights for three competing
// energies: continuity (even spacing), curvature (smoothness) and image
// attraction. Each call to Step sweeps the contour once, moving every point
// to the cheapest position in its neighborhood. Points are updated in place
// while the sweep runs, so each point already sees the new position of its
// predecessor (Gauss–Seidel order). After the sweep, curvature maxima above
// the threshold are marked as corners and lose their curvature weight for
// the rest of the snake's life.
package snake

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/MeKo-Tech/snake/internal/energy"
	"github.com/MeKo-Tech/snake/internal/mempool"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNilField is returned when a snake is built without an energy field.
	ErrNilField = errors.New("energy field is nil")
	// ErrNonFiniteEnergy is returned when a weighted total is NaN or infinite.
	ErrNonFiniteEnergy = errors.New("non-finite total energy")
)

// Snake drives the relaxation of one contour over one energy field.
// It is not safe for concurrent use.
type Snake struct {
	contour *contour.Contour
	field   *energy.Field

	alpha []float64
	beta  []float64
	gamma []float64

	corner []bool

	curvatureThreshold float64
	size               int
	passes             int

	logger *slog.Logger
}

// Option customises a Snake beyond its weights.
type Option func(*Snake)

// WithLogger sets the logger used for per-pass debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Snake) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a snake over field from an initial point sequence. The snake
// keeps its own contour; points outside the field are clamped into it.
func New(points []contour.Point, field *energy.Field, opts Options, extra ...Option) (*Snake, error) {
	if field == nil {
		return nil, ErrNilField
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	h, w := field.Height(), field.Width()
	c := contour.New()
	for _, p := range points {
		p = p.Clamp(h, w)
		c.AddPoint(p.X, p.Y)
	}

	n := c.Len()
	s := &Snake{
		contour:            c,
		field:              field,
		alpha:              filled(n, opts.Alpha),
		beta:               filled(n, opts.Beta),
		gamma:              filled(n, opts.Gamma),
		corner:             make([]bool, n),
		curvatureThreshold: opts.CurvatureThreshold,
		size:               opts.NeighborhoodSize,
		logger:             slog.Default(),
	}
	for _, o := range extra {
		o(s)
	}
	return s, nil
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Contour returns a copy of the contour. Changes to the copy do not reach
// the snake.
func (s *Snake) Contour() *contour.Contour { return s.contour.Clone() }

// Points returns the current point positions in visiting order.
func (s *Snake) Points() []contour.Point { return s.contour.Sequence() }

// AverageDistance returns the current mean spacing between neighbours.
func (s *Snake) AverageDistance() (float64, error) { return s.contour.AverageDistance() }

// Field returns the energy field the snake relaxes over.
func (s *Snake) Field() *energy.Field { return s.field }

// Len returns the number of contour points.
func (s *Snake) Len() int { return s.contour.Len() }

// Passes returns the number of completed passes.
func (s *Snake) Passes() int { return s.passes }

// Alpha returns the continuity weight of the i-th point.
func (s *Snake) Alpha(i int) float64 { return s.alpha[i] }

// Beta returns the curvature weight of the i-th point.
func (s *Snake) Beta(i int) float64 { return s.beta[i] }

// Gamma returns the image weight of the i-th point.
func (s *Snake) Gamma(i int) float64 { return s.gamma[i] }

// Betas returns a copy of the curvature weights in visiting order.
func (s *Snake) Betas() []float64 { return slices.Clone(s.beta) }

// Corners returns the indices of points whose curvature weight was
// suppressed, in ascending order.
func (s *Snake) Corners() []int {
	var out []int
	for i, c := range s.corner {
		if c {
			out = append(out, i)
		}
	}
	return out
}

// Step runs one relaxation pass and returns how many points moved.
// An interrupted pass leaves a well-formed, partially relaxed contour.
func (s *Snake) Step() (int, error) {
	if s.contour.Len() == 0 {
		return 0, fmt.Errorf("relaxation pass: %w", contour.ErrEmptyContour)
	}

	changed := 0
	var err error
	s.contour.Each(func(i int, h contour.Handle) {
		if err != nil {
			return
		}
		var moved bool
		moved, err = s.relaxPoint(i, h)
		if moved {
			changed++
		}
	})
	if err != nil {
		return changed, fmt.Errorf("relaxation pass %d: %w", s.passes+1, err)
	}

	found := s.suppressCorners()
	s.passes++

	s.logger.Debug("relaxation pass completed",
		"pass", s.passes,
		"points", s.contour.Len(),
		"changed", changed,
		"new_corners", found,
	)
	return changed, nil
}

// relaxPoint moves the i-th point (at h) to its cheapest candidate.
func (s *Snake) relaxPoint(i int, h contour.Handle) (bool, error) {
	avg, err := s.contour.AverageDistance()
	if err != nil {
		return false, err
	}
	p := s.contour.At(h)
	prev := s.contour.At(s.contour.Prev(h))
	next := s.contour.At(s.contour.Next(h))
	grid := p.Neighborhood(s.field.Height(), s.field.Width(), s.size)

	n := s.size * s.size
	buf := mempool.GetFloat64(3 * n)
	defer mempool.PutFloat64(buf)

	cont := mat.NewDense(s.size, s.size, buf[:n])
	curv := mat.NewDense(s.size, s.size, buf[n:2*n])
	img := mat.NewDense(s.size, s.size, buf[2*n:])
	for r, row := range grid {
		for c, cand := range row {
			cont.Set(r, c, ContinuityEnergy(avg, prev, cand))
			curv.Set(r, c, CurvatureEnergy(prev, cand, next))
			img.Set(r, c, s.ImageEnergy(cand))
		}
	}
	normalizeInPlace(cont)
	normalizeInPlace(curv)
	normalizeInPlace(img)

	var total, term mat.Dense
	total.Scale(s.alpha[i], cont)
	term.Scale(s.beta[i], curv)
	total.Add(&total, &term)
	term.Scale(s.gamma[i], img)
	total.Add(&total, &term)

	best, err := argmin(&total, grid, p)
	if err != nil {
		return false, fmt.Errorf("point %d at %v: %w", i, p, err)
	}
	if best.Equal(p) {
		return false, nil
	}
	s.contour.Update(h, best.X, best.Y)
	return true, nil
}

// argmin returns the candidate with the lowest total. The incumbent wins
// any tie it takes part in; other ties go to the first candidate in
// row-major order.
func argmin(total *mat.Dense, grid [][]contour.Point, incumbent contour.Point) (contour.Point, error) {
	best := grid[0][0]
	bestV := math.Inf(1)
	for r, row := range grid {
		for c, cand := range row {
			v := total.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return contour.Point{}, ErrNonFiniteEnergy
			}
			switch {
			case v < bestV:
				best, bestV = cand, v
			case v == bestV && cand.Equal(incumbent):
				best = cand
			}
		}
	}
	return best, nil
}

// curvature returns the contour-wide normalised curvature in visiting order.
func (s *Snake) curvature() []float64 {
	k := make([]float64, s.contour.Len())
	s.contour.Each(func(i int, h contour.Handle) {
		k[i] = CurvatureEnergy(
			s.contour.At(s.contour.Prev(h)),
			s.contour.At(h),
			s.contour.At(s.contour.Next(h)),
		)
	})
	return NormalizeVector(k)
}

// suppressCorners zeroes beta at every circular strict local maximum of the
// normalised curvature that exceeds the threshold. It returns how many
// points became corners on this call.
func (s *Snake) suppressCorners() int {
	k := s.curvature()
	n := len(k)
	found := 0
	for i := range k {
		left, right := k[(i-1+n)%n], k[(i+1)%n]
		if k[i] <= left || k[i] <= right || k[i] <= s.curvatureThreshold {
			continue
		}
		s.beta[i] = 0
		if !s.corner[i] {
			s.corner[i] = true
			found++
		}
	}
	return found
}
