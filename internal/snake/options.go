package snake

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidOptions is wrapped by every Options validation failure.
var ErrInvalidOptions = errors.New("invalid snake options")

const (
	// DefaultCurvatureThreshold is the normalised curvature above which a
	// local maximum is treated as a corner.
	DefaultCurvatureThreshold = 0.01
	// DefaultNeighborhoodSize is the side length of the candidate window.
	DefaultNeighborhoodSize = 5
)

// Options configures a Snake. Alpha, Beta and Gamma are broadcast to every
// point at construction time.
type Options struct {
	// Alpha weights the continuity (even spacing) term.
	Alpha float64 `json:"alpha" yaml:"alpha"`
	// Beta weights the curvature term. Corner suppression zeroes it per point.
	Beta float64 `json:"beta" yaml:"beta"`
	// Gamma weights the image attraction term.
	Gamma float64 `json:"gamma" yaml:"gamma"`
	// CurvatureThreshold is the corner detection sensitivity in [0, 1].
	CurvatureThreshold float64 `json:"curvature_threshold" yaml:"curvature_threshold"`
	// NeighborhoodSize is the odd side length of the candidate search window.
	NeighborhoodSize int `json:"neighborhood_size" yaml:"neighborhood_size"`
}

// DefaultOptions returns the weights used by the reference demo.
func DefaultOptions() Options {
	return Options{
		Alpha:              1,
		Beta:               1,
		Gamma:              1.2,
		CurvatureThreshold: DefaultCurvatureThreshold,
		NeighborhoodSize:   DefaultNeighborhoodSize,
	}
}

// Validate checks that weights are finite and non-negative and that the
// neighborhood size is a positive odd number.
func (o Options) Validate() error {
	weights := []struct {
		name string
		v    float64
	}{
		{"alpha", o.Alpha},
		{"beta", o.Beta},
		{"gamma", o.Gamma},
	}
	for _, w := range weights {
		if math.IsNaN(w.v) || math.IsInf(w.v, 0) || w.v < 0 {
			return fmt.Errorf("%w: %s must be a finite non-negative number, got %v", ErrInvalidOptions, w.name, w.v)
		}
	}
	if math.IsNaN(o.CurvatureThreshold) || math.IsInf(o.CurvatureThreshold, 0) {
		return fmt.Errorf("%w: curvature threshold must be finite, got %v", ErrInvalidOptions, o.CurvatureThreshold)
	}
	if o.NeighborhoodSize < 1 || o.NeighborhoodSize%2 == 0 {
		return fmt.Errorf("%w: neighborhood size must be a positive odd number, got %d", ErrInvalidOptions, o.NeighborhoodSize)
	}
	return nil
}
