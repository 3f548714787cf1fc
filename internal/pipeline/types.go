package pipeline

import (
	"time"

	"github.com/MeKo-Tech/snake/internal/contour"
)

// PassEvent describes one completed relaxation pass.
type PassEvent struct {
	Pass     int             `json:"pass"`
	Changed  int             `json:"changed"`
	Points   []contour.Point `json:"points"`
	Corners  []int           `json:"corners"`
	Duration time.Duration   `json:"duration_ns"`
}

// Box is an axis-aligned pixel rectangle.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result is the outcome of relaxing one contour over one image.
type Result struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	Passes    int  `json:"passes"`
	Converged bool `json:"converged"`

	Initial []contour.Point `json:"initial"`
	Points  []contour.Point `json:"points"`
	Corners []int           `json:"corners"`
	Betas   []float64       `json:"betas"`
	Changed []int           `json:"changed_per_pass"`

	Area            float64 `json:"area"`
	Perimeter       float64 `json:"perimeter"`
	AverageDistance float64 `json:"average_distance"`
	Bounds          Box     `json:"bounds"`

	Processing struct {
		PrepareNs int64   `json:"prepare_ns"`
		RelaxNs   int64   `json:"relax_ns"`
		TotalNs   int64   `json:"total_ns"`
		PassNs    []int64 `json:"pass_ns"`
	} `json:"processing"`
}

// IsCorner reports whether the i-th point was marked as a corner.
func (r *Result) IsCorner(i int) bool {
	for _, c := range r.Corners {
		if c == i {
			return true
		}
	}
	return false
}
