package contour

import (
	"fmt"
	"math"
)

// Point is a grid-aligned pixel coordinate. X is the column, Y is the row.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Pt returns the point (x, y).
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Equal reports whether p and o share the same coordinates.
func (p Point) Equal(o Point) bool {
	return p.X == o.X && p.Y == o.Y
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Distance returns the Euclidean distance between a and b. The squared
// distance is summed in integers so equal distances compare equal exactly.
func Distance(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(float64(dx*dx + dy*dy))
}

// Neighborhood returns the size×size grid of candidate positions around p.
// Row r and column c hold the offset (dx, dy) = (c-size/2, r-size/2), so the
// grid scans in the same row-major order as the image. Each coordinate is
// clamped on its own axis: Y into [0, maxHeight-1], X into [0, maxWidth-1].
// Clamping can therefore yield duplicate candidates near the border.
func (p Point) Neighborhood(maxHeight, maxWidth, size int) [][]Point {
	if size < 1 {
		return nil
	}
	half := size / 2
	grid := make([][]Point, size)
	for r := range size {
		row := make([]Point, size)
		for c := range size {
			row[c] = Point{
				X: clampInt(p.X+c-half, 0, maxWidth-1),
				Y: clampInt(p.Y+r-half, 0, maxHeight-1),
			}
		}
		grid[r] = row
	}
	return grid
}

// Clamp returns p with each coordinate limited to a height×width grid.
func (p Point) Clamp(height, width int) Point {
	return Point{X: clampInt(p.X, 0, width-1), Y: clampInt(p.Y, 0, height-1)}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
