// Package energy holds the scalar attraction field a snake is pulled by, and
// the preprocessing that derives such a field from a raster image.
package energy

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptyField is returned for fields without rows or columns.
	ErrEmptyField = errors.New("energy field is empty")
	// ErrNonFinite is returned when a field contains NaN or infinite values.
	ErrNonFinite = errors.New("energy field contains non-finite values")
)

// Field is a read-only height×width scalar field. Rows are indexed by y and
// columns by x, so At(x, y) reads field[y][x].
type Field struct {
	m *mat.Dense
}

// NewField wraps m after checking every entry is finite.
// The field keeps m; callers must not modify it afterwards.
func NewField(m *mat.Dense) (*Field, error) {
	if m == nil || m.IsEmpty() {
		return nil, ErrEmptyField
	}
	r, c := m.Dims()
	for y := range r {
		for x := range c {
			v := m.At(y, x)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: value %v at x=%d y=%d", ErrNonFinite, v, x, y)
			}
		}
	}
	return &Field{m: m}, nil
}

// FromRows builds a field from row slices of equal length.
func FromRows(rows [][]float64) (*Field, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyField
	}
	w := len(rows[0])
	data := make([]float64, 0, len(rows)*w)
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("row %d has %d columns, want %d", y, len(row), w)
		}
		data = append(data, row...)
	}
	return NewField(mat.NewDense(len(rows), w, data))
}

// Uniform returns a height×width field with every entry set to v.
func Uniform(height, width int, v float64) (*Field, error) {
	if height <= 0 || width <= 0 {
		return nil, ErrEmptyField
	}
	data := make([]float64, height*width)
	for i := range data {
		data[i] = v
	}
	return NewField(mat.NewDense(height, width, data))
}

// Height returns the number of rows.
func (f *Field) Height() int {
	r, _ := f.m.Dims()
	return r
}

// Width returns the number of columns.
func (f *Field) Width() int {
	_, c := f.m.Dims()
	return c
}

// Contains reports whether (x, y) lies inside the field.
func (f *Field) Contains(x, y int) bool {
	r, c := f.m.Dims()
	return x >= 0 && y >= 0 && x < c && y < r
}

// At returns the value at column x, row y. It panics when out of range.
func (f *Field) At(x, y int) float64 {
	return f.m.At(y, x)
}

// Matrix returns a read-only view of the underlying values.
func (f *Field) Matrix() mat.Matrix {
	return f.m
}

// Image renders the field as grayscale, stretching [min, max] to [0, 255].
func (f *Field) Image() *image.Gray {
	r, c := f.m.Dims()
	lo, hi := mat.Min(f.m), mat.Max(f.m)
	img := image.NewGray(image.Rect(0, 0, c, r))
	for y := range r {
		for x := range c {
			var v uint8
			if hi > lo {
				v = uint8(math.Round((f.m.At(y, x) - lo) / (hi - lo) * 255))
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}
