package energy

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/MeKo-Tech/snake/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFromRows(t *testing.T) {
	f, err := FromRows([][]float64{
		{1, 2, 3},
		{4, 5, 6},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, f.Height())
	assert.Equal(t, 3, f.Width())
	// At takes (x, y) and reads row y, column x.
	assert.InDelta(t, 3.0, f.At(2, 0), 0)
	assert.InDelta(t, 4.0, f.At(0, 1), 0)
	assert.True(t, f.Contains(2, 1))
	assert.False(t, f.Contains(3, 1))
	assert.False(t, f.Contains(0, 2))
	assert.False(t, f.Contains(-1, 0))
}

func TestFromRows_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		rows    [][]float64
		wantErr error
	}{
		{name: "no rows", rows: nil, wantErr: ErrEmptyField},
		{name: "no columns", rows: [][]float64{{}}, wantErr: ErrEmptyField},
		{name: "NaN", rows: [][]float64{{0, math.NaN()}}, wantErr: ErrNonFinite},
		{name: "Inf", rows: [][]float64{{math.Inf(-1)}}, wantErr: ErrNonFinite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromRows(tt.rows)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("ragged rows", func(t *testing.T) {
		_, err := FromRows([][]float64{{1, 2}, {3}})
		require.Error(t, err)
	})
}

func TestNewField_Nil(t *testing.T) {
	_, err := NewField(nil)
	require.ErrorIs(t, err, ErrEmptyField)

	_, err = NewField(&mat.Dense{})
	require.ErrorIs(t, err, ErrEmptyField)
}

func TestUniform(t *testing.T) {
	f, err := Uniform(4, 6, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Height())
	assert.Equal(t, 6, f.Width())
	assert.InDelta(t, 7.0, f.At(5, 3), 0)

	_, err = Uniform(0, 3, 1)
	require.ErrorIs(t, err, ErrEmptyField)
}

func TestField_Image(t *testing.T) {
	f, err := FromRows([][]float64{{-1, 1}})
	require.NoError(t, err)

	img := f.Image()
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), img.GrayAt(1, 0).Y)

	flat, err := Uniform(2, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), flat.Image().GrayAt(1, 1).Y)
}

// squareImage draws a filled white square on black.
func squareImage(size, lo, hi int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := lo; y < hi; y++ {
		for x := lo; x < hi; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func TestPrepare_EdgesAreBright(t *testing.T) {
	img := squareImage(40, 10, 30)
	f, err := Prepare(img, DefaultPrepareOptions())
	require.NoError(t, err)

	assert.Equal(t, 40, f.Height())
	assert.Equal(t, 40, f.Width())
	assert.InDelta(t, 255.0, f.At(10, 20), 0, "left edge of the square")
	assert.InDelta(t, 0.0, f.At(20, 20), 0, "square interior")
	assert.InDelta(t, 0.0, f.At(2, 2), 0, "background")
}

func TestPrepare_InvertMakesEdgesDark(t *testing.T) {
	img := squareImage(40, 10, 30)
	opts := DefaultPrepareOptions()
	opts.Invert = true
	f, err := Prepare(img, opts)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, f.At(10, 20), 0)
	assert.InDelta(t, 255.0, f.At(20, 20), 0)
}

func TestPrepare_NoThresholdKeepsGradient(t *testing.T) {
	img := squareImage(20, 5, 15)
	f, err := Prepare(img, PrepareOptions{})
	require.NoError(t, err)

	assert.Greater(t, f.At(5, 10), 0.0)
	assert.InDelta(t, 0.0, f.At(10, 10), 0)
}

func TestPrepare_NilImage(t *testing.T) {
	_, err := Prepare(nil, DefaultPrepareOptions())
	require.Error(t, err)

	var ipe *utils.ImageProcessingError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, "prepare", ipe.Operation)
}

func TestOtsu(t *testing.T) {
	t.Run("bimodal histogram splits the modes", func(t *testing.T) {
		var hist [256]int
		hist[20] = 100
		hist[200] = 100
		th := Otsu(hist)
		assert.GreaterOrEqual(t, th, uint8(20))
		assert.Less(t, th, uint8(200))
	})

	t.Run("empty histogram", func(t *testing.T) {
		var hist [256]int
		assert.Equal(t, uint8(0), Otsu(hist))
	})

	t.Run("single value", func(t *testing.T) {
		var hist [256]int
		hist[128] = 50
		assert.Equal(t, uint8(0), Otsu(hist))
	})
}
