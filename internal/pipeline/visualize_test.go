package pipeline

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOverlay(t *testing.T) {
	bg := image.NewGray(image.Rect(0, 0, 60, 60))
	pts := []contour.Point{{10, 10}, {50, 10}, {50, 50}, {10, 50}}
	style := DefaultStyle()

	out := RenderOverlay(bg, pts, []int{2}, style)
	require.NotNil(t, out)
	assert.Equal(t, bg.Bounds(), out.Bounds())

	green := color.RGBA{G: 255, A: 255}
	red := color.RGBA{R: 255, A: 255}
	yellow := color.RGBA{R: 255, G: 255, A: 255}

	// Circles of radius 5 around points, drawn after the line.
	assert.Equal(t, green, out.RGBAAt(15, 10))
	assert.Equal(t, yellow, out.RGBAAt(55, 50), "corner point uses corner color")
	// Line segment between the first two points.
	assert.Equal(t, red, out.RGBAAt(30, 10))
	// Closing segment back to the start.
	assert.Equal(t, red, out.RGBAAt(10, 30))
	// Untouched background.
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(30, 30))
}

func TestRenderOverlay_NilImage(t *testing.T) {
	assert.Nil(t, RenderOverlay(nil, nil, nil, DefaultStyle()))
}

func TestRenderResult_Label(t *testing.T) {
	bg := image.NewGray(image.Rect(0, 0, 80, 30))
	res := &Result{Passes: 7}

	out := RenderResult(bg, res, DefaultStyle())
	painted := 0
	for y := range 20 {
		for x := range 60 {
			if out.RGBAAt(x, y).R > 0 {
				painted++
			}
		}
	}
	assert.Positive(t, painted, "label pixels")

	assert.NotNil(t, RenderResult(bg, nil, DefaultStyle()))
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.Color
	}{
		{"red", color.RGBA{R: 255, A: 255}},
		{"Green", color.RGBA{G: 255, A: 255}},
		{"#0080ff", color.RGBA{R: 0, G: 0x80, B: 0xff, A: 255}},
		{"102030", color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "#fff", "#zzzzzz", "purple"} {
		_, err := ParseColor(bad)
		require.Error(t, err, bad)
	}
}
