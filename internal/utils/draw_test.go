package utils

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

var red = color.RGBA{R: 255, A: 255}

func isRed(img *image.RGBA, x, y int) bool {
	return img.RGBAAt(x, y) == red
}

func TestDrawPolygon(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	DrawPolygon(img, []image.Point{{2, 2}, {12, 2}, {12, 12}}, red, 1)

	assert.True(t, isRed(img, 2, 2))
	assert.True(t, isRed(img, 7, 2), "top edge")
	assert.True(t, isRed(img, 12, 7), "right edge")
	assert.True(t, isRed(img, 7, 7), "closing diagonal")
	assert.False(t, isRed(img, 10, 5), "interior stays empty")
}

func TestDrawPolygon_TooFewPoints(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 5, 5))
	DrawPolygon(img, []image.Point{{1, 1}}, red, 1)
	assert.False(t, isRed(img, 1, 1))
}

func TestDrawCircle(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 21, 21))
	DrawCircle(img, image.Pt(10, 10), 5, red, 1)

	for _, p := range []image.Point{{15, 10}, {5, 10}, {10, 15}, {10, 5}} {
		assert.True(t, isRed(img, p.X, p.Y), "cardinal point %v", p)
	}
	assert.False(t, isRed(img, 10, 10), "centre stays empty")
}

func TestDrawCircle_ClipsAtBorder(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	assert.NotPanics(t, func() { DrawCircle(img, image.Pt(0, 0), 5, red, 3) })
}

func TestDrawLabel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 60, 20))
	DrawLabel(img, image.Pt(2, 14), "pass 3", red)

	painted := 0
	for y := range 20 {
		for x := range 60 {
			if img.RGBAAt(x, y).R > 0 {
				painted++
			}
		}
	}
	assert.Positive(t, painted)
}

func TestToRGBA(t *testing.T) {
	src := image.NewGray(image.Rect(5, 5, 15, 10))
	src.SetGray(5, 5, color.Gray{Y: 200})

	dst := ToRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 10, 5), dst.Bounds())
	assert.Equal(t, color.RGBA{R: 200, G: 200, B: 200, A: 255}, dst.RGBAAt(0, 0))
}

func TestPolygonMeasures(t *testing.T) {
	square := []image.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.InDelta(t, 100.0, PolygonArea(square), 0)
	assert.InDelta(t, 40.0, PolygonPerimeter(square), 0)
	assert.Equal(t, image.Rect(0, 0, 11, 11), BoundingRect(square))

	// Orientation does not matter.
	reversed := []image.Point{{0, 10}, {10, 10}, {10, 0}, {0, 0}}
	assert.InDelta(t, 100.0, PolygonArea(reversed), 0)

	assert.Zero(t, PolygonArea(square[:2]))
	assert.InDelta(t, 20.0, PolygonPerimeter(square[:2]), 0)
	assert.Zero(t, PolygonPerimeter(square[:1]))
	assert.Equal(t, image.Rectangle{}, BoundingRect(nil))
}
