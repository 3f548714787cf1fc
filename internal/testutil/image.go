package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/snake/internal/energy"
	"github.com/stretchr/testify/require"
)

// SquareImage returns a w×h image with a filled fg square spanning rect on
// a bg background. Its outline is the canonical target for relaxation tests.
func SquareImage(w, h int, rect image.Rectangle, bg, fg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(img, rect, image.NewUniform(fg), image.Point{}, draw.Src)
	return img
}

// DefaultSquareImage is a 64×64 white square on black spanning 16..48.
func DefaultSquareImage() *image.RGBA {
	return SquareImage(64, 64, image.Rect(16, 16, 48, 48), color.Black, color.White)
}

// FlatField returns a height×width field filled with v.
func FlatField(t *testing.T, height, width int, v float64) *energy.Field {
	t.Helper()
	f, err := energy.Uniform(height, width, v)
	require.NoError(t, err)
	return f
}

// VerticalLineField returns a height×width field that is 255 on column x
// and 0 elsewhere.
func VerticalLineField(t *testing.T, height, width, x int) *energy.Field {
	t.Helper()
	rows := make([][]float64, height)
	for y := range rows {
		rows[y] = make([]float64, width)
		rows[y][x] = 255
	}
	f, err := energy.FromRows(rows)
	require.NoError(t, err)
	return f
}

// WritePNG encodes img into dir/name and returns the full path.
func WritePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)
	path := filepath.Join(dir, name)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
	return path
}

// EncodePNG returns img encoded as PNG bytes.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	path := WritePNG(t, t.TempDir(), "img.png", img)
	data, err := os.ReadFile(path) //nolint:gosec // G304: Reading back a file this helper just wrote
	require.NoError(t, err)
	return data
}

// CompareImages compares two images and returns true if they are similar.
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	bounds1 := img1.Bounds()
	bounds2 := img2.Bounds()

	if bounds1 != bounds2 {
		return false
	}

	var totalDiff float64
	var pixelCount float64

	for y := bounds1.Min.Y; y < bounds1.Max.Y; y++ {
		for x := bounds1.Min.X; x < bounds1.Max.X; x++ {
			r1, g1, b1, a1 := img1.At(x, y).RGBA()
			r2, g2, b2, a2 := img2.At(x, y).RGBA()

			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(b1) - float64(b2)
			da := float64(a1) - float64(a2)

			totalDiff += math.Sqrt(dr*dr + dg*dg + db*db + da*da)
			pixelCount++
		}
	}
	if pixelCount == 0 {
		return true
	}

	avgDiff := totalDiff / pixelCount
	maxDiff := math.Sqrt(4 * 65535 * 65535)

	return (avgDiff / maxDiff) <= tolerance
}
