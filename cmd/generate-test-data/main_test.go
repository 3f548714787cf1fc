package main

import (
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/MeKo-Tech/snake/internal/testutil"
	"github.com/MeKo-Tech/snake/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShapes(t *testing.T) {
	shapes, err := generateShapes(64, 12)
	require.NoError(t, err)
	require.Len(t, shapes, 3)

	for _, s := range shapes {
		assert.Equal(t, 64, s.Image.Bounds().Dx(), s.Name)
		assert.Len(t, s.Init, 12, s.Name)

		r, _, _, _ := s.Image.At(32, 34).RGBA()
		assert.NotZero(t, r, "%s should be filled near the centre", s.Name)
		r, _, _, _ = s.Image.At(1, 1).RGBA()
		assert.Zero(t, r, "%s background should be black", s.Name)
	}

	_, err = generateShapes(8, 12)
	require.Error(t, err)
	_, err = generateShapes(64, 2)
	require.Error(t, err)
}

func TestWriteShapes(t *testing.T) {
	shapes, err := generateShapes(32, 8)
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "shapes")
	require.NoError(t, writeShapes(dir, shapes, false))

	for _, name := range []string{"square", "disc", "triangle"} {
		img, _, err := utils.LoadImage(filepath.Join(dir, name+".png"))
		require.NoError(t, err)
		assert.Equal(t, 32, img.Bounds().Dy())

		pts, err := pipeline.LoadPoints(filepath.Join(dir, name+".yaml"))
		require.NoError(t, err)
		assert.Len(t, pts, 8)
	}
	assert.True(t, testutil.FileExists(filepath.Join(dir, "disc.png")))
}
