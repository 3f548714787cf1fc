package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// PointsFile mirrors the on-disk layout of an initial contour file.
type PointsFile struct {
	Points [][2]int `json:"points" yaml:"points"`
}

// SquareContour returns the initial points used with DefaultSquareImage:
// a loose ring just outside the square, clockwise from the top-left.
func SquareContour() []contour.Point {
	return []contour.Point{
		{X: 12, Y: 12}, {X: 32, Y: 11}, {X: 52, Y: 12},
		{X: 53, Y: 32}, {X: 52, Y: 52}, {X: 32, Y: 53},
		{X: 12, Y: 52}, {X: 11, Y: 32},
	}
}

// WritePointsFile stores pts under dir/name. The encoding follows the file
// extension: .json for JSON, anything else for YAML.
func WritePointsFile(t *testing.T, dir, name string, pts []contour.Point) string {
	t.Helper()

	pf := PointsFile{Points: make([][2]int, len(pts))}
	for i, p := range pts {
		pf.Points[i] = [2]int{p.X, p.Y}
	}

	var (
		data []byte
		err  error
	)
	if filepath.Ext(name) == ".json" {
		data, err = json.MarshalIndent(pf, "", "  ")
	} else {
		data, err = yaml.Marshal(pf)
	}
	require.NoError(t, err, "Failed to marshal points")

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600), "Failed to write points file: %s", path)
	return path
}
