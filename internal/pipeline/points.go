package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/snake/internal/contour"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPoints is wrapped by every point parsing failure.
var ErrInvalidPoints = errors.New("invalid points")

// ParsePoints parses "x,y;x,y;..." into points. Whitespace and a trailing
// separator are ignored; an empty string yields no points.
func ParsePoints(s string) ([]contour.Point, error) {
	var pts []contour.Point
	for i, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		xs, ys, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("%w: pair %d %q is not x,y", ErrInvalidPoints, i+1, pair)
		}
		x, err := strconv.Atoi(strings.TrimSpace(xs))
		if err != nil {
			return nil, fmt.Errorf("%w: pair %d x: %v", ErrInvalidPoints, i+1, err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(ys))
		if err != nil {
			return nil, fmt.Errorf("%w: pair %d y: %v", ErrInvalidPoints, i+1, err)
		}
		pts = append(pts, contour.Pt(x, y))
	}
	return pts, nil
}

// FormatPoints is the inverse of ParsePoints.
func FormatPoints(pts []contour.Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = strconv.Itoa(p.X) + "," + strconv.Itoa(p.Y)
	}
	return strings.Join(parts, ";")
}

type pointsFile struct {
	Points [][]int `json:"points" yaml:"points"`
}

// LoadPoints reads an initial contour from a file holding
// "points: [[x, y], ...]". Files ending in .json are decoded as JSON,
// everything else as YAML.
func LoadPoints(path string) ([]contour.Point, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Reading user-provided points file is expected
	if err != nil {
		return nil, fmt.Errorf("read points file: %w", err)
	}
	var pf pointsFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &pf)
	} else {
		err = yaml.Unmarshal(data, &pf)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidPoints, path, err)
	}
	pts := make([]contour.Point, len(pf.Points))
	for i, pair := range pf.Points {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: entry %d has %d coordinates", ErrInvalidPoints, i+1, len(pair))
		}
		pts[i] = contour.Pt(pair[0], pair[1])
	}
	return pts, nil
}

// Ellipse samples n points on the ellipse centred at (cx, cy) with radii
// rx and ry, rounded to the pixel grid. Points that round onto their
// predecessor are dropped.
func Ellipse(cx, cy, rx, ry float64, n int) []contour.Point {
	if n < 1 {
		return nil
	}
	pts := make([]contour.Point, 0, n)
	for i := range n {
		theta := 2 * math.Pi * float64(i) / float64(n)
		p := contour.Pt(
			int(math.Round(cx+rx*math.Cos(theta))),
			int(math.Round(cy+ry*math.Sin(theta))),
		)
		if len(pts) > 0 && pts[len(pts)-1].Equal(p) {
			continue
		}
		pts = append(pts, p)
	}
	if len(pts) > 1 && pts[0].Equal(pts[len(pts)-1]) {
		pts = pts[:len(pts)-1]
	}
	return pts
}

// DefaultEllipse is the seed contour for a height×width field: n points on
// an ellipse centred in the field reaching 80% of each dimension.
func DefaultEllipse(height, width, n int) []contour.Point {
	cx := float64(width-1) / 2
	cy := float64(height-1) / 2
	return Ellipse(cx, cy, 0.4*float64(width), 0.4*float64(height), n)
}
