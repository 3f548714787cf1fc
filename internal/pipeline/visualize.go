package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/MeKo-Tech/snake/internal/utils"
)

// Style controls how RenderOverlay draws a contour.
type Style struct {
	PointColor  color.Color
	LineColor   color.Color
	CornerColor color.Color
	Radius      int
	Thickness   int
	// Label is drawn in the top-left corner when non-empty.
	Label string
}

// DefaultStyle draws green point circles of radius 5 joined by a red line.
func DefaultStyle() Style {
	return Style{
		PointColor:  color.RGBA{G: 255, A: 255},
		LineColor:   color.RGBA{R: 255, A: 255},
		CornerColor: color.RGBA{R: 255, G: 255, A: 255},
		Radius:      5,
		Thickness:   1,
	}
}

// RenderOverlay draws the closed contour through pts over an RGBA copy of
// img. Points listed in corners are drawn in the corner color.
func RenderOverlay(img image.Image, pts []contour.Point, corners []int, style Style) *image.RGBA {
	if img == nil {
		return nil
	}
	dst := utils.ToRGBA(img)

	ip := toImagePoints(pts)
	utils.DrawPolygon(dst, ip, style.LineColor, style.Thickness)

	isCorner := make(map[int]bool, len(corners))
	for _, c := range corners {
		isCorner[c] = true
	}
	for i, p := range ip {
		col := style.PointColor
		if isCorner[i] && style.CornerColor != nil {
			col = style.CornerColor
		}
		utils.DrawCircle(dst, p, style.Radius, col, style.Thickness)
	}

	if style.Label != "" {
		utils.DrawLabel(dst, image.Pt(4, 14), style.Label, style.LineColor)
	}
	return dst
}

// RenderResult draws res over img with a pass-count label.
func RenderResult(img image.Image, res *Result, style Style) *image.RGBA {
	if res == nil {
		return RenderOverlay(img, nil, nil, style)
	}
	if style.Label == "" {
		style.Label = fmt.Sprintf("pass %d", res.Passes)
	}
	return RenderOverlay(img, res.Points, res.Corners, style)
}

// ParseColor accepts a named color (red, green, blue, yellow, white, black)
// or a hex triplet such as "#00ff00".
func ParseColor(s string) (color.Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return color.RGBA{R: 255, A: 255}, nil
	case "green":
		return color.RGBA{G: 255, A: 255}, nil
	case "blue":
		return color.RGBA{B: 255, A: 255}, nil
	case "yellow":
		return color.RGBA{R: 255, G: 255, A: 255}, nil
	case "white":
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}, nil
	case "black":
		return color.RGBA{A: 255}, nil
	}
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return nil, errors.New("color must be a name or #rrggbb, got " + strconv.Quote(s))
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("parse color %q: %w", s, err)
	}
	//nolint:gosec // G115: each channel is masked to 8 bits
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8 & 0xff), B: uint8(v & 0xff), A: 255}, nil
}
