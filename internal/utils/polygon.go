package utils

import (
	"image"
	"math"
)

// PolygonArea returns the unsigned area enclosed by the closed polygon pts
// (shoelace formula). Fewer than three points enclose nothing.
func PolygonArea(pts []image.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	sum := 0
	for i, a := range pts {
		b := pts[(i+1)%len(pts)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(float64(sum)) / 2
}

// PolygonPerimeter returns the length of the closed polyline through pts.
func PolygonPerimeter(pts []image.Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	total := 0.0
	for i, a := range pts {
		b := pts[(i+1)%len(pts)]
		dx, dy := b.X-a.X, b.Y-a.Y
		total += math.Sqrt(float64(dx*dx + dy*dy))
	}
	return total
}

// BoundingRect returns the smallest rectangle containing every point. The
// rectangle is inclusive of its maximum, so Max is one past the extreme.
func BoundingRect(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}
