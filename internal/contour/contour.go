// Package contour implements a closed contour as a circular doubly linked
// sequence of points.
//
// Links are integer offsets into a backing slice owned by the Contour, so
// navigation stays O(1) in both directions without pointer cycles. Points are
// mutated in place; links are only ever changed by AddPoint.
package contour

import (
	"errors"
)

// ErrEmptyContour is returned by operations that need at least one point.
var ErrEmptyContour = errors.New("contour has no points")

// Handle addresses a point inside its Contour.
type Handle int

// NoHandle is returned by Start and End on an empty contour.
const NoHandle Handle = -1

type node struct {
	pt   Point
	next Handle
	prev Handle
}

// Contour is a closed, ordered sequence of points.
// The zero value is an empty contour ready to use.
type Contour struct {
	nodes []node
	start Handle
	end   Handle
}

// New returns an empty contour.
func New() *Contour {
	return &Contour{start: NoHandle, end: NoHandle}
}

// FromSequence builds a contour by appending pts in order.
func FromSequence(pts []Point) *Contour {
	c := &Contour{start: NoHandle, end: NoHandle, nodes: make([]node, 0, len(pts))}
	for _, p := range pts {
		c.AddPoint(p.X, p.Y)
	}
	return c
}

// AddPoint appends (x, y) immediately before Start, making it the new End.
func (c *Contour) AddPoint(x, y int) Handle {
	h := Handle(len(c.nodes))
	if len(c.nodes) == 0 {
		c.nodes = append(c.nodes, node{pt: Point{X: x, Y: y}, next: h, prev: h})
		c.start, c.end = h, h
		return h
	}
	c.nodes = append(c.nodes, node{pt: Point{X: x, Y: y}, next: c.start, prev: c.end})
	c.nodes[c.end].next = h
	c.nodes[c.start].prev = h
	c.end = h
	return h
}

// Len returns the number of points.
func (c *Contour) Len() int {
	return len(c.nodes)
}

// Start returns the first point, or NoHandle when the contour is empty.
func (c *Contour) Start() Handle {
	if len(c.nodes) == 0 {
		return NoHandle
	}
	return c.start
}

// End returns the last point, or NoHandle when the contour is empty.
func (c *Contour) End() Handle {
	if len(c.nodes) == 0 {
		return NoHandle
	}
	return c.end
}

// Next returns the successor of h.
func (c *Contour) Next(h Handle) Handle {
	return c.nodes[h].next
}

// Prev returns the predecessor of h.
func (c *Contour) Prev(h Handle) Handle {
	return c.nodes[h].prev
}

// At returns the coordinates stored at h.
func (c *Contour) At(h Handle) Point {
	return c.nodes[h].pt
}

// Update moves the point at h to (x, y). Links are left untouched.
func (c *Contour) Update(h Handle, x, y int) {
	c.nodes[h].pt = Point{X: x, Y: y}
}

// Each visits every point once, starting at Start and following Next.
// i is the visiting position, which indexes per-point arrays.
func (c *Contour) Each(fn func(i int, h Handle)) {
	h := c.Start()
	for i := range len(c.nodes) {
		fn(i, h)
		h = c.nodes[h].next
	}
}

// AverageDistance returns the mean distance between each point and its
// predecessor, including the closing edge from End back to Start.
func (c *Contour) AverageDistance() (float64, error) {
	if len(c.nodes) == 0 {
		return 0, ErrEmptyContour
	}
	var total float64
	c.Each(func(_ int, h Handle) {
		total += Distance(c.nodes[c.nodes[h].prev].pt, c.nodes[h].pt)
	})
	return total / float64(len(c.nodes)), nil
}

// Sequence returns a snapshot of the coordinates starting at Start.
func (c *Contour) Sequence() []Point {
	out := make([]Point, 0, len(c.nodes))
	c.Each(func(_ int, h Handle) {
		out = append(out, c.nodes[h].pt)
	})
	return out
}

// Polygon returns the coordinates shaped n×1×2, the layout polygon
// renderers expect for a closed polyline.
func (c *Contour) Polygon() [][1][2]int {
	out := make([][1][2]int, 0, len(c.nodes))
	c.Each(func(_ int, h Handle) {
		p := c.nodes[h].pt
		out = append(out, [1][2]int{{p.X, p.Y}})
	})
	return out
}

// Clone returns an independent copy of c.
func (c *Contour) Clone() *Contour {
	out := &Contour{start: c.start, end: c.end, nodes: make([]node, len(c.nodes))}
	copy(out.nodes, c.nodes)
	if len(out.nodes) == 0 {
		out.start, out.end = NoHandle, NoHandle
	}
	return out
}
