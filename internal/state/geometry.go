package state

import (
	"image"
	"math"
)

// Rect is an axis-aligned rectangle in map-local space. X, Y is the
// bottom-left corner.
type Rect struct {
	X, Y float64
	W, H float64
}

// RectFromCorners returns the bounding box of two corners in any order.
func RectFromCorners(a, b Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}

// Empty reports whether the rectangle covers no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W &&
		p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Union returns the smallest rectangle containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Inset grows the rectangle by pad on every side.
func (r Rect) Inset(pad float64) Rect {
	return Rect{X: r.X - pad, Y: r.Y - pad, W: r.W + 2*pad, H: r.H + 2*pad}
}

// Pixels converts the rectangle to the covering pixel rectangle of an image
// that is height pixels tall. Image rows grow downwards.
func (r Rect) Pixels(height int) image.Rectangle {
	h := float64(height)
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(h-(r.Y+r.H))),
		int(math.Ceil(r.X+r.W)),
		int(math.Ceil(h-r.Y)),
	)
}

// boundsOf returns the bounding box of points padded by pad.
func boundsOf(points []Point, pad float64) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := points[0].X, points[0].Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}.Inset(pad)
}

// ToImage converts a map-local point to image coordinates.
func ToImage(p Point, height int) (x, y float64) {
	return p.X, float64(height) - p.Y
}

// FromImage converts image coordinates to a map-local point.
func FromImage(x, y float64, height int) Point {
	return Point{X: x, Y: float64(height) - y}
}
