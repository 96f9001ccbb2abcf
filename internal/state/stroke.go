package state

import (
	"image"
	"image/draw"

	"github.com/gogpu/gg"
)

// Shape selects which variant a Stroke holds.
type Shape int

const (
	ShapePaint Shape = iota
	ShapeArea
	ShapeBaked
)

func (s Shape) String() string {
	switch s {
	case ShapePaint:
		return "paint"
	case ShapeArea:
		return "area"
	case ShapeBaked:
		return "baked"
	}
	return "unknown"
}

// Stroke records one gesture. It is a tagged union: Shape says which of the
// field groups below is live.
//
// A paint stroke is a set of disc centres of a fixed radius. An area stroke
// is the rectangle spanned by its start and end corners. A baked stroke wraps
// a flattened mask bitmap whose alpha channel is the fog.
type Stroke struct {
	Shape Shape
	Kind  Kind

	started bool

	// paint
	radius float64
	anchor *Point
	last   *Point
	points []Point
	seen   map[Point]struct{}

	// area
	start *Point
	end   *Point

	// baked, never mutated after construction
	bitmap *image.NRGBA
}

// NewPaintStroke returns an empty disc-stamp stroke.
func NewPaintStroke(kind Kind, radius float64) *Stroke {
	if radius <= 0 {
		radius = DefaultRadius
	}
	return &Stroke{
		Shape:  ShapePaint,
		Kind:   kind,
		radius: radius,
		seen:   make(map[Point]struct{}),
	}
}

// NewAreaStroke returns an empty rectangle stroke.
func NewAreaStroke(kind Kind) *Stroke {
	return &Stroke{Shape: ShapeArea, Kind: kind}
}

// NewBakedStroke wraps a mask bitmap. The bitmap is copied.
func NewBakedStroke(img image.Image) *Stroke {
	return &Stroke{Shape: ShapeBaked, Kind: Reveal, started: true, bitmap: cloneNRGBA(img)}
}

func newStroke(tool Tool, kind Kind, radius float64) *Stroke {
	if tool == ToolArea {
		return NewAreaStroke(kind)
	}
	return NewPaintStroke(kind, radius)
}

// Start handles pointer-down. A paint stroke only remembers the cursor; a
// tap alone reveals nothing.
func (s *Stroke) Start(p Point) {
	switch s.Shape {
	case ShapePaint:
		s.started = true
		s.anchor = &p
		s.last = &p
	case ShapeArea:
		s.started = true
		s.start = &p
	case ShapeBaked:
	}
}

// Move handles pointer-drag. The first move of a paint stroke also stamps
// the point where the gesture started.
func (s *Stroke) Move(p Point) {
	switch s.Shape {
	case ShapePaint:
		if s.anchor != nil {
			s.insert(*s.anchor)
			s.anchor = nil
		}
		s.last = &p
		s.insert(p)
	case ShapeArea:
		s.end = &p
	case ShapeBaked:
	}
}

// Finish handles pointer-up and reports whether the stroke has visible
// geometry.
func (s *Stroke) Finish(p Point) bool {
	switch s.Shape {
	case ShapePaint:
		s.last = nil
		s.anchor = nil
		return len(s.points) > 0
	case ShapeArea:
		s.end = &p
		r, ok := s.Rect()
		return ok && !r.Empty()
	case ShapeBaked:
		return true
	}
	return false
}

func (s *Stroke) insert(p Point) {
	if _, ok := s.seen[p]; ok {
		return
	}
	s.seen[p] = struct{}{}
	s.points = append(s.points, p)
}

// Started reports whether Start has been called.
func (s *Stroke) Started() bool { return s.started }

// Points returns the disc centres of a paint stroke in insertion order.
func (s *Stroke) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// LastPoint returns the live cursor of an in-progress paint stroke.
func (s *Stroke) LastPoint() (Point, bool) {
	if s.last == nil {
		return Point{}, false
	}
	return *s.last, true
}

// Rect returns the rectangle of an area stroke once both corners are known.
func (s *Stroke) Rect() (Rect, bool) {
	if s.Shape != ShapeArea || s.start == nil || s.end == nil {
		return Rect{}, false
	}
	return RectFromCorners(*s.start, *s.end), true
}

// Bitmap returns the wrapped mask of a baked stroke.
func (s *Stroke) Bitmap() image.Image {
	if s.bitmap == nil {
		return nil
	}
	return s.bitmap
}

// Empty reports whether the stroke would change nothing on the reveal pass.
func (s *Stroke) Empty() bool {
	switch s.Shape {
	case ShapePaint:
		return len(s.points) == 0
	case ShapeArea:
		r, ok := s.Rect()
		return !ok || r.Empty()
	case ShapeBaked:
		return s.bitmap == nil
	}
	return true
}

// Clone returns a deep copy. Baked bitmaps are immutable and shared.
func (s *Stroke) Clone() *Stroke {
	c := *s
	c.anchor = clonePoint(s.anchor)
	c.last = clonePoint(s.last)
	c.start = clonePoint(s.start)
	c.end = clonePoint(s.end)
	if s.points != nil {
		c.points = s.Points()
	}
	if s.seen != nil {
		c.seen = make(map[Point]struct{}, len(s.seen))
		for p := range s.seen {
			c.seen[p] = struct{}{}
		}
	}
	return &c
}

func clonePoint(p *Point) *Point {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// bounds returns the pixel rectangle touched by the reveal pass in an image
// of the given height.
func (s *Stroke) bounds(height int) image.Rectangle {
	switch s.Shape {
	case ShapePaint:
		if len(s.points) == 0 {
			return image.Rectangle{}
		}
		return boundsOf(s.points, s.radius+1).Pixels(height)
	case ShapeArea:
		r, ok := s.Rect()
		if !ok {
			return image.Rectangle{}
		}
		return r.Pixels(height)
	case ShapeBaked:
		if s.bitmap == nil {
			return image.Rectangle{}
		}
		return s.bitmap.Bounds()
	}
	return image.Rectangle{}
}

// followBounds returns the pixel rectangle of the follow outline.
func (s *Stroke) followBounds(height int, lineWidth float64) image.Rectangle {
	switch s.Shape {
	case ShapePaint:
		if s.last == nil {
			return image.Rectangle{}
		}
		return boundsOf([]Point{*s.last}, s.radius+lineWidth).Pixels(height)
	case ShapeArea:
		r, ok := s.Rect()
		if !ok {
			return image.Rectangle{}
		}
		return r.Inset(lineWidth).Pixels(height)
	}
	return image.Rectangle{}
}

// coverage rasterizes the stroke geometry inside clip. The returned mask is
// indexed relative to the returned rectangle; 255 means fully covered.
func (s *Stroke) coverage(clip image.Rectangle, height int) (*gg.Mask, image.Rectangle) {
	r := s.bounds(height).Intersect(clip)
	if r.Empty() {
		return nil, r
	}
	if s.Shape == ShapeBaked {
		m := gg.NewMask(r.Dx(), r.Dy())
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				a := s.bitmap.Pix[s.bitmap.PixOffset(x, y)+3]
				m.Set(x-r.Min.X, y-r.Min.Y, 255-a)
			}
		}
		return m, r
	}

	dc := gg.NewContext(r.Dx(), r.Dy())
	defer dc.Close()
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	s.trace(dc, height, ox, oy)
	return dc.AsMask(), r
}

// trace adds the reveal geometry to the context path, offset by (ox, oy) in
// image space.
func (s *Stroke) trace(dc *gg.Context, height int, ox, oy float64) {
	switch s.Shape {
	case ShapePaint:
		for _, p := range s.points {
			x, y := ToImage(p, height)
			dc.DrawCircle(x-ox, y-oy, s.radius)
		}
	case ShapeArea:
		if r, ok := s.Rect(); ok {
			dc.DrawRectangle(r.X-ox, float64(height)-(r.Y+r.H)-oy, r.W, r.H)
		}
	case ShapeBaked:
	}
}

// traceFollow adds the cursor preview outline to the context path.
func (s *Stroke) traceFollow(dc *gg.Context, height int) bool {
	switch s.Shape {
	case ShapePaint:
		if s.last == nil {
			return false
		}
		x, y := ToImage(*s.last, height)
		dc.DrawCircle(x, y, s.radius)
		return true
	case ShapeArea:
		r, ok := s.Rect()
		if !ok {
			return false
		}
		dc.DrawRectangle(r.X, float64(height)-(r.Y+r.H), r.W, r.H)
		return true
	}
	return false
}

func cloneNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+4*b.Dx()], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return out
	}
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
