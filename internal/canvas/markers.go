package canvas

import (
	"context"
	"image"
	"image/draw"
	"slices"

	xdraw "golang.org/x/image/draw"

	"MapReveal/internal/library"
	"MapReveal/internal/state"
	"MapReveal/internal/store"
	"MapReveal/internal/worker"
)

// Marker is a placed marker with its decoded image.
type Marker struct {
	store.Marker
	Image image.Image
}

// Rect returns the marker area in map-local space.
func (m *Marker) Rect() state.Rect {
	return state.Rect{X: m.X, Y: m.Y, W: m.W, H: m.H}
}

type markerDrag struct {
	index  int
	grab   state.Point
	origin state.Point
}

// LoadMarkers decodes the images of markers in the background. path maps a
// marker uid to its image file. Markers whose image fails to decode are
// skipped.
func (c *MapCanvas) LoadMarkers(markers []store.Marker, path func(uid string) string) *worker.Task[[]Marker] {
	markers = slices.Clone(markers)
	log := c.log
	fn := func(ctx context.Context) ([]Marker, error) {
		out := make([]Marker, 0, len(markers))
		for _, m := range markers {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			img, err := library.DecodeFile(path(m.UID))
			if err != nil {
				log.Warn("failed to load marker image", "marker", m.UID, "error", err)
				continue
			}
			out = append(out, Marker{Marker: m, Image: img})
		}
		return out, nil
	}
	if c.pool == nil {
		return worker.Completed[[]Marker](fn(context.Background()))
	}
	return worker.Submit(c.pool, "", fn)
}

// SetMarkers replaces the markers shown. Markers that belong to another map
// are ignored; the rest are kept in display order, top-most last.
func (c *MapCanvas) SetMarkers(markers []Marker) {
	if c.mode == MarkerDrag {
		c.mode = Idle
	}
	c.markers = c.markers[:0]
	for i := range markers {
		if markers[i].MapUID != c.mapUID || c.mapUID == "" {
			continue
		}
		m := markers[i]
		c.markers = append(c.markers, &m)
	}
	slices.SortStableFunc(c.markers, func(a, b *Marker) int {
		return a.Order - b.Order
	})
	c.changed(c.bounds())
}

// Markers returns the markers shown, bottom-most first.
func (c *MapCanvas) Markers() []store.Marker {
	out := make([]store.Marker, len(c.markers))
	for i, m := range c.markers {
		out[i] = m.Marker
	}
	return out
}

// MarkerImages returns copies of the shown markers with their images,
// bottom-most first.
func (c *MapCanvas) MarkerImages() []Marker {
	out := make([]Marker, len(c.markers))
	for i, m := range c.markers {
		out[i] = *m
	}
	return out
}

// UpdateMarker changes the stored fields of a shown marker, keeping its
// image. It reports false when the marker is not shown.
func (c *MapCanvas) UpdateMarker(m store.Marker) bool {
	for _, cur := range c.markers {
		if cur.UID == m.UID {
			cur.Marker = m
			c.changed(c.bounds())
			return true
		}
	}
	return false
}

// markerAt returns the index of the top-most marker under p, or -1.
func (c *MapCanvas) markerAt(p state.Point) int {
	for i := len(c.markers) - 1; i >= 0; i-- {
		if c.markers[i].Rect().Contains(p) {
			return i
		}
	}
	return -1
}

// moveMarker drags the grabbed marker to follow p and returns the dirty
// pixels.
func (c *MapCanvas) moveMarker(p state.Point) image.Rectangle {
	m := c.markers[c.drag.index]
	height := c.Size().Y
	before := m.Rect().Pixels(height)
	m.X = p.X - c.drag.grab.X
	m.Y = p.Y - c.drag.grab.Y
	return before.Union(m.Rect().Pixels(height)).Intersect(c.bounds())
}

// drawMarkers scales every marker image into its rectangle on dst.
func drawMarkers(dst draw.Image, markers []*Marker, height int) {
	for _, m := range markers {
		if m.Image == nil {
			continue
		}
		r := m.Rect().Pixels(height)
		if r.Empty() {
			continue
		}
		xdraw.ApproxBiLinear.Scale(dst, r, m.Image, m.Image.Bounds(), xdraw.Over, nil)
	}
}
