// Package canvas is the interaction model behind a map view: it routes
// pointer gestures to the reveal layer or to a marker, persists the mask
// when a gesture ends, and composites the image a view displays. It knows
// nothing about the windowing toolkit; points arrive in map-local space.
package canvas

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"

	"MapReveal/internal/state"
	"MapReveal/internal/worker"
)

// ErrNoImage is reported when an operation needs a loaded base image.
var ErrNoImage = errors.New("no base image loaded")

// Mode is the gesture state of a canvas.
type Mode int

const (
	Idle Mode = iota
	Dragging
	MarkerDrag
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case MarkerDrag:
		return "marker-drag"
	}
	return "unknown"
}

// Options configures a MapCanvas.
type Options struct {
	Layer state.Options
	Pool  *worker.Pool

	// Fog is the color the fog is drawn in. The mask file always stores
	// state.MaskColor.
	Fog    color.NRGBA
	Follow bool

	// MarkersAboveFog draws markers over the fog, as the GM sees them.
	MarkersAboveFog bool

	// Writable canvases persist the mask at the end of every gesture.
	Writable bool

	Logger *slog.Logger
}

// MapCanvas holds the displayed map, its reveal layer and its markers.
// Like the layer it owns, it is used from the UI thread only.
type MapCanvas struct {
	opts Options
	pool *worker.Pool
	log  *slog.Logger

	mapUID   string
	maskPath string
	base     image.Image
	layer    *state.Layer
	tool     state.Tool
	kind     state.Kind

	markers []*Marker
	mode    Mode
	drag    markerDrag

	gen       uint64
	lastWrite *worker.Task[struct{}]
	listeners []Listener

	// OnChanged is called with the image rectangle that needs repainting.
	OnChanged func(dirty image.Rectangle)
	// OnFit is called when the view should fit the whole image.
	OnFit func()
}

func New(opts Options) *MapCanvas {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Fog == (color.NRGBA{}) {
		opts.Fog = state.MaskColor
	}
	opts.Layer.Logger = opts.Logger
	return &MapCanvas{
		opts: opts,
		pool: opts.Pool,
		log:  opts.Logger.With("component", "canvas"),
		tool: opts.Layer.Tool,
		mode: Idle,
	}
}

// AddListener registers l for gesture notifications.
func (c *MapCanvas) AddListener(l Listener) {
	c.listeners = append(c.listeners, l)
}

func (c *MapCanvas) MapUID() string { return c.mapUID }

func (c *MapCanvas) MaskPath() string { return c.maskPath }

// Loaded reports whether a base image is shown.
func (c *MapCanvas) Loaded() bool { return c.base != nil }

func (c *MapCanvas) Base() image.Image { return c.base }

// Layer returns the reveal layer, or nil before the first load.
func (c *MapCanvas) Layer() *state.Layer { return c.layer }

func (c *MapCanvas) Mode() Mode { return c.mode }

// Size returns the pixel size of the base image.
func (c *MapCanvas) Size() image.Point {
	if c.base == nil {
		return image.Point{}
	}
	return c.base.Bounds().Size()
}

func (c *MapCanvas) Tool() state.Tool { return c.tool }

// SetTool selects the shape for the next gesture.
func (c *MapCanvas) SetTool(t state.Tool) {
	c.tool = t
	if c.layer != nil {
		c.layer.SetTool(t)
	}
}

func (c *MapCanvas) Kind() state.Kind { return c.kind }

// SetKind switches the next gestures between revealing and hiding.
func (c *MapCanvas) SetKind(k state.Kind) {
	c.kind = k
	if c.layer != nil {
		c.layer.SetKind(k)
	}
}

// SetRadius changes the disc radius of the next paint gestures.
func (c *MapCanvas) SetRadius(r float64) {
	if r <= 0 {
		return
	}
	c.opts.Layer.Radius = r
	if c.layer != nil {
		c.layer.SetRadius(r)
	}
}

// SetFog changes the fog color used by Compose.
func (c *MapCanvas) SetFog(fog color.NRGBA) {
	c.opts.Fog = fog
	c.changed(c.bounds())
}

// SetFollow toggles the cursor preview.
func (c *MapCanvas) SetFollow(on bool) {
	c.opts.Follow = on
	c.changed(c.bounds())
}

// Unload drops the base image, layer and markers.
func (c *MapCanvas) Unload() {
	c.gen++
	r := c.bounds()
	c.mapUID, c.maskPath = "", ""
	c.base, c.layer = nil, nil
	c.markers = nil
	c.mode = Idle
	c.changed(r)
}

// PointerDown starts a gesture. It reports false when no image is loaded
// or a gesture is already running.
func (c *MapCanvas) PointerDown(p state.Point) bool {
	if c.base == nil || c.mode != Idle {
		return false
	}
	if i := c.markerAt(p); i >= 0 {
		m := c.markers[i]
		c.mode = MarkerDrag
		c.drag = markerDrag{index: i, grab: state.Point{X: p.X - m.X, Y: p.Y - m.Y}, origin: state.Point{X: m.X, Y: m.Y}}
		c.notifyMarkerSelected(m)
		return true
	}
	c.layer.Begin(p)
	c.mode = Dragging
	return true
}

// PointerMove extends the running gesture.
func (c *MapCanvas) PointerMove(p state.Point) {
	switch c.mode {
	case Dragging:
		c.changed(c.layer.Extend(p))
	case MarkerDrag:
		c.changed(c.moveMarker(p))
	case Idle:
	}
}

// PointerUp ends the running gesture. A committed stroke is persisted and
// reported to listeners through ToolFinished. It reports whether anything
// changed.
func (c *MapCanvas) PointerUp(p state.Point) bool {
	switch c.mode {
	case Dragging:
		c.mode = Idle
		committed := c.layer.Commit(p)
		c.changed(c.bounds())
		if !committed {
			return false
		}
		c.persist()
		c.notifyToolFinished()
		return true
	case MarkerDrag:
		c.mode = Idle
		c.changed(c.moveMarker(p))
		m := c.markers[c.drag.index]
		if m.X == c.drag.origin.X && m.Y == c.drag.origin.Y {
			return false
		}
		c.notifyMarkerModified(m)
		return true
	case Idle:
	}
	return false
}

// Clear hides the whole map again, persists the empty mask and reports it
// like a finished gesture.
func (c *MapCanvas) Clear() bool {
	if c.layer == nil || c.mode != Idle {
		return false
	}
	c.layer.Clear()
	c.changed(c.bounds())
	c.persist()
	c.notifyToolFinished()
	return true
}

// ReplaceStrokes shows copies of strokes instead of the current reveal.
func (c *MapCanvas) ReplaceStrokes(strokes []*state.Stroke) error {
	if c.layer == nil {
		return ErrNoImage
	}
	c.layer.Replace(strokes)
	c.changed(c.bounds())
	return nil
}

// ApplyMask shows img as the current reveal.
func (c *MapCanvas) ApplyMask(img image.Image) error {
	if c.layer == nil {
		return ErrNoImage
	}
	if err := c.layer.ApplyMask(img); err != nil {
		return err
	}
	c.changed(c.bounds())
	return nil
}

// ZoomToFit asks the view to fit the whole image.
func (c *MapCanvas) ZoomToFit() {
	if c.OnFit != nil && c.base != nil {
		c.OnFit()
	}
}

// LastWrite returns the most recent background mask write, or nil.
func (c *MapCanvas) LastWrite() *worker.Task[struct{}] { return c.lastWrite }

// persist flattens the layer here and writes it in the background. Writes
// to one path are serialized by the pool.
func (c *MapCanvas) persist() {
	if !c.opts.Writable || c.maskPath == "" {
		return
	}
	img := c.layer.Flatten(state.MaskColor)
	path := c.maskPath
	if c.pool == nil {
		if err := state.WriteMaskFile(path, img); err != nil {
			c.log.Warn("failed to write revealed mask", "path", path, "error", err)
		}
		return
	}
	log := c.log
	c.lastWrite = worker.Submit(c.pool, path, func(ctx context.Context) (struct{}, error) {
		err := state.WriteMaskFile(path, img)
		if err != nil {
			log.Warn("failed to write revealed mask", "path", path, "error", err)
		}
		return struct{}{}, err
	})
}

func (c *MapCanvas) bounds() image.Rectangle {
	if c.base == nil {
		return image.Rectangle{}
	}
	return image.Rectangle{Max: c.base.Bounds().Size()}
}

func (c *MapCanvas) changed(r image.Rectangle) {
	if c.OnChanged != nil && !r.Empty() {
		c.OnChanged(r)
	}
}
