package state

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/gogpu/gg"
)

// ErrSizeMismatch is returned when a mask bitmap does not match the layer.
var ErrSizeMismatch = errors.New("mask size does not match layer")

// Options configures a Layer.
type Options struct {
	Tool         Tool
	Radius       float64
	BakeOnCommit bool
	Logger       *slog.Logger
}

// RenderMode controls how the fog is drawn over a base image.
type RenderMode struct {
	Fog         color.NRGBA
	Follow      bool
	FollowColor color.Color
	FollowWidth float64
}

// Layer is the hidden/revealed state of one map image: the committed strokes
// in append order plus the stroke being drawn.
//
// A Layer is not safe for concurrent use. All calls happen on the UI thread.
type Layer struct {
	width, height int
	tool          Tool
	kind          Kind
	radius        float64
	bake          bool

	strokes []*Stroke
	active  *Stroke

	// fog caches the reveal pass over strokes; 255 is fully hidden.
	fog   *image.Alpha
	clock Clock
	log   *slog.Logger
}

// NewLayer returns a fully hidden layer for an image of the given size.
func NewLayer(width, height int, opts Options) *Layer {
	if opts.Radius <= 0 {
		opts.Radius = DefaultRadius
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	l := &Layer{
		width:  width,
		height: height,
		tool:   opts.Tool,
		radius: opts.Radius,
		bake:   opts.BakeOnCommit,
		fog:    hiddenFog(width, height),
		log:    opts.Logger.With("component", "reveal"),
	}
	l.active = l.newDrawable()
	return l
}

func hiddenFog(w, h int) *image.Alpha {
	fog := image.NewAlpha(image.Rect(0, 0, w, h))
	for i := range fog.Pix {
		fog.Pix[i] = 0xff
	}
	return fog
}

func (l *Layer) newDrawable() *Stroke {
	return newStroke(l.tool, l.kind, l.radius)
}

// Bounds returns the pixel bounds of the layer.
func (l *Layer) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.width, l.height)
}

func (l *Layer) Tool() Tool { return l.tool }

// SetTool changes the shape used for new gestures. A gesture already in
// progress keeps its shape until it is committed.
func (l *Layer) SetTool(t Tool) {
	l.tool = t
	if l.active == nil || !l.active.Started() {
		l.active = l.newDrawable()
	}
}

func (l *Layer) Kind() Kind { return l.kind }

// SetKind chooses whether new gestures reveal the map or paint fog back.
// Like SetTool it leaves a gesture in progress alone.
func (l *Layer) SetKind(k Kind) {
	l.kind = k
	if l.active == nil || !l.active.Started() {
		l.active = l.newDrawable()
	}
}

// SetRadius changes the disc radius of future paint strokes.
func (l *Layer) SetRadius(r float64) {
	if r <= 0 {
		return
	}
	l.radius = r
	if l.active == nil || !l.active.Started() {
		l.active = l.newDrawable()
	}
}

// Begin starts a gesture at p.
func (l *Layer) Begin(p Point) {
	if l.active == nil {
		l.active = l.newDrawable()
	}
	l.active.Start(p)
}

// Extend moves the gesture to p and returns the pixel rectangle that needs
// repainting. It is a no-op without a begun gesture.
func (l *Layer) Extend(p Point) image.Rectangle {
	if l.active == nil || !l.active.Started() {
		return image.Rectangle{}
	}
	before := l.dirty(l.active)
	l.active.Move(p)
	return before.Union(l.dirty(l.active)).Intersect(l.Bounds())
}

func (l *Layer) dirty(s *Stroke) image.Rectangle {
	r := s.followBounds(l.height, defaultFollowWidth)
	if s.Shape == ShapeArea {
		r = r.Union(s.bounds(l.height))
	}
	return r
}

// Commit finishes the gesture at p. A stroke with visible geometry is
// appended; anything else is discarded. Either way a fresh stroke of the
// current tool replaces the active one.
func (l *Layer) Commit(p Point) bool {
	if l.active == nil {
		return false
	}
	s := l.active
	l.active = l.newDrawable()
	if !s.Started() || !s.Finish(p) {
		l.log.Debug("discarded empty stroke", "shape", s.Shape)
		return false
	}
	l.strokes = append(l.strokes, s)
	applyStroke(l.fog, s, l.height)
	rev := l.clock.Tick()
	l.log.Debug("committed stroke", "shape", s.Shape, "kind", s.Kind, "strokes", len(l.strokes), "revision", rev)
	if l.bake {
		l.Bake()
	}
	return true
}

// Clear drops every stroke and returns to fully hidden.
func (l *Layer) Clear() {
	l.strokes = nil
	l.active = l.newDrawable()
	l.fog = hiddenFog(l.width, l.height)
	l.clock.Tick()
}

// Strokes returns deep copies of the committed strokes in append order.
func (l *Layer) Strokes() []*Stroke {
	out := make([]*Stroke, len(l.strokes))
	for i, s := range l.strokes {
		out[i] = s.Clone()
	}
	return out
}

// Len returns the number of committed strokes.
func (l *Layer) Len() int { return len(l.strokes) }

// Active returns a copy of the in-progress stroke, if one has begun.
func (l *Layer) Active() (*Stroke, bool) {
	if l.active == nil || !l.active.Started() {
		return nil, false
	}
	return l.active.Clone(), true
}

// Revision returns a counter bumped on every change to the committed strokes.
func (l *Layer) Revision() uint64 { return l.clock.Now() }

// Replace swaps the committed strokes for copies of strokes.
func (l *Layer) Replace(strokes []*Stroke) {
	l.strokes = make([]*Stroke, 0, len(strokes))
	for _, s := range strokes {
		if s == nil || s.Empty() {
			continue
		}
		l.strokes = append(l.strokes, s.Clone())
	}
	l.rebuild()
	l.clock.Tick()
}

// Bake collapses the committed strokes into one baked stroke that renders
// the same fog.
func (l *Layer) Bake() {
	if len(l.strokes) == 0 {
		return
	}
	img := fogToNRGBA(l.fog, MaskColor)
	l.strokes = []*Stroke{{Shape: ShapeBaked, Kind: Reveal, started: true, bitmap: img}}
}

// ApplyMask replaces the committed strokes with one baked stroke holding
// img. The active stroke is reset.
func (l *Layer) ApplyMask(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != l.width || b.Dy() != l.height {
		return ErrSizeMismatch
	}
	l.strokes = []*Stroke{NewBakedStroke(img)}
	l.active = l.newDrawable()
	l.rebuild()
	l.clock.Tick()
	return nil
}

func (l *Layer) rebuild() {
	l.fog = hiddenFog(l.width, l.height)
	for _, s := range l.strokes {
		applyStroke(l.fog, s, l.height)
	}
}

// FogMask runs the reveal pass over the committed strokes and then the
// active one. The result is 255 where hidden.
func (l *Layer) FogMask() *image.Alpha {
	fog := image.NewAlpha(l.fog.Rect)
	copy(fog.Pix, l.fog.Pix)
	if l.active != nil && l.active.Started() {
		applyStroke(fog, l.active, l.height)
	}
	return fog
}

// Flatten renders the reveal pass into a bitmap the size of the base image
// with fog in the given color.
func (l *Layer) Flatten(fog color.NRGBA) *image.NRGBA {
	return fogToNRGBA(l.FogMask(), fog)
}

// Overlay composites the fog over dst.
func (l *Layer) Overlay(dst draw.Image, fog color.NRGBA) {
	draw.DrawMask(dst, l.Bounds(), image.NewUniform(fog), image.Point{}, l.FogMask(), image.Point{}, draw.Over)
}

// Follow strokes the cursor preview of the active stroke over img. It
// returns img unchanged when there is nothing to preview.
func (l *Layer) Follow(img image.Image, c color.Color, width float64) image.Image {
	if l.active == nil || !l.active.Started() {
		return img
	}
	dc := gg.NewContextForImage(img)
	defer dc.Close()
	if !l.active.traceFollow(dc, l.height) {
		return img
	}
	dc.SetColor(c)
	dc.SetLineWidth(width)
	if err := dc.Stroke(); err != nil {
		l.log.Warn("follow pass failed", "error", err)
		return img
	}
	return dc.Image()
}

// Render composites base, the fog, and (in the GM view) the follow pass.
func (l *Layer) Render(base image.Image, mode RenderMode) image.Image {
	dst := image.NewRGBA(l.Bounds())
	if base != nil {
		draw.Draw(dst, dst.Bounds(), base, base.Bounds().Min, draw.Src)
	}
	l.Overlay(dst, mode.Fog)
	if !mode.Follow {
		return dst
	}
	if mode.FollowColor == nil {
		mode.FollowColor = color.Black
	}
	if mode.FollowWidth <= 0 {
		mode.FollowWidth = defaultFollowWidth
	}
	return l.Follow(dst, mode.FollowColor, mode.FollowWidth)
}

const defaultFollowWidth = 5.0

// applyStroke composites one stroke into fog. Reveal strokes erase
// (destination-out), hide strokes paint fog back (source-over).
func applyStroke(fog *image.Alpha, s *Stroke, height int) {
	cov, r := s.coverage(fog.Rect, height)
	if cov == nil {
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := uint32(cov.At(x-r.Min.X, y-r.Min.Y))
			if c == 0 {
				continue
			}
			i := fog.PixOffset(x, y)
			f := uint32(fog.Pix[i])
			switch s.Kind {
			case Hide:
				fog.Pix[i] = uint8(c + f*(255-c)/255)
			default:
				fog.Pix[i] = uint8(f * (255 - c) / 255)
			}
		}
	}
}

func fogToNRGBA(fog *image.Alpha, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(fog.Rect)
	for y := fog.Rect.Min.Y; y < fog.Rect.Max.Y; y++ {
		for x := fog.Rect.Min.X; x < fog.Rect.Max.X; x++ {
			a := uint32(fog.Pix[fog.PixOffset(x, y)])
			o := img.PixOffset(x, y)
			img.Pix[o+0] = c.R
			img.Pix[o+1] = c.G
			img.Pix[o+2] = c.B
			img.Pix[o+3] = uint8(a * uint32(c.A) / 255)
		}
	}
	return img
}
