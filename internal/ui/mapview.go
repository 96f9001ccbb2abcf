package ui

import (
	"image"
	"image/color"
	"image/draw"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"

	"MapReveal/internal/canvas"
	"MapReveal/internal/state"
)

const zoomStep = 1.25

var backdrop = color.NRGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}

// MapView shows a MapCanvas and feeds it pointer events. The primary button
// draws or drags markers, the secondary button pans and the wheel zooms.
type MapView struct {
	widget.BaseWidget

	model       *canvas.MapCanvas
	interactive bool
	raster      *fynecanvas.Raster

	view  canvas.View
	frame image.Image

	gesture bool
	panning bool
	last    fyne.Position
}

var _ fyne.Widget = (*MapView)(nil)
var _ fyne.Draggable = (*MapView)(nil)
var _ fyne.Scrollable = (*MapView)(nil)
var _ desktop.Mouseable = (*MapView)(nil)

// NewMapView wraps model. Only interactive views pass pointer events on.
func NewMapView(model *canvas.MapCanvas, interactive bool) *MapView {
	v := &MapView{model: model, interactive: interactive, view: canvas.View{Zoom: 1}}
	v.raster = fynecanvas.NewRaster(v.draw)
	v.raster.ScaleMode = fynecanvas.ImageScaleFastest
	model.OnChanged = func(image.Rectangle) { v.invalidate() }
	model.OnFit = v.FitToWindow
	v.ExtendBaseWidget(v)
	return v
}

func (v *MapView) Model() *canvas.MapCanvas { return v.model }

func (v *MapView) View() canvas.View { return v.view }

func (v *MapView) SetView(view canvas.View) {
	v.view = view
	v.raster.Refresh()
}

// FitToWindow zooms so the whole map is visible.
func (v *MapView) FitToWindow() {
	size := v.Size()
	v.view = canvas.Fit(v.model.Size(), image.Pt(int(size.Width), int(size.Height)))
	v.raster.Refresh()
}

func (v *MapView) ZoomIn() { v.zoomBy(zoomStep) }

func (v *MapView) ZoomOut() { v.zoomBy(1 / zoomStep) }

func (v *MapView) zoomBy(f float64) {
	size := v.Size()
	v.view = v.view.ZoomAt(f, float64(size.Width)/2, float64(size.Height)/2)
	v.raster.Refresh()
}

func (v *MapView) invalidate() {
	v.frame = nil
	v.raster.Refresh()
}

func (v *MapView) toMap(pos fyne.Position) state.Point {
	return v.view.ToMap(float64(pos.X), float64(pos.Y), v.model.Size().Y)
}

func (v *MapView) MouseDown(e *desktop.MouseEvent) {
	switch e.Button {
	case desktop.MouseButtonPrimary:
		if v.interactive && !v.gesture {
			v.gesture = v.model.PointerDown(v.toMap(e.Position))
		}
	case desktop.MouseButtonSecondary:
		v.panning = true
	}
	v.last = e.Position
}

func (v *MapView) MouseUp(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonSecondary {
		v.panning = false
		return
	}
	v.endGesture(e.Position)
}

func (v *MapView) Dragged(e *fyne.DragEvent) {
	switch {
	case v.gesture:
		v.model.PointerMove(v.toMap(e.Position))
	case v.panning:
		v.view.OffsetX += float64(e.Dragged.DX)
		v.view.OffsetY += float64(e.Dragged.DY)
		v.raster.Refresh()
	}
	v.last = e.Position
}

// DragEnd commits at the last dragged position. Whichever of DragEnd and
// MouseUp arrives first ends the gesture.
func (v *MapView) DragEnd() {
	v.panning = false
	v.endGesture(v.last)
}

func (v *MapView) endGesture(pos fyne.Position) {
	if !v.gesture {
		return
	}
	v.gesture = false
	v.model.PointerUp(v.toMap(pos))
}

func (v *MapView) Scrolled(e *fyne.ScrollEvent) {
	switch {
	case e.Scrolled.DY > 0:
		v.view = v.view.ZoomAt(zoomStep, float64(e.Position.X), float64(e.Position.Y))
	case e.Scrolled.DY < 0:
		v.view = v.view.ZoomAt(1/zoomStep, float64(e.Position.X), float64(e.Position.Y))
	default:
		return
	}
	v.raster.Refresh()
}

// draw renders the composed map into the raster's pixel grid.
func (v *MapView) draw(w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(backdrop), image.Point{}, draw.Src)
	if v.frame == nil {
		v.frame = v.model.Compose()
	}
	if v.frame == nil {
		return dst
	}
	size := v.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return dst
	}
	// raster pixels per widget unit
	sx := float64(w) / float64(size.Width)
	sy := float64(h) / float64(size.Height)
	img := v.frame.Bounds().Size()
	z := v.view.Zoom
	r := image.Rect(
		int(v.view.OffsetX*sx),
		int(v.view.OffsetY*sy),
		int((v.view.OffsetX+float64(img.X)*z)*sx),
		int((v.view.OffsetY+float64(img.Y)*z)*sy),
	)
	xdraw.ApproxBiLinear.Scale(dst, r, v.frame, v.frame.Bounds(), draw.Over, nil)
	return dst
}

func (v *MapView) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

func (v *MapView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.raster)
}
