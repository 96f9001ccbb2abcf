package canvas

import (
	"image"
	"math"

	"MapReveal/internal/state"
)

const (
	MinZoom = 0.05
	MaxZoom = 8.0
)

// View maps between widget coordinates and map-local space. Offset is the
// widget position of the image's top-left pixel.
type View struct {
	Zoom    float64
	OffsetX float64
	OffsetY float64
}

// ToMap converts a widget position to a map-local point for an image that
// is height pixels tall.
func (v View) ToMap(x, y float64, height int) state.Point {
	z := v.zoom()
	return state.FromImage((x-v.OffsetX)/z, (y-v.OffsetY)/z, height)
}

// FromMap converts a map-local point to a widget position.
func (v View) FromMap(p state.Point, height int) (x, y float64) {
	z := v.zoom()
	ix, iy := state.ToImage(p, height)
	return ix*z + v.OffsetX, iy*z + v.OffsetY
}

func (v View) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// Fit returns the view that shows all of an image of size img centered in
// a viewport of size port.
func Fit(img, port image.Point) View {
	if img.X <= 0 || img.Y <= 0 || port.X <= 0 || port.Y <= 0 {
		return View{Zoom: 1}
	}
	z := math.Min(float64(port.X)/float64(img.X), float64(port.Y)/float64(img.Y))
	z = ClampZoom(z)
	return View{
		Zoom:    z,
		OffsetX: (float64(port.X) - float64(img.X)*z) / 2,
		OffsetY: (float64(port.Y) - float64(img.Y)*z) / 2,
	}
}

// ZoomAt scales the view by factor keeping the widget position (x, y)
// fixed.
func (v View) ZoomAt(factor, x, y float64) View {
	z := v.zoom()
	nz := ClampZoom(z * factor)
	return View{
		Zoom:    nz,
		OffsetX: x - (x-v.OffsetX)*nz/z,
		OffsetY: y - (y-v.OffsetY)*nz/z,
	}
}

func ClampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}
