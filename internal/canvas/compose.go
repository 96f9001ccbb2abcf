package canvas

import (
	"image"
	"image/color"
	"image/draw"
)

var followColor = color.NRGBA{A: 0xff}

const followWidth = 5.0

// Compose renders what the view shows: the base image, the fog, markers on
// the side of the fog the options ask for, and the cursor preview. It
// returns nil without a base image.
func (c *MapCanvas) Compose() image.Image {
	if c.base == nil {
		return nil
	}
	height := c.Size().Y
	dst := image.NewRGBA(c.bounds())
	draw.Draw(dst, dst.Bounds(), c.base, c.base.Bounds().Min, draw.Src)

	if !c.opts.MarkersAboveFog {
		drawMarkers(dst, c.markers, height)
	}
	c.layer.Overlay(dst, c.opts.Fog)
	if c.opts.MarkersAboveFog {
		drawMarkers(dst, c.markers, height)
	}
	if !c.opts.Follow || c.mode != Dragging {
		return dst
	}
	return c.layer.Follow(dst, followColor, followWidth)
}
