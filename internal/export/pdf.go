// Package export writes player handouts: the player image with the current
// reveal composited in opaque fog.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/jung-kurt/gofpdf"

	"MapReveal/internal/library"
	"MapReveal/internal/state"
)

const (
	margin     = 10.0 // mm
	titleSpace = 12.0 // mm
)

// Handout is one page of a PDF export.
type Handout struct {
	Title string
	Base  image.Image
	// Mask is a revealed mask as stored on disk. Nil exports the map
	// fully hidden.
	Mask image.Image
	Fog  color.NRGBA
}

// Render composites the handout image.
func (h Handout) Render() (image.Image, error) {
	size := h.Base.Bounds().Size()
	layer := state.NewLayer(size.X, size.Y, state.Options{})
	if h.Mask != nil {
		if err := layer.ApplyMask(h.Mask); err != nil {
			return nil, fmt.Errorf("applying mask: %w", err)
		}
	}
	fog := h.Fog
	if fog == (color.NRGBA{}) {
		fog = state.MaskColor
	}
	return layer.Render(h.Base, state.RenderMode{Fog: fog}), nil
}

// WritePDF writes handouts to path, one A4 page each, the image scaled to
// fit the page and centered under the title.
func WritePDF(path string, handouts ...Handout) error {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetTitle("MapReveal handout", true)
	p.SetCreator("MapReveal", true)

	for i, h := range handouts {
		img, err := h.Render()
		if err != nil {
			return fmt.Errorf("rendering %q: %w", h.Title, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encoding %q: %w", h.Title, err)
		}

		size := img.Bounds().Size()
		orientation := "P"
		if size.X > size.Y {
			orientation = "L"
		}
		p.AddPageFormat(orientation, p.GetPageSizeStr("A4"))
		pw, ph := p.GetPageSize()

		p.SetFont("Helvetica", "B", 14)
		p.SetXY(margin, margin)
		p.CellFormat(pw-2*margin, titleSpace-2, p.UnicodeTranslatorFromDescriptor("")(h.Title), "", 0, "C", false, 0, "")

		availW := pw - 2*margin
		availH := ph - 2*margin - titleSpace
		w, hgt := fit(float64(size.X), float64(size.Y), availW, availH)
		x := margin + (availW-w)/2
		y := margin + titleSpace + (availH-hgt)/2

		name := fmt.Sprintf("map-%d", i)
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		p.RegisterImageOptionsReader(name, opts, &buf)
		p.ImageOptions(name, x, y, w, hgt, false, opts, 0, "")
	}
	if err := p.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

// fit scales w x h to the largest size inside maxW x maxH.
func fit(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	s := maxW / w
	if h*s > maxH {
		s = maxH / h
	}
	return w * s, h * s
}

// WriteMap exports the persisted player view of a library map. A map
// without a readable mask is exported fully hidden.
func WriteMap(lib *library.Library, uid, title string, fog color.NRGBA, path string) error {
	base, err := library.DecodeFile(lib.PlayerPath(uid))
	if err != nil {
		return err
	}
	h := Handout{Title: title, Base: base, Fog: fog}
	if mask, err := state.ReadMaskFile(lib.RevealedPath(uid)); err == nil {
		h.Mask = mask
	}
	return WritePDF(path, h)
}
