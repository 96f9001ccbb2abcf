package state

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
)

// MaskColor is the fog color stored in mask files. Only its alpha carries
// information.
var MaskColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

var maskEncoder = png.Encoder{CompressionLevel: png.BestCompression}

// EncodeMask writes img as PNG.
func EncodeMask(w io.Writer, img image.Image) error {
	return maskEncoder.Encode(w, img)
}

// DecodeMask reads a PNG mask.
func DecodeMask(r io.Reader) (*image.NRGBA, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding mask: %w", err)
	}
	return cloneNRGBA(img), nil
}

// WriteMaskFile encodes img to path. The file is written next to path and
// renamed into place so readers never see a partial mask.
func WriteMaskFile(path string, img image.Image) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return fmt.Errorf("creating temp mask: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := EncodeMask(bw, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding mask: %w", err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing mask: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing mask: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing mask: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming mask into place: %w", err)
	}
	return nil
}

// ReadMaskFile decodes the mask at path.
func ReadMaskFile(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mask: %w", err)
	}
	defer f.Close()
	return DecodeMask(bufio.NewReader(f))
}

// WriteMask flattens the layer and writes it to path. Failures are logged
// and reported as false; the layer is never affected.
func (l *Layer) WriteMask(path string) bool {
	if err := WriteMaskFile(path, l.Flatten(MaskColor)); err != nil {
		l.log.Warn("failed to write revealed mask", "path", path, "error", err)
		return false
	}
	return true
}

// ReadMask loads the mask at path as a single baked stroke. On any failure
// the layer is left fully hidden and false is returned.
func (l *Layer) ReadMask(path string) bool {
	img, err := ReadMaskFile(path)
	if err == nil {
		err = l.ApplyMask(img)
	}
	if err != nil {
		l.log.Warn("failed to read revealed mask", "path", path, "error", err)
		l.Clear()
		return false
	}
	return true
}
