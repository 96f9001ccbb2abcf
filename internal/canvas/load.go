package canvas

import (
	"context"
	"errors"
	"image"
	"io/fs"

	"MapReveal/internal/library"
	"MapReveal/internal/state"
	"MapReveal/internal/worker"
)

// LoadRequest names the files of a map to show.
type LoadRequest struct {
	MapUID   string
	BasePath string
	MaskPath string

	// ReadMask restores the persisted reveal. A push skips it because the
	// pushed strokes replace whatever the file holds.
	ReadMask bool
}

// LoadResult is the decoded content of a LoadRequest.
type LoadResult struct {
	Request LoadRequest
	Base    image.Image
	Mask    *image.NRGBA
	MaskErr error

	gen uint64
}

// Load decodes the base image and, if requested, the mask in the
// background. The result must be handed back to ApplyLoad on the UI thread.
// Reading the mask waits for pending writes of the same file.
func (c *MapCanvas) Load(req LoadRequest) *worker.Task[LoadResult] {
	c.gen++
	gen := c.gen
	fn := func(ctx context.Context) (LoadResult, error) {
		res := LoadResult{Request: req, gen: gen}
		base, err := library.DecodeFile(req.BasePath)
		if err != nil {
			return res, err
		}
		res.Base = base
		if req.ReadMask && req.MaskPath != "" {
			res.Mask, res.MaskErr = state.ReadMaskFile(req.MaskPath)
		}
		return res, nil
	}
	if c.pool == nil {
		return worker.Completed[LoadResult](fn(context.Background()))
	}
	key := ""
	if req.ReadMask {
		key = req.MaskPath
	}
	return worker.Submit(c.pool, key, fn)
}

// ApplyLoad installs a finished load. Results of loads superseded by a
// later Load or Unload are dropped, as are failed loads, which leave the
// canvas as it was. It reports whether the canvas changed.
func (c *MapCanvas) ApplyLoad(res LoadResult, err error) bool {
	if res.gen != c.gen {
		c.log.Debug("dropped stale load", "map", res.Request.MapUID)
		return false
	}
	if err != nil {
		c.log.Warn("failed to load map image", "path", res.Request.BasePath, "error", err)
		return false
	}
	if res.Base == nil {
		return false
	}
	size := res.Base.Bounds().Size()
	opts := c.opts.Layer
	opts.Tool = c.tool
	layer := state.NewLayer(size.X, size.Y, opts)
	layer.SetKind(c.kind)

	switch {
	case !res.Request.ReadMask || res.Request.MaskPath == "":
	case res.MaskErr != nil:
		if errors.Is(res.MaskErr, fs.ErrNotExist) {
			c.log.Debug("no revealed mask yet", "path", res.Request.MaskPath)
		} else {
			c.log.Warn("failed to read revealed mask", "path", res.Request.MaskPath, "error", res.MaskErr)
		}
	default:
		if err := layer.ApplyMask(res.Mask); err != nil {
			c.log.Warn("failed to read revealed mask", "path", res.Request.MaskPath, "error", err)
		}
	}

	if c.mapUID != res.Request.MapUID {
		c.markers = nil
	}
	c.mapUID = res.Request.MapUID
	c.maskPath = res.Request.MaskPath
	c.base = res.Base
	c.layer = layer
	c.mode = Idle
	c.changed(c.bounds())
	return true
}

// Restore reloads the persisted mask of the shown map.
func (c *MapCanvas) Restore() *worker.Task[LoadResult] {
	if c.base == nil || c.maskPath == "" {
		return worker.Completed(LoadResult{gen: c.gen}, ErrNoImage)
	}
	c.gen++
	gen := c.gen
	req := LoadRequest{MapUID: c.mapUID, MaskPath: c.maskPath, ReadMask: true}
	base := c.base
	fn := func(ctx context.Context) (LoadResult, error) {
		res := LoadResult{Request: req, Base: base, gen: gen}
		res.Mask, res.MaskErr = state.ReadMaskFile(req.MaskPath)
		return res, nil
	}
	if c.pool == nil {
		return worker.Completed[LoadResult](fn(context.Background()))
	}
	return worker.Submit(c.pool, req.MaskPath, fn)
}

// ApplyRestore installs a finished Restore and reports it to listeners
// like a finished gesture, so auto-push follows it.
func (c *MapCanvas) ApplyRestore(res LoadResult, err error) bool {
	if !c.ApplyLoad(res, err) {
		return false
	}
	c.notifyToolFinished()
	return true
}

// ShowImage installs an in-memory base image for uid with a fully hidden
// layer, superseding pending loads. Markers are kept when uid is the map
// already shown.
func (c *MapCanvas) ShowImage(uid string, base image.Image) {
	c.gen++
	res := LoadResult{Request: LoadRequest{MapUID: uid}, Base: base, gen: c.gen}
	c.ApplyLoad(res, nil)
}
