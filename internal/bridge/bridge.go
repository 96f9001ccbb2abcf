// Package bridge copies the GM's reveal to the player view. A push is a
// one-shot snapshot: the committed strokes are copied by value, so later
// gestures on the GM side never show up on the player side until the next
// push.
package bridge

import (
	"image"
	"log/slog"

	"MapReveal/internal/canvas"
	"MapReveal/internal/state"
	"MapReveal/internal/store"
	"MapReveal/internal/worker"
)

// Paths locates the files of a map.
type Paths interface {
	PlayerPath(uid string) string
	RevealedPath(uid string) string
}

// Snapshot is what a push sends to remote player displays.
type Snapshot struct {
	MapUID   string
	Revision uint64
	// BasePath is the player image.
	BasePath string
	Mask     *image.NRGBA
	Markers  []canvas.Marker
}

// Sink receives snapshots. Publish must not block.
type Sink interface {
	Publish(s Snapshot)
}

type Options struct {
	AutoPush bool
	ZoomFit  bool

	// Do runs fn on the UI thread and waits for it. Defaults to calling
	// fn directly.
	Do     func(fn func())
	Logger *slog.Logger
}

// Bridge connects a GM canvas to a player canvas.
type Bridge struct {
	gm, player *canvas.MapCanvas
	paths      Paths
	opts       Options
	log        *slog.Logger

	sinks []Sink
	clock state.Clock

	// seq numbers pushes; a load finishing after a newer push is dropped.
	seq       uint64
	lastLayer *state.Layer
	lastRev   uint64
}

var _ canvas.Listener = (*Bridge)(nil)

// New links gm to player and subscribes to the GM canvas.
func New(gm, player *canvas.MapCanvas, paths Paths, opts Options) *Bridge {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Do == nil {
		opts.Do = func(fn func()) { fn() }
	}
	b := &Bridge{
		gm:     gm,
		player: player,
		paths:  paths,
		opts:   opts,
		log:    opts.Logger.With("component", "bridge"),
	}
	gm.AddListener(b)
	return b
}

// AddSink registers a remote display.
func (b *Bridge) AddSink(s Sink) {
	b.sinks = append(b.sinks, s)
}

func (b *Bridge) AutoPush() bool { return b.opts.AutoPush }

func (b *Bridge) SetAutoPush(on bool) { b.opts.AutoPush = on }

func (b *Bridge) ZoomFit() bool { return b.opts.ZoomFit }

func (b *Bridge) SetZoomFit(on bool) { b.opts.ZoomFit = on }

// Push copies the GM's committed strokes and markers to the player view.
// When the player shows another map, its player image is loaded first;
// the mask file is not read since the copied strokes replace it. The
// newest push wins: a load still running when a later push is applied is
// discarded. The returned task reports whether the player view changed.
// A push of a revision the player already has is skipped unless force is
// set.
func (b *Bridge) Push(force bool) *worker.Task[bool] {
	src := b.gm.Layer()
	if src == nil {
		return worker.Completed(false, nil)
	}
	uid := b.gm.MapUID()
	rev := src.Revision()
	sameMap := b.player.Loaded() && b.player.MapUID() == uid
	if !force && sameMap && b.lastLayer == src && b.lastRev == rev {
		b.log.Debug("skipped push of unchanged revision", "map", uid, "revision", rev)
		return worker.Completed(false, nil)
	}
	b.lastLayer, b.lastRev = src, rev
	b.seq++
	seq := b.seq

	strokes := src.Strokes()
	markers := b.gm.MarkerImages()
	mask := src.Flatten(state.MaskColor)

	if sameMap {
		b.apply(uid, strokes, markers, mask)
		return worker.Completed(true, nil)
	}

	load := b.player.Load(canvas.LoadRequest{
		MapUID:   uid,
		BasePath: b.paths.PlayerPath(uid),
		MaskPath: b.paths.RevealedPath(uid),
	})
	return worker.Then(load, func(res canvas.LoadResult, err error) (bool, error) {
		applied := false
		b.opts.Do(func() {
			if seq != b.seq {
				b.log.Debug("dropped superseded push", "map", uid)
				return
			}
			if !b.player.ApplyLoad(res, err) {
				return
			}
			b.apply(uid, strokes, markers, mask)
			applied = true
		})
		return applied, err
	})
}

func (b *Bridge) apply(uid string, strokes []*state.Stroke, markers []canvas.Marker, mask *image.NRGBA) {
	if err := b.player.ReplaceStrokes(strokes); err != nil {
		b.log.Warn("push failed", "map", uid, "error", err)
		return
	}
	b.player.SetMarkers(markers)
	if b.opts.ZoomFit {
		b.player.ZoomToFit()
	}
	b.log.Debug("pushed reveal", "map", uid, "strokes", len(strokes), "markers", len(markers))
	b.publish(uid, markers, mask)
}

func (b *Bridge) publish(uid string, markers []canvas.Marker, mask *image.NRGBA) {
	if len(b.sinks) == 0 {
		return
	}
	s := Snapshot{
		MapUID:   uid,
		Revision: b.clock.Tick(),
		BasePath: b.paths.PlayerPath(uid),
		Mask:     mask,
		Markers:  markers,
	}
	for _, sink := range b.sinks {
		sink.Publish(s)
	}
}

// Forget clears the player view if it shows uid, for example after the
// map was deleted.
func (b *Bridge) Forget(uid string) {
	if b.player.MapUID() != uid {
		return
	}
	b.seq++
	b.player.Unload()
	b.lastLayer, b.lastRev = nil, 0
}

// ToolFinished pushes after every committed gesture when auto-push is on.
func (b *Bridge) ToolFinished(c *canvas.MapCanvas) {
	if b.opts.AutoPush && c == b.gm {
		b.Push(false)
	}
}

// MarkerModified pushes moved markers when auto-push is on. The layer
// revision does not change so the push is forced.
func (b *Bridge) MarkerModified(c *canvas.MapCanvas, m store.Marker) {
	if b.opts.AutoPush && c == b.gm {
		b.Push(true)
	}
}

func (b *Bridge) MarkerSelected(*canvas.MapCanvas, store.Marker) {}
