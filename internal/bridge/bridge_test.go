package bridge

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"MapReveal/internal/canvas"
	"MapReveal/internal/state"
	"MapReveal/internal/worker"
)

type dirPaths string

func (d dirPaths) GMPath(uid string) string       { return filepath.Join(string(d), uid+".gm") }
func (d dirPaths) PlayerPath(uid string) string   { return filepath.Join(string(d), uid+".player") }
func (d dirPaths) RevealedPath(uid string) string { return filepath.Join(string(d), uid+".revealed") }

type sinkRecorder struct {
	got []Snapshot
}

func (s *sinkRecorder) Publish(snap Snapshot) { s.got = append(s.got, snap) }

type fixture struct {
	gm, player *canvas.MapCanvas
	bridge     *Bridge
	paths      dirPaths
	fits       int
}

func writeBlank(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 200, 200))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func wait[T any](t *testing.T, task *worker.Task[T]) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := task.Wait(ctx)
	if err != nil {
		t.Fatalf("task failed: %v", err)
	}
	return v
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	pool := worker.NewPool(2, nil)
	t.Cleanup(pool.Close)

	f := &fixture{paths: dirPaths(t.TempDir())}
	for _, uid := range []string{"m1", "m2"} {
		writeBlank(t, f.paths.GMPath(uid))
		writeBlank(t, f.paths.PlayerPath(uid))
	}
	f.gm = canvas.New(canvas.Options{Pool: pool, Writable: true, MarkersAboveFog: true})
	f.player = canvas.New(canvas.Options{Pool: pool})
	f.player.OnFit = func() { f.fits++ }
	f.bridge = New(f.gm, f.player, f.paths, opts)
	f.show(t, "m1")
	return f
}

func (f *fixture) show(t *testing.T, uid string) {
	t.Helper()
	res := wait(t, f.gm.Load(canvas.LoadRequest{
		MapUID:   uid,
		BasePath: f.paths.GMPath(uid),
		MaskPath: f.paths.RevealedPath(uid),
		ReadMask: true,
	}))
	if !f.gm.ApplyLoad(res, nil) {
		t.Fatalf("gm load of %s dropped", uid)
	}
}

func (f *fixture) paint(from, to state.Point) {
	f.gm.PointerDown(from)
	f.gm.PointerMove(to)
	f.gm.PointerUp(to)
}

func TestPushLoadsPlayerAndCopiesStrokes(t *testing.T) {
	f := newFixture(t, Options{ZoomFit: true})
	f.paint(state.Point{X: 50, Y: 50}, state.Point{X: 70, Y: 70})

	if !wait(t, f.bridge.Push(false)) {
		t.Fatal("push did not change the player view")
	}
	if f.player.MapUID() != "m1" {
		t.Fatalf("player shows %q, want m1", f.player.MapUID())
	}
	if got := f.player.Layer().Len(); got != 1 {
		t.Fatalf("player strokes = %d, want 1", got)
	}
	want := f.gm.Layer().Flatten(state.MaskColor)
	got := f.player.Layer().Flatten(state.MaskColor)
	if !bytes.Equal(want.Pix, got.Pix) {
		t.Error("player reveal differs from gm reveal")
	}
	if f.fits != 1 {
		t.Errorf("zoom fit ran %d times, want 1", f.fits)
	}
}

func TestPushIsValueCopy(t *testing.T) {
	f := newFixture(t, Options{})
	f.paint(state.Point{X: 50, Y: 50}, state.Point{X: 70, Y: 70})
	wait(t, f.bridge.Push(false))
	before := f.player.Layer().Flatten(state.MaskColor)

	f.paint(state.Point{X: 150, Y: 150}, state.Point{X: 160, Y: 160})
	f.gm.Clear()

	if got := f.player.Layer().Len(); got != 1 {
		t.Errorf("player strokes = %d after gm changes, want 1", got)
	}
	after := f.player.Layer().Flatten(state.MaskColor)
	if !bytes.Equal(before.Pix, after.Pix) {
		t.Error("gm changes leaked into the player view")
	}
}

func TestAutoPush(t *testing.T) {
	f := newFixture(t, Options{AutoPush: true})
	// the first push loads the player image asynchronously
	wait(t, f.bridge.Push(true))

	f.paint(state.Point{X: 50, Y: 50}, state.Point{X: 70, Y: 70})
	if got := f.player.Layer().Len(); got != 1 {
		t.Errorf("player strokes = %d, want 1", got)
	}

	f.bridge.SetAutoPush(false)
	f.paint(state.Point{X: 150, Y: 150}, state.Point{X: 160, Y: 160})
	if got := f.player.Layer().Len(); got != 1 {
		t.Errorf("player strokes = %d with auto-push off, want 1", got)
	}
}

func TestPushSkipsUnchangedRevision(t *testing.T) {
	f := newFixture(t, Options{})
	sink := &sinkRecorder{}
	f.bridge.AddSink(sink)

	wait(t, f.bridge.Push(false))
	if wait(t, f.bridge.Push(false)) {
		t.Error("second push of the same revision was not skipped")
	}
	if !wait(t, f.bridge.Push(true)) {
		t.Error("forced push was skipped")
	}
	if len(sink.got) != 2 {
		t.Fatalf("sink got %d snapshots, want 2", len(sink.got))
	}
	if want := f.paths.PlayerPath("m1"); sink.got[0].BasePath != want || sink.got[0].MapUID != "m1" {
		t.Errorf("snapshot names %q / %q, want m1 / %q", sink.got[0].MapUID, sink.got[0].BasePath, want)
	}
	if sink.got[1].Revision <= sink.got[0].Revision {
		t.Errorf("revisions not increasing: %d, %d", sink.got[0].Revision, sink.got[1].Revision)
	}
}

func TestSwitchMapReloadsPlayer(t *testing.T) {
	f := newFixture(t, Options{})
	wait(t, f.bridge.Push(false))
	f.show(t, "m2")
	wait(t, f.bridge.Push(false))
	if f.player.MapUID() != "m2" {
		t.Errorf("player shows %q, want m2", f.player.MapUID())
	}
}

func TestNewerPushWinsOverPendingLoad(t *testing.T) {
	var held atomic.Bool
	release := make(chan struct{})
	f := newFixture(t, Options{Do: func(fn func()) {
		if held.Load() {
			<-release
		}
		fn()
	}})
	wait(t, f.bridge.Push(false))

	held.Store(true)
	f.show(t, "m2")
	f.paint(state.Point{X: 50, Y: 50}, state.Point{X: 70, Y: 70})
	stale := f.bridge.Push(false)

	f.show(t, "m1")
	f.paint(state.Point{X: 150, Y: 150}, state.Point{X: 160, Y: 160})
	if !wait(t, f.bridge.Push(false)) {
		t.Fatal("push of the shown map did not apply")
	}

	close(release)
	if wait(t, stale) {
		t.Error("superseded push was applied")
	}
	if f.player.MapUID() != "m1" {
		t.Fatalf("player shows %q after the newest push of m1", f.player.MapUID())
	}
	want := f.gm.Layer().Flatten(state.MaskColor)
	got := f.player.Layer().Flatten(state.MaskColor)
	if !bytes.Equal(want.Pix, got.Pix) {
		t.Error("player reveal differs from the newest push")
	}
}

func TestForget(t *testing.T) {
	f := newFixture(t, Options{})
	wait(t, f.bridge.Push(false))

	f.bridge.Forget("other")
	if !f.player.Loaded() {
		t.Fatal("forgetting another map unloaded the player view")
	}
	f.bridge.Forget("m1")
	if f.player.Loaded() {
		t.Error("player still shows a forgotten map")
	}
}

func TestPushWithoutMap(t *testing.T) {
	gm := canvas.New(canvas.Options{})
	player := canvas.New(canvas.Options{})
	b := New(gm, player, dirPaths(t.TempDir()), Options{})
	if wait(t, b.Push(true)) {
		t.Error("push without a gm map reported a change")
	}
}
