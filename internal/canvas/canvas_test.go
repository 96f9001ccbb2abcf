package canvas

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"MapReveal/internal/state"
	"MapReveal/internal/store"
	"MapReveal/internal/worker"
)

type recorder struct {
	finished int
	modified []store.Marker
	selected []store.Marker
}

func (r *recorder) ToolFinished(*MapCanvas) { r.finished++ }

func (r *recorder) MarkerModified(_ *MapCanvas, m store.Marker) { r.modified = append(r.modified, m) }

func (r *recorder) MarkerSelected(_ *MapCanvas, m store.Marker) { r.selected = append(r.selected, m) }

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img
}

func wait[T any](t *testing.T, task *worker.Task[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return task.Wait(ctx)
}

type fixture struct {
	canvas   *MapCanvas
	rec      *recorder
	pool     *worker.Pool
	basePath string
	maskPath string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		rec:      &recorder{},
		pool:     worker.NewPool(2, nil),
		basePath: filepath.Join(dir, "map.gm"),
		maskPath: filepath.Join(dir, "map.revealed"),
	}
	t.Cleanup(f.pool.Close)
	writePNG(t, f.basePath, blank(200, 200))
	opts.Pool = f.pool
	f.canvas = New(opts)
	f.canvas.AddListener(f.rec)
	return f
}

func (f *fixture) load(t *testing.T, readMask bool) {
	t.Helper()
	res, err := wait(t, f.canvas.Load(LoadRequest{MapUID: "m1", BasePath: f.basePath, MaskPath: f.maskPath, ReadMask: readMask}))
	if !f.canvas.ApplyLoad(res, err) {
		t.Fatalf("ApplyLoad rejected load: %v", err)
	}
}

func fogAt(l *state.Layer, x, y int) uint8 {
	return l.FogMask().AlphaAt(x, y).A
}

func TestPointerEventsIgnoredWithoutImage(t *testing.T) {
	f := newFixture(t, Options{Writable: true})
	c := f.canvas

	if c.PointerDown(state.Point{X: 10, Y: 10}) {
		t.Fatal("PointerDown accepted without an image")
	}
	c.PointerMove(state.Point{X: 20, Y: 20})
	if c.PointerUp(state.Point{X: 20, Y: 20}) {
		t.Fatal("PointerUp changed state without an image")
	}
	if c.Mode() != Idle || f.rec.finished != 0 {
		t.Errorf("mode = %v, finished = %d", c.Mode(), f.rec.finished)
	}
	if c.Compose() != nil {
		t.Error("Compose should return nil without an image")
	}
}

func TestPaintGesturePersistsAndNotifies(t *testing.T) {
	f := newFixture(t, Options{Writable: true})
	f.load(t, true)
	c := f.canvas

	if !c.PointerDown(state.Point{X: 50, Y: 50}) {
		t.Fatal("PointerDown rejected")
	}
	if c.Mode() != Dragging {
		t.Fatalf("mode = %v, want dragging", c.Mode())
	}
	c.PointerMove(state.Point{X: 60, Y: 60})
	c.PointerMove(state.Point{X: 70, Y: 70})
	if !c.PointerUp(state.Point{X: 70, Y: 70}) {
		t.Fatal("PointerUp did not commit")
	}
	if c.Mode() != Idle {
		t.Errorf("mode = %v, want idle", c.Mode())
	}
	if f.rec.finished != 1 {
		t.Errorf("ToolFinished fired %d times, want 1", f.rec.finished)
	}
	if c.Layer().Len() != 1 {
		t.Errorf("strokes = %d, want 1", c.Layer().Len())
	}

	if _, err := wait(t, c.LastWrite()); err != nil {
		t.Fatalf("mask write: %v", err)
	}
	mask, err := state.ReadMaskFile(f.maskPath)
	if err != nil {
		t.Fatalf("ReadMaskFile: %v", err)
	}
	// map-local (60,60) is image (60,140)
	if a := mask.NRGBAAt(60, 140).A; a != 0 {
		t.Errorf("revealed pixel alpha = %d, want 0", a)
	}
	if a := mask.NRGBAAt(190, 10).A; a != 0xff {
		t.Errorf("hidden pixel alpha = %d, want 255", a)
	}
}

func TestTapDoesNotNotify(t *testing.T) {
	for _, tool := range []state.Tool{state.ToolPaint, state.ToolArea} {
		t.Run(tool.String(), func(t *testing.T) {
			f := newFixture(t, Options{Writable: true})
			f.load(t, false)
			f.canvas.SetTool(tool)

			f.canvas.PointerDown(state.Point{X: 30, Y: 30})
			if f.canvas.PointerUp(state.Point{X: 30, Y: 30}) {
				t.Error("tap committed a stroke")
			}
			if f.rec.finished != 0 {
				t.Errorf("ToolFinished fired %d times", f.rec.finished)
			}
			if f.canvas.LastWrite() != nil {
				t.Error("tap wrote the mask")
			}
		})
	}
}

func TestLoadRestoresMask(t *testing.T) {
	f := newFixture(t, Options{Writable: true})
	f.load(t, true)
	f.canvas.SetTool(state.ToolArea)
	f.canvas.PointerDown(state.Point{X: 0, Y: 0})
	f.canvas.PointerMove(state.Point{X: 100, Y: 50})
	f.canvas.PointerUp(state.Point{X: 100, Y: 50})

	other := New(Options{Pool: f.pool})
	res, err := wait(t, other.Load(LoadRequest{MapUID: "m1", BasePath: f.basePath, MaskPath: f.maskPath, ReadMask: true}))
	if !other.ApplyLoad(res, err) {
		t.Fatalf("ApplyLoad: %v", err)
	}
	if got := fogAt(other.Layer(), 50, 175); got != 0 {
		t.Errorf("restored reveal fog = %d, want 0", got)
	}
	if got := fogAt(other.Layer(), 150, 50); got != 0xff {
		t.Errorf("restored hidden fog = %d, want 255", got)
	}
}

func TestRestoreNotifiesAndKeepsKind(t *testing.T) {
	f := newFixture(t, Options{Writable: true})
	f.load(t, true)
	f.canvas.SetTool(state.ToolArea)
	f.canvas.PointerDown(state.Point{X: 0, Y: 0})
	f.canvas.PointerMove(state.Point{X: 100, Y: 50})
	f.canvas.PointerUp(state.Point{X: 100, Y: 50})
	if _, err := wait(t, f.canvas.LastWrite()); err != nil {
		t.Fatalf("mask write: %v", err)
	}
	f.canvas.SetKind(state.Hide)

	res, err := wait(t, f.canvas.Restore())
	if !f.canvas.ApplyRestore(res, err) {
		t.Fatalf("ApplyRestore: %v", err)
	}
	if f.rec.finished != 2 {
		t.Errorf("ToolFinished fired %d times, want 2", f.rec.finished)
	}
	if got := fogAt(f.canvas.Layer(), 50, 175); got != 0 {
		t.Errorf("restored reveal fog = %d, want 0", got)
	}
	if got := f.canvas.Layer().Kind(); got != state.Hide {
		t.Errorf("layer kind after restore = %v, want hide", got)
	}
}

func TestLoadWithoutMaskFileIsHidden(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t, true)
	if got := fogAt(f.canvas.Layer(), 100, 100); got != 0xff {
		t.Errorf("fog = %d, want fully hidden", got)
	}
}

func TestStaleLoadDropped(t *testing.T) {
	f := newFixture(t, Options{})
	c := f.canvas

	first := c.Load(LoadRequest{MapUID: "old", BasePath: f.basePath})
	second := c.Load(LoadRequest{MapUID: "new", BasePath: f.basePath})

	res, err := wait(t, first)
	if c.ApplyLoad(res, err) {
		t.Fatal("stale load applied")
	}
	res, err = wait(t, second)
	if !c.ApplyLoad(res, err) {
		t.Fatal("current load dropped")
	}
	if c.MapUID() != "new" {
		t.Errorf("map = %q, want new", c.MapUID())
	}
}

func TestFailedLoadKeepsCanvas(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t, false)

	res, err := wait(t, f.canvas.Load(LoadRequest{MapUID: "broken", BasePath: filepath.Join(t.TempDir(), "missing.png")}))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if f.canvas.ApplyLoad(res, err) {
		t.Error("failed load applied")
	}
	if f.canvas.MapUID() != "m1" || !f.canvas.Loaded() {
		t.Errorf("canvas lost its map: %q", f.canvas.MapUID())
	}
}

func token(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+3] = 0xff
	}
	return img
}

func TestMarkerDrag(t *testing.T) {
	f := newFixture(t, Options{Writable: true})
	f.load(t, false)
	c := f.canvas

	c.SetMarkers([]Marker{
		{Marker: store.Marker{UID: "low", MapUID: "m1", X: 10, Y: 10, W: 40, H: 40, Order: 0}, Image: token(4, 4)},
		{Marker: store.Marker{UID: "high", MapUID: "m1", X: 30, Y: 30, W: 40, H: 40, Order: 1}, Image: token(4, 4)},
		{Marker: store.Marker{UID: "elsewhere", MapUID: "m2", X: 0, Y: 0, W: 200, H: 200}},
	})
	if got := len(c.Markers()); got != 2 {
		t.Fatalf("markers shown = %d, want 2", got)
	}

	if !c.PointerDown(state.Point{X: 40, Y: 40}) {
		t.Fatal("PointerDown rejected")
	}
	if c.Mode() != MarkerDrag {
		t.Fatalf("mode = %v, want marker-drag", c.Mode())
	}
	if len(f.rec.selected) != 1 || f.rec.selected[0].UID != "high" {
		t.Fatalf("selected = %+v, want top-most marker", f.rec.selected)
	}

	c.PointerMove(state.Point{X: 60, Y: 50})
	c.PointerUp(state.Point{X: 100, Y: 80})
	if len(f.rec.modified) != 1 {
		t.Fatalf("modified fired %d times", len(f.rec.modified))
	}
	got := f.rec.modified[0]
	if got.X != 90 || got.Y != 70 {
		t.Errorf("marker moved to (%v,%v), want (90,70)", got.X, got.Y)
	}
	if c.Layer().Len() != 0 || f.rec.finished != 0 {
		t.Error("marker drag touched the reveal layer")
	}
}

func TestMarkerClickWithoutMoveIsNotModified(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t, false)
	f.canvas.SetMarkers([]Marker{
		{Marker: store.Marker{UID: "a", MapUID: "m1", X: 10, Y: 10, W: 20, H: 20}},
	})
	f.canvas.PointerDown(state.Point{X: 15, Y: 15})
	if f.canvas.PointerUp(state.Point{X: 15, Y: 15}) {
		t.Error("click reported a modification")
	}
	if len(f.rec.modified) != 0 || len(f.rec.selected) != 1 {
		t.Errorf("modified = %d, selected = %d", len(f.rec.modified), len(f.rec.selected))
	}
}

func TestComposeMarkerLayering(t *testing.T) {
	opaque := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	tests := []struct {
		name  string
		above bool
		want  color.RGBA
	}{
		{name: "gm", above: true, want: color.RGBA{A: 0xff}},
		{name: "player", above: false, want: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{Fog: opaque, MarkersAboveFog: tt.above})
			f.load(t, false)
			f.canvas.SetMarkers([]Marker{
				{Marker: store.Marker{UID: "a", MapUID: "m1", X: 10, Y: 10, W: 20, H: 20}, Image: token(20, 20)},
			})
			img := f.canvas.Compose()
			got := color.RGBAModel.Convert(img.At(20, 180)).(color.RGBA)
			if got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClearPersistsHiddenMask(t *testing.T) {
	f := newFixture(t, Options{Writable: true})
	f.load(t, true)
	c := f.canvas
	c.PointerDown(state.Point{X: 100, Y: 100})
	c.PointerMove(state.Point{X: 110, Y: 100})
	c.PointerUp(state.Point{X: 110, Y: 100})

	if !c.Clear() {
		t.Fatal("Clear rejected")
	}
	if f.rec.finished != 2 {
		t.Errorf("ToolFinished fired %d times, want 2", f.rec.finished)
	}
	if _, err := wait(t, c.LastWrite()); err != nil {
		t.Fatal(err)
	}
	mask, err := state.ReadMaskFile(f.maskPath)
	if err != nil {
		t.Fatal(err)
	}
	for i := 3; i < len(mask.Pix); i += 4 {
		if mask.Pix[i] != 0xff {
			t.Fatal("cleared mask has revealed pixels")
		}
	}
}

func TestReplaceStrokesNeedsImage(t *testing.T) {
	c := New(Options{})
	if err := c.ReplaceStrokes(nil); err != ErrNoImage {
		t.Errorf("got %v, want ErrNoImage", err)
	}
}

func TestViewRoundTrip(t *testing.T) {
	v := View{Zoom: 2, OffsetX: 10, OffsetY: 20}
	p := state.Point{X: 30, Y: 40}
	x, y := v.FromMap(p, 100)
	if x != 70 || y != 140 {
		t.Fatalf("FromMap = (%v,%v), want (70,140)", x, y)
	}
	if got := v.ToMap(x, y, 100); got != p {
		t.Errorf("ToMap = %v, want %v", got, p)
	}
}

func TestFit(t *testing.T) {
	v := Fit(image.Pt(200, 100), image.Pt(400, 400))
	if v.Zoom != 2 || v.OffsetX != 0 || v.OffsetY != 100 {
		t.Errorf("Fit = %+v", v)
	}
	if got := Fit(image.Pt(0, 0), image.Pt(10, 10)); got.Zoom != 1 {
		t.Errorf("Fit of empty image = %+v", got)
	}
}
