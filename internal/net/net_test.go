package net

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"MapReveal/internal/bridge"
	"MapReveal/internal/canvas"
	"MapReveal/internal/store"
)

func TestParseLink(t *testing.T) {
	tests := []struct {
		link    string
		want    string
		wantErr bool
	}{
		{link: "mapreveal://192.168.1.5:8888", want: "192.168.1.5:8888"},
		{link: "mapreveal://192.168.1.5:8888/", want: "192.168.1.5:8888"},
		{link: "localhost:9000", want: "localhost:9000"},
		{link: "mapreveal://[::1]:8888", want: "[::1]:8888"},
		{link: "mapreveal://nohost", wantErr: true},
		{link: "mapreveal://:8888", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			got, err := ParseLink(tt.link)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
	if got := ShareLink("10.0.0.2", 8888); got != "mapreveal://10.0.0.2:8888" {
		t.Errorf("ShareLink = %q", got)
	}
}

func writePlayerImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.player")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 30, 20))); err != nil {
		t.Fatal(err)
	}
	return path
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, strings.TrimPrefix(srv.URL, "http://")
}

func startViewer(t *testing.T, addr string) <-chan Frame {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	v, err := Dial(ctx, addr, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	frames := make(chan Frame, 8)
	go v.Run(ctx, func(f Frame) { frames <- f })
	return frames
}

func next(t *testing.T, frames <-chan Frame) Frame {
	t.Helper()
	select {
	case f := <-frames:
		return f
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a frame")
	}
	return Frame{}
}

func waitViewers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Viewers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("viewers = %d, want %d", hub.Viewers(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub, addr := startHub(t)
	frames := startViewer(t, addr)
	waitViewers(t, hub, 1)

	base := writePlayerImage(t)
	mask := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	marker := canvas.Marker{
		Marker: store.Marker{UID: "k", MapUID: "m1", X: 1, Y: 2, W: 3, H: 4},
		Image:  image.NewGray(image.Rect(0, 0, 3, 4)),
	}

	hub.Publish(bridge.Snapshot{MapUID: "m1", Revision: 1, BasePath: base, Mask: mask, Markers: []canvas.Marker{marker}})
	f := next(t, frames)
	if f.MapUID != "m1" || f.Revision != 1 {
		t.Fatalf("unexpected frame %+v", f)
	}
	if f.Base == nil || f.Base.Bounds().Dx() != 30 {
		t.Fatal("first frame of a map should carry the player image")
	}
	if f.Mask == nil || f.Mask.Bounds() != mask.Bounds() {
		t.Fatal("mask missing from frame")
	}
	if len(f.Markers) != 1 || f.Markers[0].UID != "k" || f.Markers[0].Image == nil {
		t.Fatalf("markers = %+v", f.Markers)
	}

	hub.Publish(bridge.Snapshot{MapUID: "m1", Revision: 2, BasePath: base, Mask: mask})
	f = next(t, frames)
	if f.Revision != 2 || f.Base != nil {
		t.Errorf("second frame: revision %d, base %v", f.Revision, f.Base != nil)
	}

	// a late viewer gets the current snapshot with its image
	late := startViewer(t, addr)
	f = next(t, late)
	if f.Revision != 2 || f.Base == nil {
		t.Errorf("late viewer frame: revision %d, base %v", f.Revision, f.Base != nil)
	}
}

func TestViewerDropsStaleRevisions(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, rev := range []uint64{2, 1, 3} {
			data, _ := json.Marshal(Message{Type: TypeSnapshot, MapUID: "m", Revision: rev})
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	v, err := Dial(context.Background(), strings.TrimPrefix(srv.URL, "http://"), nil)
	if err != nil {
		t.Fatal(err)
	}
	var got []uint64
	if err := v.Run(context.Background(), func(f Frame) { got = append(got, f.Revision) }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("revisions shown = %v, want [2 3]", got)
	}
}
