package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"MapReveal/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := New(ctx, filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close(ctx) })
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return c
}

func mapNames(t *testing.T, c *Client) []string {
	t.Helper()
	maps, err := c.ListMaps(context.Background())
	if err != nil {
		t.Fatalf("ListMaps: %v", err)
	}
	names := make([]string, len(maps))
	for i, m := range maps {
		names[i] = m.DisplayName
		if m.Order != i {
			t.Errorf("map %q has order %d at position %d", m.DisplayName, m.Order, i)
		}
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMapOrdering(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	for _, name := range []string{"cave", "tower", "swamp"} {
		if _, err := c.CreateMap(ctx, name, store.Append); err != nil {
			t.Fatalf("CreateMap(%s): %v", name, err)
		}
	}
	if _, err := c.CreateMap(ctx, "village", 1); err != nil {
		t.Fatalf("CreateMap(village): %v", err)
	}
	if got, want := mapNames(t, c), []string{"cave", "village", "tower", "swamp"}; !equalStrings(got, want) {
		t.Fatalf("after insert got %v, want %v", got, want)
	}

	if err := c.MoveMap(ctx, 3, 0); err != nil {
		t.Fatalf("MoveMap: %v", err)
	}
	if got, want := mapNames(t, c), []string{"swamp", "cave", "village", "tower"}; !equalStrings(got, want) {
		t.Fatalf("after move got %v, want %v", got, want)
	}

	if err := c.MoveMap(ctx, 9, 0); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("MoveMap out of range: got %v, want ErrNotFound", err)
	}
}

func TestMapRenameDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	m, err := c.CreateMap(ctx, "  keep  ", store.Append)
	if err != nil {
		t.Fatalf("CreateMap: %v", err)
	}
	if m.DisplayName != "keep" {
		t.Errorf("name not trimmed: %q", m.DisplayName)
	}
	if m.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	if err := c.RenameMap(ctx, m.UID, "keep two"); err != nil {
		t.Fatalf("RenameMap: %v", err)
	}
	got, err := c.GetMap(ctx, m.UID)
	if err != nil {
		t.Fatalf("GetMap: %v", err)
	}
	if got.DisplayName != "keep two" {
		t.Errorf("rename lost: %q", got.DisplayName)
	}
	if err := c.RenameMap(ctx, m.UID, " "); err == nil {
		t.Error("RenameMap accepted a blank name")
	}

	if err := c.DeleteMap(ctx, m.UID); err != nil {
		t.Fatalf("DeleteMap: %v", err)
	}
	if _, err := c.GetMap(ctx, m.UID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetMap after delete: got %v, want ErrNotFound", err)
	}
	if err := c.DeleteMap(ctx, m.UID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second DeleteMap: got %v, want ErrNotFound", err)
	}
}

func TestMarkerPlacement(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	m, err := c.CreateMap(ctx, "keep", store.Append)
	if err != nil {
		t.Fatalf("CreateMap: %v", err)
	}
	mk, err := c.CreateMarker(ctx, "goblin", store.Append)
	if err != nil {
		t.Fatalf("CreateMarker: %v", err)
	}
	if mk.Placed() {
		t.Fatal("new marker should not be placed")
	}

	mk.MapUID = m.UID
	mk.X, mk.Y, mk.W, mk.H = 10, 20, 32, 32
	if err := c.UpdateMarker(ctx, mk); err != nil {
		t.Fatalf("UpdateMarker: %v", err)
	}
	onMap, err := c.ListMarkersForMap(ctx, m.UID)
	if err != nil {
		t.Fatalf("ListMarkersForMap: %v", err)
	}
	if len(onMap) != 1 || onMap[0].X != 10 || onMap[0].Y != 20 || onMap[0].W != 32 {
		t.Fatalf("unexpected markers on map: %+v", onMap)
	}

	// deleting the map leaves the marker in the library, unplaced
	if err := c.DeleteMap(ctx, m.UID); err != nil {
		t.Fatalf("DeleteMap: %v", err)
	}
	got, err := c.GetMarker(ctx, mk.UID)
	if err != nil {
		t.Fatalf("GetMarker: %v", err)
	}
	if got.Placed() {
		t.Errorf("marker still placed on deleted map: %+v", got)
	}
}

func TestMarkerDeleteCompactsOrder(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	var uids []string
	for _, name := range []string{"a", "b", "c"} {
		mk, err := c.CreateMarker(ctx, name, store.Append)
		if err != nil {
			t.Fatalf("CreateMarker: %v", err)
		}
		uids = append(uids, mk.UID)
	}
	if err := c.DeleteMarker(ctx, uids[0]); err != nil {
		t.Fatalf("DeleteMarker: %v", err)
	}
	markers, err := c.ListMarkers(ctx)
	if err != nil {
		t.Fatalf("ListMarkers: %v", err)
	}
	if len(markers) != 2 {
		t.Fatalf("got %d markers, want 2", len(markers))
	}
	for i, mk := range markers {
		if mk.Order != i {
			t.Errorf("marker %s order = %d, want %d", mk.DisplayName, mk.Order, i)
		}
	}
	if err := c.UpdateMarker(ctx, store.Marker{UID: "missing", DisplayName: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateMarker missing: got %v, want ErrNotFound", err)
	}
}
