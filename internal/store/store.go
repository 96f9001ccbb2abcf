// Package store persists map and marker metadata. Image and mask files live
// next to the database and are managed by the library package.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a uid does not exist.
var ErrNotFound = errors.New("not found")

// Append inserts a new row after every existing one.
const Append = -1

type Map struct {
	UID         string
	DisplayName string
	Order       int
	CreatedAt   time.Time
}

// Marker is a token image. It sits on at most one map; MapUID is empty for
// a marker that has not been placed yet. Position and size are map-local.
type Marker struct {
	UID         string
	DisplayName string
	MapUID      string
	X, Y        float64
	W, H        float64
	Order       int
}

// Placed reports whether the marker belongs to a map.
func (m Marker) Placed() bool { return m.MapUID != "" }

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	CreateMap(ctx context.Context, name string, at int) (Map, error)
	GetMap(ctx context.Context, uid string) (Map, error)
	ListMaps(ctx context.Context) ([]Map, error)
	RenameMap(ctx context.Context, uid, name string) error
	DeleteMap(ctx context.Context, uid string) error
	MoveMap(ctx context.Context, from, to int) error

	CreateMarker(ctx context.Context, name string, at int) (Marker, error)
	GetMarker(ctx context.Context, uid string) (Marker, error)
	ListMarkers(ctx context.Context) ([]Marker, error)
	ListMarkersForMap(ctx context.Context, mapUID string) ([]Marker, error)
	UpdateMarker(ctx context.Context, m Marker) error
	DeleteMarker(ctx context.Context, uid string) error
	MoveMarker(ctx context.Context, from, to int) error
}

// Reorder moves the element at from to index to, shifting the rest. Out of
// range indexes are clamped.
func Reorder[T any](items []T, from, to int) []T {
	if from < 0 || from >= len(items) {
		return items
	}
	if to < 0 {
		to = 0
	}
	if to >= len(items) {
		to = len(items) - 1
	}
	item := items[from]
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	out = append(out[:to], append([]T{item}, out[to:]...)...)
	return out
}

// InsertAt inserts item at index at, or appends when at is out of range.
func InsertAt[T any](items []T, item T, at int) []T {
	if at < 0 || at >= len(items) {
		return append(items, item)
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:at]...)
	out = append(out, item)
	return append(out, items[at:]...)
}
