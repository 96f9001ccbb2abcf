// Package library keeps the image files behind the map and marker rows of a
// store. Every map has a GM image, a player image and a revealed mask; every
// marker has one image. Files are named by uid inside the data directory.
package library

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"MapReveal/internal/store"
	"MapReveal/internal/worker"
)

// ErrSizeMismatch is returned when the GM and player images of a map differ
// in size. Both share one revealed mask.
var ErrSizeMismatch = errors.New("gm and player images differ in size")

const (
	extGM       = ".gm"
	extPlayer   = ".player"
	extRevealed = ".revealed"
	extMarker   = ".marker"
)

type Library struct {
	dir   string
	store store.Store
	log   *slog.Logger
}

func New(dir string, st store.Store, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{dir: dir, store: st, log: logger.With("component", "library")}
}

func (l *Library) Store() store.Store { return l.store }

func (l *Library) Dir() string { return l.dir }

func (l *Library) GMPath(uid string) string { return filepath.Join(l.dir, uid+extGM) }

func (l *Library) PlayerPath(uid string) string { return filepath.Join(l.dir, uid+extPlayer) }

// RevealedPath is the mask shared by the GM and player views of a map.
func (l *Library) RevealedPath(uid string) string { return filepath.Join(l.dir, uid+extRevealed) }

func (l *Library) MarkerPath(uid string) string { return filepath.Join(l.dir, uid+extMarker) }

// ImportMap decodes the GM image and the player image (the GM image when
// playerPath is empty), stores both as PNG and registers the map at list
// position at.
func (l *Library) ImportMap(ctx context.Context, name, gmPath, playerPath string, at int) (store.Map, error) {
	if playerPath == "" {
		playerPath = gmPath
	}
	gm, err := DecodeFile(gmPath)
	if err != nil {
		return store.Map{}, err
	}
	player, err := DecodeFile(playerPath)
	if err != nil {
		return store.Map{}, err
	}
	if gm.Bounds().Size() != player.Bounds().Size() {
		return store.Map{}, fmt.Errorf("importing %s: %w (%v vs %v)", name, ErrSizeMismatch,
			gm.Bounds().Size(), player.Bounds().Size())
	}

	m, err := l.store.CreateMap(ctx, name, at)
	if err != nil {
		return store.Map{}, fmt.Errorf("registering map: %w", err)
	}
	if err := writePNG(l.GMPath(m.UID), gm); err != nil {
		l.rollbackMap(ctx, m.UID)
		return store.Map{}, err
	}
	if err := writePNG(l.PlayerPath(m.UID), player); err != nil {
		l.rollbackMap(ctx, m.UID)
		return store.Map{}, err
	}
	l.log.Info("imported map", "uid", m.UID, "name", m.DisplayName, "size", gm.Bounds().Size())
	return m, nil
}

func (l *Library) rollbackMap(ctx context.Context, uid string) {
	if err := l.store.DeleteMap(ctx, uid); err != nil {
		l.log.Warn("failed to roll back map", "uid", uid, "error", err)
	}
	l.removeFiles(l.GMPath(uid), l.PlayerPath(uid), l.RevealedPath(uid))
}

// DeleteMap removes the map row and its files. Markers placed on it become
// unplaced.
func (l *Library) DeleteMap(ctx context.Context, uid string) error {
	if err := l.store.DeleteMap(ctx, uid); err != nil {
		return err
	}
	l.removeFiles(l.GMPath(uid), l.PlayerPath(uid), l.RevealedPath(uid))
	return nil
}

// QueueDeleteMap runs DeleteMap on p after every pending write of the map's
// revealed mask, so a late write cannot leave the mask file behind.
func (l *Library) QueueDeleteMap(p *worker.Pool, uid string) *worker.Task[struct{}] {
	return worker.Submit(p, l.RevealedPath(uid), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, l.DeleteMap(ctx, uid)
	})
}

// ImportMarker stores a marker image at its native size and registers it
// unplaced.
func (l *Library) ImportMarker(ctx context.Context, name, path string, at int) (store.Marker, error) {
	img, err := DecodeFile(path)
	if err != nil {
		return store.Marker{}, err
	}
	m, err := l.store.CreateMarker(ctx, name, at)
	if err != nil {
		return store.Marker{}, fmt.Errorf("registering marker: %w", err)
	}
	if err := writePNG(l.MarkerPath(m.UID), img); err != nil {
		l.rollbackMarker(ctx, m.UID)
		return store.Marker{}, err
	}
	size := img.Bounds().Size()
	m.W, m.H = float64(size.X), float64(size.Y)
	if err := l.store.UpdateMarker(ctx, m); err != nil {
		l.rollbackMarker(ctx, m.UID)
		return store.Marker{}, fmt.Errorf("sizing marker: %w", err)
	}
	l.log.Info("imported marker", "uid", m.UID, "name", m.DisplayName)
	return m, nil
}

func (l *Library) rollbackMarker(ctx context.Context, uid string) {
	if err := l.store.DeleteMarker(ctx, uid); err != nil {
		l.log.Warn("failed to roll back marker", "uid", uid, "error", err)
	}
	l.removeFiles(l.MarkerPath(uid))
}

// PlaceMarker moves a marker onto mapUID with its center at (x, y).
func (l *Library) PlaceMarker(ctx context.Context, uid, mapUID string, x, y float64) (store.Marker, error) {
	m, err := l.store.GetMarker(ctx, uid)
	if err != nil {
		return store.Marker{}, err
	}
	if mapUID != "" {
		if _, err := l.store.GetMap(ctx, mapUID); err != nil {
			return store.Marker{}, err
		}
	}
	m.MapUID = mapUID
	m.X, m.Y = x-m.W/2, y-m.H/2
	if err := l.store.UpdateMarker(ctx, m); err != nil {
		return store.Marker{}, err
	}
	return m, nil
}

func (l *Library) DeleteMarker(ctx context.Context, uid string) error {
	if err := l.store.DeleteMarker(ctx, uid); err != nil {
		return err
	}
	l.removeFiles(l.MarkerPath(uid))
	return nil
}

func (l *Library) removeFiles(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			l.log.Warn("failed to remove file", "path", p, "error", err)
		}
	}
}

// DecodeFile decodes any registered image format.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()
	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	slog.Debug("decoded image", "component", "library", "path", path, "format", format)
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := png.Encode(bw, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
