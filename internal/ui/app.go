// Package ui is the Fyne front end: the GM window with the map and marker
// libraries and the player window the table sees.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"MapReveal/internal/bridge"
	"MapReveal/internal/canvas"
	"MapReveal/internal/config"
	"MapReveal/internal/export"
	"MapReveal/internal/library"
	"MapReveal/internal/state"
	"MapReveal/internal/store"
	"MapReveal/internal/worker"
)

// App owns both windows and the state they share.
type App struct {
	fyne fyne.App
	cfg  *config.Config
	lib  *library.Library
	pool *worker.Pool
	log  *slog.Logger

	gm, player         *canvas.MapCanvas
	gmView, playerView *MapView
	bridge             *bridge.Bridge

	gmWin, playerWin fyne.Window
	mapList          *widget.List
	markerList       *widget.List
	status           *widget.Label

	maps           []store.Map
	markers        []store.Marker
	selectedMarker string
}

// New wires the canvases, the bridge and both windows. Call Run to show
// them.
func New(fa fyne.App, cfg *config.Config, lib *library.Library, pool *worker.Pool, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		fyne:   fa,
		cfg:    cfg,
		lib:    lib,
		pool:   pool,
		log:    logger.With("component", "ui"),
		status: widget.NewLabel(""),
	}
	layer := state.Options{
		Tool:         cfg.StartTool(),
		Radius:       cfg.Reveal.BrushRadius,
		BakeOnCommit: cfg.Reveal.BakeOnCommit,
	}
	a.gm = canvas.New(canvas.Options{
		Layer:           layer,
		Pool:            pool,
		Fog:             cfg.GMFog(),
		Follow:          cfg.GM.Follow,
		MarkersAboveFog: true,
		Writable:        true,
		Logger:          logger,
	})
	a.player = canvas.New(canvas.Options{
		Layer:  layer,
		Pool:   pool,
		Fog:    cfg.PlayerFog(),
		Logger: logger,
	})
	a.gmView = NewMapView(a.gm, true)
	a.playerView = NewMapView(a.player, false)
	a.bridge = bridge.New(a.gm, a.player, lib, bridge.Options{
		AutoPush: cfg.Sync.AutoPush,
		ZoomFit:  cfg.Sync.ZoomFit,
		Do:       fyne.DoAndWait,
		Logger:   logger,
	})
	a.gm.AddListener(canvas.ListenerFuncs{
		OnMarkerModified: a.markerModified,
		OnMarkerSelected: a.markerSelected,
	})

	a.gmWin = fa.NewWindow("MapReveal - Game Master")
	a.gmWin.SetContent(a.gmContent())
	a.gmWin.Resize(fyne.NewSize(1280, 800))
	a.gmWin.SetMaster()

	a.playerWin = fa.NewWindow("MapReveal - Players")
	a.playerWin.SetContent(a.playerView)
	a.playerWin.Resize(fyne.NewSize(1024, 768))
	return a
}

// Bridge exposes the push bridge so remote sinks can be attached.
func (a *App) Bridge() *bridge.Bridge { return a.bridge }

// SetStatus shows text in the toolbar. Safe from any goroutine.
func (a *App) SetStatus(text string) {
	fyne.Do(func() { a.status.SetText(text) })
}

// Run shows both windows and blocks until the GM window closes.
func (a *App) Run() {
	a.reloadLibrary()
	a.playerWin.Show()
	a.gmWin.ShowAndRun()
}

func (a *App) gmContent() fyne.CanvasObject {
	a.mapList = widget.NewList(
		func() int { return len(a.maps) },
		func() fyne.CanvasObject { return widget.NewLabel("map") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(a.maps[id].DisplayName)
		},
	)
	a.mapList.OnSelected = func(id widget.ListItemID) {
		if id < len(a.maps) {
			a.selectMap(a.maps[id].UID)
		}
	}

	a.markerList = widget.NewList(
		func() int { return len(a.markers) },
		func() fyne.CanvasObject { return widget.NewLabel("marker") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			m := a.markers[id]
			text := m.DisplayName
			if m.Placed() {
				text += " *"
			}
			o.(*widget.Label).SetText(text)
		},
	)
	a.markerList.OnSelected = func(id widget.ListItemID) {
		if id < len(a.markers) {
			a.selectedMarker = a.markers[id].UID
		}
	}

	mapButtons := container.NewGridWithColumns(5,
		widget.NewButton("Import", a.importMap),
		widget.NewButton("Rename", a.renameMap),
		widget.NewButton("Delete", a.deleteMap),
		widget.NewButton("Up", func() { a.moveMap(-1) }),
		widget.NewButton("Down", func() { a.moveMap(1) }),
	)
	markerButtons := container.NewGridWithColumns(4,
		widget.NewButton("Import", a.importMarker),
		widget.NewButton("Place", a.placeMarker),
		widget.NewButton("Remove", a.unplaceMarker),
		widget.NewButton("Delete", a.deleteMarker),
	)
	side := container.NewVSplit(
		container.NewBorder(widget.NewLabel("Maps"), mapButtons, nil, nil, a.mapList),
		container.NewBorder(widget.NewLabel("Markers"), markerButtons, nil, nil, a.markerList),
	)
	split := container.NewHSplit(side, a.gmView)
	split.Offset = 0.22
	return container.NewBorder(a.newToolbar(), nil, nil, nil, split)
}

// await hands the result of t to fn on the UI thread.
func await[T any](t *worker.Task[T], fn func(T, error)) {
	go func() {
		v, err := t.Wait(context.Background())
		fyne.Do(func() { fn(v, err) })
	}()
}

// background runs a library call off the UI thread.
func background[T any](a *App, fn func(ctx context.Context) (T, error), done func(T, error)) {
	await(worker.Submit(a.pool, "", fn), done)
}

func (a *App) reloadLibrary() {
	type listing struct {
		maps    []store.Map
		markers []store.Marker
	}
	st := a.lib.Store()
	background(a, func(ctx context.Context) (listing, error) {
		maps, err := st.ListMaps(ctx)
		if err != nil {
			return listing{}, err
		}
		markers, err := st.ListMarkers(ctx)
		return listing{maps: maps, markers: markers}, err
	}, func(l listing, err error) {
		if err != nil {
			a.log.Warn("failed to list library", "error", err)
			return
		}
		a.maps, a.markers = l.maps, l.markers
		a.mapList.Refresh()
		a.markerList.Refresh()
	})
}

func (a *App) selectMap(uid string) {
	if uid == a.gm.MapUID() {
		return
	}
	load := a.gm.Load(canvas.LoadRequest{
		MapUID:   uid,
		BasePath: a.lib.GMPath(uid),
		MaskPath: a.lib.RevealedPath(uid),
		ReadMask: true,
	})
	await(load, func(res canvas.LoadResult, err error) {
		if !a.gm.ApplyLoad(res, err) {
			return
		}
		a.gmView.FitToWindow()
		a.loadMarkers(uid, false)
	})
}

// loadMarkers shows the markers placed on mapUID, pushing afterwards if
// push is set and auto-push is on.
func (a *App) loadMarkers(mapUID string, push bool) {
	if mapUID == "" {
		return
	}
	st := a.lib.Store()
	background(a, func(ctx context.Context) ([]store.Marker, error) {
		return st.ListMarkersForMap(ctx, mapUID)
	}, func(markers []store.Marker, err error) {
		if err != nil {
			a.log.Warn("failed to list markers", "map", mapUID, "error", err)
			return
		}
		await(a.gm.LoadMarkers(markers, a.lib.MarkerPath), func(ms []canvas.Marker, err error) {
			if err != nil || a.gm.MapUID() != mapUID {
				return
			}
			a.gm.SetMarkers(ms)
			if push && a.bridge.AutoPush() {
				a.push(true)
			}
		})
	})
}

func (a *App) push(force bool) {
	await(a.bridge.Push(force), func(changed bool, err error) {
		if err != nil {
			a.log.Warn("push failed", "error", err)
		}
	})
}

func (a *App) restore() {
	await(a.gm.Restore(), func(res canvas.LoadResult, err error) {
		a.gm.ApplyRestore(res, err)
	})
}

func (a *App) hideAll() {
	if !a.gm.Loaded() {
		return
	}
	dialog.ShowConfirm("Hide everything", "Cover the whole map with fog again?", func(ok bool) {
		if ok {
			a.gm.Clear()
		}
	}, a.gmWin)
}

func (a *App) importMap() {
	dialog.ShowFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.gmWin)
			return
		}
		if r == nil {
			return
		}
		r.Close()
		path := r.URI().Path()
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		at := len(a.maps)
		background(a, func(ctx context.Context) (store.Map, error) {
			return a.lib.ImportMap(ctx, name, path, "", at)
		}, func(m store.Map, err error) {
			if err != nil {
				dialog.ShowError(fmt.Errorf("importing %s: %w", name, err), a.gmWin)
				return
			}
			a.reloadLibrary()
		})
	}, a.gmWin)
}

func (a *App) renameMap() {
	uid := a.gm.MapUID()
	if uid == "" {
		return
	}
	entry := widget.NewEntry()
	for _, m := range a.maps {
		if m.UID == uid {
			entry.SetText(m.DisplayName)
		}
	}
	dialog.ShowForm("Rename map", "Rename", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", entry)}, func(ok bool) {
		if !ok {
			return
		}
		name := entry.Text
		background(a, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.lib.Store().RenameMap(ctx, uid, name)
		}, func(_ struct{}, err error) {
			if err != nil {
				dialog.ShowError(err, a.gmWin)
				return
			}
			a.reloadLibrary()
		})
	}, a.gmWin)
}

func (a *App) deleteMap() {
	uid := a.gm.MapUID()
	if uid == "" {
		return
	}
	dialog.ShowConfirm("Delete map", "Delete this map and its reveal?", func(ok bool) {
		if !ok {
			return
		}
		a.gm.Unload()
		a.bridge.Forget(uid)
		a.mapList.UnselectAll()
		await(a.lib.QueueDeleteMap(a.pool, uid), func(_ struct{}, err error) {
			if err != nil {
				dialog.ShowError(err, a.gmWin)
			}
			a.reloadLibrary()
		})
	}, a.gmWin)
}

func (a *App) moveMap(delta int) {
	from := -1
	for i, m := range a.maps {
		if m.UID == a.gm.MapUID() {
			from = i
		}
	}
	to := from + delta
	if from < 0 || to < 0 || to >= len(a.maps) {
		return
	}
	background(a, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.lib.Store().MoveMap(ctx, from, to)
	}, func(_ struct{}, err error) {
		if err != nil {
			a.log.Warn("failed to reorder maps", "error", err)
		}
		a.reloadLibrary()
	})
}

func (a *App) importMarker() {
	dialog.ShowFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.gmWin)
			return
		}
		if r == nil {
			return
		}
		r.Close()
		path := r.URI().Path()
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		background(a, func(ctx context.Context) (store.Marker, error) {
			return a.lib.ImportMarker(ctx, name, path, store.Append)
		}, func(_ store.Marker, err error) {
			if err != nil {
				dialog.ShowError(fmt.Errorf("importing %s: %w", name, err), a.gmWin)
				return
			}
			a.reloadLibrary()
		})
	}, a.gmWin)
}

// placeMarker puts the selected marker in the middle of the shown map.
func (a *App) placeMarker() {
	uid, mapUID := a.selectedMarker, a.gm.MapUID()
	if uid == "" || mapUID == "" {
		return
	}
	size := a.gm.Size()
	a.setMarkerMap(uid, mapUID, float64(size.X)/2, float64(size.Y)/2)
}

func (a *App) unplaceMarker() {
	if a.selectedMarker == "" {
		return
	}
	a.setMarkerMap(a.selectedMarker, "", 0, 0)
}

func (a *App) setMarkerMap(uid, mapUID string, x, y float64) {
	shown := a.gm.MapUID()
	background(a, func(ctx context.Context) (store.Marker, error) {
		return a.lib.PlaceMarker(ctx, uid, mapUID, x, y)
	}, func(_ store.Marker, err error) {
		if err != nil {
			dialog.ShowError(err, a.gmWin)
			return
		}
		a.reloadLibrary()
		a.loadMarkers(shown, true)
	})
}

func (a *App) deleteMarker() {
	uid := a.selectedMarker
	if uid == "" {
		return
	}
	a.selectedMarker = ""
	a.markerList.UnselectAll()
	shown := a.gm.MapUID()
	background(a, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.lib.DeleteMarker(ctx, uid)
	}, func(_ struct{}, err error) {
		if err != nil {
			dialog.ShowError(err, a.gmWin)
		}
		a.reloadLibrary()
		a.loadMarkers(shown, true)
	})
}

func (a *App) markerModified(_ *canvas.MapCanvas, m store.Marker) {
	st := a.lib.Store()
	background(a, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, st.UpdateMarker(ctx, m)
	}, func(_ struct{}, err error) {
		if err != nil {
			a.log.Warn("failed to save marker", "marker", m.UID, "error", err)
		}
	})
}

func (a *App) markerSelected(_ *canvas.MapCanvas, m store.Marker) {
	for i, cur := range a.markers {
		if cur.UID == m.UID {
			a.markerList.Select(i)
			return
		}
	}
}

func (a *App) exportPDF() {
	uid := a.gm.MapUID()
	if uid == "" {
		return
	}
	dialog.ShowFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.gmWin)
			return
		}
		if w == nil {
			return
		}
		w.Close()
		path := w.URI().Path()
		title := uid
		for _, m := range a.maps {
			if m.UID == uid {
				title = m.DisplayName
			}
		}
		fog := a.cfg.PlayerFog()
		background(a, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, export.WriteMap(a.lib, uid, title, fog, path)
		}, func(_ struct{}, err error) {
			if err != nil {
				dialog.ShowError(err, a.gmWin)
				return
			}
			a.SetStatus("Exported " + filepath.Base(path))
		})
	}, a.gmWin)
}
