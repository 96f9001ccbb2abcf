package ui

import (
	"context"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"MapReveal/internal/canvas"
	"MapReveal/internal/config"
	mrnet "MapReveal/internal/net"
)

// RemoteDisplay is a player-only window fed by a GM host over the network.
type RemoteDisplay struct {
	model  *canvas.MapCanvas
	view   *MapView
	status *widget.Label
	log    *slog.Logger
	fit    bool
}

func NewRemoteDisplay(cfg *config.Config, logger *slog.Logger) *RemoteDisplay {
	if logger == nil {
		logger = slog.Default()
	}
	model := canvas.New(canvas.Options{Fog: cfg.PlayerFog(), Logger: logger})
	return &RemoteDisplay{
		model:  model,
		view:   NewMapView(model, false),
		status: widget.NewLabel("Waiting for the game master..."),
		log:    logger.With("component", "remote"),
		fit:    cfg.Sync.ZoomFit,
	}
}

// Show applies a frame. It must run on the UI thread.
func (d *RemoteDisplay) Show(f mrnet.Frame) {
	if f.Base != nil {
		d.model.ShowImage(f.MapUID, f.Base)
		d.view.FitToWindow()
	}
	if !d.model.Loaded() || d.model.MapUID() != f.MapUID {
		d.log.Debug("frame for a map not shown yet", "map", f.MapUID)
		return
	}
	if f.Mask != nil {
		if err := d.model.ApplyMask(f.Mask); err != nil {
			d.log.Warn("failed to apply pushed mask", "error", err)
		}
	}
	d.model.SetMarkers(f.Markers)
	if d.fit {
		d.view.FitToWindow()
	}
	d.status.SetText("")
}

// Run opens the window and shows frames from v until the window closes or
// the host goes away.
func (d *RemoteDisplay) Run(fa fyne.App, v *mrnet.Viewer) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := fa.NewWindow("MapReveal - Players")
	w.SetContent(container.NewBorder(nil, d.status, nil, nil, d.view))
	w.Resize(fyne.NewSize(1024, 768))

	go func() {
		err := v.Run(ctx, func(f mrnet.Frame) {
			fyne.Do(func() { d.Show(f) })
		})
		text := "Disconnected from the game master."
		if err != nil && ctx.Err() == nil {
			d.log.Warn("connection lost", "error", err)
		}
		fyne.Do(func() { d.status.SetText(text) })
	}()
	w.ShowAndRun()
}
