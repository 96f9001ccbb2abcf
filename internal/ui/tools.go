package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"MapReveal/internal/state"
)

var toolLabels = []string{"Paint", "Area"}

func toolFromLabel(s string) state.Tool {
	if s == "Area" {
		return state.ToolArea
	}
	return state.ToolPaint
}

func labelForTool(t state.Tool) string {
	if t == state.ToolArea {
		return "Area"
	}
	return "Paint"
}

// newToolbar builds the GM toolbar: reveal tool, brush size, push controls
// and view toggles.
func (a *App) newToolbar() fyne.CanvasObject {
	tools := widget.NewRadioGroup(toolLabels, func(s string) {
		a.gm.SetTool(toolFromLabel(s))
	})
	tools.Horizontal = true
	tools.Required = true
	tools.SetSelected(labelForTool(a.gm.Tool()))

	// painting fog back over a revealed area
	hide := widget.NewCheck("Hide", func(on bool) {
		if on {
			a.gm.SetKind(state.Hide)
		} else {
			a.gm.SetKind(state.Reveal)
		}
	})

	brush := widget.NewSlider(5, 200)
	brush.Step = 5
	brush.SetValue(a.cfg.Reveal.BrushRadius)
	brush.OnChanged = func(r float64) {
		a.gm.SetRadius(r)
	}
	brushBox := container.New(layout.NewGridWrapLayout(fyne.NewSize(140, 35)), brush)

	actions := widget.NewToolbar(
		widget.NewToolbarAction(theme.MediaPlayIcon(), func() { a.push(true) }),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), a.restore),
		widget.NewToolbarAction(theme.VisibilityOffIcon(), a.hideAll),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomInIcon(), a.gmView.ZoomIn),
		widget.NewToolbarAction(theme.ZoomOutIcon(), a.gmView.ZoomOut),
		widget.NewToolbarAction(theme.ZoomFitIcon(), a.gmView.FitToWindow),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentPrintIcon(), a.exportPDF),
	)

	autoPush := widget.NewCheck("Auto push", a.bridge.SetAutoPush)
	autoPush.SetChecked(a.bridge.AutoPush())
	zoomFit := widget.NewCheck("Zoom fit", a.bridge.SetZoomFit)
	zoomFit.SetChecked(a.bridge.ZoomFit())
	follow := widget.NewCheck("Outline", a.gm.SetFollow)
	follow.SetChecked(a.cfg.GM.Follow)

	return container.NewHBox(
		widget.NewLabel("Tool:"),
		tools,
		hide,
		widget.NewLabel("Brush:"),
		brushBox,
		widget.NewSeparator(),
		actions,
		widget.NewSeparator(),
		autoPush,
		zoomFit,
		follow,
		layout.NewSpacer(),
		a.status,
	)
}
