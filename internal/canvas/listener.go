package canvas

import "MapReveal/internal/store"

// Listener is told about gestures after their result is committed.
type Listener interface {
	ToolFinished(c *MapCanvas)
	MarkerModified(c *MapCanvas, m store.Marker)
	MarkerSelected(c *MapCanvas, m store.Marker)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	OnToolFinished   func(c *MapCanvas)
	OnMarkerModified func(c *MapCanvas, m store.Marker)
	OnMarkerSelected func(c *MapCanvas, m store.Marker)
}

func (f ListenerFuncs) ToolFinished(c *MapCanvas) {
	if f.OnToolFinished != nil {
		f.OnToolFinished(c)
	}
}

func (f ListenerFuncs) MarkerModified(c *MapCanvas, m store.Marker) {
	if f.OnMarkerModified != nil {
		f.OnMarkerModified(c, m)
	}
}

func (f ListenerFuncs) MarkerSelected(c *MapCanvas, m store.Marker) {
	if f.OnMarkerSelected != nil {
		f.OnMarkerSelected(c, m)
	}
}

func (c *MapCanvas) notifyToolFinished() {
	for _, l := range c.listeners {
		l.ToolFinished(c)
	}
}

func (c *MapCanvas) notifyMarkerModified(m *Marker) {
	for _, l := range c.listeners {
		l.MarkerModified(c, m.Marker)
	}
}

func (c *MapCanvas) notifyMarkerSelected(m *Marker) {
	for _, l := range c.listeners {
		l.MarkerSelected(c, m.Marker)
	}
}
