package net

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"MapReveal/internal/bridge"
	"MapReveal/internal/canvas"
	"MapReveal/internal/library"
	"MapReveal/internal/state"
	"MapReveal/internal/store"
)

// TypeSnapshot is the only message a host sends.
const TypeSnapshot = "snapshot"

// Message is one JSON websocket frame. Image is only set when the viewer
// needs a new player image.
type Message struct {
	Type     string          `json:"type"`
	MapUID   string          `json:"map_uid"`
	Revision uint64          `json:"revision"`
	Image    []byte          `json:"image,omitempty"`
	Mask     []byte          `json:"mask"`
	Markers  []MarkerMessage `json:"markers,omitempty"`
}

type MarkerMessage struct {
	UID   string  `json:"uid"`
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Order int     `json:"order"`
	Image []byte  `json:"image"`
}

// Frame is a decoded snapshot ready to show.
type Frame struct {
	MapUID   string
	Revision uint64
	// Base is nil when the map did not change since the previous frame.
	Base    image.Image
	Mask    *image.NRGBA
	Markers []canvas.Marker
}

// encodeSnapshot turns a push into a message. The player image is read
// and encoded only when withImage is set.
func encodeSnapshot(s bridge.Snapshot, withImage bool) (Message, error) {
	msg := Message{Type: TypeSnapshot, MapUID: s.MapUID, Revision: s.Revision}
	if withImage {
		img, err := library.DecodeFile(s.BasePath)
		if err != nil {
			return Message{}, err
		}
		if msg.Image, err = encodePNG(img); err != nil {
			return Message{}, err
		}
	}
	if s.Mask != nil {
		var buf bytes.Buffer
		if err := state.EncodeMask(&buf, s.Mask); err != nil {
			return Message{}, err
		}
		msg.Mask = buf.Bytes()
	}
	for _, m := range s.Markers {
		mm := MarkerMessage{UID: m.UID, Name: m.DisplayName, X: m.X, Y: m.Y, W: m.W, H: m.H, Order: m.Order}
		if m.Image != nil {
			b, err := encodePNG(m.Image)
			if err != nil {
				return Message{}, err
			}
			mm.Image = b
		}
		msg.Markers = append(msg.Markers, mm)
	}
	return msg, nil
}

func decodeMessage(msg Message) (Frame, error) {
	f := Frame{MapUID: msg.MapUID, Revision: msg.Revision}
	if len(msg.Image) > 0 {
		img, err := png.Decode(bytes.NewReader(msg.Image))
		if err != nil {
			return Frame{}, fmt.Errorf("decoding player image: %w", err)
		}
		f.Base = img
	}
	if len(msg.Mask) > 0 {
		mask, err := state.DecodeMask(bytes.NewReader(msg.Mask))
		if err != nil {
			return Frame{}, err
		}
		f.Mask = mask
	}
	for _, mm := range msg.Markers {
		m := canvas.Marker{Marker: store.Marker{
			UID: mm.UID, DisplayName: mm.Name, MapUID: msg.MapUID,
			X: mm.X, Y: mm.Y, W: mm.W, H: mm.H, Order: mm.Order,
		}}
		if len(mm.Image) > 0 {
			img, err := png.Decode(bytes.NewReader(mm.Image))
			if err != nil {
				return Frame{}, fmt.Errorf("decoding marker %s: %w", mm.UID, err)
			}
			m.Image = img
		}
		f.Markers = append(f.Markers, m)
	}
	return f, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
