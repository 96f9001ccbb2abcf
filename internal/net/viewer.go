package net

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gorilla/websocket"

	"MapReveal/internal/state"
)

// Viewer receives snapshots from a host.
type Viewer struct {
	conn  *websocket.Conn
	clock state.Clock
	log   *slog.Logger
}

// Dial connects to the host at addr (host:port).
func Dial(ctx context.Context, addr string, logger *slog.Logger) (*Viewer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return &Viewer{conn: conn, log: logger.With("component", "viewer", "host", addr)}, nil
}

// Run hands every new frame to show until the connection ends or ctx is
// done. Frames older than one already shown are dropped.
func (v *Viewer) Run(ctx context.Context, show func(Frame)) error {
	go func() {
		<-ctx.Done()
		v.conn.Close()
	}()
	for {
		_, data, err := v.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading from host: %w", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			v.log.Warn("ignoring malformed message", "error", err)
			continue
		}
		if msg.Type != TypeSnapshot {
			continue
		}
		if !v.clock.Witness(msg.Revision) {
			v.log.Debug("dropped stale snapshot", "revision", msg.Revision)
			continue
		}
		frame, err := decodeMessage(msg)
		if err != nil {
			v.log.Warn("ignoring undecodable snapshot", "error", err)
			continue
		}
		show(frame)
	}
}

func (v *Viewer) Close() error {
	return v.conn.Close()
}
