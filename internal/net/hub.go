package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"MapReveal/internal/bridge"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 4
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	// viewers are other processes on the LAN, not browsers
	CheckOrigin: func(r *http.Request) bool { return true },
}

type peer struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans pushed snapshots out to connected viewers. Publish never blocks:
// snapshots are encoded on the hub's own goroutine and only the newest
// pending one is sent. A viewer that falls behind is dropped.
type Hub struct {
	log *slog.Logger

	mu      sync.Mutex
	peers   map[*peer]struct{}
	pending *bridge.Snapshot
	// current is the last broadcast with its player image, for viewers
	// that join later.
	current []byte

	// owned by Run
	image    []byte
	imageMap string

	wake   chan struct{}
	server *http.Server
}

var _ bridge.Sink = (*Hub)(nil)

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:   logger.With("component", "hub"),
		peers: make(map[*peer]struct{}),
		wake:  make(chan struct{}, 1),
	}
}

// Publish queues s, replacing a queued snapshot not yet sent.
func (h *Hub) Publish(s bridge.Snapshot) {
	h.mu.Lock()
	h.pending = &s
	h.mu.Unlock()
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Run encodes and broadcasts snapshots until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closePeers()
			return
		case <-h.wake:
		}
		h.mu.Lock()
		s := h.pending
		h.pending = nil
		h.mu.Unlock()
		if s != nil {
			h.broadcast(*s)
		}
	}
}

// broadcast sends s to every viewer. The player image is only read and
// sent when the map differs from the previous broadcast.
func (h *Hub) broadcast(s bridge.Snapshot) {
	changed := s.MapUID != h.imageMap
	msg, err := encodeSnapshot(s, changed)
	if err != nil {
		h.log.Warn("failed to encode snapshot", "map", s.MapUID, "error", err)
		return
	}
	if changed {
		h.image, h.imageMap = msg.Image, s.MapUID
	}
	msg.Image = nil
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("failed to marshal snapshot", "error", err)
		return
	}
	msg.Image = h.image
	full, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("failed to marshal snapshot", "error", err)
		return
	}
	if changed {
		data = full
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = full
	for p := range h.peers {
		h.enqueue(p, data)
	}
	h.log.Debug("broadcast snapshot", "map", s.MapUID, "revision", s.Revision, "viewers", len(h.peers))
}

// enqueue hands data to p's writer. Callers hold h.mu.
func (h *Hub) enqueue(p *peer, data []byte) {
	select {
	case p.send <- data:
	default:
		h.log.Warn("dropping slow viewer", "addr", p.conn.RemoteAddr().String())
		delete(h.peers, p)
		close(p.send)
	}
}

// ServeHTTP upgrades a viewer connection and sends it the current snapshot.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	p := &peer{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.peers[p] = struct{}{}
	if h.current != nil {
		p.send <- h.current
	}
	h.mu.Unlock()
	h.log.Info("viewer connected", "addr", conn.RemoteAddr().String())

	go h.writeLoop(p)
	h.readLoop(p)
}

func (h *Hub) writeLoop(p *peer) {
	defer p.conn.Close()
	for data := range p.send {
		p.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("write to viewer failed", "error", err)
			h.remove(p)
			return
		}
	}
	p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// readLoop discards anything the viewer sends and notices when it leaves.
func (h *Hub) readLoop(p *peer) {
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			h.log.Info("viewer disconnected", "addr", p.conn.RemoteAddr().String())
			h.remove(p)
			return
		}
	}
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[p]; ok {
		delete(h.peers, p)
		close(p.send)
	}
}

func (h *Hub) closePeers() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.peers {
		delete(h.peers, p)
		close(p.send)
	}
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// ListenAndServe serves viewers on port until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", port, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	h.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.server.Shutdown(shutdown)
	}()

	h.log.Info("serving player displays", "port", port)
	if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving viewers: %w", err)
	}
	return nil
}
