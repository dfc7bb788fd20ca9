// Package websocket provides an aviator.Scene that forwards signals to
// browser-hosted scenes over websocket connections.
//
// A client connects, loads its engine, then announces readiness:
//
//	{"type":"ready"}
//
// From then on it receives every signal as a JSON envelope:
//
//	{"target":"GameManager","signal":"multiplier","payload":2.35}
//
// On becoming ready the client is first sent the latest envelope of every
// signal the hub has carried, so a reloaded or late scene starts from the
// current multiplier and crash state.
//
// A client sends {"type":"unready"} before unloading.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zoobzio/aviator"
)

const (
	// DefaultWriteWait bounds a single write to one client.
	DefaultWriteWait = time.Second

	maxMessageSize = 1024
)

// Control message types sent by clients.
const (
	MessageReady   = "ready"
	MessageUnready = "unready"
)

// ErrNoClients is returned by Send when no client is ready.
var ErrNoClients = errors.New("no ready clients")

type control struct {
	Type string `json:"type"`
}

type client struct {
	conn  *websocket.Conn
	mu    sync.Mutex
	ready bool
}

// write sends data guarded by the client's mutex and write deadline.
func (c *client) write(data []byte, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(data, deadline)
}

// writeLocked is write for callers already holding c.mu.
func (c *client) writeLocked(data []byte, deadline time.Time) error {
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks connected scene clients. It is ready while at least one
// client has announced readiness.
type Hub struct {
	upgrader  websocket.Upgrader
	logger    *slog.Logger
	writeWait time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
	ready   int
	closed  bool

	// Latest envelope per signal name, in order of first appearance.
	latest map[string][]byte
	names  []string
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithWriteWait sets the per-client write deadline. Default: 1s.
func WithWriteWait(d time.Duration) Option {
	return func(h *Hub) {
		h.writeWait = d
	}
}

// WithCheckOrigin sets the origin check used during the upgrade.
// Default: same-origin only.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		writeWait: DefaultWriteWait,
		clients:   make(map[*client]struct{}),
		latest:    make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{conn: conn}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	h.logger.Info("scene client connected", "remote", r.RemoteAddr)

	defer func() {
		h.unregister(c)
		_ = conn.Close()
		h.logger.Info("scene client disconnected", "remote", r.RemoteAddr)
	}()

	conn.SetReadLimit(maxMessageSize)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg control
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Debug("ignoring malformed client message", "remote", r.RemoteAddr, "error", err)
			continue
		}
		switch msg.Type {
		case MessageReady:
			if err := h.markReady(c); err != nil {
				h.logger.Warn("failed to replay state to scene client", "remote", r.RemoteAddr, "error", err)
				return
			}
		case MessageUnready:
			h.setReady(c, false)
		default:
			h.logger.Debug("ignoring unknown client message", "remote", r.RemoteAddr, "type", msg.Type)
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	if c.ready {
		h.ready--
	}
	delete(h.clients, c)
}

// markReady flags c ready and replays the latest envelopes to it. c.mu is
// taken before c becomes visible as ready, so a concurrent Send cannot
// overtake the replay.
func (h *Hub) markReady(c *client) error {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok || c.ready {
		h.mu.Unlock()
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = true
	h.ready++
	replay := make([][]byte, 0, len(h.names))
	for _, name := range h.names {
		replay = append(replay, h.latest[name])
	}
	h.mu.Unlock()

	deadline := time.Now().Add(h.writeWait)
	for _, data := range replay {
		if err := c.writeLocked(data, deadline); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) setReady(c *client, ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok || c.ready == ready {
		return
	}
	c.ready = ready
	if ready {
		h.ready++
	} else {
		h.ready--
	}
}

// Ready reports whether at least one client has announced readiness.
func (h *Hub) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready > 0
}

// Clients returns the number of connected and ready clients.
func (h *Hub) Clients() (connected, ready int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients), h.ready
}

// Send writes sig to every ready client. A client whose write fails is
// disconnected. Send fails only if no ready client received the signal.
func (h *Hub) Send(ctx context.Context, sig aviator.Signal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	h.mu.Lock()
	if _, seen := h.latest[sig.Name]; !seen {
		h.names = append(h.names, sig.Name)
	}
	h.latest[sig.Name] = data
	targets := make([]*client, 0, h.ready)
	for c := range h.clients {
		if c.ready {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return ErrNoClients
	}

	deadline := time.Now().Add(h.writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var errs []error
	for _, c := range targets {
		if err := c.write(data, deadline); err != nil {
			h.logger.Warn("failed to send signal to scene client", "signal", sig.Name, "error", err)
			h.unregister(c)
			_ = c.conn.Close()
			errs = append(errs, err)
		}
	}
	if len(errs) == len(targets) {
		return errors.Join(errs...)
	}
	return nil
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.ready = 0
	h.mu.Unlock()

	var errs []error
	for _, c := range clients {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ensure Hub implements aviator.Scene.
var _ aviator.Scene = (*Hub)(nil)
